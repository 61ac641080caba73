package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/contract-clause-checker/internal/config"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
	"github.com/kirillkom/contract-clause-checker/internal/core/usecase"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/chunking"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/extractor"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/extractor/html"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/llm"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/llm/openai"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/queue/nats"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/storage/minio"
	"github.com/kirillkom/contract-clause-checker/internal/observability/metrics"
)

type Options struct {
	Service string
	// Registerer receives pipeline metrics. Nil disables them.
	Registerer prometheus.Registerer
	// RequireQueue connects to NATS even when ASYNC_ENABLED is false.
	RequireQueue bool
}

type App struct {
	Config config.Config

	Queue     *nats.Queue
	Ingest    ports.ContractIngestor
	Analyzer  ports.ContractAnalyzer
	Analyses  ports.AnalysisManager
	Processor ports.AnalysisJobProcessor
	Health    ports.HealthChecker

	closeFn func()
}

// repository is the persistence surface the drivers share.
type repository interface {
	ports.AnalysisRepository
	EnsureSchema(ctx context.Context) error
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, repo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var pipelineMetrics ports.PipelineMetrics
	var gatewayOpts []llm.GatewayOption
	if opts.Registerer != nil {
		pm := metrics.NewPipelineMetrics(opts.Service, opts.Registerer)
		pipelineMetrics = pm
		gatewayOpts = append(gatewayOpts, llm.WithRetryObserver(pm.ObserveModelRetry))
	}

	provider, err := newProvider(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	gateway := llm.NewGateway(provider, gatewayPolicy(cfg), gatewayOpts...)

	splitter, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkBoundaryWindow)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	extractors := extractor.NewRegistry(
		plaintext.NewExtractor(),
		pdf.NewExtractor(),
		docx.NewExtractor(),
		html.NewExtractor(),
	)

	var (
		queue   *nats.Queue
		storage ports.ObjectStorage
	)
	if cfg.AsyncEnabled || opts.RequireQueue {
		storage, err = newStorage(ctx, cfg)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		queue, err = nats.NewWithOptions(cfg.NATSURL, nats.Options{
			RequestSubject: cfg.NATSRequestSubject,
			EventSubject:   cfg.NATSEventSubject,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	// A nil *nats.Queue must not leak into the interfaces below as a non-nil value.
	var (
		requests ports.MessageQueue
		events   ports.EventPublisher
	)
	if queue != nil {
		events = queue
		if cfg.AsyncEnabled {
			requests = queue
		}
	}

	analyzer := usecase.NewAnalyzeContractUseCase(
		splitter,
		gateway,
		usecase.NewAggregator(cfg.DedupSimilarityThreshold),
		repo,
		events,
		pipelineMetrics,
		usecase.AnalyzeOptions{
			Concurrency: cfg.AnalysisMaxConcurrency,
			Timeout:     cfg.AnalysisTimeout,
		},
	)

	app := &App{
		Config:    cfg,
		Queue:     queue,
		Ingest:    usecase.NewIngestContractUseCase(extractors, analyzer, storage, requests, cfg.MaxUploadBytes),
		Analyzer:  analyzer,
		Analyses:  usecase.NewAnalysisCatalog(repo, usecase.DefaultListLimit),
		Processor: usecase.NewProcessAnalysisRequestUseCase(storage, extractors, analyzer, cfg.MaxUploadBytes),
		Health:    usecase.NewHealthUseCase(repo, gateway, 0),
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}

	slog.Info("app_initialized",
		"repository", cfg.RepositoryDriver,
		"llm_provider", provider.Name(),
		"async", cfg.AsyncEnabled,
		"queue", queue != nil,
		"formats", extractors.Extensions(),
	)
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func openRepository(ctx context.Context, cfg config.Config) (*sql.DB, repository, error) {
	var (
		db   *sql.DB
		repo repository
		err  error
	)
	switch cfg.RepositoryDriver {
	case "sqlite":
		db, err = sqlite.OpenDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo = sqlite.NewAnalysisRepository(db)
	default:
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo = postgres.NewAnalysisRepository(db)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, repo, nil
}

func newProvider(cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func gatewayPolicy(cfg config.Config) llm.Policy {
	policy := llm.DefaultPolicy()
	policy.Timeout = cfg.LLMTimeout
	policy.MaxRetries = cfg.LLMMaxRetries
	policy.InitialBackoff = cfg.LLMBackoffInitial
	policy.MaxBackoff = cfg.LLMBackoffMax
	policy.Multiplier = cfg.LLMBackoffMultiplier
	policy.RequestsPerSecond = cfg.LLMRequestsPerSecond
	policy.BreakerEnabled = cfg.LLMBreakerEnabled
	return policy
}

func newStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case "minio":
		return minio.New(ctx, minio.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Region:    cfg.MinIORegion,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return localfs.New(cfg.StoragePath)
	}
}
