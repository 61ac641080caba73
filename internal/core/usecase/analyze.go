package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
)

const (
	ChunkOutcomeOK         = "ok"
	ChunkOutcomeParseError = "parse_error"
	ChunkOutcomeFailed     = "failed"

	defaultAnalysisConcurrency = 4
)

type AnalyzeOptions struct {
	Concurrency int
	Timeout     time.Duration
}

// AnalyzeContractUseCase runs the analysis pipeline: chunking, one model call
// per chunk, parsing, aggregation and persistence of the resulting record.
type AnalyzeContractUseCase struct {
	chunker    ports.Chunker
	gateway    ports.ModelGateway
	aggregator *Aggregator
	repo       ports.AnalysisRepository
	events     ports.EventPublisher
	metrics    ports.PipelineMetrics
	opts       AnalyzeOptions

	now   func() time.Time
	newID func() string
}

func NewAnalyzeContractUseCase(
	chunker ports.Chunker,
	gateway ports.ModelGateway,
	aggregator *Aggregator,
	repo ports.AnalysisRepository,
	events ports.EventPublisher,
	metrics ports.PipelineMetrics,
	opts AnalyzeOptions,
) *AnalyzeContractUseCase {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultAnalysisConcurrency
	}
	if aggregator == nil {
		aggregator = NewAggregator(DefaultDedupThreshold)
	}
	if metrics == nil {
		metrics = noopPipelineMetrics{}
	}
	return &AnalyzeContractUseCase{
		chunker:    chunker,
		gateway:    gateway,
		aggregator: aggregator,
		repo:       repo,
		events:     events,
		metrics:    metrics,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (uc *AnalyzeContractUseCase) Analyze(ctx context.Context, filename, text string) (*domain.Analysis, error) {
	start := time.Now()
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze contract", errors.New("document text is empty"))
	}

	doc := domain.NewDocument(uc.newID(), filename, text)
	chunks := uc.chunker.Split(doc.RawText)
	slog.Info("analysis_started",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"length", doc.Length,
		"chunks", len(chunks),
	)

	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	perChunk, err := uc.analyzeChunks(ctx, doc, chunks)
	if err != nil {
		uc.metrics.ObserveAnalysis("failed", len(chunks), 0, time.Since(start))
		slog.Error("analysis_failed", "document_id", doc.ID, "filename", doc.Filename, "error", err)
		if errors.Is(err, context.DeadlineExceeded) && !domain.IsKind(err, domain.ErrTemporary) {
			return nil, domain.WrapError(domain.ErrTemporary, "analyze contract", err)
		}
		return nil, err
	}

	analysis := uc.assemble(filename, uc.aggregator.Merge(chunks, perChunk))
	if err := uc.repo.Save(ctx, analysis); err != nil {
		uc.metrics.ObserveAnalysis("failed", len(chunks), 0, time.Since(start))
		var storageErr *domain.StorageError
		if errors.As(err, &storageErr) {
			return nil, err
		}
		return nil, &domain.StorageError{Op: "save analysis", Err: err}
	}

	uc.publishCompleted(ctx, analysis)
	uc.metrics.ObserveAnalysis("success", len(chunks), len(analysis.AnalysisResults), time.Since(start))
	slog.Info("analysis_completed",
		"analysis_id", analysis.ID,
		"document_id", doc.ID,
		"findings", len(analysis.AnalysisResults),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return analysis, nil
}

// analyzeChunks fans chunks out over a bounded group. Each task owns one slot
// of the result slice. A model failure cancels the remaining tasks; a parse
// failure leaves the slot empty.
func (uc *AnalyzeContractUseCase) analyzeChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) ([][]domain.Finding, error) {
	results := make([][]domain.Finding, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.Concurrency)

	for _, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunkStart := time.Now()

			raw, err := uc.gateway.Complete(gctx, BuildChunkRequest(chunk, len(chunks)))
			if err != nil {
				uc.metrics.ObserveChunk(ChunkOutcomeFailed, time.Since(chunkStart))
				return fmt.Errorf("analyze chunk %d: %w", chunk.Index, err)
			}

			parsed, err := ParseFindings(chunk.Index, raw)
			if err != nil {
				uc.metrics.ObserveChunk(ChunkOutcomeParseError, time.Since(chunkStart))
				slog.Warn("chunk_parse_failed",
					"document_id", doc.ID,
					"chunk_index", chunk.Index,
					"response_bytes", len(raw),
					"error", err,
				)
				return nil
			}
			for _, dropped := range parsed.Dropped {
				slog.Warn("finding_dropped",
					"document_id", doc.ID,
					"chunk_index", chunk.Index,
					"position", dropped.Position,
					"reason", dropped.Reason,
				)
				uc.metrics.ObserveFindingsDropped(dropped.Reason, 1)
			}

			results[chunk.Index] = parsed.Findings
			uc.metrics.ObserveChunk(ChunkOutcomeOK, time.Since(chunkStart))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (uc *AnalyzeContractUseCase) assemble(filename string, findings []domain.Finding) *domain.Analysis {
	if findings == nil {
		findings = []domain.Finding{}
	}
	return &domain.Analysis{
		ID:              uc.newID(),
		Filename:        filename,
		ProcessedAt:     uc.now().UTC(),
		AnalysisResults: findings,
	}
}

func (uc *AnalyzeContractUseCase) publishCompleted(ctx context.Context, analysis *domain.Analysis) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishAnalysisCompleted(ctx, domain.NewAnalysisCompleted(analysis)); err != nil {
		slog.Warn("analysis_event_publish_failed", "analysis_id", analysis.ID, "error", err)
	}
}

type noopPipelineMetrics struct{}

func (noopPipelineMetrics) ObserveChunk(string, time.Duration) {}

func (noopPipelineMetrics) ObserveFindingsDropped(string, int) {}

func (noopPipelineMetrics) ObserveAnalysis(string, int, int, time.Duration) {}
