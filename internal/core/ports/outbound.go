package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

// AnalysisRepository persists analysis records. Records are never updated.
type AnalysisRepository interface {
	Save(ctx context.Context, analysis *domain.Analysis) error
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	List(ctx context.Context, limit int) ([]domain.Analysis, error)
	Delete(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
}

// ObjectStorage archives raw uploads for asynchronous processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries asynchronous analysis jobs.
type MessageQueue interface {
	PublishAnalysisRequested(ctx context.Context, req domain.AnalysisRequest) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisRequest) error) error
}

// EventPublisher announces persisted analyses.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error
}

// TextExtractor turns uploaded bytes into plain text.
type TextExtractor interface {
	Supports(filename string) bool
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Chunker splits document text into ordered overlapping chunks.
type Chunker interface {
	Split(text string) []domain.Chunk
}

// ModelGateway sends one request to the completion backend under the
// configured timeout and retry policy.
type ModelGateway interface {
	Complete(ctx context.Context, req domain.ModelRequest) (string, error)
}

// ModelProbe performs a single cheap round trip used by health checks.
type ModelProbe interface {
	Probe(ctx context.Context, req domain.ModelRequest) error
}

// PipelineMetrics receives per-run observations. Implementations must be
// safe for concurrent use.
type PipelineMetrics interface {
	ObserveChunk(outcome string, duration time.Duration)
	ObserveFindingsDropped(reason string, count int)
	ObserveAnalysis(status string, chunks, findings int, duration time.Duration)
}
