package ports

import (
	"context"
	"io"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

// ContractAnalyzer runs the analysis pipeline over already extracted text.
type ContractAnalyzer interface {
	Analyze(ctx context.Context, filename, text string) (*domain.Analysis, error)
}

// ContractIngestor is the inbound contract for uploads.
type ContractIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Analysis, error)
	Enqueue(ctx context.Context, filename string, body io.Reader) (*domain.AnalysisRequest, error)
}

// AnalysisReader is the read model for stored analyses.
type AnalysisReader interface {
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	List(ctx context.Context) ([]domain.Analysis, error)
}

type AnalysisManager interface {
	AnalysisReader
	Delete(ctx context.Context, id string) error
}

// AnalysisJobProcessor handles queued analysis requests.
type AnalysisJobProcessor interface {
	Process(ctx context.Context, req domain.AnalysisRequest) error
}

type HealthChecker interface {
	Check(ctx context.Context) domain.HealthReport
}
