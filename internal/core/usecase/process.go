package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
)

// ProcessAnalysisRequestUseCase runs a queued analysis against an archived upload.
type ProcessAnalysisRequestUseCase struct {
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	analyzer  ports.ContractAnalyzer
	maxBytes  int64
}

func NewProcessAnalysisRequestUseCase(
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	analyzer ports.ContractAnalyzer,
	maxBytes int64,
) *ProcessAnalysisRequestUseCase {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &ProcessAnalysisRequestUseCase{
		storage:   storage,
		extractor: extractor,
		analyzer:  analyzer,
		maxBytes:  maxBytes,
	}
}

func (uc *ProcessAnalysisRequestUseCase) Process(ctx context.Context, req domain.AnalysisRequest) error {
	data, err := uc.load(ctx, req.StorageKey)
	if err != nil {
		return err
	}

	text, err := uc.extractor.Extract(ctx, req.Filename, data)
	if err != nil {
		return fmt.Errorf("extract %s: %w", req.RequestID, err)
	}

	analysis, err := uc.analyzer.Analyze(ctx, req.Filename, text)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", req.RequestID, err)
	}

	slog.Info("analysis_request_processed",
		"request_id", req.RequestID,
		"analysis_id", analysis.ID,
		"findings", len(analysis.AnalysisResults),
	)
	return nil
}

func (uc *ProcessAnalysisRequestUseCase) load(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, &domain.StorageError{Op: "open archived upload", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, uc.maxBytes+1))
	if err != nil {
		return nil, &domain.StorageError{Op: "read archived upload", Err: err}
	}
	if int64(len(data)) > uc.maxBytes {
		return nil, &domain.ExtractionError{Reason: fmt.Sprintf("file exceeds %d bytes", uc.maxBytes)}
	}
	return data, nil
}
