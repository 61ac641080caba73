package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
)

const defaultMaxUploadBytes int64 = 20 << 20

// IngestContractUseCase accepts uploads. Upload analyzes synchronously;
// Enqueue archives the file and hands it to the worker.
type IngestContractUseCase struct {
	extractor ports.TextExtractor
	analyzer  ports.ContractAnalyzer
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	maxBytes  int64
}

func NewIngestContractUseCase(
	extractor ports.TextExtractor,
	analyzer ports.ContractAnalyzer,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxBytes int64,
) *IngestContractUseCase {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &IngestContractUseCase{
		extractor: extractor,
		analyzer:  analyzer,
		storage:   storage,
		queue:     queue,
		maxBytes:  maxBytes,
	}
}

func (uc *IngestContractUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Analysis, error) {
	data, err := uc.readUpload(filename, body)
	if err != nil {
		return nil, err
	}

	text, err := uc.extractor.Extract(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	slog.Info("contract_extracted", "filename", filename, "bytes", len(data), "text_length", len(text))

	return uc.analyzer.Analyze(ctx, filename, text)
}

func (uc *IngestContractUseCase) Enqueue(ctx context.Context, filename string, body io.Reader) (*domain.AnalysisRequest, error) {
	if uc.storage == nil || uc.queue == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "enqueue contract", errors.New("asynchronous analysis is disabled"))
	}
	data, err := uc.readUpload(filename, body)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	req := domain.AnalysisRequest{
		RequestID:   id,
		StorageKey:  fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)),
		Filename:    filename,
		SubmittedAt: time.Now().UTC(),
	}
	if err := uc.storage.Save(ctx, req.StorageKey, bytes.NewReader(data)); err != nil {
		return nil, &domain.StorageError{Op: "archive upload", Err: err}
	}
	if err := uc.queue.PublishAnalysisRequested(ctx, req); err != nil {
		return nil, fmt.Errorf("publish analysis request: %w", err)
	}

	slog.Info("analysis_enqueued", "request_id", req.RequestID, "filename", filename, "bytes", len(data))
	return &req, nil
}

func (uc *IngestContractUseCase) readUpload(filename string, body io.Reader) ([]byte, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, &domain.ExtractionError{Reason: "filename is required"}
	}
	if !uc.extractor.Supports(filename) {
		return nil, &domain.ExtractionError{Filename: filename, Reason: "unsupported file type"}
	}

	data, err := io.ReadAll(io.LimitReader(body, uc.maxBytes+1))
	if err != nil {
		return nil, &domain.ExtractionError{Filename: filename, Reason: "upload could not be read", Err: err}
	}
	if int64(len(data)) > uc.maxBytes {
		return nil, &domain.ExtractionError{Filename: filename, Reason: fmt.Sprintf("file exceeds %d bytes", uc.maxBytes)}
	}
	if len(data) == 0 {
		return nil, &domain.ExtractionError{Filename: filename, Reason: "empty file uploaded"}
	}
	return data, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "contract.bin"
	}
	return base
}
