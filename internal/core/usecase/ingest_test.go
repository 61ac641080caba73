package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

func TestIngestUploadExtractsAndAnalyzes(t *testing.T) {
	extractor := &extractorFake{text: "The Supplier may terminate.", supported: true}
	analyzer := &analyzerFake{}
	uc := NewIngestContractUseCase(extractor, analyzer, nil, nil, 1024)

	analysis, err := uc.Upload(context.Background(), "msa.pdf", bytes.NewBufferString("%PDF-bytes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if analysis.ID != "analysis-1" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if string(extractor.got) != "%PDF-bytes" {
		t.Fatalf("extractor got %q", extractor.got)
	}
	if analyzer.filename != "msa.pdf" || analyzer.text != "The Supplier may terminate." {
		t.Fatalf("analyzer got %q / %q", analyzer.filename, analyzer.text)
	}
}

func TestIngestUploadRejectsBadFiles(t *testing.T) {
	cases := []struct {
		name      string
		filename  string
		body      string
		supported bool
		reason    string
	}{
		{name: "empty", filename: "a.pdf", body: "", supported: true, reason: "empty file uploaded"},
		{name: "unsupported", filename: "a.exe", body: "MZ", supported: false, reason: "unsupported file type"},
		{name: "too large", filename: "a.pdf", body: strings.Repeat("x", 17), supported: true, reason: "file exceeds 16 bytes"},
		{name: "no filename", filename: " ", body: "x", supported: true, reason: "filename is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analyzer := &analyzerFake{}
			uc := NewIngestContractUseCase(&extractorFake{supported: tc.supported}, analyzer, nil, nil, 16)

			_, err := uc.Upload(context.Background(), tc.filename, strings.NewReader(tc.body))
			var extractErr *domain.ExtractionError
			if !errors.As(err, &extractErr) || extractErr.Reason != tc.reason {
				t.Fatalf("expected extraction error %q, got %v", tc.reason, err)
			}
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input kind")
			}
			if analyzer.filename != "" {
				t.Fatalf("analyzer must not run")
			}
		})
	}
}

func TestIngestUploadPropagatesExtractorError(t *testing.T) {
	extractErr := &domain.ExtractionError{Filename: "scan.pdf", Reason: "no text could be extracted"}
	uc := NewIngestContractUseCase(&extractorFake{err: extractErr, supported: true}, &analyzerFake{}, nil, nil, 0)

	_, err := uc.Upload(context.Background(), "scan.pdf", strings.NewReader("%PDF"))
	if !errors.Is(err, extractErr) {
		t.Fatalf("expected extractor error, got %v", err)
	}
}

func TestIngestEnqueueArchivesAndPublishes(t *testing.T) {
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestContractUseCase(&extractorFake{supported: true}, &analyzerFake{}, storage, queue, 0)

	req, err := uc.Enqueue(context.Background(), "master agreement.pdf", bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if req.RequestID == "" || !strings.HasSuffix(req.StorageKey, "_master_agreement.pdf") {
		t.Fatalf("unexpected request: %+v", req)
	}
	if string(storage.objects[req.StorageKey]) != "hello" {
		t.Fatalf("expected archived body")
	}
	if len(queue.published) != 1 || queue.published[0] != *req {
		t.Fatalf("expected published request, got %+v", queue.published)
	}
}

func TestIngestEnqueueQueueError(t *testing.T) {
	uc := NewIngestContractUseCase(&extractorFake{supported: true}, &analyzerFake{}, newStorageFake(), &queueFake{publishErr: errors.New("queue down")}, 0)

	_, err := uc.Enqueue(context.Background(), "report.txt", bytes.NewBufferString("hello"))
	if err == nil || !strings.Contains(err.Error(), "publish analysis request") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestIngestEnqueueDisabledWithoutQueue(t *testing.T) {
	uc := NewIngestContractUseCase(&extractorFake{supported: true}, &analyzerFake{}, nil, nil, 0)

	_, err := uc.Enqueue(context.Background(), "report.txt", bytes.NewBufferString("hello"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"Договор 1.pdf":    "________1.pdf",
		"":                 "contract.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
