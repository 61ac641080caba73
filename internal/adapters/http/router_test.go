package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/contract-clause-checker/internal/config"
	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

type ingestFake struct {
	err          error
	gotFilename  string
	gotBody      string
	enqueueCalls int
}

func (f *ingestFake) Upload(_ context.Context, filename string, body io.Reader) (*domain.Analysis, error) {
	f.gotFilename = filename
	data, _ := io.ReadAll(body)
	f.gotBody = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Analysis{
		ID:          "analysis-1",
		Filename:    filename,
		ProcessedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		AnalysisResults: []domain.Finding{{
			ClauseText:    "The supplier may terminate at any time.",
			IssueDetected: "One-sided termination",
			RiskLevel:     domain.RiskHigh,
		}},
	}, nil
}

func (f *ingestFake) Enqueue(_ context.Context, filename string, _ io.Reader) (*domain.AnalysisRequest, error) {
	f.enqueueCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnalysisRequest{RequestID: "req-1", StorageKey: "req-1_" + filename, Filename: filename}, nil
}

type analysesFake struct {
	items     map[string]domain.Analysis
	deletedID string
}

func newAnalysesFake() *analysesFake {
	return &analysesFake{items: map[string]domain.Analysis{
		"a1": {
			ID:          "a1",
			Filename:    "lease.pdf",
			ProcessedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
			AnalysisResults: []domain.Finding{{
				ClauseText:    "Rent may be raised without notice.",
				IssueDetected: "Unilateral price change",
				RiskLevel:     domain.RiskMedium,
			}},
		},
	}}
}

func (f *analysesFake) GetByID(_ context.Context, id string) (*domain.Analysis, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", errors.New("id="+id))
	}
	return &item, nil
}

func (f *analysesFake) List(context.Context) ([]domain.Analysis, error) {
	out := make([]domain.Analysis, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *analysesFake) Delete(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return domain.WrapError(domain.ErrAnalysisNotFound, "delete analysis", errors.New("id="+id))
	}
	delete(f.items, id)
	f.deletedID = id
	return nil
}

type healthFake struct {
	report domain.HealthReport
}

func (f healthFake) Check(context.Context) domain.HealthReport { return f.report }

func newTestHandler(t *testing.T, ingest *ingestFake, analyses *analysesFake, health healthFake) http.Handler {
	t.Helper()
	router, err := NewRouter(config.Config{
		CORSOrigins:     []string{"*"},
		MaxUploadBytes:  1 << 20,
		AnalysisTimeout: time.Minute,
	}, ingest, analyses, health)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestBannerAndRequestID(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set(requestIDHeader, "rid-42")
	res := serve(handler, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := decodeBody(t, res)["message"]; got != "Contract Clause Checker API" {
		t.Fatalf("unexpected banner %v", got)
	}
	if got := res.Header().Get(requestIDHeader); got != "rid-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestUploadContractReturnsAnalysis(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestHandler(t, ingest, newAnalysesFake(), healthFake{})

	body, contentType := multipartUpload(t, "file", "msa.txt", "Termination clause text")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-contract", body)
	req.Header.Set("Content-Type", contentType)
	res := serve(handler, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if ingest.gotFilename != "msa.txt" || ingest.gotBody != "Termination clause text" {
		t.Fatalf("unexpected upload passed to use case: %q %q", ingest.gotFilename, ingest.gotBody)
	}

	var analysis domain.Analysis
	if err := json.Unmarshal(res.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if analysis.ID != "analysis-1" || len(analysis.AnalysisResults) != 1 || analysis.AnalysisResults[0].RiskLevel != domain.RiskHigh {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
}

func TestUploadContractRequiresFileField(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	body, contentType := multipartUpload(t, "document", "msa.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-contract", body)
	req.Header.Set("Content-Type", contentType)
	res := serve(handler, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadContractMapsErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "extraction",
			err:        &domain.ExtractionError{Filename: "a.exe", Reason: "unsupported file type"},
			wantStatus: http.StatusBadRequest,
			wantError:  "could not read document: unsupported file type",
		},
		{
			name:       "model exhausted",
			err:        &domain.ModelCallError{Kind: domain.ModelCallExhausted, Attempts: 4, Err: errors.New("status 502")},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "analysis service unavailable",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "analysis service unavailable",
		},
		{
			name:       "storage",
			err:        &domain.StorageError{Op: "insert analysis", Err: errors.New("connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(t, &ingestFake{err: tc.err}, newAnalysesFake(), healthFake{})

			body, contentType := multipartUpload(t, "file", "a.exe", "MZ")
			req := httptest.NewRequest(http.MethodPost, "/api/upload-contract", body)
			req.Header.Set("Content-Type", contentType)
			res := serve(handler, req)

			if res.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, res.Code)
			}
			if got := decodeBody(t, res)["error"]; got != tc.wantError {
				t.Fatalf("expected error %q, got %v", tc.wantError, got)
			}
		})
	}
}

func TestUploadContractAsyncQueues(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestHandler(t, ingest, newAnalysesFake(), healthFake{})

	body, contentType := multipartUpload(t, "file", "msa.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-contract?mode=async", body)
	req.Header.Set("Content-Type", contentType)
	res := serve(handler, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	payload := decodeBody(t, res)
	if payload["request_id"] != "req-1" || payload["status"] != "queued" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if ingest.enqueueCalls != 1 {
		t.Fatalf("expected one enqueue call, got %d", ingest.enqueueCalls)
	}
}

func TestUploadContractRejectsUnknownMode(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestHandler(t, ingest, newAnalysesFake(), healthFake{})

	body, contentType := multipartUpload(t, "file", "msa.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-contract?mode=later", body)
	req.Header.Set("Content-Type", contentType)
	res := serve(handler, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if ingest.enqueueCalls != 0 || ingest.gotFilename != "" {
		t.Fatalf("use case must not run for an invalid request")
	}
}

func TestGetAnalysis(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	res := serve(handler, httptest.NewRequest(http.MethodGet, "/api/analysis/a1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := decodeBody(t, res)["filename"]; got != "lease.pdf" {
		t.Fatalf("unexpected filename %v", got)
	}

	res = serve(handler, httptest.NewRequest(http.MethodGet, "/api/analysis/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestListAnalysesReturnsArray(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	res := serve(handler, httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var items []domain.Analysis
	if err := json.Unmarshal(res.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a1" {
		t.Fatalf("unexpected list %+v", items)
	}
}

func TestDeleteAnalysis(t *testing.T) {
	analyses := newAnalysesFake()
	handler := newTestHandler(t, &ingestFake{}, analyses, healthFake{})

	res := serve(handler, httptest.NewRequest(http.MethodDelete, "/api/analysis/a1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := decodeBody(t, res)["message"]; got != "Analysis deleted successfully" {
		t.Fatalf("unexpected message %v", got)
	}
	if analyses.deletedID != "a1" {
		t.Fatalf("expected a1 to be deleted, got %q", analyses.deletedID)
	}

	res = serve(handler, httptest.NewRequest(http.MethodDelete, "/api/analysis/a1", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", res.Code)
	}
}

func TestExportAnalysis(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	res := serve(handler, httptest.NewRequest(http.MethodGet, "/api/analysis/a1/export?format=md", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if ct := res.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := res.Header().Get("Content-Disposition"); !strings.Contains(cd, "analysis-a1.md") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !strings.Contains(res.Body.String(), "Unilateral price change") {
		t.Fatalf("export is missing the finding: %s", res.Body.String())
	}
}

func TestExportAnalysisValidatesFormat(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	for _, target := range []string{
		"/api/analysis/a1/export",
		"/api/analysis/a1/export?format=pdf",
	} {
		res := serve(handler, httptest.NewRequest(http.MethodGet, target, nil))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, res.Code)
		}
	}
}

func TestHealthReflectsDependencies(t *testing.T) {
	healthy := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{report: domain.HealthReport{
		Status: "healthy", Database: "connected", LLM: "connected", Timestamp: time.Now().UTC(),
	}})
	res := serve(healthy, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	unhealthy := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{report: domain.HealthReport{
		Status: "unhealthy", Error: "database: connection refused", Timestamp: time.Now().UTC(),
	}})
	res = serve(unhealthy, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if got := decodeBody(t, res)["status"]; got != "unhealthy" {
		t.Fatalf("unexpected status %v", got)
	}
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	res := serve(handler, httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "/api/upload-contract") {
		t.Fatalf("openapi document is missing the upload route")
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyses", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	res := serve(handler, req)

	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", got)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	handler := newTestHandler(t, &ingestFake{}, newAnalysesFake(), healthFake{})

	res := serve(handler, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "not found" {
		t.Fatalf("unexpected error %v", got)
	}
}
