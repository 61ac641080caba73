package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePathFoldsAnalysisIDs(t *testing.T) {
	tests := map[string]string{
		"/api/analysis/6f1c":        "/api/analysis/{id}",
		"/api/analysis/6f1c/export": "/api/analysis/{id}/export",
		"/api/analyses":             "/api/analyses",
		"/metrics":                  "/metrics",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/analysis/abc", nil))

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/api/analysis/{id}", "404"))
	if got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}
}

func TestPipelineMetricsShareRegistry(t *testing.T) {
	httpMetrics := NewHTTPServerMetrics("api")
	pipeline := NewPipelineMetrics("api", httpMetrics.Registry())

	pipeline.ObserveChunk("ok", 2*time.Second)
	pipeline.ObserveChunk("parse_error", time.Second)
	pipeline.ObserveFindingsDropped("unknown_risk_level", 2)
	pipeline.ObserveFindingsDropped("empty_clause_text", 0)
	pipeline.ObserveAnalysis("success", 2, 5, 3*time.Second)
	pipeline.ObserveModelRetry("model.complete", 1, errors.New("503"))

	if got := testutil.ToFloat64(pipeline.findingsDropped.WithLabelValues("api", "unknown_risk_level")); got != 2 {
		t.Fatalf("expected 2 dropped findings, got %v", got)
	}
	if got := testutil.ToFloat64(pipeline.modelRetries.WithLabelValues("api", "model.complete")); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}

	rec := httptest.NewRecorder()
	httpMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"ccc_pipeline_chunks_total", "ccc_pipeline_analyses_total", "ccc_llm_retries_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}

func TestWorkerMetricsTracksRequests(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartRequest()
	m.FinishRequest("worker", time.Second, errors.New("boom"))
	m.ObserveQueueLag("worker", -time.Second)

	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("worker", "error")); got != 1 {
		t.Fatalf("expected one failed request, got %v", got)
	}
	if got := testutil.ToFloat64(m.processInFlight); got != 0 {
		t.Fatalf("expected no in-flight requests, got %v", got)
	}
}
