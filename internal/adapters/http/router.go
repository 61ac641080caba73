package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kirillkom/contract-clause-checker/internal/config"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
	"github.com/kirillkom/contract-clause-checker/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg       config.Config
	ingest    ports.ContractIngestor
	analyses  ports.AnalysisManager
	health    ports.HealthChecker
	validator *requestValidator

	metrics *metrics.HTTPServerMetrics
	mcp     http.Handler
}

type RouterOption func(*Router)

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

// WithMCPHandler mounts the MCP streamable HTTP endpoint at /mcp.
func WithMCPHandler(h http.Handler) RouterOption {
	return func(rt *Router) { rt.mcp = h }
}

func NewRouter(
	cfg config.Config,
	ingest ports.ContractIngestor,
	analyses ports.AnalysisManager,
	health ports.HealthChecker,
	opts ...RouterOption,
) (*Router, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	rt := &Router{
		cfg:       cfg,
		ingest:    ingest,
		analyses:  analyses,
		health:    health,
		validator: validator,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(requestIDMiddleware)
	mux.Use(accessLogMiddleware)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(rt.cfg.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	if rt.mcp != nil {
		mux.Handle("/mcp", rt.mcp)
	}

	mux.Route("/api", func(r chi.Router) {
		r.Use(rt.validator.middleware)
		r.Get("/", rt.banner)
		r.Get("/openapi.yaml", serveOpenAPISpec)
		r.Get("/health", rt.checkHealth)
		r.Post("/upload-contract", rt.uploadContract)
		r.Get("/analyses", rt.listAnalyses)
		r.Get("/analysis/{id}", rt.getAnalysis)
		r.Delete("/analysis/{id}", rt.deleteAnalysis)
		r.Get("/analysis/{id}/export", rt.exportAnalysis)
	})

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	if rt.metrics != nil {
		return rt.metrics.Middleware(serviceName, mux)
	}
	return mux
}

// WriteTimeout leaves room for a full synchronous analysis plus the response.
func (rt *Router) WriteTimeout() time.Duration {
	return rt.cfg.AnalysisTimeout + 30*time.Second
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
