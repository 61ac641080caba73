package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/report"
)

const (
	uploadModeSync  = "sync"
	uploadModeAsync = "async"

	// multipartOverhead covers form boundaries and part headers around the file.
	multipartOverhead int64 = 1 << 20
	multipartMemory   int64 = 32 << 20
)

func (rt *Router) banner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contract Clause Checker API"})
}

func (rt *Router) checkHealth(w http.ResponseWriter, r *http.Request) {
	healthReport := rt.health.Check(r.Context())
	status := http.StatusOK
	if !healthReport.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthReport)
}

func (rt *Router) uploadContract(w http.ResponseWriter, r *http.Request) {
	mode := uploadModeSync
	if err := runtime.BindQueryParameter("form", true, false, "mode", r.URL.Query(), &mode); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind mode", err))
		return
	}

	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, &domain.ExtractionError{Reason: fmt.Sprintf("file exceeds %d bytes", rt.cfg.MaxUploadBytes), Err: err})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		}
		return
	}
	defer file.Close()

	if mode == uploadModeAsync {
		req, err := rt.ingest.Enqueue(r.Context(), header.Filename, file)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"request_id": req.RequestID,
			"status":     "queued",
		})
		return
	}

	ctx := r.Context()
	if rt.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.cfg.AnalysisTimeout)
		defer cancel()
	}
	analysis, err := rt.ingest.Upload(ctx, header.Filename, file)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = domain.WrapError(domain.ErrTemporary, "analyze upload", err)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) listAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := rt.analyses.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := bindAnalysisID(w, r)
	if !ok {
		return
	}
	analysis, err := rt.analyses.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := bindAnalysisID(w, r)
	if !ok {
		return
	}
	if err := rt.analyses.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Analysis deleted successfully"})
}

func (rt *Router) exportAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := bindAnalysisID(w, r)
	if !ok {
		return
	}
	var format string
	if err := runtime.BindQueryParameter("form", true, true, "format", r.URL.Query(), &format); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind format", err))
		return
	}

	analysis, err := rt.analyses.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rendered, err := report.Render(format, analysis)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", rendered.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rendered.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rendered.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.Body)
}

func bindAnalysisID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind analysis id", err))
		return "", false
	}
	return id, true
}
