package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

func TestClassifyPublishError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{name: "no servers", err: fmt.Errorf("flush: %w", nats.ErrNoServers), retryable: true, recordFailure: true},
		{name: "disconnected", err: nats.ErrDisconnected, retryable: true, recordFailure: true},
		{name: "reconnect buffer full", err: nats.ErrReconnectBufExceeded, retryable: true, recordFailure: true},
		{name: "canceled", err: context.Canceled},
		{name: "payload too large", err: nats.ErrMaxPayload},
		{name: "bad subject", err: nats.ErrBadSubject},
		{name: "unknown", err: errors.New("boom"), recordFailure: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPublishError(tt.err)
			if got.Retryable != tt.retryable || got.RecordFailure != tt.recordFailure {
				t.Fatalf("classifyPublishError(%v) = %+v", tt.err, got)
			}
		})
	}
}

func TestPublishFailureMapsDomainKinds(t *testing.T) {
	err := publishFailure(kindAnalysisEvent, nats.ErrConnectionClosed)
	if !domain.IsKind(err, domain.ErrTemporary) || !strings.Contains(err.Error(), "publish analysis_event") {
		t.Fatalf("expected temporary event failure, got %v", err)
	}

	err = publishFailure(kindAnalysisRequest, nats.ErrMaxPayload)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected oversized request to be invalid input, got %v", err)
	}
	if err := publishFailure(kindAnalysisEvent, nats.ErrMaxPayload); domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("oversized event is not the caller's input: %v", err)
	}

	permanent := errors.New("payload rejected")
	if got := publishFailure(kindAnalysisRequest, permanent); !errors.Is(got, permanent) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("unexpected wrapping: %v", got)
	}
}

func TestMessageKindsUseSeparateOperations(t *testing.T) {
	if kindAnalysisRequest.operation() == kindAnalysisEvent.operation() {
		t.Fatalf("request and event publishes must not share a breaker")
	}
	if got := kindAnalysisRequest.operation(); got != "nats.publish.analysis_request" {
		t.Fatalf("unexpected operation %q", got)
	}
}

func TestPublishResilienceKeepsRetriesShort(t *testing.T) {
	cfg := publishResilience()
	if cfg.RetryMaxAttempts != 3 || cfg.RetryMaxBackoff > 2*time.Second || !cfg.BreakerEnabled {
		t.Fatalf("unexpected publish resilience %+v", cfg)
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte(`{"request_id":"r1","storage_key":"r1_msa.pdf","filename":"msa.pdf","submitted_at":"2026-03-01T12:00:00Z"}`))
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if req.RequestID != "r1" || req.StorageKey != "r1_msa.pdf" || req.Filename != "msa.pdf" || req.SubmittedAt.IsZero() {
		t.Fatalf("unexpected request: %+v", req)
	}

	for _, raw := range []string{"not json", `{"request_id":"r2"}`} {
		if _, err := decodeRequest([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestSubjectOrDefault(t *testing.T) {
	if got := subjectOrDefault("  ", DefaultEventSubject); got != DefaultEventSubject {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := subjectOrDefault("custom.subject", DefaultEventSubject); got != "custom.subject" {
		t.Fatalf("unexpected subject %q", got)
	}
}
