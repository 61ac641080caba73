package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/resilience"
)

// messageKind names what a publish carries. Each kind gets its own breaker,
// so a failing event stream does not block new analysis requests.
type messageKind string

const (
	kindAnalysisRequest messageKind = "analysis_request"
	kindAnalysisEvent   messageKind = "analysis_event"
)

func (k messageKind) operation() string { return "nats.publish." + string(k) }

// publishResilience keeps retries short: requests are published while an
// upload handler waits.
func publishResilience() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = 3
	cfg.RetryInitialBackoff = 200 * time.Millisecond
	cfg.RetryMaxBackoff = 2 * time.Second
	return cfg
}

// classifyPublishError retries connectivity failures. Oversized payloads and
// bad subjects say nothing about server health and are not held against the
// breaker.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.Is(err, nats.ErrMaxPayload), errors.Is(err, nats.ErrBadSubject):
		return resilience.ErrorClassification{}
	case isConnectivityError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isConnectivityError(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrReconnectBufExceeded)
}

// publishFailure maps a failed publish onto the domain error kinds. An
// unreachable broker is temporary. A request too large to publish is the
// caller's input problem.
func publishFailure(kind messageKind, err error) error {
	op := "publish " + string(kind)
	switch {
	case domain.IsKind(err, domain.ErrTemporary):
		return err
	case isConnectivityError(err) || resilience.IsCircuitOpen(err):
		return domain.WrapError(domain.ErrTemporary, op, err)
	case kind == kindAnalysisRequest && errors.Is(err, nats.ErrMaxPayload):
		return domain.WrapError(domain.ErrInvalidInput, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
