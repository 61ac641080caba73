package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/resilience"
)

const operationComplete = "model.complete"

// Provider sends exactly one completion request. Retries, pacing and
// timeouts are the Gateway's job.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req domain.ModelRequest) (string, error)
}

type Policy struct {
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	Multiplier        float64
	Jitter            float64
	RequestsPerSecond float64
	Burst             int
	BreakerEnabled    bool
}

func DefaultPolicy() Policy {
	return Policy{
		Timeout:           120 * time.Second,
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		Multiplier:        2,
		Jitter:            0.1,
		RequestsPerSecond: 0,
		BreakerEnabled:    true,
	}
}

// Gateway implements ports.ModelGateway on top of a Provider.
type Gateway struct {
	provider Provider
	executor *resilience.Executor
	limiter  *rate.Limiter
	timeout  time.Duration
}

func NewGateway(provider Provider, policy Policy, opts ...GatewayOption) *Gateway {
	def := DefaultPolicy()
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = def.MaxRetries
	}

	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = policy.MaxRetries + 1
	cfg.RetryInitialBackoff = policy.InitialBackoff
	cfg.RetryMaxBackoff = policy.MaxBackoff
	cfg.RetryMultiplier = policy.Multiplier
	cfg.RetryJitter = policy.Jitter
	cfg.BreakerEnabled = policy.BreakerEnabled

	g := &Gateway{
		provider: provider,
		executor: resilience.NewExecutor(cfg),
		timeout:  policy.Timeout,
	}
	if policy.RequestsPerSecond > 0 {
		burst := policy.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(policy.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type GatewayOption func(*Gateway)

// WithRetryObserver reports every scheduled retry, typically to metrics.
func WithRetryObserver(observer resilience.RetryObserver) GatewayOption {
	return func(g *Gateway) {
		g.executor.OnRetry(observer)
	}
}

func (g *Gateway) Complete(ctx context.Context, req domain.ModelRequest) (string, error) {
	var out string
	attempts, err := g.executor.ExecuteAttempts(ctx, operationComplete, func(ctx context.Context) error {
		text, err := g.attempt(ctx, req)
		if err != nil {
			return err
		}
		out = text
		return nil
	}, Classify)
	if err != nil {
		return "", g.failure(ctx, req, attempts, err)
	}
	return out, nil
}

// Probe sends one request without retries or pacing.
func (g *Gateway) Probe(ctx context.Context, req domain.ModelRequest) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err := g.provider.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("%s probe: %w", g.provider.Name(), err)
	}
	return nil
}

func (g *Gateway) attempt(ctx context.Context, req domain.ModelRequest) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &AttemptTimeoutError{Timeout: g.timeout, Err: err}
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.provider.Complete(attemptCtx, req)
	if err == nil {
		return text, nil
	}
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", &AttemptTimeoutError{Timeout: g.timeout, Err: err}
	}
	return "", err
}

func (g *Gateway) failure(ctx context.Context, req domain.ModelRequest, attempts int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	kind := domain.ModelCallExhausted
	var statusErr *StatusError
	if errors.As(err, &statusErr) && !IsRetryableStatus(statusErr.StatusCode) {
		kind = domain.ModelCallRejected
		if statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden {
			kind = domain.ModelCallAuth
		}
	} else if !Classify(err).Retryable && !resilience.IsCircuitOpen(err) {
		kind = domain.ModelCallRejected
	}

	slog.Error("model_call_failed",
		"provider", g.provider.Name(),
		"chunk_index", req.ChunkIndex,
		"kind", string(kind),
		"attempts", attempts,
		"error", err,
	)
	return &domain.ModelCallError{Kind: kind, Attempts: attempts, Err: err}
}
