package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/infrastructure/resilience"
)

const (
	DefaultRequestSubject = "contracts.analysis.requested"
	DefaultEventSubject   = "contracts.analysis.completed"

	workerQueueGroup = "workers"
)

// Queue carries analysis requests to workers and completion events to
// whoever listens. It implements ports.MessageQueue and ports.EventPublisher.
type Queue struct {
	conn           *nats.Conn
	requestSubject string
	eventSubject   string
	executor       *resilience.Executor
}

type Options struct {
	RequestSubject       string
	EventSubject         string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string) (*Queue, error) {
	return NewWithOptions(url, Options{})
}

func NewWithOptions(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("contract-clause-checker"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	executor := options.ResilienceExecutor
	if executor == nil {
		executor = resilience.NewExecutor(publishResilience())
	}
	return &Queue{
		conn:           conn,
		requestSubject: subjectOrDefault(options.RequestSubject, DefaultRequestSubject),
		eventSubject:   subjectOrDefault(options.EventSubject, DefaultEventSubject),
		executor:       executor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalysisRequested(ctx context.Context, req domain.AnalysisRequest) error {
	return q.publishJSON(ctx, kindAnalysisRequest, q.requestSubject, req)
}

func (q *Queue) PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error {
	return q.publishJSON(ctx, kindAnalysisEvent, q.eventSubject, event)
}

func (q *Queue) publishJSON(ctx context.Context, kind messageKind, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	call := func(_ context.Context) error {
		return q.conn.Publish(subject, data)
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, kind.operation(), call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return publishFailure(kind, err)
	}
	return nil
}

// SubscribeAnalysisRequested blocks until ctx is done, then drains the
// subscription so in-flight requests finish.
func (q *Queue) SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.requestSubject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		req, err := decodeRequest(msg.Data)
		if err != nil {
			slog.Warn("analysis_request_invalid", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, req); err != nil {
			slog.Error("analysis_request_failed", "request_id", req.RequestID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func decodeRequest(data []byte) (domain.AnalysisRequest, error) {
	var req domain.AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.AnalysisRequest{}, fmt.Errorf("decode analysis request: %w", err)
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		return domain.AnalysisRequest{}, errors.New("analysis request without storage key")
	}
	return req, nil
}

func subjectOrDefault(subject, fallback string) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	return fallback
}
