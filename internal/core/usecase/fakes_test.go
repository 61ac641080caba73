package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

type analysisRepoFake struct {
	mu      sync.Mutex
	saved   []*domain.Analysis
	saveErr error
	byID    map[string]*domain.Analysis
	list    []domain.Analysis
	listLim int
	getErr  error
	deleted bool
	delErr  error
	pingErr error
}

func (f *analysisRepoFake) Save(_ context.Context, a *domain.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, a)
	return nil
}

func (f *analysisRepoFake) GetByID(_ context.Context, id string) (*domain.Analysis, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", errors.New(id))
	}
	return a, nil
}

func (f *analysisRepoFake) List(_ context.Context, limit int) ([]domain.Analysis, error) {
	f.listLim = limit
	return f.list, nil
}

func (f *analysisRepoFake) Delete(context.Context, string) (bool, error) {
	return f.deleted, f.delErr
}

func (f *analysisRepoFake) Ping(context.Context) error { return f.pingErr }

type chunkerFake struct {
	chunks []domain.Chunk
}

func (f *chunkerFake) Split(string) []domain.Chunk { return f.chunks }

func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	offset := 0
	for i, text := range texts {
		out[i] = domain.Chunk{Index: i, Text: text, CharStart: offset, CharEnd: offset + len(text)}
		offset += len(text)
	}
	return out
}

// gatewayFake answers by chunk index. handle, when set, takes precedence.
type gatewayFake struct {
	mu        sync.Mutex
	responses map[int]string
	errs      map[int]error
	handle    func(ctx context.Context, req domain.ModelRequest) (string, error)
	calls     []int
	probeErr  error
}

func (f *gatewayFake) Complete(ctx context.Context, req domain.ModelRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.ChunkIndex)
	f.mu.Unlock()

	if f.handle != nil {
		return f.handle(ctx, req)
	}
	if err := f.errs[req.ChunkIndex]; err != nil {
		return "", err
	}
	return f.responses[req.ChunkIndex], nil
}

func (f *gatewayFake) Probe(context.Context, domain.ModelRequest) error { return f.probeErr }

type eventsFake struct {
	mu     sync.Mutex
	events []domain.AnalysisCompleted
	err    error
}

func (f *eventsFake) PublishAnalysisCompleted(_ context.Context, e domain.AnalysisCompleted) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

type metricsFake struct {
	mu       sync.Mutex
	chunks   map[string]int
	dropped  map[string]int
	analyses map[string]int
}

func newMetricsFake() *metricsFake {
	return &metricsFake{chunks: map[string]int{}, dropped: map[string]int{}, analyses: map[string]int{}}
}

func (m *metricsFake) ObserveChunk(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[outcome]++
}

func (m *metricsFake) ObserveFindingsDropped(reason string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason] += count
}

func (m *metricsFake) ObserveAnalysis(status string, _, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[status]++
}

type extractorFake struct {
	text      string
	err       error
	got       []byte
	supported bool
}

func (f *extractorFake) Supports(string) bool { return f.supported }

func (f *extractorFake) Extract(_ context.Context, filename string, data []byte) (string, error) {
	f.got = data
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type queueFake struct {
	published  []domain.AnalysisRequest
	publishErr error
}

func (f *queueFake) PublishAnalysisRequested(_ context.Context, req domain.AnalysisRequest) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, req)
	return nil
}

func (f *queueFake) SubscribeAnalysisRequested(context.Context, func(context.Context, domain.AnalysisRequest) error) error {
	return nil
}

type analyzerFake struct {
	filename string
	text     string
	result   *domain.Analysis
	err      error
}

func (f *analyzerFake) Analyze(_ context.Context, filename, text string) (*domain.Analysis, error) {
	f.filename = filename
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.Analysis{ID: "analysis-1", Filename: filename, AnalysisResults: []domain.Finding{}}, nil
}
