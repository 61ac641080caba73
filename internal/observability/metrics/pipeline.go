package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics implements ports.PipelineMetrics.
type PipelineMetrics struct {
	service string

	chunkTotal       *prometheus.CounterVec
	chunkDuration    *prometheus.HistogramVec
	findingsDropped  *prometheus.CounterVec
	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisChunks   *prometheus.HistogramVec
	analysisFindings *prometheus.HistogramVec
	modelRetries     *prometheus.CounterVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	chunkTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunks_total",
			Help:      "Analyzed chunks by outcome.",
		},
		[]string{"service", "outcome"},
	)
	chunkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunk_duration_seconds",
			Help:      "Model round trip plus parsing time per chunk.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "outcome"},
	)
	findingsDropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "findings_dropped_total",
			Help:      "Model findings discarded during validation by reason.",
		},
		[]string{"service", "reason"},
	)
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analyses_total",
			Help:      "Completed pipeline runs by status.",
		},
		[]string{"service", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end pipeline duration by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	analysisChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_chunks",
			Help:      "Chunks per analyzed document.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	analysisFindings := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_findings",
			Help:      "Findings per persisted analysis.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"service"},
	)
	modelRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "retries_total",
			Help:      "Retried model calls by operation.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(
		chunkTotal,
		chunkDuration,
		findingsDropped,
		analysisTotal,
		analysisDuration,
		analysisChunks,
		analysisFindings,
		modelRetries,
	)

	return &PipelineMetrics{
		service:          service,
		chunkTotal:       chunkTotal,
		chunkDuration:    chunkDuration,
		findingsDropped:  findingsDropped,
		analysisTotal:    analysisTotal,
		analysisDuration: analysisDuration,
		analysisChunks:   analysisChunks,
		analysisFindings: analysisFindings,
		modelRetries:     modelRetries,
	}
}

func (m *PipelineMetrics) ObserveChunk(outcome string, duration time.Duration) {
	m.chunkTotal.WithLabelValues(m.service, outcome).Inc()
	m.chunkDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveFindingsDropped(reason string, count int) {
	if count <= 0 {
		return
	}
	m.findingsDropped.WithLabelValues(m.service, reason).Add(float64(count))
}

func (m *PipelineMetrics) ObserveAnalysis(status string, chunks, findings int, duration time.Duration) {
	m.analysisTotal.WithLabelValues(m.service, status).Inc()
	m.analysisDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if chunks > 0 {
		m.analysisChunks.WithLabelValues(m.service).Observe(float64(chunks))
	}
	if status == "success" {
		m.analysisFindings.WithLabelValues(m.service).Observe(float64(findings))
	}
}

// ObserveModelRetry matches resilience.RetryObserver.
func (m *PipelineMetrics) ObserveModelRetry(operation string, _ int, _ error) {
	m.modelRetries.WithLabelValues(m.service, operation).Inc()
}
