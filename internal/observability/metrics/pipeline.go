package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics covers the retrieval and ingestion pipelines. It
// registers into an existing registry so both collectors share one
// /metrics endpoint with the HTTP server metrics.
type PipelineMetrics struct {
	queryTotal      *prometheus.CounterVec
	queryChunks     *prometheus.HistogramVec
	queryDuration   *prometheus.HistogramVec
	ingestRunsTotal *prometheus.CounterVec
	ingestFiles     *prometheus.CounterVec
	ingestChunks    *prometheus.CounterVec
	ingestDuration  *prometheus.HistogramVec

	service string
}

func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total answered questions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	queryChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legalrag",
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legalrag",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End to end question answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	ingestRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Total corpus ingestion runs by status.",
		},
		[]string{"service", "status"},
	)
	ingestFiles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total PDF files processed across ingestion runs.",
		},
		[]string{"service"},
	)
	ingestChunks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total chunks embedded and indexed across ingestion runs.",
		},
		[]string{"service"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legalrag",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Corpus ingestion duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		queryTotal,
		queryChunks,
		queryDuration,
		ingestRunsTotal,
		ingestFiles,
		ingestChunks,
		ingestDuration,
	)

	return &PipelineMetrics{
		queryTotal:      queryTotal,
		queryChunks:     queryChunks,
		queryDuration:   queryDuration,
		ingestRunsTotal: ingestRunsTotal,
		ingestFiles:     ingestFiles,
		ingestChunks:    ingestChunks,
		ingestDuration:  ingestDuration,
		service:         service,
	}
}

func (m *PipelineMetrics) ObserveQuery(outcome string, retrieved int, elapsed time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.queryTotal.WithLabelValues(m.service, outcome).Inc()
	m.queryChunks.WithLabelValues(m.service).Observe(float64(retrieved))
	m.queryDuration.WithLabelValues(m.service, outcome).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveIngest(files, chunks int, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.ingestRunsTotal.WithLabelValues(m.service, status).Inc()
	m.ingestFiles.WithLabelValues(m.service).Add(float64(files))
	m.ingestChunks.WithLabelValues(m.service).Add(float64(chunks))
	m.ingestDuration.WithLabelValues(m.service, status).Observe(elapsed.Seconds())
}
