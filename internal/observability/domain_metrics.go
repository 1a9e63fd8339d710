package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datachat_pipeline_requests_total",
			Help: "Total number of pipeline runs by terminal outcome.",
		},
		[]string{"outcome"},
	)
	pipelineStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datachat_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datachat_llm_calls_total",
			Help: "Total number of language-model calls by purpose and status.",
		},
		[]string{"purpose", "status"},
	)
	llmCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datachat_llm_call_duration_seconds",
			Help:    "Wall-clock latency of language-model calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"purpose"},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datachat_query_rows_returned",
			Help:    "Row counts of executed pipeline queries.",
			Buckets: []float64{0, 1, 5, 20, 100, 500, 2000, 10000},
		},
	)
	ingestTablesLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datachat_ingest_tables_loaded_total",
			Help: "Total number of dataset tables loaded into the store.",
		},
	)
	ingestTablesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datachat_ingest_tables_skipped_total",
			Help: "Total number of dataset tables skipped due to load errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRequestsTotal,
		pipelineStageDurationSeconds,
		llmCallsTotal,
		llmCallDurationSeconds,
		queryRowsReturned,
		ingestTablesLoadedTotal,
		ingestTablesSkippedTotal,
	)
}

func ObservePipelineOutcome(outcome string) {
	pipelineRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObservePipelineStage(stage string, elapsed time.Duration) {
	pipelineStageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func ObserveLLMCall(purpose string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmCallsTotal.WithLabelValues(purpose, status).Inc()
	llmCallDurationSeconds.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

func ObserveQueryRows(rows int) {
	queryRowsReturned.Observe(float64(rows))
}

func ObserveIngestTables(loaded, skipped int) {
	if loaded > 0 {
		ingestTablesLoadedTotal.Add(float64(loaded))
	}
	if skipped > 0 {
		ingestTablesSkippedTotal.Add(float64(skipped))
	}
}
