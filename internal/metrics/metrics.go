// Package metrics provides Prometheus metrics for the ingestion and synthesis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ideaforge"

var (
	// JobRuns counts scheduled job executions by outcome (ok, error, skipped).
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by outcome",
		},
		[]string{"job", "status"},
	)

	// JobDuration measures job run duration.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// ArticlesIngested counts newly stored articles per source.
	ArticlesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_ingested_total",
			Help:      "New articles stored by the feed fetcher",
		},
		[]string{"source"},
	)

	// FeedErrors counts per-source feed failures by kind (fetch, parse).
	FeedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Feed fetch or parse failures",
		},
		[]string{"source", "kind"},
	)

	// ArticlesTagged counts tag extraction results by status (ok, error).
	ArticlesTagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_tagged_total",
			Help:      "Tag extraction attempts by status",
		},
		[]string{"status"},
	)

	// LLMCalls counts gateway calls by model and outcome.
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM gateway calls by outcome",
		},
		[]string{"model", "outcome"},
	)

	// LLMDuration measures gateway call latency.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM gateway call latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"model"},
	)

	// IdeasGenerated counts idea records and audits written.
	IdeasGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ideas_total",
			Help:      "Ideas synthesized and audits stored",
		},
		[]string{"kind"},
	)
)

// ObserveLLMCall records one gateway call.
func ObserveLLMCall(model, outcome string, seconds float64) {
	LLMCalls.WithLabelValues(model, outcome).Inc()
	LLMDuration.WithLabelValues(model).Observe(seconds)
}

// ObserveJob records one job execution.
func ObserveJob(job, status string, seconds float64) {
	JobRuns.WithLabelValues(job, status).Inc()
	if status != "skipped" {
		JobDuration.WithLabelValues(job).Observe(seconds)
	}
}

// RecordIngested adds n new articles for source.
func RecordIngested(source string, n int) {
	if n > 0 {
		ArticlesIngested.WithLabelValues(source).Add(float64(n))
	}
}

// RecordFeedError records a per-source failure.
func RecordFeedError(source, kind string) {
	FeedErrors.WithLabelValues(source, kind).Inc()
}

// RecordTagging records one tag extraction attempt.
func RecordTagging(status string) {
	ArticlesTagged.WithLabelValues(status).Inc()
}

// RecordIdea records an idea ("idea") or audit ("audit") write.
func RecordIdea(kind string) {
	IdeasGenerated.WithLabelValues(kind).Inc()
}
