package recommender

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK          = "ok"
	outcomePlaceholder = "placeholder"
	outcomeError       = "error"
)

var (
	suggestRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_suggest_requests_total",
			Help: "Suggest calls by outcome (ok, placeholder, error).",
		},
		[]string{"outcome"},
	)

	suggestLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_suggest_latency_seconds",
			Help:    "End-to-end latency of a suggest call, model included.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	oovLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_oov_lines_total",
			Help: "Cart lines skipped because the vocabulary has no token for the product.",
		},
	)

	placeholderResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_placeholder_results_total",
			Help: "Suggest calls where no product qualified and the placeholder was returned.",
		},
	)
)

func init() {
	prometheus.MustRegister(suggestRequests, suggestLatency, oovLines, placeholderResults)
}
