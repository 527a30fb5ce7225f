package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "tool_calls_total",
			Help:      "Total number of dispatched tool calls by entry, tool and outcome.",
		},
		[]string{"mcp_id", "tool", "status"},
	)

	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamePrefix,
			Name:      "tool_call_duration_seconds",
			Help:      "Wall-clock duration of tool calls.",
			Buckets:   []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mcp_id", "tool"},
	)
)

// ObserveToolCall records one dispatched call.
func ObserveToolCall(mcpID, tool, status string, duration time.Duration) {
	toolCallsTotal.WithLabelValues(mcpID, tool, status).Inc()
	toolCallDuration.WithLabelValues(mcpID, tool).Observe(duration.Seconds())
}
