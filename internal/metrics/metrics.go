package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recorder metrics
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debugconsole_events_recorded_total",
			Help: "Total number of debug events recorded, by log level",
		},
		[]string{"level"},
	)

	TimestampFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "debugconsole_timestamp_fallbacks_total",
			Help: "Total number of occurred_at values that failed to parse and were replaced with the current time",
		},
	)

	StoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "debugconsole_store_duration_seconds",
			Help:    "Duration of event store writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Forwarding metrics
	EventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debugconsole_events_forwarded_total",
			Help: "Total number of recorded events published to the message broker",
		},
		[]string{"status"},
	)
)
