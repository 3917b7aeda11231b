// Package metrics holds the Prometheus collectors for the streaming service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "market_stream"
)

var (
	// Session lifecycle
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Streaming sessions currently registered",
		},
	)

	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "started_total",
			Help:      "Streaming sessions accepted",
		},
	)

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "ended_total",
			Help:      "Streaming sessions torn down, by reason",
		},
		[]string{"reason"},
	)

	StartRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "start_rejected_total",
			Help:      "Session start tasks rejected by the worker pool",
		},
	)

	// Messages
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Stream messages handed to the transport, by type",
		},
		[]string{"type"},
	)

	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "send_failures_total",
			Help:      "Stream messages the transport refused",
		},
	)

	// Polling
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Duration of one session poll cycle",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
	)

	PollSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "skipped_total",
			Help:      "Poll firings dropped because the worker queue was full",
		},
	)

	TicksFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "ticks_filtered_total",
			Help:      "Latest ticks not pushed by the staleness filter",
		},
	)

	// Ingest
	TicksIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ticks_total",
			Help:      "Ticks consumed from the broker and stored",
		},
	)

	IngestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Ingest failures, by stage",
		},
		[]string{"stage"},
	)

	LatestCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "latest_lookups_total",
			Help:      "Latest-tick cache lookups, by result",
		},
		[]string{"result"},
	)
)
