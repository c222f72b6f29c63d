package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsSent records dispatched notifications by targeting rule.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brainstormers_notifications_sent_total",
			Help: "Total number of notification rows created by dispatch",
		},
		[]string{"rule"},
	)

	// RealtimeEvents counts change events published to the realtime broker by kind.
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brainstormers_realtime_events_total",
			Help: "Total number of realtime change events published",
		},
		[]string{"kind"},
	)

	// RealtimeSubscriptions tracks currently open realtime subscriptions.
	RealtimeSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "brainstormers_realtime_subscriptions",
			Help: "Number of open realtime change-feed subscriptions",
		},
	)

	// PopupsShown counts transient popups presented to users.
	PopupsShown = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brainstormers_popups_shown_total",
			Help: "Total number of transient notification popups presented",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brainstormers_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
