package poll

import "github.com/prometheus/client_golang/prometheus"

var (
	tickCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drift_beacon",
		Subsystem: "poll",
		Name:      "ticks_total",
		Help:      "Number of poll cycles grouped by outcome.",
	}, []string{"outcome"})

	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "drift_beacon",
		Subsystem: "poll",
		Name:      "tick_duration_seconds",
		Help:      "Time spent fetching, diffing, and publishing one poll cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	liveSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "drift_beacon",
		Subsystem: "poll",
		Name:      "live_sessions",
		Help:      "Number of live sessions in the most recent snapshot.",
	})

	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drift_beacon",
		Subsystem: "poll",
		Name:      "events_emitted_total",
		Help:      "Number of session events emitted, labeled by event type.",
	}, []string{"event_type"})

	orphanCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "drift_beacon",
		Subsystem: "poll",
		Name:      "orphaned_sessions_total",
		Help:      "Count of session events skipped because the activity did not resolve.",
	})
)

func init() {
	prometheus.MustRegister(tickCounter, tickDuration, liveSessionsGauge, eventsCounter, orphanCounter)
}

const (
	outcomeSuccess      = "success"
	outcomeUnauthorized = "unauthorized"
	outcomeTransient    = "transient"
	outcomeUnexpected   = "unexpected"
)
