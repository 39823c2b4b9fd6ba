// Package observability exposes process-level freshness watermarks.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	lastPollGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "drift_beacon",
		Subsystem: "sync",
		Name:      "last_successful_poll_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful poll cycle.",
	})
	lastEventGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "drift_beacon",
		Subsystem: "sync",
		Name:      "last_event_emitted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent emitted session event.",
	})
)

func init() {
	prometheus.MustRegister(lastPollGauge, lastEventGauge)
}

// RecordPollCompleted updates the poll freshness watermark.
func RecordPollCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastPollGauge.Set(float64(ts.Unix()))
}

// RecordEventEmitted updates the event freshness watermark.
func RecordEventEmitted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastEventGauge.Set(float64(ts.Unix()))
}
