// Package monitoring exposes prometheus metrics for bulk jobs and sends
// webhook alerts when a finished job looks unhealthy.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	JobsSubmitted   prometheus.Counter
	ItemsFinished   *prometheus.CounterVec
	Resolutions     *prometheus.CounterVec
	ExtractAttempts prometheus.Counter
	ItemsInFlight   prometheus.Gauge
	ItemDuration    *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "scout_jobs_submitted_total",
			Help: "Bulk jobs accepted",
		}),
		ItemsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_items_finished_total",
			Help: "Items that reached a terminal status",
		}, []string{"status"}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_resolutions_total",
			Help: "Resolution outcomes",
		}, []string{"outcome"}),
		ExtractAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "scout_extract_attempts_total",
			Help: "Extraction attempts, retries included",
		}),
		ItemsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "scout_items_in_flight",
			Help: "Item pipelines currently holding a slot",
		}),
		ItemDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scout_item_duration_seconds",
			Help:    "Wall time per item pipeline",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"status"}),
	}
}

func (m *Metrics) JobSubmitted() {
	if m == nil {
		return
	}
	m.JobsSubmitted.Inc()
}

// ItemStarted marks a pipeline as holding a slot and returns the func that
// records its terminal status.
func (m *Metrics) ItemStarted() func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.ItemsInFlight.Inc()
	return func(status string) {
		m.ItemsInFlight.Dec()
		m.ItemsFinished.WithLabelValues(status).Inc()
		m.ItemDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ExtractAttempt() {
	if m == nil {
		return
	}
	m.ExtractAttempts.Inc()
}
