// Package metrics holds the Prometheus collectors for daily posting.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trigger labels.
const (
	TriggerSchedule = "schedule"
	TriggerToday    = "today"
	TriggerCalc     = "calc"
)

// Abandon reasons.
const (
	ReasonUnresolved = "unresolved"
	ReasonSendFailed = "send_failed"
)

// Metrics is safe to use through a nil pointer; every method becomes a no-op.
type Metrics struct {
	reg *prometheus.Registry

	// Successful deliveries by trigger
	Posts *prometheus.CounterVec

	// Dispatches dropped before or during delivery
	Abandoned *prometheus.CounterVec

	// /calc inputs that failed date validation
	CalcRejected prometheus.Counter

	// Time spent resolving the chat and sending
	DeliveryLatency *prometheus.HistogramVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Posts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifepath_posts_total",
			Help: "Life Path posts delivered by trigger",
		}, []string{"trigger"}), // trigger: "schedule", "today", "calc"

		Abandoned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifepath_dispatch_abandoned_total",
			Help: "Dispatches abandoned by trigger and reason",
		}, []string{"trigger", "reason"}),

		CalcRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "lifepath_calc_rejected_total",
			Help: "Malformed dates passed to calc",
		}),

		DeliveryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifepath_delivery_duration_seconds",
			Help:    "Duration of chat resolution plus send",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"trigger"}),
	}
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) IncPosted(trigger string) {
	if m != nil {
		m.Posts.WithLabelValues(trigger).Inc()
	}
}

func (m *Metrics) IncAbandoned(trigger, reason string) {
	if m != nil {
		m.Abandoned.WithLabelValues(trigger, reason).Inc()
	}
}

func (m *Metrics) IncCalcRejected() {
	if m != nil {
		m.CalcRejected.Inc()
	}
}

// ObserveDelivery records how long a delivery attempt took, successful or not.
func (m *Metrics) ObserveDelivery(trigger string, d time.Duration) {
	if m != nil {
		m.DeliveryLatency.WithLabelValues(trigger).Observe(d.Seconds())
	}
}
