// Package prometheus exposes the engine's operational metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/verification"
)

// EngineMetrics implements the monitoring engine's Metrics contract and adds
// adapter and transport counters.
type EngineMetrics struct {
	cyclesTotal     *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	adapterCalls    *prometheus.CounterVec
	adapterDuration *prometheus.HistogramVec
	alertsCreated   *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the given registerer.  A
// nil registerer uses the default registry.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &EngineMetrics{
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyb",
			Subsystem: "engine",
			Name:      "check_cycles_total",
			Help:      "Check cycles by outcome (ok, failed, skipped).",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kyb",
			Subsystem: "engine",
			Name:      "check_cycle_duration_seconds",
			Help:      "Duration of completed check cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
		adapterCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyb",
			Subsystem: "engine",
			Name:      "adapter_calls_total",
			Help:      "Verification calls by source and outcome status.",
		}, []string{"source", "status"}),
		adapterDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kyb",
			Subsystem: "engine",
			Name:      "adapter_call_duration_seconds",
			Help:      "Duration of verification calls by source.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		alertsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyb",
			Subsystem: "engine",
			Name:      "alerts_created_total",
			Help:      "Alerts created by triggering condition.",
		}, []string{"condition"}),
		publishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyb",
			Subsystem: "engine",
			Name:      "event_publish_failures_total",
			Help:      "Notification events that failed to publish, by type.",
		}, []string{"event_type"}),
	}
}

// CycleCompleted records one finished cycle.
func (m *EngineMetrics) CycleCompleted(outcome string, elapsed time.Duration) {
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.cycleDuration.Observe(elapsed.Seconds())
	}
}

// AdapterCall records one verification call.
func (m *EngineMetrics) AdapterCall(source counterparty.Source, status verification.Status, elapsed time.Duration) {
	m.adapterCalls.WithLabelValues(string(source), status.String()).Inc()
	m.adapterDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

// AlertCreated records one created alert.
func (m *EngineMetrics) AlertCreated(condition string) {
	m.alertsCreated.WithLabelValues(condition).Inc()
}

// PublishFailed records one failed event emission.
func (m *EngineMetrics) PublishFailed(eventType string) {
	m.publishFailures.WithLabelValues(eventType).Inc()
}
