// Package telemetry exposes the orchestrator's Prometheus metrics and its
// OpenTelemetry tracer. Both are ambient concerns per SPEC_FULL §2 (component
// K): the spec's core carries no tracing or metrics of its own, but a real
// deployment of this stack always instruments the tick loop and the webhook
// notifier the way the rest of the corpus does.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Metrics groups every counter/histogram the orchestrator publishes under
// /metrics. A single instance is created per process and threaded through
// the scheduler and the webhook notifier.
type Metrics struct {
	FlowsClaimed       prometheus.Counter
	TasksAdvanced      *prometheus.CounterVec
	TickDuration       prometheus.Histogram
	WebhookAttempts    *prometheus.CounterVec
	WebhookBreakerOpen prometheus.Counter
}

// NewMetrics registers the orchestrator's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FlowsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orch",
			Name:      "flows_claimed_total",
			Help:      "Number of flows atomically claimed by this instance's tick loop.",
		}),
		TasksAdvanced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orch",
			Name:      "tasks_advanced_total",
			Help:      "Number of tasks advanced, labeled by the resulting status.",
		}, []string{"status"}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orch",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of a single claim+advance+commit cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		WebhookAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orch",
			Name:      "webhook_attempts_total",
			Help:      "Webhook delivery attempts, labeled by outcome.",
		}, []string{"outcome"}),
		WebhookBreakerOpen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orch",
			Name:      "webhook_breaker_open_total",
			Help:      "Number of webhook calls skipped because the circuit breaker was open.",
		}),
	}
}

// Tracer is the orchestrator's single tracer name. Absent an SDK/exporter
// registration at process startup, calls against it are harmless no-ops;
// wiring an exporter is an operational decision left outside this spec.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/jordigilh/orch")
}
