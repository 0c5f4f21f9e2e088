package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.FlowsClaimed.Inc()
	m.TasksAdvanced.WithLabelValues("SUCCESS").Inc()
	m.WebhookAttempts.WithLabelValues("timeout").Inc()
	m.WebhookBreakerOpen.Inc()
	m.TickDuration.Observe(0.042)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]*dto.MetricFamily{}
	for _, f := range families {
		names[f.GetName()] = f
	}

	assert.Contains(t, names, "orch_flows_claimed_total")
	assert.Contains(t, names, "orch_tasks_advanced_total")
	assert.Contains(t, names, "orch_tick_duration_seconds")
	assert.Contains(t, names, "orch_webhook_attempts_total")
	assert.Contains(t, names, "orch_webhook_breaker_open_total")
}

func TestTracerReturnsNonNilTracer(t *testing.T) {
	assert.NotNil(t, Tracer())
}
