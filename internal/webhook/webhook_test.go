package webhook

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/telemetry"
)

func testConfig() Config {
	return Config{NumOfRetries: 3, Timeout: time.Second, PauseBetweenRetries: time.Millisecond}
}

func testMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(prometheus.NewRegistry())
}

func flowWithWebhook(url string) model.Flow {
	return model.Flow{ID: uuid.New(), Name: "example", WebhookURL: &url, Tasks: []model.Task{
		{ID: uuid.New(), Name: "example", Status: model.StatusSuccess, Output: model.JSONMap{"dummy_slept": 0}},
	}}
}

func TestNotifySucceedsOnFirstAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "application/json", r.Header.Get("content-type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(testConfig(), nil, testMetrics(), zap.NewNop())
	n.Notify(t.Context(), flowWithWebhook(srv.URL))

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNotifyGivesUpWithoutRetryOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(testConfig(), nil, testMetrics(), zap.NewNop())
	n.Notify(t.Context(), flowWithWebhook(srv.URL))

	// A non-timeout error aborts immediately without retrying, per
	// report_on_flow's `except Exception: break`.
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNotifySkipsWhenNoWebhookConfigured(t *testing.T) {
	n := New(testConfig(), nil, testMetrics(), zap.NewNop())
	flow := model.Flow{ID: uuid.New(), Name: "example"}

	require.NotPanics(t, func() { n.Notify(t.Context(), flow) })
}

func TestNotifySkipsSecondCallWithDeliveryGuard(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(testConfig(), client, testMetrics(), zap.NewNop())
	flow := flowWithWebhook(srv.URL)

	n.Notify(t.Context(), flow)
	n.Notify(t.Context(), flow)

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
