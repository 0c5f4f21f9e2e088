package alerting

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAlertPostsToConfiguredWebhook(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(srv.URL, zap.NewNop())
	s.Alert(t.Context(), errors.New("boom"))

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestAlertNoOpWithoutWebhookURL(t *testing.T) {
	s := New("", zap.NewNop())
	assert.NotPanics(t, func() { s.Alert(t.Context(), errors.New("boom")) })
}
