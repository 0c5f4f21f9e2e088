// Package webhook implements the Webhook Notifier (SPEC_FULL §4.G): posting
// a completed flow's snapshot to its configured URL with bounded retries,
// circuit breaking per host, and an optional at-most-once delivery guard.
// Ported from report_on_flow/_call in orch.webhook, deliberately NOT
// replicating that file's self-described bug of sizing the request timeout
// from webhook_num_of_retries instead of webhook_timeout.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/jordigilh/orch/internal/dto"
	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/telemetry"
)

// Config carries the retry policy, unchanged in meaning from spec §4.G.
type Config struct {
	NumOfRetries        int
	Timeout             time.Duration
	PauseBetweenRetries time.Duration
}

// Notifier posts flow snapshots to their webhook_url.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	redis      *redis.Client
	metrics    *telemetry.Metrics

	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker[*http.Response]
}

// New builds a Notifier. redisClient may be nil, in which case the
// at-most-once delivery guard is skipped (SPEC_FULL §4.G: correctness never
// depends on Redis being configured).
func New(cfg Config, redisClient *redis.Client, metrics *telemetry.Metrics, logger *zap.Logger) *Notifier {
	return &Notifier{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
		redis:      redisClient,
		metrics:    metrics,
		breakers:   map[string]*gobreaker.CircuitBreaker[*http.Response]{},
	}
}

// Notify posts flow's snapshot to flow.WebhookURL, making at most
// cfg.NumOfRetries attempts; only a timed-out attempt is retried, any other
// failure ends delivery. It never returns an error: delivery failure is
// logged and swallowed, matching report_on_flow's catch-log-never-raise
// behavior, since a webhook is best-effort notification, not part of the
// flow's own durability guarantee.
func (n *Notifier) Notify(ctx context.Context, flow model.Flow) {
	if flow.WebhookURL == nil || *flow.WebhookURL == "" {
		return
	}
	webhookURL := *flow.WebhookURL

	if n.alreadyNotified(ctx, flow.ID.String()) {
		n.logger.Info("webhook already delivered, skipping", zap.String("flow_id", flow.ID.String()))
		return
	}

	payload, err := json.Marshal(dto.FlowFromModel(flow))
	if err != nil {
		n.logger.Error("failed to encode webhook payload", zap.Error(err), zap.String("flow_id", flow.ID.String()))
		return
	}

	start := time.Now()
	status := model.StatusPending

	for attempt := 0; attempt < n.cfg.NumOfRetries; attempt++ {
		err := n.call(ctx, webhookURL, payload)
		if err == nil {
			n.metrics.WebhookAttempts.WithLabelValues("success").Inc()
			status = model.StatusSuccess
			break
		}

		// An open breaker is treated exactly like "abort, do not retry": it
		// protects other flows sharing a dead host, not this flow's own
		// retry budget.
		if errors.Is(err, gobreaker.ErrOpenState) {
			n.metrics.WebhookBreakerOpen.Inc()
			n.logger.Warn("webhook circuit breaker open, aborting", zap.Error(err), zap.String("flow_id", flow.ID.String()))
			break
		}

		if errors.Is(err, context.DeadlineExceeded) {
			n.metrics.WebhookAttempts.WithLabelValues("timeout").Inc()
			n.logger.Warn("webhook timed out",
				zap.Error(err), zap.String("flow_id", flow.ID.String()), zap.Int("attempt", attempt))
			if attempt != n.cfg.NumOfRetries-1 {
				select {
				case <-time.After(n.cfg.PauseBetweenRetries):
				case <-ctx.Done():
					return
				}
			}
			continue
		}

		n.metrics.WebhookAttempts.WithLabelValues("error").Inc()
		n.logger.Warn("webhook error", zap.Error(err), zap.String("flow_id", flow.ID.String()))
		break
	}

	duration := time.Since(start)
	if status == model.StatusPending {
		n.logger.Warn("webhook delivery gave up",
			zap.String("flow_id", flow.ID.String()), zap.Duration("webhook_duration", duration))
		// Delivery never succeeded, so release the reservation claimed at
		// the top of this call: a future retry of this flow's webhook must
		// not be permanently blocked by a transient failure.
		n.releaseReservation(ctx, flow.ID.String())
		return
	}

	n.logger.Info("webhook delivered",
		zap.String("flow_id", flow.ID.String()),
		zap.Duration("webhook_duration", duration),
		zap.String("webhook_status", string(status)))
}

// call performs a single POST attempt through the host's circuit breaker.
func (n *Notifier) call(ctx context.Context, webhookURL string, payload []byte) error {
	breaker, err := n.breakerFor(webhookURL)
	if err != nil {
		return err
	}

	_, err = breaker.Execute(func() (*http.Response, error) {
		reqCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, webhookURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("content-type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp, fmt.Errorf("webhook responded with status %d", resp.StatusCode)
		}

		return resp, nil
	})

	return err
}

// breakerFor returns the circuit breaker keyed by webhookURL's host,
// creating one on first use. An open breaker protects other flows whose
// webhook shares a dead host from wasting tick-loop time on a call that
// would fail anyway.
func (n *Notifier) breakerFor(webhookURL string) (*gobreaker.CircuitBreaker[*http.Response], error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("parse webhook url: %w", err)
	}
	host := u.Host

	n.breakersMu.Lock()
	defer n.breakersMu.Unlock()

	if b, ok := n.breakers[host]; ok {
		return b, nil
	}

	b := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "webhook:" + host,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			n.logger.Warn("webhook circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	n.breakers[host] = b

	return b, nil
}

// notifiedKey namespaces the at-most-once reservation key.
func notifiedKey(flowID string) string {
	return "webhook-notified:" + flowID
}

// alreadyNotified claims the delivery reservation for flowID. It returns
// true only when a prior call already holds the reservation; on any Redis
// error it logs and returns false so delivery still proceeds, since the
// guard is an optimization, not a correctness requirement.
func (n *Notifier) alreadyNotified(ctx context.Context, flowID string) bool {
	if n.redis == nil {
		return false
	}

	ok, err := n.redis.SetNX(ctx, notifiedKey(flowID), "1", 24*time.Hour).Result()
	if err != nil {
		n.logger.Warn("webhook delivery guard unavailable", zap.Error(err), zap.String("flow_id", flowID))
		return false
	}

	// SetNX reports true when the key was newly set i.e. this is the first
	// call; false means someone already reserved it.
	return !ok
}

// releaseReservation undoes alreadyNotified's claim after a delivery attempt
// exhausts its retries without succeeding, so the next attempt for the same
// flow isn't blocked by a reservation that never led to actual delivery.
func (n *Notifier) releaseReservation(ctx context.Context, flowID string) {
	if n.redis == nil {
		return
	}

	if err := n.redis.Del(ctx, notifiedKey(flowID)).Err(); err != nil {
		n.logger.Warn("failed to release webhook delivery reservation", zap.Error(err), zap.String("flow_id", flowID))
	}
}
