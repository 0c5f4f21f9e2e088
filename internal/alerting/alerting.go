// Package alerting provides best-effort operator notification for errors
// the Tick Loop swallows (SPEC_FULL §2, component N). It has no teacher
// counterpart in the original Python (which only logged); wiring it to
// Slack follows the pack's slack-go/slack usage for ops notifications.
package alerting

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Slack posts a message to a configured incoming webhook URL whenever it is
// asked to alert. It is safe for concurrent use.
type Slack struct {
	webhookURL string
	logger     *zap.Logger
}

// New builds a Slack alerter. webhookURL may be empty, in which case Alert
// is a no-op — ops alerting is optional and never gates correctness.
func New(webhookURL string, logger *zap.Logger) *Slack {
	return &Slack{webhookURL: webhookURL, logger: logger}
}

// Alert posts err to Slack. Failures to post are logged, never returned:
// an alerting channel must never become a second point of failure for the
// scheduler it is watching.
func (s *Slack) Alert(ctx context.Context, err error) {
	if s.webhookURL == "" {
		return
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":rotating_light: orchestrator tick error: %s", err.Error()),
	}

	if postErr := slack.PostWebhookContext(ctx, s.webhookURL, msg); postErr != nil {
		s.logger.Warn("failed to post alert to slack", zap.Error(postErr), zap.NamedError("tick_error", err))
	}
}
