// Package config loads the orchestrator's entire configuration surface from
// environment variables, per spec §6. There is no config file: the env
// provider is the only koanf source, matching the original Python
// implementation's dataclass-of-env-vars design (orch.config.Conf/need/expose).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// rawConfig mirrors the environment variable surface literally: durations
// are expressed in milliseconds on the wire, exactly as spec §6 specifies.
type rawConfig struct {
	Environment string `koanf:"environment" validate:"required"`
	Application string `koanf:"application" validate:"required"`
	LogLevel    string `koanf:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR"`

	AsyncDatabaseURL string `koanf:"async_database_url" validate:"required"`
	DatabaseURL      string `koanf:"database_url" validate:"required"`

	TickPeriodMS int `koanf:"tick_period" validate:"required,gt=0"`

	WebhookNumOfRetries        int `koanf:"webhook_num_of_retries" validate:"required,gt=0"`
	WebhookTimeoutMS           int `koanf:"webhook_timeout" validate:"required,gt=0"`
	WebhookPauseBetweenRetries int `koanf:"webhook_pause_between_retries" validate:"gte=0"`

	OrchURL         string `koanf:"orch_url" validate:"required,url"`
	RedisURL        string `koanf:"redis_url"`
	SlackWebhookURL string `koanf:"slack_webhook_url"`
}

// Config is the typed, validated configuration used by the rest of the
// orchestrator. Durations are real time.Duration values so call sites never
// re-derive a unit from a bare int.
type Config struct {
	Environment string
	Application string
	LogLevel    string

	AsyncDatabaseURL string
	DatabaseURL      string

	TickPeriod time.Duration

	WebhookNumOfRetries        int
	WebhookTimeout             time.Duration
	WebhookPauseBetweenRetries time.Duration

	OrchURL string

	// RedisURL, when non-empty, enables the webhook at-most-once delivery
	// guard (SPEC_FULL §4.G). Optional: absence never breaks correctness.
	RedisURL string

	// SlackWebhookURL, when non-empty, enables best-effort ops alerting on
	// swallowed scheduler errors (SPEC_FULL §2, component N).
	SlackWebhookURL string
}

var validate = validator.New()

func defaultRaw() rawConfig {
	return rawConfig{
		Application:                "orch",
		LogLevel:                   "INFO",
		TickPeriodMS:               1000,
		WebhookNumOfRetries:        3,
		WebhookTimeoutMS:           5000,
		WebhookPauseBetweenRetries: 100,
	}
}

// Load reads configuration strictly from environment variables. Env var
// names are lower_snake_case per spec §6; koanf's env provider hands us the
// process environment keys verbatim, so we lower-case them ourselves.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		return strings.ToLower(key), value
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	raw := defaultRaw()
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (*Config, error) {
	if err := validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Config{
		Environment:                raw.Environment,
		Application:                raw.Application,
		LogLevel:                   raw.LogLevel,
		AsyncDatabaseURL:           raw.AsyncDatabaseURL,
		DatabaseURL:                raw.DatabaseURL,
		TickPeriod:                 time.Duration(raw.TickPeriodMS) * time.Millisecond,
		WebhookNumOfRetries:        raw.WebhookNumOfRetries,
		WebhookTimeout:             time.Duration(raw.WebhookTimeoutMS) * time.Millisecond,
		WebhookPauseBetweenRetries: time.Duration(raw.WebhookPauseBetweenRetries) * time.Millisecond,
		OrchURL:                    raw.OrchURL,
		RedisURL:                   raw.RedisURL,
		SlackWebhookURL:            raw.SlackWebhookURL,
	}, nil
}
