package helpers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/zinc-sig/pyjudge/cmd/config"
	"github.com/zinc-sig/pyjudge/internal/metadata"
	"github.com/zinc-sig/pyjudge/internal/webhook"
)

// BuildWebhookConfig merges webhook configuration from all sources.
// Precedence: env < file < json < kv < direct flags
func BuildWebhookConfig(cfg *config.WebhookConfig) (map[string]any, error) {
	result, err := metadata.Build(metadata.Sources{
		EnvPrefix: metadata.WebhookEnv,
		File:      cfg.ConfigFile,
		JSON:      cfg.Config,
		Pairs:     cfg.ConfigKV,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}

	conf, err := metadata.Object(result)
	if err != nil {
		return nil, fmt.Errorf("webhook config must be an object: %w", err)
	}
	if conf == nil {
		conf = make(map[string]any)
	}

	// Flags only override when moved off their defaults.
	if cfg.URL != "" {
		conf["url"] = cfg.URL
	}
	if cfg.Method != "" && cfg.Method != "POST" {
		conf["method"] = cfg.Method
	}
	if cfg.AuthType != "" && cfg.AuthType != webhook.AuthNone {
		conf["auth_type"] = cfg.AuthType
	}
	if cfg.AuthToken != "" {
		conf["auth_token"] = cfg.AuthToken
	}
	if cfg.Timeout != "" && cfg.Timeout != "30s" {
		conf["timeout"] = cfg.Timeout
	}
	if cfg.Retries != 3 {
		conf["retries"] = cfg.Retries
	}
	if cfg.RetryDelay != "" && cfg.RetryDelay != "1s" {
		conf["retry_delay"] = cfg.RetryDelay
	}

	return conf, nil
}

// SetupWebhook returns a client, or nil when no URL is configured.
func SetupWebhook(cfg *config.WebhookConfig, log *zap.Logger) (*webhook.Client, error) {
	conf, err := BuildWebhookConfig(cfg)
	if err != nil {
		return nil, err
	}
	wc, policy, err := webhook.FromMap(conf)
	if err != nil {
		return nil, err
	}
	if wc == nil {
		return nil, nil
	}
	return webhook.NewClient(wc, policy, log), nil
}
