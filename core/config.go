package core

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig controls the subscription verification read-through cache.
// Disabled is inverted so the zero value keeps caching on.
type CacheConfig struct {
	Disabled   bool `koanf:"disabled" mapstructure:"disabled"`
	TTLSeconds int  `koanf:"ttl_seconds" mapstructure:"ttl_seconds"`
}

// WebhookConfig carries the shared-secret verification settings for inbound
// webhook deliveries.
type WebhookConfig struct {
	Secret           string `koanf:"secret" mapstructure:"secret"`
	ToleranceSeconds int    `koanf:"tolerance_seconds" mapstructure:"tolerance_seconds"`
}

type Config struct {
	APIKey         string        `koanf:"api_key" mapstructure:"api_key"`
	BaseURL        string        `koanf:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int           `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxRetries     int           `koanf:"max_retries" mapstructure:"max_retries"`
	Debug          bool          `koanf:"debug" mapstructure:"debug"`
	Cache          CacheConfig   `koanf:"cache" mapstructure:"cache"`
	Webhook        WebhookConfig `koanf:"webhook" mapstructure:"webhook"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		TimeoutSeconds: 30,
		MaxRetries:     3,
		Cache: CacheConfig{
			TTLSeconds: 60,
		},
		Webhook: WebhookConfig{
			ToleranceSeconds: 300,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("core: base_url is required")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("core: timeout_seconds must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("core: max_retries must not be negative")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("core: cache.ttl_seconds must be positive")
	}
	if c.Webhook.ToleranceSeconds <= 0 {
		return fmt.Errorf("core: webhook.tolerance_seconds must be positive")
	}
	if key := strings.TrimSpace(c.APIKey); key != "" && !strings.HasPrefix(key, APIKeyPrefix) {
		return fmt.Errorf("core: api_key must start with %q", APIKeyPrefix)
	}
	return nil
}

// ValidateAPIKey enforces the presence and prefix rules applied at client
// construction. Config.Validate tolerates an empty key so hosts can layer the
// key in at runtime; construction does not.
func ValidateAPIKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return NewValidationError("core: api key is required")
	}
	if !strings.HasPrefix(trimmed, APIKeyPrefix) {
		return NewValidationError(fmt.Sprintf("core: api key must start with %q", APIKeyPrefix))
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c Config) CacheEnabled() bool {
	return !c.Cache.Disabled
}

func (c Config) WebhookTolerance() time.Duration {
	return time.Duration(c.Webhook.ToleranceSeconds) * time.Second
}
