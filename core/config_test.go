package core

import (
	"context"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", cfg.BaseURL)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Fatalf("expected 30s timeout, got %d", cfg.TimeoutSeconds)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("expected 3 retries, got %d", cfg.MaxRetries)
	}
	if !cfg.CacheEnabled() {
		t.Fatalf("expected cache enabled by default")
	}
	if cfg.Cache.TTLSeconds != 60 {
		t.Fatalf("expected 60s cache ttl, got %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Webhook.ToleranceSeconds != 300 {
		t.Fatalf("expected 300s webhook tolerance, got %d", cfg.Webhook.ToleranceSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected base url validation failure")
	}

	cfg = DefaultConfig()
	cfg.TimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected timeout validation failure")
	}

	cfg = DefaultConfig()
	cfg.APIKey = "pk-wrong-prefix"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected api key prefix failure")
	}

	cfg = DefaultConfig()
	cfg.APIKey = "sk-tool-abc123"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected prefixed key to validate: %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := ValidateAPIKey(""); err == nil {
		t.Fatalf("expected empty key rejection")
	}
	if err := ValidateAPIKey("sk-live-nope"); err == nil {
		t.Fatalf("expected prefix rejection")
	}
	if err := ValidateAPIKey("sk-tool-abc123"); err != nil {
		t.Fatalf("expected valid key, got %v", err)
	}
}

func TestGoOptionsResolver_LayersRuntimeOverDefaults(t *testing.T) {
	defaults := DefaultConfig()
	loaded := Config{
		BaseURL:        "https://staging.1sub.io/api/v1",
		TimeoutSeconds: 10,
	}
	runtime := Config{
		APIKey:     "sk-tool-runtime",
		MaxRetries: 5,
		Cache:      CacheConfig{Disabled: true},
	}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.BaseURL != "https://staging.1sub.io/api/v1" {
		t.Fatalf("expected loaded base url, got %q", resolved.BaseURL)
	}
	if resolved.TimeoutSeconds != 10 {
		t.Fatalf("expected loaded timeout, got %d", resolved.TimeoutSeconds)
	}
	if resolved.APIKey != "sk-tool-runtime" {
		t.Fatalf("expected runtime api key, got %q", resolved.APIKey)
	}
	if resolved.MaxRetries != 5 {
		t.Fatalf("expected runtime retries, got %d", resolved.MaxRetries)
	}
	if resolved.CacheEnabled() {
		t.Fatalf("expected runtime cache disable to win")
	}
	if resolved.Cache.TTLSeconds != 60 {
		t.Fatalf("expected default ttl retained, got %d", resolved.Cache.TTLSeconds)
	}
}

func TestCfgxConfigProvider_AppliesRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(NewStaticRawConfigLoader(map[string]any{
		"base_url":    "https://eu.1sub.io/api/v1",
		"max_retries": 1,
		"webhook": map[string]any{
			"secret": "whsec_test",
		},
	}))

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://eu.1sub.io/api/v1" {
		t.Fatalf("expected loader base url, got %q", cfg.BaseURL)
	}
	if cfg.MaxRetries != 1 {
		t.Fatalf("expected loader retries, got %d", cfg.MaxRetries)
	}
	if cfg.Webhook.Secret != "whsec_test" {
		t.Fatalf("expected loader webhook secret, got %q", cfg.Webhook.Secret)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Fatalf("expected default timeout retained, got %d", cfg.TimeoutSeconds)
	}
}

func TestConfigDurationAccessors(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Timeout().Seconds() != 30 {
		t.Fatalf("expected 30s timeout, got %s", cfg.Timeout())
	}
	if cfg.CacheTTL().Seconds() != 60 {
		t.Fatalf("expected 60s ttl, got %s", cfg.CacheTTL())
	}
	if cfg.WebhookTolerance().Seconds() != 300 {
		t.Fatalf("expected 300s tolerance, got %s", cfg.WebhookTolerance())
	}
}

func TestConfigToLayerMapSkipsZeroValues(t *testing.T) {
	layer := configToLayerMap(Config{APIKey: "sk-tool-x"}, false)
	if _, ok := layer["base_url"]; ok {
		t.Fatalf("expected empty base url to be omitted")
	}
	if _, ok := layer["max_retries"]; ok {
		t.Fatalf("expected zero retries to be omitted")
	}
	if layer["api_key"] != "sk-tool-x" {
		t.Fatalf("expected api key to be present")
	}
	if !strings.HasPrefix(layer["api_key"].(string), APIKeyPrefix) {
		t.Fatalf("expected prefixed key in layer")
	}
}
