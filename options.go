package onesub

import (
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/webhooks"
)

// Option adjusts client construction. Options are runtime overrides and
// take precedence over loaded configuration.
type Option func(*builder)

type builder struct {
	runtime         core.Config
	maxRetries      *int
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver

	httpClient     core.HTTPDoer
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder

	cacheService repositorycache.CacheService

	ledger         webhooks.ProcessedLedger
	clock          func() time.Time
	hooks          *ExtensionHooks
	webhookTouched bool
}

// WithBaseURL points the client at a different API root, e.g. a staging
// environment.
func WithBaseURL(baseURL string) Option {
	return func(b *builder) {
		b.runtime.BaseURL = strings.TrimSpace(baseURL)
	}
}

// WithTimeout bounds each request attempt. Resolution is one second;
// sub-second values round up.
func WithTimeout(timeout time.Duration) Option {
	return func(b *builder) {
		b.runtime.TimeoutSeconds = durationSeconds(timeout)
	}
}

// WithMaxRetries sets how many additional attempts follow a retryable
// failure. Zero disables retries.
func WithMaxRetries(retries int) Option {
	return func(b *builder) {
		value := retries
		b.maxRetries = &value
	}
}

// WithDebug raises transport and dispatcher log verbosity.
func WithDebug(debug bool) Option {
	return func(b *builder) {
		b.runtime.Debug = debug
	}
}

// WithCache toggles the subscription verification cache and, when ttl is
// positive, overrides its entry lifetime.
func WithCache(enabled bool, ttl time.Duration) Option {
	return func(b *builder) {
		b.runtime.Cache.Disabled = !enabled
		if ttl > 0 {
			b.runtime.Cache.TTLSeconds = durationSeconds(ttl)
		}
	}
}

// WithCacheService supplies a shared cache backend instead of the default
// in-process one.
func WithCacheService(service repositorycache.CacheService) Option {
	return func(b *builder) {
		b.cacheService = service
	}
}

// WithHTTPClient injects the HTTP client used for every request.
func WithHTTPClient(client core.HTTPDoer) Option {
	return func(b *builder) {
		b.httpClient = client
	}
}

// WithLogger routes client logging through logger.
func WithLogger(logger core.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithLoggerProvider resolves the client logger from provider, which wins
// over WithLogger.
func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *builder) {
		b.loggerProvider = provider
	}
}

// WithMetrics routes transport and dispatcher observations to recorder.
func WithMetrics(recorder core.MetricsRecorder) Option {
	return func(b *builder) {
		b.metrics = recorder
	}
}

// WithConfigProvider layers host configuration under the runtime options.
func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *builder) {
		b.configProvider = provider
	}
}

// WithOptionsResolver replaces the default layered configuration resolver.
func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *builder) {
		b.optionsResolver = resolver
	}
}

// WithWebhookSecret enables the webhook dispatcher with the shared signing
// secret issued for this tool.
func WithWebhookSecret(secret string) Option {
	return func(b *builder) {
		b.runtime.Webhook.Secret = strings.TrimSpace(secret)
	}
}

// WithWebhookTolerance overrides the signature timestamp tolerance.
// Requires a webhook secret.
func WithWebhookTolerance(tolerance time.Duration) Option {
	return func(b *builder) {
		b.runtime.Webhook.ToleranceSeconds = durationSeconds(tolerance)
		b.webhookTouched = true
	}
}

// WithProcessedLedger replaces the dispatcher's in-memory dedup set, e.g.
// with a database-backed one. Requires a webhook secret.
func WithProcessedLedger(ledger webhooks.ProcessedLedger) Option {
	return func(b *builder) {
		b.ledger = ledger
		b.webhookTouched = true
	}
}

// WithClock pins the webhook verification clock; tests use fixed clocks.
func WithClock(now func() time.Time) Option {
	return func(b *builder) {
		b.clock = now
	}
}

// WithExtensionHooks applies the handler packs registered on hooks to the
// webhook dispatcher at construction. Requires a webhook secret.
func WithExtensionHooks(hooks *ExtensionHooks) Option {
	return func(b *builder) {
		b.hooks = hooks
		b.webhookTouched = true
	}
}

func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	seconds := int(d / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	return seconds
}
