package onesub

import (
	"context"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/credits"
	"github.com/goliatone/go-onesub/links"
	"github.com/goliatone/go-onesub/subscriptions"
	"github.com/goliatone/go-onesub/transport"
	"github.com/goliatone/go-onesub/webhooks"
)

// Client is the entry point for the 1Sub API: it owns the retrying
// transport and exposes one service per resource family. Construct it
// once and share it; every surface is safe for concurrent use.
type Client struct {
	config        core.Config
	logger        core.Logger
	transport     *transport.Client
	subscriptions *subscriptions.Service
	credits       *credits.Service
	links         *links.Service
	webhooks      *webhooks.Dispatcher
}

// New builds a Client for apiKey. The key must carry the sk-tool- prefix
// issued to tool integrations. Defaults: production base URL, 30s
// timeout, 3 retries, subscription cache on with a 60s TTL; the webhook
// dispatcher is only built when a secret is configured.
func New(apiKey string, opts ...Option) (*Client, error) {
	if err := core.ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}

	b := builder{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&b)
	}
	b.runtime.APIKey = strings.TrimSpace(apiKey)

	provider, logger := glog.Resolve("onesub", b.loggerProvider, b.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("onesub"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	metrics := b.metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	if b.configProvider == nil {
		b.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if b.optionsResolver == nil {
		b.optionsResolver = core.GoOptionsResolver{}
	}

	defaults := core.DefaultConfig()
	loaded, err := b.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, core.ClientErrorMapper(err)
	}
	cfg, err := b.optionsResolver.Resolve(defaults, loaded, b.runtime)
	if err != nil {
		return nil, core.ClientErrorMapper(err)
	}
	if b.maxRetries != nil {
		// Zero is a real setting the layered merge cannot express, so the
		// explicit override lands after resolution.
		cfg.MaxRetries = *b.maxRetries
		if err := cfg.Validate(); err != nil {
			return nil, core.ClientErrorMapper(err)
		}
	}

	transportClient, err := transport.New(transport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.MaxRetries,
		Debug:      cfg.Debug,
		HTTPClient: b.httpClient,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, err
	}

	subscriptionsService, err := subscriptions.New(subscriptions.Config{
		Requester:    transportClient,
		Cache:        b.cacheService,
		CacheEnabled: cfg.CacheEnabled(),
		CacheTTL:     cfg.CacheTTL(),
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, err
	}

	creditsService, err := credits.New(credits.Config{
		Requester: transportClient,
		Verifier:  subscriptionsService,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, err
	}

	linksService, err := links.New(links.Config{
		Requester: transportClient,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, err
	}

	var dispatcher *webhooks.Dispatcher
	secret := strings.TrimSpace(cfg.Webhook.Secret)
	if secret == "" && b.webhookTouched {
		return nil, core.NewValidationError("onesub: webhook options require a webhook secret")
	}
	if secret != "" {
		dispatcher = webhooks.NewDispatcher(webhooks.Config{
			Secret:    secret,
			Tolerance: cfg.WebhookTolerance(),
			Ledger:    b.ledger,
			Logger:    logger,
			Metrics:   metrics,
			Now:       b.clock,
		})
		if err := b.hooks.Apply(dispatcher); err != nil {
			return nil, err
		}
	}

	return &Client{
		config:        cfg,
		logger:        logger,
		transport:     transportClient,
		subscriptions: subscriptionsService,
		credits:       creditsService,
		links:         linksService,
		webhooks:      dispatcher,
	}, nil
}

// Config reports the resolved configuration the client runs with.
func (c *Client) Config() core.Config {
	if c == nil {
		return core.Config{}
	}
	return c.config
}

// Transport exposes the underlying API requester for callers that need
// endpoints the resource services do not cover.
func (c *Client) Transport() *transport.Client {
	if c == nil {
		return nil
	}
	return c.transport
}

// Subscriptions verifies subscription status.
func (c *Client) Subscriptions() *subscriptions.Service {
	if c == nil {
		return nil
	}
	return c.subscriptions
}

// Credits consumes credits and checks balances.
func (c *Client) Credits() *credits.Service {
	if c == nil {
		return nil
	}
	return c.credits
}

// Links exchanges account link codes.
func (c *Client) Links() *links.Service {
	if c == nil {
		return nil
	}
	return c.links
}

// Webhooks is the inbound event dispatcher, or nil when no webhook secret
// was configured.
func (c *Client) Webhooks() *webhooks.Dispatcher {
	if c == nil {
		return nil
	}
	return c.webhooks
}

// Close releases client state: the subscription cache, the processed
// webhook set, and any idle HTTP connections.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.subscriptions != nil {
		c.subscriptions.ClearCache(context.Background())
	}
	if c.webhooks != nil {
		c.webhooks.ClearProcessed()
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
