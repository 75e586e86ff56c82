// Package transport implements the HTTP layer shared by every 1Sub
// resource service: authentication headers, JSON codec, bounded response
// reads, and retry with exponential backoff for transient failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-onesub/core"
)

const maxResponseBodyBytes = int64(1 << 20)

// Config carries the knobs the client needs; zero values fall back to
// the documented defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Debug      bool
	UserAgent  string

	HTTPClient core.HTTPDoer
	Logger     core.Logger
	Metrics    core.MetricsRecorder
	Backoff    BackoffPolicy

	// Sleep overrides the inter-attempt wait; tests use a recording stub.
	Sleep func(ctx context.Context, delay time.Duration) error
}

// Client issues authenticated JSON requests against the 1Sub API and
// retries transient failures. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	debug      bool
	userAgent  string

	httpClient core.HTTPDoer
	logger     core.Logger
	metrics    core.MetricsRecorder
	backoff    BackoffPolicy
	sleep      func(ctx context.Context, delay time.Duration) error
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, core.NewValidationError("transport: api key is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = core.DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = core.UserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	backoff := cfg.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff{Base: defaultBaseDelay, Max: defaultMaxDelay}
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		timeout:    timeout,
		maxRetries: maxRetries,
		debug:      cfg.Debug,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     glog.Ensure(cfg.Logger),
		metrics:    metrics,
		backoff:    backoff,
		sleep:      sleep,
	}, nil
}

// BaseURL reports the normalized endpoint root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CloseIdleConnections releases pooled connections when the underlying
// HTTP client supports it.
func (c *Client) CloseIdleConnections() {
	if c == nil {
		return
	}
	if closer, ok := c.httpClient.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}

// Get issues a GET request against path.
func (c *Client) Get(ctx context.Context, path string) (map[string]any, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body against path.
func (c *Client) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Request(ctx, http.MethodPost, path, body)
}

// Request executes one API call, retrying transient failures up to the
// configured retry budget. Client errors other than 429 fail fast; 429,
// 5xx, timeouts, and connection errors are retried with exponential
// backoff. After the budget is exhausted the last failure is returned.
func (c *Client) Request(ctx context.Context, method string, path string, body any) (map[string]any, error) {
	if c == nil || c.httpClient == nil {
		return nil, core.NewNetworkError(errors.New("transport: client is not configured"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := c.endpoint(path)

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, core.NewValidationError(fmt.Sprintf("transport: request body is not serializable: %v", err))
		}
		payload = encoded
	}

	tags := map[string]string{"method": method, "path": path}
	started := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.NextDelay(attempt - 1)
			if c.debug {
				core.LogDebug(ctx, c.logger, "retrying request", map[string]any{
					"method":   method,
					"path":     path,
					"attempt":  attempt,
					"delay_ms": delay.Milliseconds(),
				})
			}
			core.RecordCounter(ctx, c.metrics, "onesub.transport.retries", 1, tags)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, core.NewTimeoutError(err)
			}
		}

		result, retryable, err := c.do(ctx, method, endpoint, payload)
		if err == nil {
			core.RecordCounter(ctx, c.metrics, "onesub.transport.requests", 1, tags)
			core.RecordHistogram(ctx, c.metrics, "onesub.transport.duration_ms", float64(time.Since(started).Milliseconds()), tags)
			return result, nil
		}
		if !retryable {
			core.RecordCounter(ctx, c.metrics, "onesub.transport.failures", 1, tags)
			return nil, err
		}
		lastErr = err
	}

	core.RecordCounter(ctx, c.metrics, "onesub.transport.failures", 1, tags)
	if lastErr == nil {
		lastErr = core.NewNetworkError(fmt.Errorf("transport: %s %s failed without a recorded cause", method, path))
	}
	return nil, lastErr
}

// do runs a single attempt and reports whether its failure is retryable.
func (c *Client) do(ctx context.Context, method string, endpoint string, payload []byte) (map[string]any, bool, error) {
	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return nil, false, core.NewValidationError(fmt.Sprintf("transport: build request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	response, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return nil, false, core.NewTimeoutError(err)
		case isTimeout(err):
			return nil, true, core.NewTimeoutError(err)
		default:
			return nil, true, core.NewNetworkError(err)
		}
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if err != nil {
		return nil, true, core.NewNetworkError(err)
	}
	if int64(len(raw)) > maxResponseBodyBytes {
		return nil, false, core.NewAPIError(response.StatusCode, fmt.Sprintf("transport: response exceeds %d bytes", maxResponseBodyBytes))
	}

	body := map[string]any{}
	parseErr := error(nil)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			parseErr = err
			body = map[string]any{}
		}
	}

	if c.debug {
		core.LogDebug(ctx, c.logger, "request completed", map[string]any{
			"method": method,
			"url":    endpoint,
			"status": response.StatusCode,
		})
	}

	status := response.StatusCode
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		if parseErr != nil {
			// A 2xx that fails to decode is treated like a garbled
			// connection rather than an API contract violation.
			return nil, true, core.NewNetworkError(fmt.Errorf("transport: invalid JSON response: %w", parseErr))
		}
		return body, false, nil
	}

	// Unparseable error bodies degrade to a message-only payload.
	if parseErr != nil {
		body = map[string]any{"message": string(raw)}
	}
	mapped := core.MapAPIStatus(status, body)
	retryable := status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	return nil, retryable, mapped
}

func (c *Client) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ core.Requester = (*Client)(nil)
