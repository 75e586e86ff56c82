package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	// Version is the release version advertised in the User-Agent header.
	Version = "1.0.0"

	// UserAgent identifies this client on every outbound request.
	UserAgent = "onesub-go/" + Version

	// APIKeyPrefix is the required prefix for tool API keys.
	APIKeyPrefix = "sk-tool-"

	// DefaultBaseURL points at the production 1Sub REST API.
	DefaultBaseURL = "https://1sub.io/api/v1"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// HTTPDoer matches *http.Client so tests can inject transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Requester executes one logical API call and returns the decoded JSON body.
// Implemented by transport.Client; resource services depend on this contract
// rather than on the transport package.
type Requester interface {
	Request(ctx context.Context, method string, path string, body any) (map[string]any, error)
}

// MetricsRecorder receives counter and histogram observations emitted by the
// transport and the webhook dispatcher.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// UTCNow is the default clock for components that expose an injectable
// Now func() time.Time.
func UTCNow() time.Time {
	return time.Now().UTC()
}
