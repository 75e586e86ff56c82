// Package links exchanges one-time account link codes for 1Sub user ids.
//
// The exchange endpoint is deprecated upstream in favor of the
// authorization code flow; it remains supported for existing
// integrations.
package links

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-onesub/core"
)

const (
	exchangePath = "/authorize/exchange"

	maxToolUserIDLength = 255
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6,10}$`)

// Link is the decoded outcome of a code exchange.
type Link struct {
	Linked       bool
	OneSubUserID string
	ToolUserID   string
	LinkedAt     string
}

// Config carries the service dependencies.
type Config struct {
	Requester core.Requester
	Logger    core.Logger
	Metrics   core.MetricsRecorder
}

// Service exchanges link codes. It is safe for concurrent use.
type Service struct {
	requester core.Requester
	logger    core.Logger
	metrics   core.MetricsRecorder
}

// New builds a Service from cfg.
func New(cfg Config) (*Service, error) {
	if cfg.Requester == nil {
		return nil, core.NewValidationError("links: requester is required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	return &Service{
		requester: cfg.Requester,
		logger:    glog.Ensure(cfg.Logger),
		metrics:   metrics,
	}, nil
}

// ExchangeCode trades a link code the user generated on 1Sub for their
// 1Sub user id. The code is normalized (trimmed, uppercased) before
// validation, so user input survives copy-paste casing.
func (s *Service) ExchangeCode(ctx context.Context, code string, toolUserID string) (Link, error) {
	if s == nil || s.requester == nil {
		return Link{}, core.NewValidationError("links: service is not configured")
	}

	normalized := NormalizeCode(code)
	if normalized == "" {
		return Link{}, core.NewValidationError("code must be provided")
	}
	if !codePattern.MatchString(normalized) {
		return Link{}, core.NewInvalidCodeError("code must be 6-10 alphanumeric characters (e.g., ABC123)")
	}
	if strings.TrimSpace(toolUserID) == "" {
		return Link{}, core.NewValidationError("tool_user_id must be provided")
	}
	if len(toolUserID) > maxToolUserIDLength {
		return Link{}, core.NewValidationError("tool_user_id cannot exceed 255 characters")
	}

	body, err := s.requester.Request(ctx, http.MethodPost, exchangePath, map[string]any{
		"code": normalized,
		// The deprecated exchange endpoint reuses the OAuth redirectUri
		// field to carry the tool's user id.
		"redirectUri": toolUserID,
	})
	if err != nil {
		core.RecordCounter(ctx, s.metrics, "onesub.links.exchange_failures", 1, nil)
		return Link{}, err
	}

	core.RecordCounter(ctx, s.metrics, "onesub.links.exchanged", 1, nil)
	return Link{
		Linked:       core.ReadBool(body, true, "linked"),
		OneSubUserID: core.ReadString(body, "oneSubUserId", "onesub_user_id"),
		ToolUserID:   core.ReadString(body, "toolUserId", "tool_user_id"),
		LinkedAt:     core.ReadString(body, "linkedAt", "linked_at"),
	}, nil
}

// TryExchangeCode is the error-swallowing form of ExchangeCode for callers
// that only branch on success. Failures are logged and reported as
// ok == false.
func (s *Service) TryExchangeCode(ctx context.Context, code string, toolUserID string) (Link, bool) {
	link, err := s.ExchangeCode(ctx, code, toolUserID)
	if err != nil {
		core.LogDebug(ctx, s.loggerOrNop(), "code exchange failed", map[string]any{
			"error": err.Error(),
		})
		return Link{}, false
	}
	return link, true
}

func (s *Service) loggerOrNop() core.Logger {
	if s == nil {
		return glog.Nop()
	}
	return glog.Ensure(s.logger)
}

// NormalizeCode uppercases and trims a link code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCodeFormat reports whether code normalizes to a well-formed link
// code, without calling the API.
func IsValidCodeFormat(code string) bool {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return false
	}
	return codePattern.MatchString(normalized)
}
