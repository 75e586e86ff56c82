// Package credits consumes credits from user balances with idempotent,
// validated requests.
package credits

import (
	"context"
	"net/http"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/identity"
	"github.com/goliatone/go-onesub/subscriptions"
)

const (
	consumePath = "/credits/consume"

	// MaxAmountPerTransaction bounds a single consume call.
	MaxAmountPerTransaction = 1_000_000

	maxReasonLength         = 500
	maxIdempotencyKeyLength = 255
)

// ConsumeRequest describes one credit deduction. IdempotencyKey makes
// retries safe: the API returns the original result for a repeated key
// instead of charging twice.
type ConsumeRequest struct {
	UserID         string
	Amount         int
	Reason         string
	IdempotencyKey string
}

// Validate checks the request bounds before any network I/O.
func (r ConsumeRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return core.NewValidationError("user_id must be provided")
	}
	if r.Amount <= 0 {
		return core.NewValidationError("amount must be a positive integer")
	}
	if r.Amount > MaxAmountPerTransaction {
		return core.NewValidationError("amount cannot exceed 1,000,000")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return core.NewValidationError("reason must be provided")
	}
	if len(r.Reason) > maxReasonLength {
		return core.NewValidationError("reason cannot exceed 500 characters")
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return core.NewValidationError("idempotency_key must be provided")
	}
	if len(r.IdempotencyKey) > maxIdempotencyKeyLength {
		return core.NewValidationError("idempotency_key cannot exceed 255 characters")
	}
	return nil
}

// ConsumeResult is the decoded outcome of a consume call. IsDuplicate is
// true when the API matched the idempotency key to an earlier transaction.
type ConsumeResult struct {
	Success       bool
	NewBalance    int
	TransactionID string
	IsDuplicate   bool
}

// SubscriptionVerifier is the slice of the subscriptions service the
// balance check needs.
type SubscriptionVerifier interface {
	Verify(ctx context.Context, id identity.Identifier) (subscriptions.Verification, error)
}

// Config carries the service dependencies. Verifier is optional; without
// it HasEnough reports an error.
type Config struct {
	Requester core.Requester
	Verifier  SubscriptionVerifier
	Logger    core.Logger
	Metrics   core.MetricsRecorder
}

// Service issues credit consumption calls. It is safe for concurrent use.
type Service struct {
	requester core.Requester
	verifier  SubscriptionVerifier
	logger    core.Logger
	metrics   core.MetricsRecorder
}

// New builds a Service from cfg.
func New(cfg Config) (*Service, error) {
	if cfg.Requester == nil {
		return nil, core.NewValidationError("credits: requester is required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	return &Service{
		requester: cfg.Requester,
		verifier:  cfg.Verifier,
		logger:    glog.Ensure(cfg.Logger),
		metrics:   metrics,
	}, nil
}

// Consume deducts req.Amount credits from the user's balance. Repeating a
// call with the same IdempotencyKey returns the original transaction with
// IsDuplicate set instead of charging again.
func (s *Service) Consume(ctx context.Context, req ConsumeRequest) (ConsumeResult, error) {
	if s == nil || s.requester == nil {
		return ConsumeResult{}, core.NewValidationError("credits: service is not configured")
	}
	if err := req.Validate(); err != nil {
		return ConsumeResult{}, err
	}

	body, err := s.requester.Request(ctx, http.MethodPost, consumePath, map[string]any{
		"user_id":         req.UserID,
		"amount":          req.Amount,
		"reason":          req.Reason,
		"idempotency_key": req.IdempotencyKey,
	})
	if err != nil {
		core.RecordCounter(ctx, s.metrics, "onesub.credits.consume_failures", 1, nil)
		return ConsumeResult{}, err
	}

	result := decodeConsumeResult(body)
	if result.IsDuplicate {
		core.RecordCounter(ctx, s.metrics, "onesub.credits.duplicates", 1, nil)
	}
	core.RecordCounter(ctx, s.metrics, "onesub.credits.consumed", int64(req.Amount), nil)
	return result, nil
}

// TryConsume is the error-swallowing form of Consume for callers that only
// branch on success. Failures are logged and reported as ok == false.
func (s *Service) TryConsume(ctx context.Context, req ConsumeRequest) (ConsumeResult, bool) {
	result, err := s.Consume(ctx, req)
	if err != nil {
		core.LogDebug(ctx, s.loggerOrNop(), "credit consumption failed", map[string]any{
			"user_id": req.UserID,
			"amount":  req.Amount,
			"error":   err.Error(),
		})
		return ConsumeResult{}, false
	}
	return result, true
}

// HasEnough reports whether the user's remaining credits cover amount. The
// balance can change between this check and a later Consume, so treat the
// answer as advisory.
func (s *Service) HasEnough(ctx context.Context, id identity.Identifier, amount int) (bool, error) {
	if s == nil || s.verifier == nil {
		return false, core.NewValidationError("credits: subscription verifier is not configured")
	}
	verification, err := s.verifier.Verify(ctx, id)
	if err != nil {
		return false, err
	}
	return verification.CreditsRemaining >= amount, nil
}

func (s *Service) loggerOrNop() core.Logger {
	if s == nil {
		return glog.Nop()
	}
	return glog.Ensure(s.logger)
}

func decodeConsumeResult(body map[string]any) ConsumeResult {
	return ConsumeResult{
		Success:       core.ReadBool(body, true, "success"),
		NewBalance:    core.ReadInt(body, 0, "new_balance", "newBalance"),
		TransactionID: core.ReadString(body, "transaction_id", "transactionId"),
		IsDuplicate:   core.ReadBool(body, false, "is_duplicate", "isDuplicate"),
	}
}

// NewIdempotencyKey joins the given parts with "-" and appends a random
// UUID, yielding a key unique per call even when the parts repeat.
func NewIdempotencyKey(parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	segments = append(segments, uuid.NewString())
	return strings.Join(segments, "-")
}
