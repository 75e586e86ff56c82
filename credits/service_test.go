package credits

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/identity"
	"github.com/goliatone/go-onesub/subscriptions"
)

type recordedCall struct {
	method string
	path   string
	body   any
}

type stubRequester struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(method string, path string, body any) (map[string]any, error)
}

func (s *stubRequester) Request(_ context.Context, method string, path string, body any) (map[string]any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, recordedCall{method: method, path: path, body: body})
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(method, path, body)
	}
	return map[string]any{}, nil
}

func (s *stubRequester) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubVerifier struct {
	verification subscriptions.Verification
	err          error
	lastID       identity.Identifier
}

func (s *stubVerifier) Verify(_ context.Context, id identity.Identifier) (subscriptions.Verification, error) {
	s.lastID = id
	if s.err != nil {
		return subscriptions.Verification{}, s.err
	}
	return s.verification, nil
}

func validConsumeRequest() ConsumeRequest {
	return ConsumeRequest{
		UserID:         "user_1",
		Amount:         20,
		Reason:         "report generation",
		IdempotencyKey: "req-abc-123",
	}
}

func TestConsumeRequest_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*ConsumeRequest)
		message string
	}{
		{
			name:    "missing user id",
			mutate:  func(r *ConsumeRequest) { r.UserID = "" },
			message: "user_id must be provided",
		},
		{
			name:    "zero amount",
			mutate:  func(r *ConsumeRequest) { r.Amount = 0 },
			message: "amount must be a positive integer",
		},
		{
			name:    "negative amount",
			mutate:  func(r *ConsumeRequest) { r.Amount = -5 },
			message: "amount must be a positive integer",
		},
		{
			name:    "amount over cap",
			mutate:  func(r *ConsumeRequest) { r.Amount = MaxAmountPerTransaction + 1 },
			message: "amount cannot exceed 1,000,000",
		},
		{
			name:    "missing reason",
			mutate:  func(r *ConsumeRequest) { r.Reason = "  " },
			message: "reason must be provided",
		},
		{
			name:    "reason too long",
			mutate:  func(r *ConsumeRequest) { r.Reason = strings.Repeat("x", 501) },
			message: "reason cannot exceed 500 characters",
		},
		{
			name:    "missing idempotency key",
			mutate:  func(r *ConsumeRequest) { r.IdempotencyKey = "" },
			message: "idempotency_key must be provided",
		},
		{
			name:    "idempotency key too long",
			mutate:  func(r *ConsumeRequest) { r.IdempotencyKey = strings.Repeat("k", 256) },
			message: "idempotency_key cannot exceed 255 characters",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validConsumeRequest()
			tc.mutate(&req)

			err := req.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var richErr *goerrors.Error
			if !stderrors.As(err, &richErr) {
				t.Fatalf("expected rich error, got %T", err)
			}
			if richErr.Message != tc.message {
				t.Fatalf("unexpected message: %q, want %q", richErr.Message, tc.message)
			}
			if richErr.TextCode != core.ErrorCodeValidation {
				t.Fatalf("unexpected text code: %q", richErr.TextCode)
			}
		})
	}

	if err := validConsumeRequest().Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	boundary := validConsumeRequest()
	boundary.Amount = MaxAmountPerTransaction
	boundary.Reason = strings.Repeat("r", 500)
	boundary.IdempotencyKey = strings.Repeat("k", 255)
	if err := boundary.Validate(); err != nil {
		t.Fatalf("boundary request rejected: %v", err)
	}
}

func TestService_ConsumeSendsSnakeCaseBody(t *testing.T) {
	requester := &stubRequester{
		respond: func(method string, path string, body any) (map[string]any, error) {
			if method != http.MethodPost || path != "/credits/consume" {
				return nil, fmt.Errorf("unexpected request: %s %s", method, path)
			}
			params, _ := body.(map[string]any)
			if params["user_id"] != "user_1" || params["amount"] != 20 {
				return nil, fmt.Errorf("unexpected params: %v", params)
			}
			if params["reason"] != "report generation" || params["idempotency_key"] != "req-abc-123" {
				return nil, fmt.Errorf("unexpected params: %v", params)
			}
			return map[string]any{
				"success":        true,
				"new_balance":    float64(80),
				"transaction_id": "txn_42",
				"is_duplicate":   false,
			}, nil
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Consume(context.Background(), validConsumeRequest())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !result.Success || result.IsDuplicate {
		t.Fatalf("unexpected flags: %+v", result)
	}
	if result.NewBalance != 80 || result.TransactionID != "txn_42" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestService_ConsumeDefaultsMissingFields(t *testing.T) {
	requester := &stubRequester{
		respond: func(_ string, _ string, _ any) (map[string]any, error) {
			return map[string]any{"transaction_id": "txn_9"}, nil
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Consume(context.Background(), validConsumeRequest())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success to default true")
	}
	if result.IsDuplicate {
		t.Fatalf("expected is_duplicate to default false")
	}
	if result.NewBalance != 0 {
		t.Fatalf("unexpected balance: %d", result.NewBalance)
	}
}

func TestService_ConsumeDecodesDuplicateReplay(t *testing.T) {
	requester := &stubRequester{
		respond: func(_ string, _ string, _ any) (map[string]any, error) {
			return map[string]any{
				"success":       true,
				"newBalance":    float64(80),
				"isDuplicate":   true,
				"transactionId": "txn_42",
			}, nil
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Consume(context.Background(), validConsumeRequest())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !result.IsDuplicate {
		t.Fatalf("expected duplicate replay to be flagged")
	}
	if result.TransactionID != "txn_42" || result.NewBalance != 80 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestService_ConsumeRejectsInvalidRequestBeforeSending(t *testing.T) {
	requester := &stubRequester{}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	req := validConsumeRequest()
	req.Amount = 0
	if _, err := service.Consume(context.Background(), req); err == nil {
		t.Fatalf("expected validation error")
	}
	if requester.callCount() != 0 {
		t.Fatalf("expected no request for invalid input, got %d", requester.callCount())
	}
}

func TestService_ConsumePropagatesInsufficientCredits(t *testing.T) {
	requester := &stubRequester{
		respond: func(_ string, _ string, _ any) (map[string]any, error) {
			return nil, core.MapAPIStatus(http.StatusBadRequest, map[string]any{
				"error":           "INSUFFICIENT_CREDITS",
				"message":         "Insufficient credits",
				"current_balance": float64(5),
				"required":        float64(20),
			})
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = service.Consume(context.Background(), validConsumeRequest())
	if err == nil {
		t.Fatalf("expected insufficient credits error")
	}
	var insufficient *core.InsufficientCreditsError
	if !stderrors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if insufficient.Shortfall() != 15 {
		t.Fatalf("unexpected shortfall: %d", insufficient.Shortfall())
	}
}

func TestService_TryConsume(t *testing.T) {
	requester := &stubRequester{
		respond: func(_ string, _ string, _ any) (map[string]any, error) {
			return map[string]any{"new_balance": float64(80), "transaction_id": "txn_1"}, nil
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, ok := service.TryConsume(context.Background(), validConsumeRequest())
	if !ok {
		t.Fatalf("expected success")
	}
	if result.TransactionID != "txn_1" {
		t.Fatalf("unexpected result: %+v", result)
	}

	failing := &stubRequester{
		respond: func(_ string, _ string, _ any) (map[string]any, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	service, err = New(Config{Requester: failing})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, ok := service.TryConsume(context.Background(), validConsumeRequest()); ok {
		t.Fatalf("expected failure to be reported")
	}
}

func TestService_HasEnough(t *testing.T) {
	verifier := &stubVerifier{
		verification: subscriptions.Verification{Active: true, CreditsRemaining: 100},
	}
	service, err := New(Config{Requester: &stubRequester{}, Verifier: verifier})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ok, err := service.HasEnough(context.Background(), identity.ByUserID("user_1"), 50)
	if err != nil || !ok {
		t.Fatalf("expected enough credits, got ok=%v err=%v", ok, err)
	}
	if verifier.lastID.OneSubUserID != "user_1" {
		t.Fatalf("unexpected identifier: %+v", verifier.lastID)
	}

	ok, err = service.HasEnough(context.Background(), identity.ByUserID("user_1"), 200)
	if err != nil {
		t.Fatalf("has enough: %v", err)
	}
	if ok {
		t.Fatalf("expected shortfall for amount over balance")
	}

	verifier.err = fmt.Errorf("verify unavailable")
	if _, err := service.HasEnough(context.Background(), identity.ByUserID("user_1"), 1); err == nil {
		t.Fatalf("expected verifier error to surface")
	}
}

func TestService_HasEnoughRequiresVerifier(t *testing.T) {
	service, err := New(Config{Requester: &stubRequester{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := service.HasEnough(context.Background(), identity.ByUserID("user_1"), 1); err == nil {
		t.Fatalf("expected error without a verifier")
	}
}

func TestNewIdempotencyKey(t *testing.T) {
	key := NewIdempotencyKey("user_1", "report")
	if !strings.HasPrefix(key, "user_1-report-") {
		t.Fatalf("expected parts prefix, got %q", key)
	}
	if key == NewIdempotencyKey("user_1", "report") {
		t.Fatalf("expected unique keys per call")
	}

	bare := NewIdempotencyKey()
	if bare == "" || strings.Contains(bare, "--") {
		t.Fatalf("unexpected bare key: %q", bare)
	}

	skipped := NewIdempotencyKey("user_1", "  ", "job")
	if !strings.HasPrefix(skipped, "user_1-job-") {
		t.Fatalf("expected blank parts skipped, got %q", skipped)
	}
}
