package links

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

func TestService_ExchangeCodeNormalizesAndSends(t *testing.T) {
	requester := &stubRequester{
		respond: func(method string, path string, body any) (map[string]any, error) {
			if method != http.MethodPost || path != "/authorize/exchange" {
				return nil, fmt.Errorf("unexpected request: %s %s", method, path)
			}
			params, _ := body.(map[string]any)
			if params["code"] != "ABC123" {
				return nil, fmt.Errorf("unexpected code: %v", params["code"])
			}
			if params["redirectUri"] != "tool-user-9" {
				return nil, fmt.Errorf("unexpected redirectUri: %v", params["redirectUri"])
			}
			return map[string]any{
				"linked":       true,
				"oneSubUserId": "user_1",
				"toolUserId":   "tool-user-9",
				"linkedAt":     "2026-01-15T10:00:00Z",
			}, nil
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	link, err := service.ExchangeCode(context.Background(), "  abc123 ", "tool-user-9")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !link.Linked {
		t.Fatalf("expected linked result")
	}
	if link.OneSubUserID != "user_1" || link.ToolUserID != "tool-user-9" {
		t.Fatalf("unexpected link: %+v", link)
	}
	if link.LinkedAt != "2026-01-15T10:00:00Z" {
		t.Fatalf("unexpected linked_at: %q", link.LinkedAt)
	}
}

func TestService_ExchangeCodeDefaultsLinkedTrue(t *testing.T) {
	requester := &stubRequester{
		respond: func(_ string, _ string, _ any) (map[string]any, error) {
			return map[string]any{"oneSubUserId": "user_1"}, nil
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	link, err := service.ExchangeCode(context.Background(), "ABC123", "tool-user-9")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !link.Linked {
		t.Fatalf("expected linked to default true")
	}
}

func TestService_ExchangeCodeValidation(t *testing.T) {
	cases := []struct {
		name       string
		code       string
		toolUserID string
		message    string
		textCode   string
	}{
		{
			name:       "empty code",
			code:       "   ",
			toolUserID: "tool-user-9",
			message:    "code must be provided",
			textCode:   core.ErrorCodeValidation,
		},
		{
			name:       "code too short",
			code:       "ABC12",
			toolUserID: "tool-user-9",
			message:    "code must be 6-10 alphanumeric characters (e.g., ABC123)",
			textCode:   core.ErrorCodeInvalidCode,
		},
		{
			name:       "code too long",
			code:       "ABC12345678",
			toolUserID: "tool-user-9",
			message:    "code must be 6-10 alphanumeric characters (e.g., ABC123)",
			textCode:   core.ErrorCodeInvalidCode,
		},
		{
			name:       "code with punctuation",
			code:       "ABC-12",
			toolUserID: "tool-user-9",
			message:    "code must be 6-10 alphanumeric characters (e.g., ABC123)",
			textCode:   core.ErrorCodeInvalidCode,
		},
		{
			name:       "missing tool user id",
			code:       "ABC123",
			toolUserID: "",
			message:    "tool_user_id must be provided",
			textCode:   core.ErrorCodeValidation,
		},
		{
			name:       "tool user id too long",
			code:       "ABC123",
			toolUserID: strings.Repeat("u", 256),
			message:    "tool_user_id cannot exceed 255 characters",
			textCode:   core.ErrorCodeValidation,
		},
	}

	requester := &stubRequester{}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.ExchangeCode(context.Background(), tc.code, tc.toolUserID)
			if err == nil {
				t.Fatalf("expected error")
			}
			var richErr *goerrors.Error
			if !stderrors.As(err, &richErr) {
				t.Fatalf("expected rich error, got %T", err)
			}
			if richErr.Message != tc.message {
				t.Fatalf("unexpected message: %q, want %q", richErr.Message, tc.message)
			}
			if richErr.TextCode != tc.textCode {
				t.Fatalf("unexpected text code: %q, want %q", richErr.TextCode, tc.textCode)
			}
		})
	}

	if requester.callCount() != 0 {
		t.Fatalf("expected no requests for invalid input, got %d", requester.callCount())
	}
}

func TestService_TryExchangeCode(t *testing.T) {
	requester := &stubRequester{
		respond: func(_ string, _ string, _ any) (map[string]any, error) {
			return map[string]any{"oneSubUserId": "user_1"}, nil
		},
	}
	service, err := New(Config{Requester: requester})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	link, ok := service.TryExchangeCode(context.Background(), "abc123", "tool-user-9")
	if !ok || link.OneSubUserID != "user_1" {
		t.Fatalf("unexpected result: ok=%v link=%+v", ok, link)
	}

	if _, ok := service.TryExchangeCode(context.Background(), "bad", "tool-user-9"); ok {
		t.Fatalf("expected invalid code to be reported as failure")
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
	if _, ok := service.TryExchangeCode(context.Background(), "abc123", "tool-user-9"); ok {
		t.Fatalf("expected transport failure to be reported")
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  abc123 "); got != "ABC123" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeCode(""); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestIsValidCodeFormat(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"abc123", true},
		{" xyz789 ", true},
		{"ABCDEFGH12", true},
		{"", false},
		{"ABC12", false},
		{"ABCDEFGH123", false},
		{"ABC 12", false},
		{"ABC-12", false},
	}
	for _, tc := range cases {
		if got := IsValidCodeFormat(tc.code); got != tc.want {
			t.Fatalf("IsValidCodeFormat(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
