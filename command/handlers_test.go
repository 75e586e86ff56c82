package command

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/credits"
	"github.com/goliatone/go-onesub/links"
	"github.com/goliatone/go-onesub/webhooks"
)

type stubCreditConsumer struct {
	consumeFn func(ctx context.Context, req credits.ConsumeRequest) (credits.ConsumeResult, error)
}

func (s stubCreditConsumer) Consume(ctx context.Context, req credits.ConsumeRequest) (credits.ConsumeResult, error) {
	return s.consumeFn(ctx, req)
}

type stubCodeExchanger struct {
	exchangeFn func(ctx context.Context, code string, toolUserID string) (links.Link, error)
}

func (s stubCodeExchanger) ExchangeCode(ctx context.Context, code string, toolUserID string) (links.Link, error) {
	return s.exchangeFn(ctx, code, toolUserID)
}

type stubWebhookProcessor struct {
	processFn func(ctx context.Context, payload string, header string) (webhooks.Event, error)
}

func (s stubWebhookProcessor) Process(ctx context.Context, payload string, header string) (webhooks.Event, error) {
	return s.processFn(ctx, payload, header)
}

type stubSubscriptionInvalidator struct {
	invalidateFn func(ctx context.Context, oneSubUserID string) error
}

func (s stubSubscriptionInvalidator) InvalidateCache(ctx context.Context, oneSubUserID string) error {
	return s.invalidateFn(ctx, oneSubUserID)
}

func validConsumeMessage() ConsumeCreditsMessage {
	return ConsumeCreditsMessage{Request: credits.ConsumeRequest{
		UserID:         "user_1",
		Amount:         10,
		Reason:         "report generation",
		IdempotencyKey: "user_1-report-2026-08",
	}}
}

func TestConsumeCreditsCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := credits.ConsumeResult{Success: true, NewBalance: 90, TransactionID: "txn_1"}
	called := false

	svc := stubCreditConsumer{
		consumeFn: func(_ context.Context, req credits.ConsumeRequest) (credits.ConsumeResult, error) {
			called = true
			if req.UserID != "user_1" || req.Amount != 10 {
				t.Fatalf("unexpected consume request: %#v", req)
			}
			return expected, nil
		},
	}

	cmd := NewConsumeCreditsCommand(svc)
	collector := gocmd.NewResult[credits.ConsumeResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, validConsumeMessage()); err != nil {
		t.Fatalf("execute consume: %v", err)
	}
	if !called {
		t.Fatalf("expected consumer invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.NewBalance != expected.NewBalance || result.TransactionID != expected.TransactionID {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestConsumeCreditsCommand_PropagatesServiceError(t *testing.T) {
	wantErr := fmt.Errorf("boom")
	svc := stubCreditConsumer{
		consumeFn: func(context.Context, credits.ConsumeRequest) (credits.ConsumeResult, error) {
			return credits.ConsumeResult{}, wantErr
		},
	}
	err := NewConsumeCreditsCommand(svc).Execute(context.Background(), validConsumeMessage())
	if !stderrors.Is(err, wantErr) {
		t.Fatalf("expected service error passthrough, got %v", err)
	}
}

func TestExchangeCodeCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := links.Link{Linked: true, OneSubUserID: "user_1", ToolUserID: "tool_user_1"}
	called := false

	svc := stubCodeExchanger{
		exchangeFn: func(_ context.Context, code string, toolUserID string) (links.Link, error) {
			called = true
			if code != "ABC123" || toolUserID != "tool_user_1" {
				t.Fatalf("unexpected exchange args: %q %q", code, toolUserID)
			}
			return expected, nil
		},
	}

	cmd := NewExchangeCodeCommand(svc)
	collector := gocmd.NewResult[links.Link]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ExchangeCodeMessage{Code: "ABC123", ToolUserID: "tool_user_1"})
	if err != nil {
		t.Fatalf("execute exchange: %v", err)
	}
	if !called {
		t.Fatalf("expected exchanger invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected link result to be stored")
	}
	if result.OneSubUserID != expected.OneSubUserID {
		t.Fatalf("unexpected link: %#v", result)
	}
}

func TestProcessWebhookCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := webhooks.Event{ID: "evt_1", Type: "credits.low"}
	called := false

	svc := stubWebhookProcessor{
		processFn: func(_ context.Context, payload string, header string) (webhooks.Event, error) {
			called = true
			if payload != `{"id":"evt_1"}` || header == "" {
				t.Fatalf("unexpected process args: %q %q", payload, header)
			}
			return expected, nil
		},
	}

	cmd := NewProcessWebhookCommand(svc)
	collector := gocmd.NewResult[webhooks.Event]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ProcessWebhookMessage{
		Payload:   `{"id":"evt_1"}`,
		Signature: "t=1,v1=ab",
	})
	if err != nil {
		t.Fatalf("execute process webhook: %v", err)
	}
	if !called {
		t.Fatalf("expected processor invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected event result to be stored")
	}
	if result.ID != expected.ID || result.Type != expected.Type {
		t.Fatalf("unexpected event: %#v", result)
	}
}

func TestInvalidateSubscriptionCommand_Delegates(t *testing.T) {
	called := false
	svc := stubSubscriptionInvalidator{
		invalidateFn: func(_ context.Context, oneSubUserID string) error {
			called = true
			if oneSubUserID != "user_1" {
				t.Fatalf("unexpected user id: %q", oneSubUserID)
			}
			return nil
		},
	}

	cmd := NewInvalidateSubscriptionCommand(svc)
	err := cmd.Execute(context.Background(), InvalidateSubscriptionMessage{OneSubUserID: "user_1"})
	if err != nil {
		t.Fatalf("execute invalidate: %v", err)
	}
	if !called {
		t.Fatalf("expected invalidator invocation")
	}
}

type commandMessage interface {
	Type() string
	Validate() error
}

func TestMessages_TypeAndValidate(t *testing.T) {
	cases := []struct {
		name     string
		msg      commandMessage
		wantType string
		wantErr  bool
	}{
		{name: "consume valid", msg: validConsumeMessage(), wantType: TypeConsumeCredits},
		{name: "consume missing reason", msg: ConsumeCreditsMessage{Request: credits.ConsumeRequest{
			UserID: "user_1", Amount: 1, IdempotencyKey: "k",
		}}, wantType: TypeConsumeCredits, wantErr: true},
		{name: "exchange valid", msg: ExchangeCodeMessage{Code: "abc123", ToolUserID: "tool_1"}, wantType: TypeExchangeCode},
		{name: "exchange missing code", msg: ExchangeCodeMessage{ToolUserID: "tool_1"}, wantType: TypeExchangeCode, wantErr: true},
		{name: "exchange bad code format", msg: ExchangeCodeMessage{Code: "ab", ToolUserID: "tool_1"}, wantType: TypeExchangeCode, wantErr: true},
		{name: "exchange missing tool user", msg: ExchangeCodeMessage{Code: "ABC123"}, wantType: TypeExchangeCode, wantErr: true},
		{name: "webhook valid", msg: ProcessWebhookMessage{Payload: "{}", Signature: "t=1,v1=ab"}, wantType: TypeProcessWebhook},
		{name: "webhook missing signature", msg: ProcessWebhookMessage{Payload: "{}"}, wantType: TypeProcessWebhook, wantErr: true},
		{name: "invalidate valid", msg: InvalidateSubscriptionMessage{OneSubUserID: "user_1"}, wantType: TypeInvalidateSubscription},
		{name: "invalidate missing id", msg: InvalidateSubscriptionMessage{}, wantType: TypeInvalidateSubscription, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Type(); got != tc.wantType {
				t.Fatalf("expected type %q, got %q", tc.wantType, got)
			}
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestExchangeCodeMessage_BadFormatCarriesInvalidCode(t *testing.T) {
	err := (ExchangeCodeMessage{Code: "ab!", ToolUserID: "tool_1"}).Validate()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.ErrorCodeInvalidCode {
		t.Fatalf("expected %q text code, got %q", core.ErrorCodeInvalidCode, rich.TextCode)
	}
}
