package command

import (
	"strings"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/credits"
	"github.com/goliatone/go-onesub/links"
)

const (
	TypeConsumeCredits         = "onesub.command.credits.consume"
	TypeExchangeCode           = "onesub.command.links.exchange"
	TypeProcessWebhook         = "onesub.command.webhooks.process"
	TypeInvalidateSubscription = "onesub.command.subscriptions.invalidate"
)

// ConsumeCreditsMessage requests an idempotent credit deduction.
type ConsumeCreditsMessage struct {
	Request credits.ConsumeRequest
}

func (ConsumeCreditsMessage) Type() string { return TypeConsumeCredits }

func (m ConsumeCreditsMessage) Validate() error {
	return m.Request.Validate()
}

// ExchangeCodeMessage redeems a one-time account link code for the tool
// user it should bind to.
type ExchangeCodeMessage struct {
	Code       string
	ToolUserID string
}

func (ExchangeCodeMessage) Type() string { return TypeExchangeCode }

func (m ExchangeCodeMessage) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return core.NewValidationError("command: code is required")
	}
	if !links.IsValidCodeFormat(links.NormalizeCode(m.Code)) {
		return core.NewInvalidCodeError("command: code must be 6-10 alphanumeric characters")
	}
	if strings.TrimSpace(m.ToolUserID) == "" {
		return core.NewValidationError("command: tool user id is required")
	}
	return nil
}

// ProcessWebhookMessage verifies and dispatches one raw webhook delivery.
type ProcessWebhookMessage struct {
	Payload   string
	Signature string
}

func (ProcessWebhookMessage) Type() string { return TypeProcessWebhook }

func (m ProcessWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Payload) == "" {
		return core.NewValidationError("command: payload is required")
	}
	if strings.TrimSpace(m.Signature) == "" {
		return core.NewValidationError("command: signature header is required")
	}
	return nil
}

// InvalidateSubscriptionMessage drops the cached verification for one user
// so the next lookup refetches.
type InvalidateSubscriptionMessage struct {
	OneSubUserID string
}

func (InvalidateSubscriptionMessage) Type() string { return TypeInvalidateSubscription }

func (m InvalidateSubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.OneSubUserID) == "" {
		return core.NewValidationError("command: onesub user id is required")
	}
	return nil
}
