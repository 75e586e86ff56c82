package query

import (
	"strings"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/identity"
)

const (
	TypeVerifySubscription = "onesub.query.subscriptions.verify"
	TypeCheckCredits       = "onesub.query.credits.check"
	TypeIsEventProcessed   = "onesub.query.webhooks.processed"
)

// VerifySubscriptionMessage asks for the subscription state of one user.
type VerifySubscriptionMessage struct {
	Identifier identity.Identifier
}

func (VerifySubscriptionMessage) Type() string { return TypeVerifySubscription }

func (m VerifySubscriptionMessage) Validate() error {
	return m.Identifier.Validate()
}

// CheckCreditsMessage asks whether a user's remaining credits cover amount.
type CheckCreditsMessage struct {
	Identifier identity.Identifier
	Amount     int
}

func (CheckCreditsMessage) Type() string { return TypeCheckCredits }

func (m CheckCreditsMessage) Validate() error {
	if err := m.Identifier.Validate(); err != nil {
		return err
	}
	if m.Amount <= 0 {
		return core.NewValidationError("query: amount must be a positive integer")
	}
	return nil
}

// IsEventProcessedMessage asks whether a webhook delivery was already
// handled.
type IsEventProcessedMessage struct {
	EventID string
}

func (IsEventProcessedMessage) Type() string { return TypeIsEventProcessed }

func (m IsEventProcessedMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return core.NewValidationError("query: event id is required")
	}
	return nil
}
