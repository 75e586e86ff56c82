package query

import (
	"context"

	"github.com/goliatone/go-onesub/identity"
	"github.com/goliatone/go-onesub/subscriptions"
)

// SubscriptionReader is satisfied by *subscriptions.Service.
type SubscriptionReader interface {
	Verify(ctx context.Context, id identity.Identifier) (subscriptions.Verification, error)
}

// CreditReader is satisfied by *credits.Service.
type CreditReader interface {
	HasEnough(ctx context.Context, id identity.Identifier, amount int) (bool, error)
}

// ProcessedReader is satisfied by *webhooks.Dispatcher.
type ProcessedReader interface {
	IsProcessed(eventID string) bool
}

type VerifySubscriptionQuery struct {
	reader SubscriptionReader
}

func NewVerifySubscriptionQuery(reader SubscriptionReader) *VerifySubscriptionQuery {
	return &VerifySubscriptionQuery{reader: reader}
}

func (q *VerifySubscriptionQuery) Query(
	ctx context.Context,
	msg VerifySubscriptionMessage,
) (subscriptions.Verification, error) {
	if q == nil || q.reader == nil {
		return subscriptions.Verification{}, queryDependencyError("query: subscription reader is required")
	}
	return q.reader.Verify(ctx, msg.Identifier)
}

type CheckCreditsQuery struct {
	reader CreditReader
}

func NewCheckCreditsQuery(reader CreditReader) *CheckCreditsQuery {
	return &CheckCreditsQuery{reader: reader}
}

func (q *CheckCreditsQuery) Query(ctx context.Context, msg CheckCreditsMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: credit reader is required")
	}
	return q.reader.HasEnough(ctx, msg.Identifier, msg.Amount)
}

type IsEventProcessedQuery struct {
	reader ProcessedReader
}

func NewIsEventProcessedQuery(reader ProcessedReader) *IsEventProcessedQuery {
	return &IsEventProcessedQuery{reader: reader}
}

func (q *IsEventProcessedQuery) Query(_ context.Context, msg IsEventProcessedMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: processed ledger reader is required")
	}
	return q.reader.IsProcessed(msg.EventID), nil
}
