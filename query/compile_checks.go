package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-onesub/subscriptions"
)

var (
	_ gocmd.Querier[VerifySubscriptionMessage, subscriptions.Verification] = (*VerifySubscriptionQuery)(nil)
	_ gocmd.Querier[CheckCreditsMessage, bool]                             = (*CheckCreditsQuery)(nil)
	_ gocmd.Querier[IsEventProcessedMessage, bool]                         = (*IsEventProcessedQuery)(nil)
)
