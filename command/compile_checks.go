package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ConsumeCreditsMessage]         = (*ConsumeCreditsCommand)(nil)
	_ gocmd.Commander[ExchangeCodeMessage]           = (*ExchangeCodeCommand)(nil)
	_ gocmd.Commander[ProcessWebhookMessage]         = (*ProcessWebhookCommand)(nil)
	_ gocmd.Commander[InvalidateSubscriptionMessage] = (*InvalidateSubscriptionCommand)(nil)
)
