package sqlstore

import (
	"github.com/goliatone/go-onesub/query"
	"github.com/goliatone/go-onesub/webhooks"
)

var (
	_ webhooks.ProcessedLedger = (*WebhookEventStore)(nil)
	_ query.ProcessedReader    = (*WebhookEventStore)(nil)
)
