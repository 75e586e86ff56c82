package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-onesub/credits"
	"github.com/goliatone/go-onesub/links"
	"github.com/goliatone/go-onesub/webhooks"
)

// CreditConsumer is satisfied by *credits.Service.
type CreditConsumer interface {
	Consume(ctx context.Context, req credits.ConsumeRequest) (credits.ConsumeResult, error)
}

// CodeExchanger is satisfied by *links.Service.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string, toolUserID string) (links.Link, error)
}

// WebhookProcessor is satisfied by *webhooks.Dispatcher.
type WebhookProcessor interface {
	Process(ctx context.Context, payload string, header string) (webhooks.Event, error)
}

// SubscriptionInvalidator is satisfied by *subscriptions.Service.
type SubscriptionInvalidator interface {
	InvalidateCache(ctx context.Context, oneSubUserID string) error
}

type ConsumeCreditsCommand struct {
	service CreditConsumer
}

func NewConsumeCreditsCommand(service CreditConsumer) *ConsumeCreditsCommand {
	return &ConsumeCreditsCommand{service: service}
}

func (c *ConsumeCreditsCommand) Execute(ctx context.Context, msg ConsumeCreditsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credit consumer is required")
	}
	out, err := c.service.Consume(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ExchangeCodeCommand struct {
	service CodeExchanger
}

func NewExchangeCodeCommand(service CodeExchanger) *ExchangeCodeCommand {
	return &ExchangeCodeCommand{service: service}
}

func (c *ExchangeCodeCommand) Execute(ctx context.Context, msg ExchangeCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: code exchanger is required")
	}
	out, err := c.service.ExchangeCode(ctx, msg.Code, msg.ToolUserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ProcessWebhookCommand struct {
	service WebhookProcessor
}

func NewProcessWebhookCommand(service WebhookProcessor) *ProcessWebhookCommand {
	return &ProcessWebhookCommand{service: service}
}

func (c *ProcessWebhookCommand) Execute(ctx context.Context, msg ProcessWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook processor is required")
	}
	out, err := c.service.Process(ctx, msg.Payload, msg.Signature)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type InvalidateSubscriptionCommand struct {
	service SubscriptionInvalidator
}

func NewInvalidateSubscriptionCommand(service SubscriptionInvalidator) *InvalidateSubscriptionCommand {
	return &InvalidateSubscriptionCommand{service: service}
}

func (c *InvalidateSubscriptionCommand) Execute(ctx context.Context, msg InvalidateSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription invalidator is required")
	}
	return c.service.InvalidateCache(ctx, msg.OneSubUserID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
