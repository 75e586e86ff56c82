package onesub

import (
	"fmt"

	onesubcommand "github.com/goliatone/go-onesub/command"
	onesubquery "github.com/goliatone/go-onesub/query"
)

// Commands exposes the mutating operations as go-command handlers, ready
// to register on a host dispatcher or message bus.
type Commands struct {
	ConsumeCredits         *onesubcommand.ConsumeCreditsCommand
	ExchangeCode           *onesubcommand.ExchangeCodeCommand
	ProcessWebhook         *onesubcommand.ProcessWebhookCommand
	InvalidateSubscription *onesubcommand.InvalidateSubscriptionCommand
}

// Queries exposes the read operations as go-command query handlers.
type Queries struct {
	VerifySubscription *onesubquery.VerifySubscriptionQuery
	CheckCredits       *onesubquery.CheckCreditsQuery
	IsEventProcessed   *onesubquery.IsEventProcessedQuery
}

// Facade binds a Client's services to command/query handlers. Webhook
// handlers stay nil when the client has no dispatcher.
type Facade struct {
	client   *Client
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	processedReader onesubquery.ProcessedReader
}

// WithProcessedReader sources IsEventProcessed from reader instead of the
// client's dispatcher ledger, e.g. from a database-backed event store.
func WithProcessedReader(reader onesubquery.ProcessedReader) FacadeOption {
	return func(options *facadeOptions) {
		options.processedReader = reader
	}
}

func NewFacade(client *Client, opts ...FacadeOption) (*Facade, error) {
	if client == nil {
		return nil, fmt.Errorf("onesub: client is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{client: client}
	facade.commands = Commands{
		ConsumeCredits:         onesubcommand.NewConsumeCreditsCommand(client.Credits()),
		ExchangeCode:           onesubcommand.NewExchangeCodeCommand(client.Links()),
		InvalidateSubscription: onesubcommand.NewInvalidateSubscriptionCommand(client.Subscriptions()),
	}
	facade.queries = Queries{
		VerifySubscription: onesubquery.NewVerifySubscriptionQuery(client.Subscriptions()),
		CheckCredits:       onesubquery.NewCheckCreditsQuery(client.Credits()),
	}

	if dispatcher := client.Webhooks(); dispatcher != nil {
		facade.commands.ProcessWebhook = onesubcommand.NewProcessWebhookCommand(dispatcher)
		if cfg.processedReader == nil {
			cfg.processedReader = dispatcher
		}
	}
	if cfg.processedReader != nil {
		facade.queries.IsEventProcessed = onesubquery.NewIsEventProcessedQuery(cfg.processedReader)
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Client() *Client {
	if f == nil {
		return nil
	}
	return f.client
}
