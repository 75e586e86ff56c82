// Package gocommand mounts the SDK's command and query handlers on a
// go-command registry and the process-wide dispatcher, so hosts drive the
// client through messages instead of direct service calls.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	onesub "github.com/goliatone/go-onesub"
	onesubquery "github.com/goliatone/go-onesub/query"
	"github.com/goliatone/go-onesub/subscriptions"
)

// ValidateMessageContract enforces Type() plus optional Validate().
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver routes registered messages through a go-job queue
// command registry, pairing message dispatch with queued execution.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// Binding holds dispatcher subscriptions created by a mount so they can
// be torn down as a unit.
type Binding struct {
	subscriptions []commanddispatcher.Subscription
}

func (b *Binding) Unsubscribe() {
	if b == nil {
		return
	}
	for _, subscription := range b.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

func (b *Binding) add(subscription commanddispatcher.Subscription) {
	if subscription != nil {
		b.subscriptions = append(b.subscriptions, subscription)
	}
}

// MountCommands registers and subscribes every non-nil command handler.
// On failure the subscriptions made so far are released.
func MountCommands(adapter *RegistryAdapter, commands onesub.Commands, runnerOpts ...runner.Option) (*Binding, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	binding := &Binding{}
	if commands.ConsumeCredits != nil {
		if err := registerAndSubscribe(adapter, binding, commands.ConsumeCredits, runnerOpts...); err != nil {
			return nil, err
		}
	}
	if commands.ExchangeCode != nil {
		if err := registerAndSubscribe(adapter, binding, commands.ExchangeCode, runnerOpts...); err != nil {
			return nil, err
		}
	}
	if commands.ProcessWebhook != nil {
		if err := registerAndSubscribe(adapter, binding, commands.ProcessWebhook, runnerOpts...); err != nil {
			return nil, err
		}
	}
	if commands.InvalidateSubscription != nil {
		if err := registerAndSubscribe(adapter, binding, commands.InvalidateSubscription, runnerOpts...); err != nil {
			return nil, err
		}
	}
	return binding, nil
}

// MountQueries registers and subscribes every non-nil query handler.
func MountQueries(adapter *RegistryAdapter, queries onesub.Queries, runnerOpts ...runner.Option) (*Binding, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	binding := &Binding{}
	if queries.VerifySubscription != nil {
		if err := registerAndSubscribeQuery[onesubquery.VerifySubscriptionMessage, subscriptions.Verification](
			adapter, binding, queries.VerifySubscription, runnerOpts...,
		); err != nil {
			return nil, err
		}
	}
	if queries.CheckCredits != nil {
		if err := registerAndSubscribeQuery[onesubquery.CheckCreditsMessage, bool](
			adapter, binding, queries.CheckCredits, runnerOpts...,
		); err != nil {
			return nil, err
		}
	}
	if queries.IsEventProcessed != nil {
		if err := registerAndSubscribeQuery[onesubquery.IsEventProcessedMessage, bool](
			adapter, binding, queries.IsEventProcessed, runnerOpts...,
		); err != nil {
			return nil, err
		}
	}
	return binding, nil
}

// Mount is MountCommands plus MountQueries with a shared binding.
func Mount(adapter *RegistryAdapter, facade *onesub.Facade, runnerOpts ...runner.Option) (*Binding, error) {
	if facade == nil {
		return nil, fmt.Errorf("gocommand: facade is required")
	}
	commandBinding, err := MountCommands(adapter, facade.Commands(), runnerOpts...)
	if err != nil {
		return nil, err
	}
	queryBinding, err := MountQueries(adapter, facade.Queries(), runnerOpts...)
	if err != nil {
		commandBinding.Unsubscribe()
		return nil, err
	}
	commandBinding.subscriptions = append(commandBinding.subscriptions, queryBinding.subscriptions...)
	return commandBinding, nil
}

// Dispatch sends msg through the process-wide dispatcher.
func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

// Query sends msg through the process-wide dispatcher and returns the
// typed result.
func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func registerAndSubscribe[T any](
	adapter *RegistryAdapter,
	binding *Binding,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) error {
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		binding.Unsubscribe()
		return err
	}
	binding.add(subscription)
	return nil
}

func registerAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	binding *Binding,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) error {
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		binding.Unsubscribe()
		return err
	}
	binding.add(subscription)
	return nil
}
