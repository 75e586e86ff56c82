package onesub

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-onesub/webhooks"
)

// HandlerPack bundles the webhook handlers one feature contributes, keyed
// by event type, so hosts register them as a unit.
type HandlerPack struct {
	Name     string
	Handlers map[string]webhooks.Handler
}

// ExtensionHooks collects handler packs ahead of client construction.
// Packs registered here land on the dispatcher via WithExtensionHooks.
type ExtensionHooks struct {
	mu    sync.RWMutex
	packs map[string]HandlerPack
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		packs: map[string]HandlerPack{},
	}
}

// RegisterHandlerPack records pack under its name. Names are unique; a
// pack needs at least one handler.
func (h *ExtensionHooks) RegisterHandlerPack(pack HandlerPack) error {
	if h == nil {
		return fmt.Errorf("onesub: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("onesub: handler pack name is required")
	}
	if len(pack.Handlers) == 0 {
		return fmt.Errorf("onesub: handler pack %q has no handlers", name)
	}
	for eventType, handler := range pack.Handlers {
		if strings.TrimSpace(eventType) == "" {
			return fmt.Errorf("onesub: handler pack %q has a handler with no event type", name)
		}
		if handler == nil {
			return fmt.Errorf("onesub: handler pack %q has nil handler for %q", name, eventType)
		}
	}

	normalized := HandlerPack{
		Name:     name,
		Handlers: make(map[string]webhooks.Handler, len(pack.Handlers)),
	}
	for eventType, handler := range pack.Handlers {
		normalized.Handlers[eventType] = handler
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.packs[name]; exists {
		return fmt.Errorf("onesub: handler pack %q already registered", name)
	}
	h.packs[name] = normalized
	return nil
}

// Apply registers every pack's handlers on dispatcher. Two packs claiming
// the same event type is a wiring bug and fails the whole application.
func (h *ExtensionHooks) Apply(dispatcher *webhooks.Dispatcher) error {
	if h == nil {
		return nil
	}
	if dispatcher == nil {
		return fmt.Errorf("onesub: dispatcher is required")
	}

	claimed := map[string]string{}
	for _, pack := range h.HandlerPacks() {
		eventTypes := make([]string, 0, len(pack.Handlers))
		for eventType := range pack.Handlers {
			eventTypes = append(eventTypes, eventType)
		}
		sort.Strings(eventTypes)

		for _, eventType := range eventTypes {
			if owner, exists := claimed[eventType]; exists {
				return fmt.Errorf("onesub: event type %q claimed by packs %q and %q", eventType, owner, pack.Name)
			}
			claimed[eventType] = pack.Name
			dispatcher.On(eventType, pack.Handlers[eventType])
		}
	}
	return nil
}

// HandlerPacks returns the registered packs ordered by name.
func (h *ExtensionHooks) HandlerPacks() []HandlerPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.packs))
	for name := range h.packs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HandlerPack, 0, len(names))
	for _, name := range names {
		pack := h.packs[name]
		handlers := make(map[string]webhooks.Handler, len(pack.Handlers))
		for eventType, handler := range pack.Handlers {
			handlers[eventType] = handler
		}
		out = append(out, HandlerPack{Name: pack.Name, Handlers: handlers})
	}
	return out
}

// PackNames lists registered pack names in sorted order.
func (h *ExtensionHooks) PackNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.packs))
	for name := range h.packs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EventTypes lists the event types pack name handles, sorted.
func (h *ExtensionHooks) EventTypes(name string) []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	pack, ok := h.packs[strings.TrimSpace(name)]
	if !ok {
		return nil
	}
	types := make([]string, 0, len(pack.Handlers))
	for eventType := range pack.Handlers {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}
