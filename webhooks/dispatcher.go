package webhooks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-onesub/core"
)

// Handler consumes one verified webhook event. Handler errors propagate to
// the Handle/Process caller; the event id stays marked as processed.
type Handler func(ctx context.Context, event Event) error

// Event is one decoded webhook delivery. Data holds the full payload
// object, id and type fields included.
type Event struct {
	ID   string
	Type string
	Data map[string]any
}

// Config carries the dispatcher knobs. Ledger overrides the default
// in-memory dedup set; Capacity sizes the default when Ledger is nil.
type Config struct {
	Secret    string
	Tolerance time.Duration
	Capacity  int
	Ledger    ProcessedLedger
	Logger    core.Logger
	Metrics   core.MetricsRecorder

	// Now overrides the verification clock; tests pin it.
	Now func() time.Time
}

// Dispatcher verifies inbound payloads, deduplicates deliveries by event
// id, and routes events to the handler registered for their type. Each
// event id moves Unseen -> Processed exactly once; ClearProcessed resets
// every id back to Unseen.
type Dispatcher struct {
	signer    *Signer
	processed ProcessedLedger
	logger    core.Logger
	metrics   core.MetricsRecorder

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher builds a Dispatcher from cfg.
func NewDispatcher(cfg Config) *Dispatcher {
	signer := NewSigner(cfg.Secret, cfg.Tolerance)
	if cfg.Now != nil {
		signer.Now = cfg.Now
	}

	ledger := cfg.Ledger
	if ledger == nil {
		ledger = NewMemoryProcessedSet(cfg.Capacity)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	return &Dispatcher{
		signer:    signer,
		processed: ledger,
		logger:    glog.Ensure(cfg.Logger),
		metrics:   metrics,
		handlers:  map[string]Handler{},
	}
}

// Verify reports whether payload carries a valid signature in header.
// Empty payloads and headers are invalid, not errors.
func (d *Dispatcher) Verify(payload string, header string) bool {
	if d == nil || payload == "" || header == "" {
		return false
	}
	return d.signer.Verify(payload, header)
}

// VerifyOrFail verifies and surfaces an invalid signature as a webhook
// verification error.
func (d *Dispatcher) VerifyOrFail(payload string, header string) error {
	if !d.Verify(payload, header) {
		return core.NewWebhookVerificationError("Invalid webhook signature")
	}
	return nil
}

// ConstructEvent verifies payload then decodes it. Verification runs
// before parsing so an unauthenticated payload reveals nothing about the
// structure the dispatcher expects; both failure modes surface as webhook
// verification errors with distinct messages.
func (d *Dispatcher) ConstructEvent(payload string, header string) (Event, error) {
	if err := d.VerifyOrFail(payload, header); err != nil {
		return Event{}, err
	}

	data := map[string]any{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Event{}, core.NewWebhookVerificationError("Invalid webhook payload")
	}

	return Event{
		ID:   core.ReadString(data, "id"),
		Type: core.ReadString(data, "type"),
		Data: data,
	}, nil
}

// On registers handler for eventType, replacing any previous registration.
// A nil handler removes the registration. Returns the dispatcher so
// registrations chain.
func (d *Dispatcher) On(eventType string, handler Handler) *Dispatcher {
	if d == nil {
		return d
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if handler == nil {
		delete(d.handlers, eventType)
		return d
	}
	d.handlers[eventType] = handler
	return d
}

// Off removes the handler for eventType if present.
func (d *Dispatcher) Off(eventType string) *Dispatcher {
	if d == nil {
		return d
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, eventType)
	return d
}

// Handle dispatches event to the handler registered for its type. An
// already-processed id reports true without invoking anything, so retried
// deliveries are no-op successes. An event with no registered handler
// reports false and stays unprocessed; a redelivery after registration can
// still land. Otherwise the id is marked processed before the handler
// runs and handler errors propagate alongside handled=true.
func (d *Dispatcher) Handle(ctx context.Context, event Event) (bool, error) {
	if d == nil {
		return false, goerrors.New("webhooks: dispatcher is not configured", goerrors.CategoryInternal)
	}

	if d.processed.Seen(event.ID) {
		core.RecordCounter(ctx, d.metrics, "onesub.webhooks.duplicates", 1, map[string]string{"type": event.Type})
		return true, nil
	}

	handler := d.handlerFor(event.Type)
	if handler == nil {
		core.LogDebug(ctx, d.logger, "no handler registered for event", map[string]any{
			"event_id":   event.ID,
			"event_type": event.Type,
		})
		core.RecordCounter(ctx, d.metrics, "onesub.webhooks.unhandled", 1, map[string]string{"type": event.Type})
		return false, nil
	}

	if !d.processed.Mark(event.ID) {
		// A concurrent delivery claimed the id first.
		return true, nil
	}
	if err := handler(ctx, event); err != nil {
		core.RecordCounter(ctx, d.metrics, "onesub.webhooks.handler_failures", 1, map[string]string{"type": event.Type})
		return true, err
	}
	core.RecordCounter(ctx, d.metrics, "onesub.webhooks.processed", 1, map[string]string{"type": event.Type})
	return true, nil
}

// Process verifies, decodes, and dispatches payload in one call. The
// decoded event is returned whether or not a handler consumed it; handler
// failures surface alongside the event.
func (d *Dispatcher) Process(ctx context.Context, payload string, header string) (Event, error) {
	event, err := d.ConstructEvent(payload, header)
	if err != nil {
		return Event{}, err
	}
	if _, err := d.Handle(ctx, event); err != nil {
		return event, err
	}
	return event, nil
}

// IsProcessed reports whether an event id has already been dispatched.
func (d *Dispatcher) IsProcessed(eventID string) bool {
	if d == nil {
		return false
	}
	return d.processed.Seen(eventID)
}

// ClearProcessed forgets every dispatched event id.
func (d *Dispatcher) ClearProcessed() {
	if d == nil {
		return
	}
	d.processed.Clear()
}

// GenerateTestSignature signs payload with the dispatcher secret so tests
// can exercise handlers end to end.
func (d *Dispatcher) GenerateTestSignature(payload string) string {
	if d == nil {
		return ""
	}
	return d.signer.Sign(payload)
}

func (d *Dispatcher) handlerFor(eventType string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[eventType]
}
