// Package gojob bridges webhook intake to go-job queues: verified events
// become queued execution messages keyed by their event id, so hosts can
// acknowledge the webhook request quickly and process the event on a
// worker.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/webhooks"
)

const (
	JobIDWebhookProcess      = "onesub.webhook.process"
	JobIDSubscriptionRefresh = "onesub.subscription.refresh"
)

// Execution message parameter keys for webhook process jobs.
const (
	ParamEventID   = "event_id"
	ParamEventType = "event_type"
	ParamEventData = "event_data"
)

// RetryPolicy bounds queue retry behavior so a failing webhook job cannot
// requeue forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize clamps opts for a nack at the given attempt count. An empty
// disposition defaults to retry; once attempts are exhausted the retry
// becomes dead_letter (or failed when dead-lettering is disabled).
// Terminal dispositions pass through untouched.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.Disposition == "" {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Disposition == queue.NackDispositionRetry && p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Disposition = queue.NackDispositionFailed
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		}
		out.Delay = 0
	}
	return out
}

// ToExecutionMessage converts a verified webhook event into a queue
// message. The event id doubles as the idempotency key so queue-level
// deduplication lines up with the dispatcher's processed-event ledger.
func ToExecutionMessage(event webhooks.Event, dedup job.DeduplicationPolicy) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID: JobIDWebhookProcess,
		Parameters: map[string]any{
			ParamEventID:   strings.TrimSpace(event.ID),
			ParamEventType: strings.TrimSpace(event.Type),
			ParamEventData: core.CopyMap(event.Data),
		},
		IdempotencyKey: strings.TrimSpace(event.ID),
		DedupPolicy:    dedup,
	}
}

// FromExecutionMessage recovers the webhook event a worker should
// process. ok is false when msg is not a webhook process message.
func FromExecutionMessage(msg *job.ExecutionMessage) (webhooks.Event, bool) {
	if msg == nil || msg.JobID != JobIDWebhookProcess {
		return webhooks.Event{}, false
	}
	event := webhooks.Event{
		ID:   core.ReadString(msg.Parameters, ParamEventID),
		Type: core.ReadString(msg.Parameters, ParamEventType),
	}
	if data, found := msg.Parameters[ParamEventData].(map[string]any); found {
		event.Data = core.CopyMap(data)
	}
	if event.ID == "" {
		return webhooks.Event{}, false
	}
	return event, true
}

// EventEnqueuer queues webhook events for asynchronous processing.
type EventEnqueuer struct {
	enqueuer queue.Enqueuer
	dedup    job.DeduplicationPolicy
}

func NewEventEnqueuer(enqueuer queue.Enqueuer, dedup job.DeduplicationPolicy) *EventEnqueuer {
	return &EventEnqueuer{enqueuer: enqueuer, dedup: dedup}
}

// EnqueueEvent queues the event and returns the queue's acceptance
// receipt so callers can correlate the dispatch.
func (e *EventEnqueuer) EnqueueEvent(ctx context.Context, event webhooks.Event) (queue.EnqueueReceipt, error) {
	if e == nil || e.enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(event.ID) == "" {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: event id is required")
	}
	return e.enqueuer.Enqueue(ctx, ToExecutionMessage(event, e.dedup))
}

// Handler returns a webhooks.Handler that queues events instead of
// processing them inline; register it with On(eventType, enqueuer.Handler()).
// The enqueue receipt is discarded since the dispatcher contract only
// reports success or failure.
func (e *EventEnqueuer) Handler() webhooks.Handler {
	return func(ctx context.Context, event webhooks.Event) error {
		_, err := e.EnqueueEvent(ctx, event)
		return err
	}
}

// DeliveryAdapter wraps a queue delivery with bounded nack behavior.
type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

// Event returns the webhook event carried by the delivery, if any.
func (d *DeliveryAdapter) Event() (webhooks.Event, bool) {
	if d == nil || d.delivery == nil {
		return webhooks.Event{}, false
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts queue.NackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Nack(ctx, d.policy.Normalize(opts, attempt))
}

// MetricsHook feeds worker lifecycle events into the client metrics
// recorder, tagged with the job id.
type MetricsHook struct {
	metrics core.MetricsRecorder
}

func NewMetricsHook(metrics core.MetricsRecorder) *MetricsHook {
	return &MetricsHook{metrics: metrics}
}

func (h *MetricsHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	core.RecordCounter(ctx, h.metrics, "onesub.jobs.started", 1, hookTags(event))
}

func (h *MetricsHook) OnSuccess(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	core.RecordCounter(ctx, h.metrics, "onesub.jobs.succeeded", 1, hookTags(event))
	core.RecordHistogram(ctx, h.metrics, "onesub.jobs.duration_seconds", event.Duration.Seconds(), hookTags(event))
}

func (h *MetricsHook) OnFailure(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	core.RecordCounter(ctx, h.metrics, "onesub.jobs.failed", 1, hookTags(event))
}

func (h *MetricsHook) OnRetry(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	core.RecordCounter(ctx, h.metrics, "onesub.jobs.retried", 1, hookTags(event))
	core.RecordHistogram(ctx, h.metrics, "onesub.jobs.retry_delay_seconds", event.Delay.Seconds(), hookTags(event))
}

func hookTags(event worker.Event) map[string]string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	jobID := ""
	if message != nil {
		jobID = message.JobID
	}
	return map[string]string{"job_id": jobID}
}

var _ worker.Hook = (*MetricsHook)(nil)
