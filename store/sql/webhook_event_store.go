package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/webhooks"
)

// WebhookEventStore is a durable processed-event ledger. The unique index
// on event_id gives insert-once claim semantics: the first delivery that
// inserts a row owns the event, replays hit the unique violation and are
// reported as already processed.
//
// The store satisfies webhooks.ProcessedLedger so it can replace the
// dispatcher's in-memory set when replay suppression must survive
// restarts. The ledger contract carries no context; those methods run
// against context.Background() and report storage failures through the
// configured logger, answering conservatively so a broken database never
// double-dispatches an event.
type WebhookEventStore struct {
	db     *bun.DB
	repo   repository.Repository[*webhookEventRecord]
	logger core.Logger
	now    func() time.Time
}

func NewWebhookEventStore(db *bun.DB) (*WebhookEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEventRecord](db, webhookEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook event repository wiring: %w", err)
		}
	}
	return &WebhookEventStore{
		db:   db,
		repo: repo,
		now:  core.UTCNow,
	}, nil
}

// WithLogger attaches the logger used by the context-free ledger methods.
func (s *WebhookEventStore) WithLogger(logger core.Logger) *WebhookEventStore {
	if s != nil {
		s.logger = logger
	}
	return s
}

// ClaimEvent records eventID as processed. It reports true when this call
// inserted the row and false when another delivery already claimed it.
func (s *WebhookEventStore) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	return s.RecordEvent(ctx, webhooks.Event{ID: eventID})
}

// RecordEvent is ClaimEvent with the full event attached, so the ledger
// row keeps the event type and payload for auditing.
func (s *WebhookEventStore) RecordEvent(ctx context.Context, event webhooks.Event) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	eventID := strings.TrimSpace(event.ID)
	if eventID == "" {
		return false, fmt.Errorf("sqlstore: event id is required")
	}
	now := s.now()
	record := &webhookEventRecord{
		ID:          uuid.NewString(),
		EventID:     eventID,
		EventType:   strings.TrimSpace(event.Type),
		Payload:     core.CopyMap(event.Data),
		ProcessedAt: now,
		CreatedAt:   now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SeenEvent reports whether eventID has a ledger row.
func (s *WebhookEventStore) SeenEvent(ctx context.Context, eventID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, nil
	}
	count, err := s.db.NewSelect().
		Model((*webhookEventRecord)(nil)).
		Where("?TableAlias.event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetEvent returns the recorded delivery for eventID; found is false when
// the id was never claimed.
func (s *WebhookEventStore) GetEvent(ctx context.Context, eventID string) (webhooks.Event, bool, error) {
	if s == nil || s.db == nil {
		return webhooks.Event{}, false, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	record := &webhookEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.event_id = ?", strings.TrimSpace(eventID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return webhooks.Event{}, false, nil
		}
		return webhooks.Event{}, false, err
	}
	return webhooks.Event{
		ID:   record.EventID,
		Type: record.EventType,
		Data: core.CopyMap(record.Payload),
	}, true, nil
}

// ClearEvents deletes every ledger row, returning each event id to the
// unseen state.
func (s *WebhookEventStore) ClearEvents(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*webhookEventRecord)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}

// CountEvents returns the number of recorded deliveries.
func (s *WebhookEventStore) CountEvents(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	return s.db.NewSelect().
		Model((*webhookEventRecord)(nil)).
		Count(ctx)
}

// PurgeEventsBefore deletes ledger rows processed before cutoff and
// returns how many were removed. Hosts run this on a schedule so the
// table does not grow unbounded.
func (s *WebhookEventStore) PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*webhookEventRecord)(nil)).
		Where("?TableAlias.processed_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

// Seen implements webhooks.ProcessedLedger.
func (s *WebhookEventStore) Seen(id string) bool {
	seen, err := s.SeenEvent(context.Background(), id)
	if err != nil {
		s.logLedgerError("seen", id, err)
		return false
	}
	return seen
}

// Mark implements webhooks.ProcessedLedger. A storage failure reports
// false so the dispatcher does not invoke the handler for an event the
// ledger could not claim.
func (s *WebhookEventStore) Mark(id string) bool {
	claimed, err := s.ClaimEvent(context.Background(), id)
	if err != nil {
		s.logLedgerError("mark", id, err)
		return false
	}
	return claimed
}

// Clear implements webhooks.ProcessedLedger.
func (s *WebhookEventStore) Clear() {
	if err := s.ClearEvents(context.Background()); err != nil {
		s.logLedgerError("clear", "", err)
	}
}

// Len implements webhooks.ProcessedLedger.
func (s *WebhookEventStore) Len() int {
	count, err := s.CountEvents(context.Background())
	if err != nil {
		s.logLedgerError("len", "", err)
		return 0
	}
	return count
}

// IsProcessed mirrors the dispatcher inspection contract for hosts that
// answer processed-event queries straight from the database.
func (s *WebhookEventStore) IsProcessed(eventID string) bool {
	return s.Seen(eventID)
}

func (s *WebhookEventStore) logLedgerError(op string, eventID string, err error) {
	if s == nil || s.logger == nil {
		return
	}
	core.LogError(context.Background(), s.logger, "webhook event ledger operation failed", map[string]any{
		"op":       op,
		"event_id": eventID,
		"error":    err.Error(),
	})
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
