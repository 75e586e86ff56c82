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
	"github.com/goliatone/go-onesub/subscriptions"
)

// Snapshot is the last verification observed for one user, with the time
// it was taken.
type Snapshot struct {
	OneSubUserID string
	Verification subscriptions.Verification
	VerifiedAt   time.Time
}

// SubscriptionSnapshotStore persists the most recent verification per
// oneSubUserId so hosts can audit entitlements or answer "was this user
// active" while the API is unreachable. One row per user; Upsert
// replaces the previous snapshot.
type SubscriptionSnapshotStore struct {
	db   *bun.DB
	repo repository.Repository[*subscriptionSnapshotRecord]
	now  func() time.Time
}

func NewSubscriptionSnapshotStore(db *bun.DB) (*SubscriptionSnapshotStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*subscriptionSnapshotRecord](db, subscriptionSnapshotHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid subscription snapshot repository wiring: %w", err)
		}
	}
	return &SubscriptionSnapshotStore{
		db:   db,
		repo: repo,
		now:  core.UTCNow,
	}, nil
}

// Upsert stores verification as the current snapshot for its user. The
// verification must carry a oneSubUserId; verify responses without one
// cannot be keyed and are rejected.
func (s *SubscriptionSnapshotStore) Upsert(ctx context.Context, verification subscriptions.Verification) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: subscription snapshot store is not configured")
	}
	userID := strings.TrimSpace(verification.OneSubUserID)
	if userID == "" {
		return fmt.Errorf("sqlstore: verification has no oneSubUserId")
	}
	now := s.now()
	record := &subscriptionSnapshotRecord{
		ID:               uuid.NewString(),
		OneSubUserID:     userID,
		Active:           verification.Active,
		PlanID:           verification.PlanID,
		PlanName:         verification.PlanName,
		Status:           verification.Status,
		ExpiresAt:        verification.ExpiresAt,
		CreditsRemaining: verification.CreditsRemaining,
		Raw:              core.CopyMap(verification.Raw),
		VerifiedAt:       now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (onesub_user_id) DO UPDATE").
		Set("active = EXCLUDED.active").
		Set("plan_id = EXCLUDED.plan_id").
		Set("plan_name = EXCLUDED.plan_name").
		Set("status = EXCLUDED.status").
		Set("expires_at = EXCLUDED.expires_at").
		Set("credits_remaining = EXCLUDED.credits_remaining").
		Set("raw = EXCLUDED.raw").
		Set("verified_at = EXCLUDED.verified_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Get returns the stored snapshot for oneSubUserID; found is false when
// the user has never been verified.
func (s *SubscriptionSnapshotStore) Get(ctx context.Context, oneSubUserID string) (Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return Snapshot{}, false, fmt.Errorf("sqlstore: subscription snapshot store is not configured")
	}
	record := &subscriptionSnapshotRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.onesub_user_id = ?", strings.TrimSpace(oneSubUserID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	return snapshotToDomain(record), true, nil
}

// Purge deletes snapshots last verified before cutoff and returns how
// many rows were removed.
func (s *SubscriptionSnapshotStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: subscription snapshot store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*subscriptionSnapshotRecord)(nil)).
		Where("?TableAlias.verified_at < ?", cutoff.UTC()).
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

func snapshotToDomain(record *subscriptionSnapshotRecord) Snapshot {
	if record == nil {
		return Snapshot{}
	}
	return Snapshot{
		OneSubUserID: record.OneSubUserID,
		Verification: subscriptions.Verification{
			Active:           record.Active,
			PlanID:           record.PlanID,
			PlanName:         record.PlanName,
			Status:           record.Status,
			ExpiresAt:        record.ExpiresAt,
			CreditsRemaining: record.CreditsRemaining,
			OneSubUserID:     record.OneSubUserID,
			Raw:              core.CopyMap(record.Raw),
		},
		VerifiedAt: record.VerifiedAt,
	}
}
