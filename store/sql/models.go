package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:onesub_webhook_events,alias:owe"`

	ID          string         `bun:"id,pk"`
	EventID     string         `bun:"event_id,notnull"`
	EventType   string         `bun:"event_type,notnull"`
	Payload     map[string]any `bun:"payload,type:jsonb,notnull"`
	ProcessedAt time.Time      `bun:"processed_at,nullzero,notnull,default:current_timestamp"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type subscriptionSnapshotRecord struct {
	bun.BaseModel `bun:"table:onesub_subscription_snapshots,alias:oss"`

	ID               string         `bun:"id,pk"`
	OneSubUserID     string         `bun:"onesub_user_id,notnull"`
	Active           bool           `bun:"active,notnull"`
	PlanID           string         `bun:"plan_id,notnull"`
	PlanName         string         `bun:"plan_name,notnull"`
	Status           string         `bun:"status,notnull"`
	ExpiresAt        string         `bun:"expires_at,notnull"`
	CreditsRemaining int            `bun:"credits_remaining,notnull"`
	Raw              map[string]any `bun:"raw,type:jsonb,notnull"`
	VerifiedAt       time.Time      `bun:"verified_at,nullzero,notnull,default:current_timestamp"`
	CreatedAt        time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
