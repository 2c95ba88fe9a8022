package subscription

import (
	"context"
	"time"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetBySID(ctx context.Context, sid string) (*Subscription, error)
	GetByExternalID(ctx context.Context, externalID string) (*Subscription, error)
	// GetEffectiveByTeamID returns the team's single effective subscription
	// (status active, trialing or past_due), or nil when the team has none.
	GetEffectiveByTeamID(ctx context.Context, teamID uint) (*Subscription, error)
	GetByTeamID(ctx context.Context, teamID uint) ([]*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error

	// FindDeferredCancellations returns effective subscriptions flagged
	// cancel-at-period-end whose current period ended at or before now.
	FindDeferredCancellations(ctx context.Context, now time.Time) ([]*Subscription, error)

	CountByPlanID(ctx context.Context, planID uint) (int64, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	GetByTier(ctx context.Context, tier PlanTier) (*Plan, error)
	GetPublicPlans(ctx context.Context) ([]*Plan, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// WebhookEventRepository persists processed billing-provider event IDs for
// replay protection. Rows are retained for a bounded window, then purged.
type WebhookEventRepository interface {
	// MarkProcessed records the event ID. It returns false without error
	// when the ID was already recorded (duplicate delivery).
	MarkProcessed(ctx context.Context, eventID string, eventType string, subscriptionID uint) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// PurgeOlderThan removes processed records outside the retention window.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
