package services

import (
	"context"
	"fmt"
	"time"

	"formlens/internal/domain/entitlement"
	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	"formlens/internal/infrastructure/cache"
	"formlens/internal/shared/biztime"
	"formlens/internal/shared/logger"
)

// ResolvedEntitlement is the effective limit set for a team together with the
// billing period the limits apply to.
type ResolvedEntitlement struct {
	Limits      metering.LimitSet
	PeriodStart time.Time
	PeriodEnd   time.Time
	PlanTier    string
	FreeTier    bool
}

// EntitlementService resolves a team's effective limits, consulting the cache
// before falling back to the subscription and plan repositories. Resolution
// is read-only; limit snapshots inside usage counters are taken at counter
// creation and never retroactively changed.
type EntitlementService struct {
	subscriptionRepo subscription.SubscriptionRepository
	planRepo         subscription.PlanRepository
	resolver         *entitlement.Resolver
	cache            cache.EntitlementCache
	logger           logger.Interface
}

// NewEntitlementService creates a new EntitlementService. The cache may be
// nil, in which case every resolution hits the database.
func NewEntitlementService(
	subscriptionRepo subscription.SubscriptionRepository,
	planRepo subscription.PlanRepository,
	entitlementCache cache.EntitlementCache,
	logger logger.Interface,
) *EntitlementService {
	return &EntitlementService{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		resolver:         entitlement.NewResolver(),
		cache:            entitlementCache,
		logger:           logger,
	}
}

// ResolveForTeam returns the team's effective limits and current billing
// period at now. Teams without an effective subscription resolve to the free
// tier on calendar-month periods.
func (s *EntitlementService) ResolveForTeam(ctx context.Context, teamID uint, now time.Time) (*ResolvedEntitlement, error) {
	if cached := s.fromCache(ctx, teamID, now); cached != nil {
		return cached, nil
	}

	resolved, err := s.resolveFromDB(ctx, teamID, now)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, teamID, resolved)
	return resolved, nil
}

// Invalidate drops the cached entitlement so the next resolution sees fresh
// subscription state. Best effort: a failed invalidation only delays the
// downgrade or upgrade until the cache TTL expires.
func (s *EntitlementService) Invalidate(ctx context.Context, teamID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEntitlement(ctx, teamID); err != nil {
		s.logger.Warnw("failed to invalidate entitlement cache", "team_id", teamID, "error", err)
	}
}

func (s *EntitlementService) fromCache(ctx context.Context, teamID uint, now time.Time) *ResolvedEntitlement {
	if s.cache == nil {
		return nil
	}

	cached, err := s.cache.GetEntitlement(ctx, teamID)
	if err != nil {
		s.logger.Warnw("entitlement cache read failed, falling back to DB", "team_id", teamID, "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}
	// A cached period that has already elapsed must not serve stale limits.
	if !now.Before(cached.PeriodEnd) {
		return nil
	}

	return &ResolvedEntitlement{
		Limits:      cached.Limits,
		PeriodStart: cached.PeriodStart,
		PeriodEnd:   cached.PeriodEnd,
		PlanTier:    cached.PlanTier,
		FreeTier:    cached.FreeTier,
	}
}

func (s *EntitlementService) toCache(ctx context.Context, teamID uint, resolved *ResolvedEntitlement) {
	if s.cache == nil {
		return
	}

	err := s.cache.SetEntitlement(ctx, teamID, &cache.CachedEntitlement{
		Limits:      resolved.Limits,
		PeriodStart: resolved.PeriodStart,
		PeriodEnd:   resolved.PeriodEnd,
		PlanTier:    resolved.PlanTier,
		FreeTier:    resolved.FreeTier,
	})
	if err != nil {
		s.logger.Warnw("failed to cache entitlement", "team_id", teamID, "error", err)
	}
}

func (s *EntitlementService) resolveFromDB(ctx context.Context, teamID uint, now time.Time) (*ResolvedEntitlement, error) {
	sub, err := s.subscriptionRepo.GetEffectiveByTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load effective subscription: %w", err)
	}

	if sub == nil {
		return s.freeTier(now), nil
	}

	// A deferred cancellation whose final period has ended is already dead,
	// even when the sweep has not enacted it yet.
	if sub.DeferredCancellationDue(now) {
		return s.freeTier(now), nil
	}

	plan, err := s.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %d: %w", sub.PlanID(), err)
	}

	limits := s.resolver.LimitsForSubscription(sub, plan)
	planTier := ""
	if plan != nil {
		planTier = string(plan.Tier())
	}

	// Trial windows are used verbatim as the billing period; anchored period
	// arithmetic only starts once the subscription converts to paid.
	if sub.InTrialWindow(now) {
		return &ResolvedEntitlement{
			Limits:      limits,
			PeriodStart: *sub.TrialStart(),
			PeriodEnd:   *sub.TrialEnd(),
			PlanTier:    planTier,
		}, nil
	}

	periodStart, periodEnd := metering.PeriodFor(sub.AnchorAt(), sub.BillingInterval(), now)

	return &ResolvedEntitlement{
		Limits:      limits,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		PlanTier:    planTier,
	}, nil
}

// freeTier builds the fallback entitlement on UTC calendar months.
func (s *EntitlementService) freeTier(now time.Time) *ResolvedEntitlement {
	monthStart := biztime.StartOfMonthUTC(now)
	periodStart, periodEnd := metering.PeriodFor(monthStart, metering.IntervalMonthly, now)

	return &ResolvedEntitlement{
		Limits:      entitlement.FreeTierLimits(),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		FreeTier:    true,
	}
}
