package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formlens/internal/domain/entitlement"
	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	vo "formlens/internal/domain/subscription/valueobjects"
	"formlens/internal/shared/logger"
)

type stubSubRepo struct {
	effective *subscription.Subscription
}

func (r *stubSubRepo) Create(ctx context.Context, s *subscription.Subscription) error { return nil }
func (r *stubSubRepo) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *stubSubRepo) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *stubSubRepo) GetByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *stubSubRepo) GetEffectiveByTeamID(ctx context.Context, teamID uint) (*subscription.Subscription, error) {
	return r.effective, nil
}
func (r *stubSubRepo) GetByTeamID(ctx context.Context, teamID uint) ([]*subscription.Subscription, error) {
	return nil, nil
}
func (r *stubSubRepo) Update(ctx context.Context, s *subscription.Subscription) error { return nil }
func (r *stubSubRepo) FindDeferredCancellations(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	return nil, nil
}
func (r *stubSubRepo) CountByPlanID(ctx context.Context, planID uint) (int64, error) { return 0, nil }

type stubPlanRepo struct {
	plan *subscription.Plan
}

func (r *stubPlanRepo) Create(ctx context.Context, p *subscription.Plan) error { return nil }
func (r *stubPlanRepo) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	return r.plan, nil
}
func (r *stubPlanRepo) GetBySlug(ctx context.Context, slug string) (*subscription.Plan, error) {
	return r.plan, nil
}
func (r *stubPlanRepo) GetByTier(ctx context.Context, tier subscription.PlanTier) (*subscription.Plan, error) {
	return r.plan, nil
}
func (r *stubPlanRepo) GetPublicPlans(ctx context.Context) ([]*subscription.Plan, error) {
	return nil, nil
}
func (r *stubPlanRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return false, nil
}

func starterPlan(t *testing.T) *subscription.Plan {
	t.Helper()
	plan, err := subscription.NewPlan("Starter", "starter", subscription.TierStarter, 1900, "USD",
		metering.LimitSet{
			metering.MetricActiveSurveys:   20,
			metering.MetricSurveyResponses: 5000,
			metering.MetricTeamMembers:     5,
		}, 14)
	require.NoError(t, err)
	require.NoError(t, plan.SetID(1))
	return plan
}

func newService(t *testing.T, sub *subscription.Subscription) *EntitlementService {
	t.Helper()
	return NewEntitlementService(&stubSubRepo{effective: sub}, &stubPlanRepo{plan: starterPlan(t)}, nil, logger.NewLogger())
}

func TestResolveForTeam_NoSubscriptionFallsBackToFreeTier(t *testing.T) {
	svc := newService(t, nil)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	resolved, err := svc.ResolveForTeam(context.Background(), 42, now)

	require.NoError(t, err)
	assert.True(t, resolved.FreeTier)
	assert.Equal(t, entitlement.FreeTierLimits(), resolved.Limits)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), resolved.PeriodStart)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), resolved.PeriodEnd)
}

func TestResolveForTeam_TrialWindowUsedVerbatim(t *testing.T) {
	trialStart := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	trialEnd := trialStart.AddDate(0, 0, 14)
	sub, err := subscription.NewTrialSubscription(42, 1, metering.IntervalMonthly, "ext_trial", trialStart, trialEnd)
	require.NoError(t, err)
	require.NoError(t, sub.SetID(1))

	svc := newService(t, sub)
	now := trialStart.AddDate(0, 0, 3)

	resolved, err := svc.ResolveForTeam(context.Background(), 42, now)

	require.NoError(t, err)
	assert.False(t, resolved.FreeTier)
	assert.Equal(t, string(subscription.TierStarter), resolved.PlanTier)
	assert.True(t, resolved.PeriodStart.Equal(trialStart), "trial start is the period start, not an anchored boundary")
	assert.True(t, resolved.PeriodEnd.Equal(trialEnd))
	assert.Equal(t, int64(20), resolved.Limits.LimitFor(metering.MetricActiveSurveys))
}

func TestResolveForTeam_ActiveSubscriptionUsesAnchoredPeriod(t *testing.T) {
	anchor := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	sub, err := subscription.NewSubscription(42, 1, metering.IntervalMonthly, "ext_active", anchor)
	require.NoError(t, err)
	require.NoError(t, sub.SetID(1))
	require.NoError(t, sub.Apply(subscription.Event{Type: subscription.EventPaymentConfirmed, Marker: 1}))

	svc := newService(t, sub)
	// February: the 31st clamps to the 28th.
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	resolved, err := svc.ResolveForTeam(context.Background(), 42, now)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), resolved.PeriodStart)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), resolved.PeriodEnd)
}

func deferredCancelSubscription(t *testing.T, periodEnd time.Time) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.ReconstructSubscription(
		1, "sub_deferred", 42, 1,
		vo.StatusActive, metering.IntervalMonthly, "ext_deferred",
		periodEnd.AddDate(0, -1, 0),
		periodEnd.AddDate(0, -1, 0), periodEnd,
		true, nil, nil, nil, nil,
		2, nil, 1,
		periodEnd.AddDate(0, -1, 0), periodEnd.AddDate(0, -1, 0),
	)
	require.NoError(t, err)
	return sub
}

func TestResolveForTeam_ElapsedDeferredCancellationFallsBackToFreeTier(t *testing.T) {
	periodEnd := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	sub := deferredCancelSubscription(t, periodEnd)
	svc := newService(t, sub)

	// Ten days past the final period, before any sweep has run.
	resolved, err := svc.ResolveForTeam(context.Background(), 42, periodEnd.AddDate(0, 0, 10))

	require.NoError(t, err)
	assert.True(t, resolved.FreeTier)
	assert.Equal(t, entitlement.FreeTierLimits(), resolved.Limits)
}

func TestResolveForTeam_DeferredCancellationStillInPeriodKeepsLimits(t *testing.T) {
	periodEnd := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	sub := deferredCancelSubscription(t, periodEnd)
	svc := newService(t, sub)

	resolved, err := svc.ResolveForTeam(context.Background(), 42, periodEnd.AddDate(0, 0, -3))

	require.NoError(t, err)
	assert.False(t, resolved.FreeTier)
	assert.Equal(t, int64(20), resolved.Limits.LimitFor(metering.MetricActiveSurveys))
}

func TestResolveForTeam_UnpaidSubscriptionNotEffective(t *testing.T) {
	// The repository only returns effective subscriptions, so a lapsed payer
	// resolves exactly like a team that never subscribed.
	svc := newService(t, nil)
	now := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	resolved, err := svc.ResolveForTeam(context.Background(), 42, now)

	require.NoError(t, err)
	assert.True(t, resolved.FreeTier)
	assert.Equal(t, entitlement.FreeTierLimits(), resolved.Limits)
}
