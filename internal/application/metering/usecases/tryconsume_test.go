package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formlens/internal/application/metering/services"
	"formlens/internal/domain/entitlement"
	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	"formlens/internal/domain/team"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

type fakeTeamRepo struct {
	teams map[string]*team.Team
}

func (r *fakeTeamRepo) Create(ctx context.Context, t *team.Team) error { return nil }
func (r *fakeTeamRepo) GetByID(ctx context.Context, id uint) (*team.Team, error) {
	for _, t := range r.teams {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, team.ErrTeamNotFound
}
func (r *fakeTeamRepo) GetBySID(ctx context.Context, sid string) (*team.Team, error) {
	if t, ok := r.teams[sid]; ok {
		return t, nil
	}
	return nil, team.ErrTeamNotFound
}
func (r *fakeTeamRepo) Update(ctx context.Context, t *team.Team) error { return nil }

type fakeSubRepo struct {
	effective *subscription.Subscription
	err       error
}

func (r *fakeSubRepo) Create(ctx context.Context, s *subscription.Subscription) error { return nil }
func (r *fakeSubRepo) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *fakeSubRepo) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *fakeSubRepo) GetByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *fakeSubRepo) GetEffectiveByTeamID(ctx context.Context, teamID uint) (*subscription.Subscription, error) {
	return r.effective, r.err
}
func (r *fakeSubRepo) GetByTeamID(ctx context.Context, teamID uint) ([]*subscription.Subscription, error) {
	return nil, nil
}
func (r *fakeSubRepo) Update(ctx context.Context, s *subscription.Subscription) error { return nil }
func (r *fakeSubRepo) FindDeferredCancellations(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	return nil, nil
}
func (r *fakeSubRepo) CountByPlanID(ctx context.Context, planID uint) (int64, error) {
	return 0, nil
}

type fakePlans struct {
	plan *subscription.Plan
}

func (r *fakePlans) Create(ctx context.Context, p *subscription.Plan) error { return nil }
func (r *fakePlans) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	return r.plan, nil
}
func (r *fakePlans) GetBySlug(ctx context.Context, slug string) (*subscription.Plan, error) {
	return r.plan, nil
}
func (r *fakePlans) GetByTier(ctx context.Context, tier subscription.PlanTier) (*subscription.Plan, error) {
	return r.plan, nil
}
func (r *fakePlans) GetPublicPlans(ctx context.Context) ([]*subscription.Plan, error) {
	return nil, nil
}
func (r *fakePlans) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return false, nil
}

type incrementCall struct {
	teamID uint
	metric metering.MetricType
	amount int64
	limit  int64
}

type recordingStore struct {
	calls  []incrementCall
	result *metering.IncrementResult
	err    error
}

func (s *recordingStore) Increment(ctx context.Context, teamID uint, metric metering.MetricType, periodStart, periodEnd time.Time, amount, limit int64) (*metering.IncrementResult, error) {
	s.calls = append(s.calls, incrementCall{teamID: teamID, metric: metric, amount: amount, limit: limit})
	return s.result, s.err
}

func (s *recordingStore) Snapshot(ctx context.Context, teamID uint, metric metering.MetricType) (*metering.Snapshot, error) {
	return nil, nil
}

func (s *recordingStore) Rollover(ctx context.Context, teamID uint, metric metering.MetricType, newPeriodStart, newPeriodEnd time.Time, newLimit int64) error {
	return nil
}

func (s *recordingStore) History(ctx context.Context, teamID uint, metric metering.MetricType, limit int) ([]*metering.UsageCounter, error) {
	return nil, nil
}

func testTeam(t *testing.T, id uint) *team.Team {
	t.Helper()
	entity, err := team.NewTeam("acme research")
	require.NoError(t, err)
	require.NoError(t, entity.SetID(id))
	return entity
}

func proPlan(t *testing.T) *subscription.Plan {
	t.Helper()
	plan, err := subscription.NewPlan("Pro", "pro", subscription.TierPro, 4900, "USD",
		metering.LimitSet{
			metering.MetricActiveSurveys:   100,
			metering.MetricSurveyResponses: 50000,
			metering.MetricTeamMembers:     metering.Unlimited,
		}, 0)
	require.NoError(t, err)
	require.NoError(t, plan.SetID(1))
	return plan
}

func activeSubscription(t *testing.T, teamID uint) *subscription.Subscription {
	t.Helper()
	anchor := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sub, err := subscription.NewSubscription(teamID, 1, metering.IntervalMonthly, "ext_sub", anchor)
	require.NoError(t, err)
	require.NoError(t, sub.SetID(1))
	require.NoError(t, sub.Apply(subscription.Event{Type: subscription.EventPaymentConfirmed, Marker: 1}))
	return sub
}

func newGate(t *testing.T, subRepo *fakeSubRepo, store *recordingStore) (*TryConsumeUseCase, *fakeTeamRepo) {
	t.Helper()
	teamEntity := testTeam(t, 42)
	teamRepo := &fakeTeamRepo{teams: map[string]*team.Team{teamEntity.SID(): teamEntity}}
	log := logger.NewLogger()
	entitlements := services.NewEntitlementService(subRepo, &fakePlans{plan: proPlan(t)}, nil, log)
	return NewTryConsumeUseCase(teamRepo, entitlements, store, log), teamRepo
}

func teamSID(repo *fakeTeamRepo) string {
	for sid := range repo.teams {
		return sid
	}
	return ""
}

func TestTryConsume_AllowedWithinPlanLimit(t *testing.T) {
	store := &recordingStore{result: &metering.IncrementResult{Allowed: true, NewUsage: 5, Limit: 100}}
	uc, teamRepo := newGate(t, &fakeSubRepo{effective: activeSubscription(t, 42)}, store)

	result, err := uc.Execute(context.Background(), TryConsumeCommand{
		TeamSID: teamSID(teamRepo),
		Metric:  "active_surveys",
		Amount:  1,
	})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, int64(5), result.CurrentUsage)
	assert.Equal(t, int64(100), result.Limit)
	assert.Equal(t, int64(95), result.Remaining)

	require.Len(t, store.calls, 1)
	assert.Equal(t, uint(42), store.calls[0].teamID)
	assert.Equal(t, int64(100), store.calls[0].limit, "plan limit must reach the store")
}

func TestTryConsume_DeniedReportsUsageAndLimit(t *testing.T) {
	store := &recordingStore{result: &metering.IncrementResult{Allowed: false, NewUsage: 100, Limit: 100}}
	uc, teamRepo := newGate(t, &fakeSubRepo{effective: activeSubscription(t, 42)}, store)

	result, err := uc.Execute(context.Background(), TryConsumeCommand{
		TeamSID: teamSID(teamRepo),
		Metric:  "active_surveys",
		Amount:  1,
	})

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(100), result.CurrentUsage)
	assert.Equal(t, int64(0), result.Remaining)
}

func TestTryConsume_UnlimitedMetricPassesThrough(t *testing.T) {
	store := &recordingStore{result: &metering.IncrementResult{Allowed: true, NewUsage: 7, Limit: metering.Unlimited}}
	uc, teamRepo := newGate(t, &fakeSubRepo{effective: activeSubscription(t, 42)}, store)

	result, err := uc.Execute(context.Background(), TryConsumeCommand{
		TeamSID: teamSID(teamRepo),
		Metric:  "team_members",
		Amount:  1,
	})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, metering.Unlimited, result.Remaining)
	assert.Equal(t, metering.Unlimited, store.calls[0].limit)
}

func TestTryConsume_NoSubscriptionUsesFreeTierLimits(t *testing.T) {
	store := &recordingStore{result: &metering.IncrementResult{Allowed: true, NewUsage: 1, Limit: 3}}
	uc, teamRepo := newGate(t, &fakeSubRepo{}, store)

	_, err := uc.Execute(context.Background(), TryConsumeCommand{
		TeamSID: teamSID(teamRepo),
		Metric:  "active_surveys",
		Amount:  1,
	})

	require.NoError(t, err)
	require.Len(t, store.calls, 1)
	free := entitlement.FreeTierLimits()
	assert.Equal(t, free.LimitFor(metering.MetricActiveSurveys), store.calls[0].limit)
}

func TestTryConsume_ValidationErrors(t *testing.T) {
	store := &recordingStore{result: &metering.IncrementResult{Allowed: true}}
	uc, teamRepo := newGate(t, &fakeSubRepo{effective: activeSubscription(t, 42)}, store)

	tests := []struct {
		name string
		cmd  TryConsumeCommand
	}{
		{name: "unknown metric", cmd: TryConsumeCommand{TeamSID: teamSID(teamRepo), Metric: "widgets", Amount: 1}},
		{name: "zero amount", cmd: TryConsumeCommand{TeamSID: teamSID(teamRepo), Metric: "active_surveys", Amount: 0}},
		{name: "negative amount", cmd: TryConsumeCommand{TeamSID: teamSID(teamRepo), Metric: "active_surveys", Amount: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.cmd)
			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			assert.Empty(t, store.calls, "invalid requests must never reach the store")
		})
	}
}

func TestTryConsume_UnknownTeam(t *testing.T) {
	store := &recordingStore{}
	uc, _ := newGate(t, &fakeSubRepo{}, store)

	_, err := uc.Execute(context.Background(), TryConsumeCommand{
		TeamSID: "team_missing",
		Metric:  "active_surveys",
		Amount:  1,
	})

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
}

func TestTryConsume_StoreFailureDeniesAdmission(t *testing.T) {
	store := &recordingStore{err: errors.New("connection refused")}
	uc, teamRepo := newGate(t, &fakeSubRepo{effective: activeSubscription(t, 42)}, store)

	result, err := uc.Execute(context.Background(), TryConsumeCommand{
		TeamSID: teamSID(teamRepo),
		Metric:  "active_surveys",
		Amount:  1,
	})

	require.Error(t, err)
	assert.Nil(t, result, "infrastructure failures must not admit usage")
}

func TestTryConsume_EntitlementFailureDeniesAdmission(t *testing.T) {
	store := &recordingStore{result: &metering.IncrementResult{Allowed: true}}
	uc, teamRepo := newGate(t, &fakeSubRepo{err: errors.New("db down")}, store)

	result, err := uc.Execute(context.Background(), TryConsumeCommand{
		TeamSID: teamSID(teamRepo),
		Metric:  "active_surveys",
		Amount:  1,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, store.calls)
}
