package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formlens/internal/application/metering/services"
	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	vo "formlens/internal/domain/subscription/valueobjects"
	"formlens/internal/shared/biztime"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

func deferredSubscription(t *testing.T, teamID uint, externalID string, anchor time.Time) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.NewSubscription(teamID, 1, metering.IntervalMonthly, externalID, anchor)
	require.NoError(t, err)
	nextSubID++
	require.NoError(t, sub.SetID(nextSubID))
	require.NoError(t, sub.Apply(subscription.Event{Type: subscription.EventPaymentConfirmed, Marker: 1}))
	require.NoError(t, sub.Apply(subscription.Event{Type: subscription.EventCancellationRequested, Marker: 2, Immediate: false}))
	return sub
}

func newSweep(subRepo *fakeSubscriptionRepo) *SweepCancellationsUseCase {
	log := logger.NewLogger()
	planRepo := &fakePlanRepo{plans: map[uint]*subscription.Plan{}}
	entitlements := services.NewEntitlementService(subRepo, planRepo, nil, log)
	return NewSweepCancellationsUseCase(subRepo, entitlements, log)
}

func TestSweepCancellations_CancelsDueSubscriptions(t *testing.T) {
	pastAnchor := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	due := deferredSubscription(t, 42, "ext_due", pastAnchor)

	subRepo := newFakeSubscriptionRepo(due)
	subRepo.deferred = []*subscription.Subscription{due}

	canceled, err := newSweep(subRepo).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, canceled)
	assert.Equal(t, vo.StatusCanceled, due.Status())
	require.NotNil(t, due.CanceledAt())
	assert.Equal(t, 1, subRepo.updates)
}

func TestSweepCancellations_SkipsSubscriptionsStillInPeriod(t *testing.T) {
	notYet := deferredSubscription(t, 42, "ext_not_yet", biztime.NowUTC())

	subRepo := newFakeSubscriptionRepo(notYet)
	subRepo.deferred = []*subscription.Subscription{notYet}

	canceled, err := newSweep(subRepo).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, canceled)
	assert.Equal(t, vo.StatusActive, notYet.Status())
	assert.True(t, notYet.CancelAtPeriodEnd())
	assert.Zero(t, subRepo.updates)
}

func TestSweepCancellations_NothingDue(t *testing.T) {
	canceled, err := newSweep(newFakeSubscriptionRepo()).Execute(context.Background())

	require.NoError(t, err)
	assert.Zero(t, canceled)
}

func TestSweepCancellations_UpdateConflictSkipped(t *testing.T) {
	pastAnchor := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	due := deferredSubscription(t, 42, "ext_due", pastAnchor)

	subRepo := newFakeSubscriptionRepo(due)
	subRepo.deferred = []*subscription.Subscription{due}
	subRepo.updateErr = apperrors.NewConflictError("version conflict")

	canceled, err := newSweep(subRepo).Execute(context.Background())

	require.NoError(t, err, "a lost race is not a sweep failure")
	assert.Zero(t, canceled)
}
