package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"formlens/internal/domain/metering"
	"formlens/internal/infrastructure/persistence/models"
	"formlens/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.TeamModel{},
		&models.PlanModel{},
		&models.SubscriptionModel{},
		&models.UsageCounterModel{},
		&models.WebhookEventModel{},
	)
	require.NoError(t, err)

	return db
}

func testPeriod() (time.Time, time.Time) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func TestUsageCounterRepository_Increment(t *testing.T) {
	db := setupTestDB(t)
	store := NewUsageCounterRepository(db, logger.NewLogger())
	ctx := context.Background()
	start, end := testPeriod()

	t.Run("first increment creates counter lazily", func(t *testing.T) {
		result, err := store.Increment(ctx, 1, metering.MetricSurveyResponses, start, end, 1, 100)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(1), result.NewUsage)
		assert.Equal(t, int64(100), result.Limit)
	})

	t.Run("increments accumulate on the same counter", func(t *testing.T) {
		result, err := store.Increment(ctx, 1, metering.MetricSurveyResponses, start, end, 4, 100)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(5), result.NewUsage)
	})

	t.Run("increment exactly reaching the limit is allowed", func(t *testing.T) {
		result, err := store.Increment(ctx, 2, metering.MetricActiveSurveys, start, end, 3, 3)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(3), result.NewUsage)
	})

	t.Run("increment past the limit is denied and leaves usage untouched", func(t *testing.T) {
		result, err := store.Increment(ctx, 2, metering.MetricActiveSurveys, start, end, 1, 3)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(3), result.NewUsage)
		assert.Equal(t, int64(3), result.Limit)

		snap, err := store.Snapshot(ctx, 2, metering.MetricActiveSurveys)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, int64(3), snap.CurrentUsage)
	})

	t.Run("unlimited counter accepts any amount", func(t *testing.T) {
		result, err := store.Increment(ctx, 3, metering.MetricSurveyResponses, start, end, 1_000_000, metering.Unlimited)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(1_000_000), result.NewUsage)
	})

	t.Run("zero limit denies the first increment", func(t *testing.T) {
		result, err := store.Increment(ctx, 4, metering.MetricTeamMembers, start, end, 1, 0)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.NewUsage)
	})

	t.Run("non-positive amount is rejected", func(t *testing.T) {
		_, err := store.Increment(ctx, 1, metering.MetricSurveyResponses, start, end, 0, 100)
		assert.ErrorIs(t, err, metering.ErrInvalidIncrement)

		_, err = store.Increment(ctx, 1, metering.MetricSurveyResponses, start, end, -5, 100)
		assert.ErrorIs(t, err, metering.ErrInvalidIncrement)
	})

	t.Run("unknown metric is rejected", func(t *testing.T) {
		_, err := store.Increment(ctx, 1, metering.MetricType("api_calls"), start, end, 1, 100)
		assert.ErrorIs(t, err, metering.ErrUnknownMetric)
	})
}

func TestUsageCounterRepository_LimitExhaustion(t *testing.T) {
	db := setupTestDB(t)
	store := NewUsageCounterRepository(db, logger.NewLogger())
	ctx := context.Background()
	start, end := testPeriod()

	// Drive the counter to the limit one unit at a time and verify exactly
	// limit increments succeed, no matter how many are attempted.
	const limit = int64(10)
	allowed := 0
	for i := 0; i < 25; i++ {
		result, err := store.Increment(ctx, 7, metering.MetricSurveyResponses, start, end, 1, limit)
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
	}
	assert.Equal(t, int(limit), allowed)

	snap, err := store.Snapshot(ctx, 7, metering.MetricSurveyResponses)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, limit, snap.CurrentUsage)
}

func TestUsageCounterRepository_ConcurrentIncrements(t *testing.T) {
	db := setupTestDB(t)
	// A single connection serializes sqlite writes; admission is still
	// decided by the conditional UPDATE, whatever the interleaving.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := NewUsageCounterRepository(db, logger.NewLogger())
	ctx := context.Background()
	start, end := testPeriod()

	const limit = int64(5)
	const attempts = 20

	var wg sync.WaitGroup
	var allowed atomic.Int64
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.Increment(ctx, 7, metering.MetricActiveSurveys, start, end, 1, limit)
			if err != nil {
				errs <- err
				return
			}
			if result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, limit, allowed.Load(), "exactly limit increments may win")

	snap, err := store.Snapshot(ctx, 7, metering.MetricActiveSurveys)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, limit, snap.CurrentUsage)
}

func TestUsageCounterRepository_PeriodBoundaryStartsFresh(t *testing.T) {
	db := setupTestDB(t)
	store := NewUsageCounterRepository(db, logger.NewLogger())
	ctx := context.Background()
	start, end := testPeriod()
	nextStart, nextEnd := end, end.AddDate(0, 1, 0)

	// Exhaust the first period.
	result, err := store.Increment(ctx, 8, metering.MetricActiveSurveys, start, end, 3, 3)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	result, err = store.Increment(ctx, 8, metering.MetricActiveSurveys, start, end, 1, 3)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	// The next consume lands after the boundary: the new period's counter is
	// created lazily at zero and admission opens up again.
	result, err = store.Increment(ctx, 8, metering.MetricActiveSurveys, nextStart, nextEnd, 1, 3)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, int64(1), result.NewUsage)

	// The exhausted counter stays behind as history.
	history, err := store.History(ctx, 8, metering.MetricActiveSurveys, 12)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].CurrentUsage())
	assert.Equal(t, int64(3), history[1].CurrentUsage())
}

func TestUsageCounterRepository_Rollover(t *testing.T) {
	db := setupTestDB(t)
	store := NewUsageCounterRepository(db, logger.NewLogger())
	ctx := context.Background()
	start, end := testPeriod()
	nextStart, nextEnd := end, end.AddDate(0, 1, 0)

	t.Run("rollover opens a fresh counter and keeps history", func(t *testing.T) {
		result, err := store.Increment(ctx, 10, metering.MetricSurveyResponses, start, end, 50, 100)
		require.NoError(t, err)
		require.True(t, result.Allowed)

		err = store.Rollover(ctx, 10, metering.MetricSurveyResponses, nextStart, nextEnd, 200)
		require.NoError(t, err)

		snap, err := store.Snapshot(ctx, 10, metering.MetricSurveyResponses)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, int64(0), snap.CurrentUsage)
		assert.Equal(t, int64(200), snap.Limit)
		assert.Equal(t, nextStart, snap.PeriodStart.UTC())

		history, err := store.History(ctx, 10, metering.MetricSurveyResponses, 12)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, int64(0), history[0].CurrentUsage())
		assert.Equal(t, int64(50), history[1].CurrentUsage())
	})

	t.Run("repeated rollover for the same period is a no-op", func(t *testing.T) {
		result, err := store.Increment(ctx, 10, metering.MetricSurveyResponses, nextStart, nextEnd, 7, 200)
		require.NoError(t, err)
		require.True(t, result.Allowed)

		err = store.Rollover(ctx, 10, metering.MetricSurveyResponses, nextStart, nextEnd, 200)
		require.NoError(t, err)

		snap, err := store.Snapshot(ctx, 10, metering.MetricSurveyResponses)
		require.NoError(t, err)
		assert.Equal(t, int64(7), snap.CurrentUsage, "rollover must never clobber a live counter")
	})
}

func TestUsageCounterRepository_Snapshot(t *testing.T) {
	db := setupTestDB(t)
	store := NewUsageCounterRepository(db, logger.NewLogger())
	ctx := context.Background()

	t.Run("missing counter returns nil", func(t *testing.T) {
		snap, err := store.Snapshot(ctx, 99, metering.MetricActiveSurveys)
		require.NoError(t, err)
		assert.Nil(t, snap)
	})
}
