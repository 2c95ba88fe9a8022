package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"formlens/internal/domain/metering"
	"formlens/internal/infrastructure/persistence/models"
	"formlens/internal/shared/biztime"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

type UsageCounterRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUsageCounterRepository(db *gorm.DB, logger logger.Interface) metering.UsageStore {
	return &UsageCounterRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Increment applies the limit check and the increment in a single conditional
// UPDATE so concurrent callers can never jointly exceed the limit. The
// condition admits unlimited counters (limit_value < 0) unconditionally.
func (r *UsageCounterRepositoryImpl) Increment(ctx context.Context, teamID uint, metric metering.MetricType, periodStart, periodEnd time.Time, amount, limit int64) (*metering.IncrementResult, error) {
	if amount <= 0 {
		return nil, metering.ErrInvalidIncrement
	}
	if !metric.IsValid() {
		return nil, metering.ErrUnknownMetric
	}

	created, err := r.ensureCounter(ctx, teamID, metric, periodStart, periodEnd, limit)
	if err != nil {
		return nil, err
	}

	result, err := r.conditionalIncrement(ctx, teamID, metric, periodStart, amount)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	// The UPDATE matched no row. Either the counter vanished between the
	// ensure and the update (impossible, counters are never deleted) or the
	// limit condition rejected the increment. Read back for the denial report.
	model, err := r.findCounter(ctx, teamID, metric, periodStart)
	if err != nil {
		return nil, err
	}
	if model == nil {
		if created {
			return nil, fmt.Errorf("usage counter disappeared after creation: team=%d metric=%s", teamID, metric)
		}
		return nil, metering.ErrCounterNotFound
	}

	r.logger.Infow("usage increment denied by limit",
		"team_id", teamID,
		"metric", metric,
		"current_usage", model.CurrentUsage,
		"amount", amount,
		"limit", model.LimitValue,
	)
	return &metering.IncrementResult{
		Allowed:  false,
		NewUsage: model.CurrentUsage,
		Limit:    model.LimitValue,
	}, nil
}

// conditionalIncrement performs the atomic check-then-add. It returns nil
// (no error) when the condition rejected the update.
func (r *UsageCounterRepositoryImpl) conditionalIncrement(ctx context.Context, teamID uint, metric metering.MetricType, periodStart time.Time, amount int64) (*metering.IncrementResult, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UsageCounterModel{}).
		Where("team_id = ? AND metric = ? AND period_start = ?", teamID, metric.String(), periodStart.UTC()).
		Where("limit_value < 0 OR current_usage + ? <= limit_value", amount).
		Updates(map[string]interface{}{
			"current_usage": gorm.Expr("current_usage + ?", amount),
			"updated_at":    biztime.NowUTC(),
		})
	if res.Error != nil {
		r.logger.Errorw("failed to increment usage counter", "error", res.Error, "team_id", teamID, "metric", metric)
		return nil, fmt.Errorf("failed to increment usage counter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	model, err := r.findCounter(ctx, teamID, metric, periodStart)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, metering.ErrCounterNotFound
	}
	return &metering.IncrementResult{
		Allowed:  true,
		NewUsage: model.CurrentUsage,
		Limit:    model.LimitValue,
	}, nil
}

// ensureCounter lazily creates the counter for the period. A uniqueness race
// with a concurrent creator is benign and retried via the caller's UPDATE, so
// the duplicate error is swallowed. Returns whether this call created the row.
func (r *UsageCounterRepositoryImpl) ensureCounter(ctx context.Context, teamID uint, metric metering.MetricType, periodStart, periodEnd time.Time, limit int64) (bool, error) {
	existing, err := r.findCounter(ctx, teamID, metric, periodStart)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	counter, err := metering.NewUsageCounter(teamID, metric, periodStart, periodEnd, limit)
	if err != nil {
		return false, fmt.Errorf("failed to build usage counter: %w", err)
	}

	model := r.toModel(counter)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			// Lost the creation race; the winner's row serves.
			return false, nil
		}
		r.logger.Errorw("failed to create usage counter", "error", err, "team_id", teamID, "metric", metric)
		return false, fmt.Errorf("failed to create usage counter: %w", err)
	}

	r.logger.Infow("usage counter created",
		"counter_sid", model.SID,
		"team_id", teamID,
		"metric", metric,
		"period_start", periodStart,
		"limit", limit,
	)
	return true, nil
}

func (r *UsageCounterRepositoryImpl) Snapshot(ctx context.Context, teamID uint, metric metering.MetricType) (*metering.Snapshot, error) {
	var model models.UsageCounterModel
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND metric = ?", teamID, metric.String()).
		Order("period_start DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get usage snapshot", "error", err, "team_id", teamID, "metric", metric)
		return nil, fmt.Errorf("failed to get usage snapshot: %w", err)
	}

	return &metering.Snapshot{
		CurrentUsage: model.CurrentUsage,
		Limit:        model.LimitValue,
		PeriodStart:  model.PeriodStart,
		PeriodEnd:    model.PeriodEnd,
	}, nil
}

// Rollover creates the next period's counter at zero. The duplicate-key case
// means another worker already rolled this period over, which is a success.
func (r *UsageCounterRepositoryImpl) Rollover(ctx context.Context, teamID uint, metric metering.MetricType, newPeriodStart, newPeriodEnd time.Time, newLimit int64) error {
	counter, err := metering.NewUsageCounter(teamID, metric, newPeriodStart, newPeriodEnd, newLimit)
	if err != nil {
		return fmt.Errorf("failed to build rollover counter: %w", err)
	}

	now := biztime.NowUTC()
	model := r.toModel(counter)
	model.LastResetAt = &now

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return nil
		}
		r.logger.Errorw("failed to roll over usage counter", "error", err, "team_id", teamID, "metric", metric)
		return fmt.Errorf("failed to roll over usage counter: %w", err)
	}

	r.logger.Infow("usage counter rolled over",
		"counter_sid", model.SID,
		"team_id", teamID,
		"metric", metric,
		"period_start", newPeriodStart,
	)
	return nil
}

func (r *UsageCounterRepositoryImpl) History(ctx context.Context, teamID uint, metric metering.MetricType, limit int) ([]*metering.UsageCounter, error) {
	if limit <= 0 {
		limit = 12
	}

	var counterModels []*models.UsageCounterModel
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND metric = ?", teamID, metric.String()).
		Order("period_start DESC").
		Limit(limit).
		Find(&counterModels).Error
	if err != nil {
		r.logger.Errorw("failed to get usage history", "error", err, "team_id", teamID, "metric", metric)
		return nil, fmt.Errorf("failed to get usage history: %w", err)
	}

	counters := make([]*metering.UsageCounter, 0, len(counterModels))
	for _, model := range counterModels {
		counter, err := r.toEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert counter model ID %d: %w", model.ID, err)
		}
		counters = append(counters, counter)
	}
	return counters, nil
}

func (r *UsageCounterRepositoryImpl) findCounter(ctx context.Context, teamID uint, metric metering.MetricType, periodStart time.Time) (*models.UsageCounterModel, error) {
	var model models.UsageCounterModel
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND metric = ? AND period_start = ?", teamID, metric.String(), periodStart.UTC()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query usage counter: %w", err)
	}
	return &model, nil
}

func (r *UsageCounterRepositoryImpl) toEntity(model *models.UsageCounterModel) (*metering.UsageCounter, error) {
	if model == nil {
		return nil, nil
	}
	return metering.ReconstructUsageCounter(
		model.ID,
		model.SID,
		model.TeamID,
		metering.MetricType(model.Metric),
		model.PeriodStart,
		model.PeriodEnd,
		model.CurrentUsage,
		model.LimitValue,
		model.LastResetAt,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (r *UsageCounterRepositoryImpl) toModel(counter *metering.UsageCounter) *models.UsageCounterModel {
	return &models.UsageCounterModel{
		ID:           counter.ID(),
		SID:          counter.SID(),
		TeamID:       counter.TeamID(),
		Metric:       counter.Metric().String(),
		PeriodStart:  counter.PeriodStart(),
		PeriodEnd:    counter.PeriodEnd(),
		CurrentUsage: counter.CurrentUsage(),
		LimitValue:   counter.LimitValue(),
		LastResetAt:  counter.LastResetAt(),
		CreatedAt:    counter.CreatedAt(),
		UpdatedAt:    counter.UpdatedAt(),
	}
}
