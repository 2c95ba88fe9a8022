package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"formlens/internal/domain/subscription"
	vo "formlens/internal/domain/subscription/valueobjects"
	"formlens/internal/infrastructure/persistence/mappers"
	"formlens/internal/infrastructure/persistence/models"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(subscriptionEntity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription in database", "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := subscriptionEntity.SetID(model.ID); err != nil {
		r.logger.Errorw("failed to set subscription ID", "error", err)
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created successfully", "id", model.ID, "team_id", model.TeamID, "plan_id", model.PlanID)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) GetByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by external ID", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetEffectiveByTeamID relies on the invariant that at most one effective
// subscription exists per team; the newest one wins if data ever violates it.
func (r *SubscriptionRepositoryImpl) GetEffectiveByTeamID(ctx context.Context, teamID uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	err := r.db.WithContext(ctx).
		Where("team_id = ? AND status IN ?", teamID, effectiveStatuses()).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get effective subscription", "team_id", teamID, "error", err)
		return nil, fmt.Errorf("failed to get effective subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) GetByTeamID(ctx context.Context, teamID uint) ([]*subscription.Subscription, error) {
	var subscriptionModels []*models.SubscriptionModel

	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&subscriptionModels).Error
	if err != nil {
		r.logger.Errorw("failed to get subscriptions by team ID", "team_id", teamID, "error", err)
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	return r.mapper.ToEntities(subscriptionModels)
}

// Update persists the aggregate with an optimistic version guard. A zero
// RowsAffected means another writer already advanced the row past this
// aggregate's state, which webhook processing treats as a benign conflict.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(subscriptionEntity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "id", subscriptionEntity.ID(), "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	result := r.db.WithContext(ctx).Model(&models.SubscriptionModel{}).
		Where("id = ? AND version < ?", model.ID, model.Version).
		Updates(map[string]interface{}{
			"status":               model.Status,
			"current_period_start": model.CurrentPeriodStart,
			"current_period_end":   model.CurrentPeriodEnd,
			"cancel_at_period_end": model.CancelAtPeriodEnd,
			"canceled_at":          model.CanceledAt,
			"cancel_reason":        model.CancelReason,
			"last_event_marker":    model.LastEventMarker,
			"metadata":             model.Metadata,
			"version":              model.Version,
			"updated_at":           model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("subscription %d was updated concurrently", model.ID))
	}

	r.logger.Infow("subscription updated successfully", "id", model.ID, "status", model.Status)
	return nil
}

func (r *SubscriptionRepositoryImpl) FindDeferredCancellations(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	var subscriptionModels []*models.SubscriptionModel

	err := r.db.WithContext(ctx).
		Where("cancel_at_period_end = ? AND status IN ? AND current_period_end <= ?", true, effectiveStatuses(), now).
		Find(&subscriptionModels).Error
	if err != nil {
		r.logger.Errorw("failed to find deferred cancellations", "error", err)
		return nil, fmt.Errorf("failed to find deferred cancellations: %w", err)
	}

	return r.mapper.ToEntities(subscriptionModels)
}

func (r *SubscriptionRepositoryImpl) CountByPlanID(ctx context.Context, planID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("plan_id = ?", planID).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count subscriptions by plan ID", "plan_id", planID, "error", err)
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

func effectiveStatuses() []string {
	return []string{
		vo.StatusActive.String(),
		vo.StatusTrialing.String(),
		vo.StatusPastDue.String(),
	}
}
