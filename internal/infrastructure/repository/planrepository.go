package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"formlens/internal/domain/subscription"
	"formlens/internal/infrastructure/persistence/mappers"
	"formlens/internal/infrastructure/persistence/models"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanMapper
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) subscription.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanMapper(),
		logger: logger,
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *subscription.Plan) error {
	model, err := r.mapper.ToModel(plan)
	if err != nil {
		r.logger.Errorw("failed to map plan entity to model", "error", err)
		return fmt.Errorf("failed to map plan entity: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return subscription.ErrPlanSlugExists
		}
		r.logger.Errorw("failed to create plan in database", "error", err)
		return fmt.Errorf("failed to create plan: %w", err)
	}

	if err := plan.SetID(model.ID); err != nil {
		r.logger.Errorw("failed to set plan ID", "error", err)
		return fmt.Errorf("failed to set plan ID: %w", err)
	}

	r.logger.Infow("plan created successfully", "id", model.ID, "slug", model.Slug, "tier", model.Tier)
	return nil
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	var model models.PlanModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*subscription.Plan, error) {
	var model models.PlanModel

	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by slug", "slug", slug, "error", err)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) GetByTier(ctx context.Context, tier subscription.PlanTier) (*subscription.Plan, error) {
	var model models.PlanModel

	err := r.db.WithContext(ctx).
		Where("tier = ?", string(tier)).
		Order("sort_order ASC, id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by tier", "tier", tier, "error", err)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) GetPublicPlans(ctx context.Context) ([]*subscription.Plan, error) {
	var planModels []*models.PlanModel

	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("sort_order ASC, price ASC").
		Find(&planModels).Error
	if err != nil {
		r.logger.Errorw("failed to get public plans", "error", err)
		return nil, fmt.Errorf("failed to get public plans: %w", err)
	}

	return r.mapper.ToEntities(planModels)
}

func (r *PlanRepositoryImpl) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PlanModel{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to check plan slug existence", "slug", slug, "error", err)
		return false, fmt.Errorf("failed to check plan slug: %w", err)
	}
	return count > 0, nil
}
