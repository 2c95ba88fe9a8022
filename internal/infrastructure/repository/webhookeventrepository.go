package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"formlens/internal/domain/subscription"
	"formlens/internal/infrastructure/persistence/models"
	"formlens/internal/shared/biztime"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

type WebhookEventRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewWebhookEventRepository(db *gorm.DB, logger logger.Interface) subscription.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// MarkProcessed inserts the event ID and lets the unique index arbitrate
// races: the first writer wins and every later insert reports a duplicate.
func (r *WebhookEventRepositoryImpl) MarkProcessed(ctx context.Context, eventID string, eventType string, subscriptionID uint) (bool, error) {
	if eventID == "" {
		return false, fmt.Errorf("event ID is required")
	}

	model := &models.WebhookEventModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: biztime.NowUTC(),
	}
	if subscriptionID != 0 {
		model.SubscriptionID = fmt.Sprintf("%d", subscriptionID)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			r.logger.Infow("duplicate webhook event ignored", "event_id", eventID, "event_type", eventType)
			return false, nil
		}
		r.logger.Errorw("failed to record webhook event", "event_id", eventID, "error", err)
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}

	return true, nil
}

func (r *WebhookEventRepositoryImpl) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var model models.WebhookEventModel
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		r.logger.Errorw("failed to check webhook event", "event_id", eventID, "error", err)
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return true, nil
}

func (r *WebhookEventRepositoryImpl) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("processed_at < ?", cutoff).
		Delete(&models.WebhookEventModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to purge webhook events", "error", result.Error)
		return 0, fmt.Errorf("failed to purge webhook events: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.logger.Infow("purged expired webhook events", "count", result.RowsAffected, "cutoff", cutoff)
	}
	return result.RowsAffected, nil
}
