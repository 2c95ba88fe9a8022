package usecases

import (
	"context"
	"fmt"

	"formlens/internal/domain/subscription"
	"formlens/internal/shared/biztime"
	"formlens/internal/shared/logger"
)

// PurgeWebhookEventsUseCase removes processed webhook event records older
// than the retention window. Dedup only needs to cover the provider's
// redelivery horizon, so old rows are dead weight.
type PurgeWebhookEventsUseCase struct {
	webhookRepo   subscription.WebhookEventRepository
	retentionDays int
	logger        logger.Interface
}

// NewPurgeWebhookEventsUseCase creates a new PurgeWebhookEventsUseCase
func NewPurgeWebhookEventsUseCase(
	webhookRepo subscription.WebhookEventRepository,
	retentionDays int,
	logger logger.Interface,
) *PurgeWebhookEventsUseCase {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &PurgeWebhookEventsUseCase{
		webhookRepo:   webhookRepo,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Execute purges expired webhook event records. Returns the number removed.
func (uc *PurgeWebhookEventsUseCase) Execute(ctx context.Context) (int, error) {
	cutoff := biztime.NowUTC().AddDate(0, 0, -uc.retentionDays)

	removed, err := uc.webhookRepo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge webhook events: %w", err)
	}

	if removed > 0 {
		uc.logger.Infow("purged webhook events",
			"removed", removed,
			"cutoff", cutoff,
		)
	}

	return int(removed), nil
}
