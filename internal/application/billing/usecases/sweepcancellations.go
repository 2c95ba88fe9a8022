package usecases

import (
	"context"
	"fmt"

	"formlens/internal/application/metering/services"
	"formlens/internal/domain/subscription"
	"formlens/internal/shared/biztime"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

// SweepCancellationsUseCase finalizes deferred cancellations. Subscriptions
// flagged cancel-at-period-end stay effective until the period actually ends;
// this sweep moves the ones past their period boundary to canceled.
type SweepCancellationsUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	entitlements     *services.EntitlementService
	logger           logger.Interface
}

// NewSweepCancellationsUseCase creates a new SweepCancellationsUseCase
func NewSweepCancellationsUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	entitlements *services.EntitlementService,
	logger logger.Interface,
) *SweepCancellationsUseCase {
	return &SweepCancellationsUseCase{
		subscriptionRepo: subscriptionRepo,
		entitlements:     entitlements,
		logger:           logger,
	}
}

// Execute finds and cancels all subscriptions whose deferred cancellation is
// due. Returns the number of subscriptions canceled.
func (uc *SweepCancellationsUseCase) Execute(ctx context.Context) (int, error) {
	now := biztime.NowUTC()

	due, err := uc.subscriptionRepo.FindDeferredCancellations(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find deferred cancellations: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	canceled := 0
	for _, sub := range due {
		enacted, err := sub.EnactDeferredCancellation(now)
		if err != nil {
			uc.logger.Errorw("failed to enact deferred cancellation",
				"subscription_sid", sub.SID(),
				"error", err,
			)
			continue
		}
		if !enacted {
			continue
		}

		if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
			// Conflict means a concurrent webhook already moved the
			// subscription on; the next sweep re-evaluates it.
			if apperrors.IsConflictError(err) {
				uc.logger.Debugw("cancellation sweep lost update race",
					"subscription_sid", sub.SID(),
				)
				continue
			}
			uc.logger.Errorw("failed to persist deferred cancellation",
				"subscription_sid", sub.SID(),
				"error", err,
			)
			continue
		}

		uc.entitlements.Invalidate(ctx, sub.TeamID())
		canceled++

		uc.logger.Infow("deferred cancellation enacted",
			"subscription_sid", sub.SID(),
			"team_id", sub.TeamID(),
			"period_end", sub.CurrentPeriodEnd(),
		)
	}

	return canceled, nil
}
