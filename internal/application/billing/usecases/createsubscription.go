package usecases

import (
	"context"
	"fmt"

	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	"formlens/internal/domain/team"
	"formlens/internal/shared/biztime"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

// CreateSubscriptionCommand starts a subscription for a team. ExternalID is
// the billing provider's subscription identifier created during checkout.
type CreateSubscriptionCommand struct {
	TeamSID         string
	PlanSlug        string
	BillingInterval string
	ExternalID      string
}

// SubscriptionDTO is the API representation of a subscription.
type SubscriptionDTO struct {
	SID                string `json:"sid"`
	TeamSID            string `json:"team_sid"`
	PlanSlug           string `json:"plan_slug"`
	Status             string `json:"status"`
	BillingInterval    string `json:"billing_interval"`
	CurrentPeriodStart string `json:"current_period_start"`
	CurrentPeriodEnd   string `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	TrialEnd           string `json:"trial_end,omitempty"`
}

// CreateSubscriptionUseCase creates the local subscription record when a
// checkout starts. Plans with trial days grant an immediately effective trial
// subscription; paid plans start pending until the provider confirms payment.
type CreateSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	planRepo         subscription.PlanRepository
	teamRepo         team.TeamRepository
	logger           logger.Interface
}

// NewCreateSubscriptionUseCase creates a new CreateSubscriptionUseCase
func NewCreateSubscriptionUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	planRepo subscription.PlanRepository,
	teamRepo team.TeamRepository,
	logger logger.Interface,
) *CreateSubscriptionUseCase {
	return &CreateSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		teamRepo:         teamRepo,
		logger:           logger,
	}
}

// Execute creates the subscription.
func (uc *CreateSubscriptionUseCase) Execute(ctx context.Context, cmd CreateSubscriptionCommand) (*SubscriptionDTO, error) {
	teamEntity, err := uc.teamRepo.GetBySID(ctx, cmd.TeamSID)
	if err != nil {
		if err == team.ErrTeamNotFound {
			return nil, apperrors.NewNotFoundError("team not found")
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	plan, err := uc.planRepo.GetBySlug(ctx, cmd.PlanSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("unknown plan: %s", cmd.PlanSlug))
	}

	interval := metering.BillingInterval(cmd.BillingInterval)
	if !interval.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid billing interval: %s", cmd.BillingInterval))
	}

	existing, err := uc.subscriptionRepo.GetByExternalID(ctx, cmd.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError(fmt.Sprintf("subscription already exists for external ID %s", cmd.ExternalID))
	}

	now := biztime.NowUTC()
	var sub *subscription.Subscription
	if plan.TrialDays() > 0 {
		trialEnd := now.AddDate(0, 0, plan.TrialDays())
		sub, err = subscription.NewTrialSubscription(teamEntity.ID(), plan.ID(), interval, cmd.ExternalID, now, trialEnd)
	} else {
		sub, err = subscription.NewSubscription(teamEntity.ID(), plan.ID(), interval, cmd.ExternalID, now)
	}
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	uc.logger.Infow("subscription created",
		"subscription_sid", sub.SID(),
		"team_sid", cmd.TeamSID,
		"plan_slug", cmd.PlanSlug,
		"status", sub.Status(),
	)

	return toSubscriptionDTO(sub, cmd.TeamSID, plan.Slug()), nil
}

func toSubscriptionDTO(sub *subscription.Subscription, teamSID, planSlug string) *SubscriptionDTO {
	dto := &SubscriptionDTO{
		SID:                sub.SID(),
		TeamSID:            teamSID,
		PlanSlug:           planSlug,
		Status:             sub.Status().String(),
		BillingInterval:    sub.BillingInterval().String(),
		CurrentPeriodStart: biztime.FormatMetadataTime(sub.CurrentPeriodStart()),
		CurrentPeriodEnd:   biztime.FormatMetadataTime(sub.CurrentPeriodEnd()),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd(),
	}
	if sub.TrialEnd() != nil {
		dto.TrialEnd = biztime.FormatMetadataTime(*sub.TrialEnd())
	}
	return dto
}
