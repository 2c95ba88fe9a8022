package usecases

import (
	"context"
	"errors"
	"fmt"

	"formlens/internal/application/billing/dto"
	"formlens/internal/application/metering/services"
	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	vo "formlens/internal/domain/subscription/valueobjects"
	"formlens/internal/infrastructure/billingprovider"
	"formlens/internal/infrastructure/email"
	"formlens/internal/shared/biztime"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/goroutine"
	"formlens/internal/shared/logger"
)

// IngestOutcome classifies what happened to a delivered event.
type IngestOutcome string

const (
	// OutcomeApplied means the event advanced the subscription state.
	OutcomeApplied IngestOutcome = "applied"
	// OutcomeDuplicate means the event ID was already processed.
	OutcomeDuplicate IngestOutcome = "duplicate_ignored"
	// OutcomeStale means the event's marker was not newer than the last
	// applied one; the delivery is acknowledged without effect.
	OutcomeStale IngestOutcome = "stale_ignored"
)

// IngestWebhookCommand carries the raw delivery as received.
type IngestWebhookCommand struct {
	Body            []byte
	SignatureHeader string
}

// IngestResult is the acknowledged outcome returned to the provider.
type IngestResult struct {
	Outcome IngestOutcome `json:"outcome"`
	EventID string        `json:"event_id"`
}

// IngestWebhookUseCase processes billing provider webhook deliveries: verify
// the signature, drop duplicates, replay the event onto the subscription
// aggregate, and fan out the side effects (cache invalidation, counter
// rollover on renewal, lifecycle emails).
//
// The event is applied before its ID is recorded. A crash between the two
// leads to a redelivery whose marker the aggregate then rejects as stale, so
// at-least-once delivery never double-applies.
type IngestWebhookUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	planRepo         subscription.PlanRepository
	webhookRepo      subscription.WebhookEventRepository
	verifier         *billingprovider.SignatureVerifier
	entitlements     *services.EntitlementService
	store            metering.UsageStore
	notifier         email.BillingNotifier
	logger           logger.Interface
}

// NewIngestWebhookUseCase creates a new IngestWebhookUseCase. The notifier
// may be nil when email is not configured.
func NewIngestWebhookUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	planRepo subscription.PlanRepository,
	webhookRepo subscription.WebhookEventRepository,
	verifier *billingprovider.SignatureVerifier,
	entitlements *services.EntitlementService,
	store metering.UsageStore,
	notifier email.BillingNotifier,
	logger logger.Interface,
) *IngestWebhookUseCase {
	return &IngestWebhookUseCase{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		webhookRepo:      webhookRepo,
		verifier:         verifier,
		entitlements:     entitlements,
		store:            store,
		notifier:         notifier,
		logger:           logger,
	}
}

// Execute processes one webhook delivery.
func (uc *IngestWebhookUseCase) Execute(ctx context.Context, cmd IngestWebhookCommand) (*IngestResult, error) {
	now := biztime.NowUTC()

	if err := uc.verifier.Verify(cmd.Body, cmd.SignatureHeader, now); err != nil {
		uc.logger.Warnw("webhook signature verification failed", "error", err)
		return nil, apperrors.NewForbiddenError("invalid webhook signature")
	}

	payload, err := dto.ParseWebhookPayload(cmd.Body)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	processed, err := uc.webhookRepo.IsProcessed(ctx, payload.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event dedup: %w", err)
	}
	if processed {
		uc.logger.Infow("duplicate webhook delivery ignored", "event_id", payload.ID, "event_type", payload.Type)
		return &IngestResult{Outcome: OutcomeDuplicate, EventID: payload.ID}, nil
	}

	sub, err := uc.subscriptionRepo.GetByExternalID(ctx, payload.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("unknown subscription: %s", payload.SubscriptionID))
	}

	event, err := uc.toDomainEvent(payload)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	outcome, err := uc.applyEvent(ctx, sub, event)
	if err != nil {
		return nil, err
	}

	if _, err := uc.webhookRepo.MarkProcessed(ctx, payload.ID, payload.Type, sub.ID()); err != nil {
		// The state change already landed; a redelivery will be caught by the
		// marker check, so failing to record the ID is not fatal.
		uc.logger.Warnw("failed to record processed event", "event_id", payload.ID, "error", err)
	}

	if outcome == OutcomeApplied {
		uc.afterApply(ctx, sub, event, payload)
	}

	return &IngestResult{Outcome: outcome, EventID: payload.ID}, nil
}

func (uc *IngestWebhookUseCase) toDomainEvent(payload *dto.WebhookPayload) (subscription.Event, error) {
	eventType := subscription.EventType(payload.Type)
	if !eventType.IsValid() {
		return subscription.Event{}, fmt.Errorf("unknown event type: %s", payload.Type)
	}

	event := subscription.Event{
		Type:      eventType,
		Marker:    payload.Marker,
		Immediate: payload.Immediate,
		Reason:    payload.Reason,
	}
	if eventType == subscription.EventPeriodRenewed {
		event.PeriodStart = payload.PeriodStartTime()
		event.PeriodEnd = payload.PeriodEndTime()
	}

	return event, nil
}

func (uc *IngestWebhookUseCase) applyEvent(ctx context.Context, sub *subscription.Subscription, event subscription.Event) (IngestOutcome, error) {
	if err := sub.Apply(event); err != nil {
		if errors.Is(err, subscription.ErrStaleEvent) {
			uc.logger.Infow("stale webhook event ignored",
				"subscription_sid", sub.SID(),
				"event_type", event.Type,
				"marker", event.Marker,
				"last_marker", sub.LastEventMarker(),
			)
			return OutcomeStale, nil
		}
		uc.logger.Warnw("webhook event rejected by transition table",
			"subscription_sid", sub.SID(),
			"event_type", event.Type,
			"status", sub.Status(),
			"error", err,
		)
		return "", apperrors.NewConflictError(err.Error())
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		if apperrors.IsConflictError(err) {
			// Another worker applied this or a newer event first. The
			// aggregate's replay protection makes this a benign race.
			uc.logger.Infow("concurrent webhook application detected, acknowledging",
				"subscription_sid", sub.SID(),
				"event_type", event.Type,
			)
			return OutcomeStale, nil
		}
		return "", fmt.Errorf("failed to persist subscription: %w", err)
	}

	uc.logger.Infow("webhook event applied",
		"subscription_sid", sub.SID(),
		"event_type", event.Type,
		"status", sub.Status(),
		"marker", event.Marker,
	)
	return OutcomeApplied, nil
}

// afterApply runs the side effects of a successfully applied event. All of
// them are best effort; the provider has already been acknowledged.
func (uc *IngestWebhookUseCase) afterApply(ctx context.Context, sub *subscription.Subscription, event subscription.Event, payload *dto.WebhookPayload) {
	uc.entitlements.Invalidate(ctx, sub.TeamID())

	if event.Type == subscription.EventPaymentConfirmed || event.Type == subscription.EventTrialEndedPaid {
		uc.supersedeSiblings(ctx, sub)
	}

	if event.Type == subscription.EventPeriodRenewed {
		uc.rolloverCounters(ctx, sub, event)
	}

	uc.notifyLifecycleChange(sub, payload)
}

// supersedeSiblings enforces the single effective subscription invariant:
// activating one subscription cancels any other effective one the team holds.
func (uc *IngestWebhookUseCase) supersedeSiblings(ctx context.Context, activated *subscription.Subscription) {
	subs, err := uc.subscriptionRepo.GetByTeamID(ctx, activated.TeamID())
	if err != nil {
		uc.logger.Errorw("failed to list team subscriptions for supersede", "team_id", activated.TeamID(), "error", err)
		return
	}

	for _, sibling := range subs {
		if sibling.ID() == activated.ID() || !sibling.IsEffective() {
			continue
		}
		if err := sibling.Supersede("superseded by new subscription"); err != nil {
			uc.logger.Warnw("failed to supersede subscription", "subscription_sid", sibling.SID(), "error", err)
			continue
		}
		if err := uc.subscriptionRepo.Update(ctx, sibling); err != nil {
			uc.logger.Errorw("failed to persist superseded subscription", "subscription_sid", sibling.SID(), "error", err)
		}
	}
}

// rolloverCounters opens zeroed counters for the renewed period so the new
// period starts from a clean slate even before the first increment arrives.
func (uc *IngestWebhookUseCase) rolloverCounters(ctx context.Context, sub *subscription.Subscription, event subscription.Event) {
	plan, err := uc.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil {
		uc.logger.Errorw("failed to load plan for counter rollover", "plan_id", sub.PlanID(), "error", err)
		return
	}
	if plan == nil {
		return
	}

	for _, metric := range metering.AllMetricTypes() {
		limit := plan.LimitFor(metric)
		if err := uc.store.Rollover(ctx, sub.TeamID(), metric, event.PeriodStart, event.PeriodEnd, limit); err != nil {
			uc.logger.Errorw("failed to roll over usage counter",
				"team_id", sub.TeamID(),
				"metric", metric,
				"error", err,
			)
		}
	}
}

func (uc *IngestWebhookUseCase) notifyLifecycleChange(sub *subscription.Subscription, payload *dto.WebhookPayload) {
	if uc.notifier == nil || payload.CustomerEmail == "" {
		return
	}

	status := sub.Status()
	to := payload.CustomerEmail
	teamName := fmt.Sprintf("team %d", sub.TeamID())

	switch status {
	case vo.StatusPastDue:
		goroutine.SafeGo(uc.logger, "payment-failed-email", func() {
			if err := uc.notifier.SendPaymentFailedEmail(to, teamName); err != nil {
				uc.logger.Warnw("failed to send payment failed email", "error", err)
			}
		})
	case vo.StatusCanceled, vo.StatusUnpaid:
		reason := ""
		if sub.CancelReason() != nil {
			reason = *sub.CancelReason()
		}
		goroutine.SafeGo(uc.logger, "cancellation-email", func() {
			if err := uc.notifier.SendSubscriptionCanceledEmail(to, teamName, reason); err != nil {
				uc.logger.Warnw("failed to send cancellation email", "error", err)
			}
		})
	}
}
