package subscription

import (
	"fmt"
	"time"

	"formlens/internal/domain/metering"
	vo "formlens/internal/domain/subscription/valueobjects"
	"formlens/internal/shared/biztime"
	"formlens/internal/shared/id"
)

// Subscription is the aggregate root for one team's relationship to a plan.
// Status only ever changes through Apply, driven by billing-provider events;
// the rest of the application treats subscriptions as read-only.
type Subscription struct {
	id                 uint
	sid                string
	teamID             uint
	planID             uint
	status             vo.SubscriptionStatus
	billingInterval    metering.BillingInterval
	externalID         string
	anchorAt           time.Time
	currentPeriodStart time.Time
	currentPeriodEnd   time.Time
	cancelAtPeriodEnd  bool
	canceledAt         *time.Time
	cancelReason       *string
	trialStart         *time.Time
	trialEnd           *time.Time
	lastEventMarker    uint64
	metadata           map[string]interface{}
	version            int
	createdAt          time.Time
	updatedAt          time.Time
}

// NewSubscription creates a pending subscription for a started checkout.
func NewSubscription(teamID, planID uint, interval metering.BillingInterval, externalID string, anchorAt time.Time) (*Subscription, error) {
	return newSubscription(teamID, planID, interval, externalID, anchorAt, vo.StatusPending, nil, nil)
}

// NewTrialSubscription creates a trialing subscription with the given trial window.
func NewTrialSubscription(teamID, planID uint, interval metering.BillingInterval, externalID string, trialStart, trialEnd time.Time) (*Subscription, error) {
	if !trialEnd.After(trialStart) {
		return nil, fmt.Errorf("trial end must be after trial start")
	}
	ts := trialStart.UTC()
	te := trialEnd.UTC()
	return newSubscription(teamID, planID, interval, externalID, ts, vo.StatusTrialing, &ts, &te)
}

func newSubscription(teamID, planID uint, interval metering.BillingInterval, externalID string, anchorAt time.Time,
	status vo.SubscriptionStatus, trialStart, trialEnd *time.Time) (*Subscription, error) {

	if teamID == 0 {
		return nil, fmt.Errorf("team ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}
	if !interval.IsValid() {
		return nil, fmt.Errorf("invalid billing interval: %s", interval)
	}
	if externalID == "" {
		return nil, fmt.Errorf("external billing ID is required")
	}

	sid, err := id.NewSubscriptionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SID: %w", err)
	}

	anchor := anchorAt.UTC()
	periodStart, periodEnd := metering.PeriodFor(anchor, interval, anchor)
	if trialStart != nil && trialEnd != nil {
		periodStart, periodEnd = *trialStart, *trialEnd
	}

	now := biztime.NowUTC()
	return &Subscription{
		sid:                sid,
		teamID:             teamID,
		planID:             planID,
		status:             status,
		billingInterval:    interval,
		externalID:         externalID,
		anchorAt:           anchor,
		currentPeriodStart: periodStart,
		currentPeriodEnd:   periodEnd,
		trialStart:         trialStart,
		trialEnd:           trialEnd,
		metadata:           make(map[string]interface{}),
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// ReconstructSubscription reconstructs a subscription from persistence.
func ReconstructSubscription(
	subscriptionID uint,
	sid string,
	teamID, planID uint,
	status vo.SubscriptionStatus,
	interval metering.BillingInterval,
	externalID string,
	anchorAt time.Time,
	currentPeriodStart, currentPeriodEnd time.Time,
	cancelAtPeriodEnd bool,
	canceledAt *time.Time,
	cancelReason *string,
	trialStart, trialEnd *time.Time,
	lastEventMarker uint64,
	metadata map[string]interface{},
	version int,
	createdAt, updatedAt time.Time,
) (*Subscription, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if teamID == 0 {
		return nil, fmt.Errorf("team ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}
	if !vo.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", status)
	}
	if !interval.IsValid() {
		return nil, fmt.Errorf("invalid billing interval: %s", interval)
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Subscription{
		id:                 subscriptionID,
		sid:                sid,
		teamID:             teamID,
		planID:             planID,
		status:             status,
		billingInterval:    interval,
		externalID:         externalID,
		anchorAt:           anchorAt,
		currentPeriodStart: currentPeriodStart,
		currentPeriodEnd:   currentPeriodEnd,
		cancelAtPeriodEnd:  cancelAtPeriodEnd,
		canceledAt:         canceledAt,
		cancelReason:       cancelReason,
		trialStart:         trialStart,
		trialEnd:           trialEnd,
		lastEventMarker:    lastEventMarker,
		metadata:           metadata,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}, nil
}

// ID returns the subscription ID
func (s *Subscription) ID() uint { return s.id }

// SID returns the Stripe-style ID
func (s *Subscription) SID() string { return s.sid }

// TeamID returns the owning team ID
func (s *Subscription) TeamID() uint { return s.teamID }

// PlanID returns the plan ID
func (s *Subscription) PlanID() uint { return s.planID }

// Status returns the subscription status
func (s *Subscription) Status() vo.SubscriptionStatus { return s.status }

// BillingInterval returns the billing interval
func (s *Subscription) BillingInterval() metering.BillingInterval { return s.billingInterval }

// ExternalID returns the billing provider's subscription identifier
func (s *Subscription) ExternalID() string { return s.externalID }

// AnchorAt returns the anchor date billing periods align to
func (s *Subscription) AnchorAt() time.Time { return s.anchorAt }

// CurrentPeriodStart returns the current period start date
func (s *Subscription) CurrentPeriodStart() time.Time { return s.currentPeriodStart }

// CurrentPeriodEnd returns the current period end date
func (s *Subscription) CurrentPeriodEnd() time.Time { return s.currentPeriodEnd }

// CancelAtPeriodEnd returns the deferred-cancellation flag
func (s *Subscription) CancelAtPeriodEnd() bool { return s.cancelAtPeriodEnd }

// CanceledAt returns when the subscription was canceled
func (s *Subscription) CanceledAt() *time.Time { return s.canceledAt }

// CancelReason returns the cancellation reason
func (s *Subscription) CancelReason() *string { return s.cancelReason }

// TrialStart returns the trial window start, if a trial was granted
func (s *Subscription) TrialStart() *time.Time { return s.trialStart }

// TrialEnd returns the trial window end, if a trial was granted
func (s *Subscription) TrialEnd() *time.Time { return s.trialEnd }

// LastEventMarker returns the marker of the last applied event
func (s *Subscription) LastEventMarker() uint64 { return s.lastEventMarker }

// Metadata returns the subscription metadata
func (s *Subscription) Metadata() map[string]interface{} { return s.metadata }

// Version returns the aggregate version for optimistic locking
func (s *Subscription) Version() int { return s.version }

// CreatedAt returns when the subscription was created
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns when the subscription was last updated
func (s *Subscription) UpdatedAt() time.Time { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(subscriptionID uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if subscriptionID == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = subscriptionID
	return nil
}

// IsEffective reports whether this subscription currently entitles the team
// to its plan's full limits.
func (s *Subscription) IsEffective() bool {
	return s.status.IsEffective()
}

// InTrialWindow reports whether now falls inside the trial window.
func (s *Subscription) InTrialWindow(now time.Time) bool {
	if s.trialStart == nil || s.trialEnd == nil {
		return false
	}
	return !now.Before(*s.trialStart) && now.Before(*s.trialEnd)
}

// Apply drives the lifecycle transition table. An event whose marker is not
// strictly newer than the last applied one is rejected with ErrStaleEvent;
// events whose transition the table does not permit are rejected with
// ErrInvalidStatusTransition. Rejected events leave the aggregate untouched.
func (s *Subscription) Apply(ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if s.status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminalState, s.status)
	}
	if ev.Marker <= s.lastEventMarker {
		return fmt.Errorf("%w: got %d, last applied %d", ErrStaleEvent, ev.Marker, s.lastEventMarker)
	}

	switch ev.Type {
	case EventPaymentConfirmed:
		if err := s.transition(vo.StatusPending, vo.StatusActive); err != nil {
			return err
		}
	case EventInitialPaymentFailed:
		if err := s.transition(vo.StatusPending, vo.StatusIncomplete); err != nil {
			return err
		}
	case EventTrialEndedPaid:
		if err := s.transition(vo.StatusTrialing, vo.StatusActive); err != nil {
			return err
		}
	case EventTrialEndedNoPayment:
		if err := s.transition(vo.StatusTrialing, vo.StatusIncompleteExpired); err != nil {
			return err
		}
	case EventPaymentFailed:
		if err := s.transition(vo.StatusActive, vo.StatusPastDue); err != nil {
			return err
		}
	case EventPaymentRecovered:
		if err := s.transition(vo.StatusPastDue, vo.StatusActive); err != nil {
			return err
		}
	case EventRetriesExhausted:
		if err := s.transition(vo.StatusPastDue, vo.StatusUnpaid); err != nil {
			return err
		}
	case EventCancellationRequested:
		if err := s.applyCancellation(ev); err != nil {
			return err
		}
	case EventPeriodRenewed:
		s.currentPeriodStart = ev.PeriodStart.UTC()
		s.currentPeriodEnd = ev.PeriodEnd.UTC()
	}

	s.lastEventMarker = ev.Marker
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

func (s *Subscription) transition(from, to vo.SubscriptionStatus) error {
	if s.status != from {
		return ErrInvalidTransition(s.status.String(), to.String())
	}
	if !s.status.CanTransitionTo(to) {
		return ErrInvalidTransition(s.status.String(), to.String())
	}
	s.status = to
	return nil
}

func (s *Subscription) applyCancellation(ev Event) error {
	if !s.status.IsEffective() {
		return ErrInvalidTransition(s.status.String(), vo.StatusCanceled.String())
	}

	if !ev.Immediate {
		s.cancelAtPeriodEnd = true
		if ev.Reason != "" {
			reason := ev.Reason
			s.cancelReason = &reason
		}
		return nil
	}

	return s.cancelNow(ev.Reason)
}

func (s *Subscription) cancelNow(reason string) error {
	if !s.status.CanTransitionTo(vo.StatusCanceled) {
		return ErrInvalidTransition(s.status.String(), vo.StatusCanceled.String())
	}

	now := biztime.NowUTC()
	s.status = vo.StatusCanceled
	s.canceledAt = &now
	if reason != "" {
		s.cancelReason = &reason
	}
	return nil
}

// Supersede cancels this subscription so a replacement can become the
// team's single effective subscription. It bypasses the event marker since
// the trigger is internal, not a provider notification.
func (s *Subscription) Supersede(reason string) error {
	if s.status == vo.StatusCanceled {
		return nil
	}
	if err := s.cancelNow(reason); err != nil {
		return err
	}
	s.updatedAt = biztime.NowUTC()
	s.version++
	return nil
}

// DeferredCancellationDue reports whether a cancel-at-period-end
// subscription has outlived its final period. The sweep enacts these; until
// it does, the subscription no longer entitles the team.
func (s *Subscription) DeferredCancellationDue(now time.Time) bool {
	return s.cancelAtPeriodEnd && !s.status.IsTerminal() && !now.Before(s.currentPeriodEnd)
}

// EnactDeferredCancellation cancels a cancel-at-period-end subscription once
// its period has actually ended. Returns true when a cancellation was applied.
func (s *Subscription) EnactDeferredCancellation(now time.Time) (bool, error) {
	if !s.DeferredCancellationDue(now) {
		return false, nil
	}
	if err := s.cancelNow("cancel at period end"); err != nil {
		return false, err
	}
	s.updatedAt = biztime.NowUTC()
	s.version++
	return true, nil
}

// Validate performs domain-level validation
func (s *Subscription) Validate() error {
	if s.teamID == 0 {
		return fmt.Errorf("team ID is required")
	}
	if s.planID == 0 {
		return fmt.Errorf("plan ID is required")
	}
	if !vo.ValidStatuses[s.status] {
		return fmt.Errorf("invalid status: %s", s.status)
	}
	if !s.currentPeriodEnd.After(s.currentPeriodStart) {
		return fmt.Errorf("current period end must be after current period start")
	}
	return nil
}
