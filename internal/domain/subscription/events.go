package subscription

import (
	"fmt"
	"time"
)

// EventType identifies one row of the lifecycle transition table. Events are
// produced by the webhook ingestor from billing-provider notifications and
// are the only way subscription status changes.
type EventType string

const (
	// EventPaymentConfirmed moves pending → active
	EventPaymentConfirmed EventType = "payment_confirmed"
	// EventInitialPaymentFailed moves pending → incomplete
	EventInitialPaymentFailed EventType = "initial_payment_failed"
	// EventTrialEndedPaid moves trialing → active
	EventTrialEndedPaid EventType = "trial_ended_paid"
	// EventTrialEndedNoPayment moves trialing → incomplete_expired
	EventTrialEndedNoPayment EventType = "trial_ended_no_payment"
	// EventPaymentFailed moves active → past_due
	EventPaymentFailed EventType = "payment_failed"
	// EventPaymentRecovered moves past_due → active
	EventPaymentRecovered EventType = "payment_recovered"
	// EventRetriesExhausted moves past_due → unpaid
	EventRetriesExhausted EventType = "retries_exhausted"
	// EventCancellationRequested cancels immediately or flags
	// cancel-at-period-end, depending on the event's Immediate field
	EventCancellationRequested EventType = "cancellation_requested"
	// EventPeriodRenewed advances the current period without a status change
	EventPeriodRenewed EventType = "period_renewed"
)

// IsValid checks if the event type is valid
func (e EventType) IsValid() bool {
	switch e {
	case EventPaymentConfirmed, EventInitialPaymentFailed,
		EventTrialEndedPaid, EventTrialEndedNoPayment,
		EventPaymentFailed, EventPaymentRecovered, EventRetriesExhausted,
		EventCancellationRequested, EventPeriodRenewed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// Event is a lifecycle event targeting one subscription. Marker is the
// provider's monotonic period/version counter; an event is applied only when
// its marker is strictly newer than the subscription's last-applied marker,
// which makes at-least-once and out-of-order delivery safe.
type Event struct {
	Type   EventType
	Marker uint64

	// Immediate distinguishes immediate cancellation from a deferred
	// cancel-at-period-end request. Only read for EventCancellationRequested.
	Immediate bool
	// Reason is an optional human-readable note, recorded on cancellation.
	Reason string

	// PeriodStart/PeriodEnd carry the renewed period boundaries. Only read
	// for EventPeriodRenewed.
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Validate checks structural validity of the event.
func (e Event) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, e.Type)
	}
	if e.Marker == 0 {
		return fmt.Errorf("event marker is required")
	}
	if e.Type == EventPeriodRenewed && !e.PeriodEnd.After(e.PeriodStart) {
		return fmt.Errorf("renewed period end must be after period start")
	}
	return nil
}
