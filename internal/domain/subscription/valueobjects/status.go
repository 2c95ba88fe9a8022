package valueobjects

type SubscriptionStatus string

const (
	// StatusPending means checkout has started but no payment outcome yet
	StatusPending SubscriptionStatus = "pending"
	// StatusTrialing means a trial was granted without payment
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	// StatusPastDue means the latest renewal payment failed; grace period applies
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	// StatusIncomplete means the initial payment failed
	StatusIncomplete SubscriptionStatus = "incomplete"
	// StatusIncompleteExpired means the trial or checkout lapsed with no payment method
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	// StatusUnpaid means payment retries were exhausted after past_due
	StatusUnpaid SubscriptionStatus = "unpaid"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsEffective reports whether the subscription still entitles the team to
// its plan's full limits.
func (s SubscriptionStatus) IsEffective() bool {
	return s == StatusActive || s == StatusTrialing || s == StatusPastDue
}

// IsTerminal reports whether no further transitions are accepted.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusIncompleteExpired
}

var transitions = map[SubscriptionStatus][]SubscriptionStatus{
	StatusPending:           {StatusActive, StatusIncomplete},
	StatusTrialing:          {StatusActive, StatusIncompleteExpired, StatusCanceled},
	StatusActive:            {StatusPastDue, StatusCanceled},
	StatusPastDue:           {StatusActive, StatusUnpaid, StatusCanceled},
	StatusIncomplete:        {},
	StatusUnpaid:            {},
	StatusCanceled:          {},
	StatusIncompleteExpired: {},
}

// CanTransitionTo reports whether the transition table permits moving from
// s to target.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	allowed, exists := transitions[s]
	if !exists {
		return false
	}

	for _, allowedStatus := range allowed {
		if allowedStatus == target {
			return true
		}
	}
	return false
}

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusPending:           true,
	StatusTrialing:          true,
	StatusActive:            true,
	StatusPastDue:           true,
	StatusCanceled:          true,
	StatusIncomplete:        true,
	StatusIncompleteExpired: true,
	StatusUnpaid:            true,
}
