package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrPlanNotFound            = errors.New("subscription plan not found")
	ErrPlanSlugExists          = errors.New("plan slug already exists")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrStaleEvent              = errors.New("event marker not newer than last applied")
	ErrTerminalState           = errors.New("subscription is in a terminal state")
	ErrUnknownEventType        = errors.New("unknown event type")
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}
