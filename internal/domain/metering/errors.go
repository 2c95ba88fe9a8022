package metering

import "errors"

var (
	ErrUnknownMetric    = errors.New("unknown metric type")
	ErrCounterNotFound  = errors.New("usage counter not found")
	ErrCounterConflict  = errors.New("usage counter already exists for period")
	ErrInvalidIncrement = errors.New("increment amount must be positive")
)
