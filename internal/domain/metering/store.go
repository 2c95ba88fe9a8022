package metering

import (
	"context"
	"time"
)

// IncrementResult reports the outcome of an atomic increment attempt.
type IncrementResult struct {
	// Allowed is true when the increment was applied within the limit.
	Allowed bool
	// NewUsage is the counter value after the increment when allowed, or the
	// current value that caused the denial otherwise.
	NewUsage int64
	// Limit is the limit the increment was checked against.
	Limit int64
}

// Snapshot is a read-only view of a counter. It may lag concurrent
// increments by at most one in-flight operation.
type Snapshot struct {
	CurrentUsage int64
	Limit        int64
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// UsageStore owns all mutation of usage counters. Implementations must make
// the limit check and the increment a single indivisible operation against
// the backing store; a separate read-then-write is not acceptable.
type UsageStore interface {
	// Increment atomically applies "increment by amount if the result stays
	// within limit" to the counter for (teamID, metric, periodStart). A
	// missing counter is created at zero first; a uniqueness race during
	// that lazy creation is retried exactly once before failing.
	Increment(ctx context.Context, teamID uint, metric MetricType, periodStart, periodEnd time.Time, amount, limit int64) (*IncrementResult, error)

	// Snapshot returns the live counter for (teamID, metric), or nil when no
	// counter exists yet.
	Snapshot(ctx context.Context, teamID uint, metric MetricType) (*Snapshot, error)

	// Rollover creates the next period's counter at zero, leaving prior
	// rows untouched as history. Calling it twice with the same new period
	// is a no-op on the second call.
	Rollover(ctx context.Context, teamID uint, metric MetricType, newPeriodStart, newPeriodEnd time.Time, newLimit int64) error

	// History returns elapsed counters for the team and metric, newest first.
	History(ctx context.Context, teamID uint, metric MetricType, limit int) ([]*UsageCounter, error)
}
