package metering

import (
	"fmt"
	"time"

	"formlens/internal/shared/biztime"
	"formlens/internal/shared/id"
)

// UsageCounter represents one team's usage of one metric within one billing
// period. Exactly one live counter exists per (team, metric, period start);
// counters for elapsed periods are immutable history.
type UsageCounter struct {
	id           uint
	sid          string
	teamID       uint
	metric       MetricType
	periodStart  time.Time
	periodEnd    time.Time
	currentUsage int64
	limitValue   int64
	lastResetAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUsageCounter creates a zeroed counter for the given period.
func NewUsageCounter(teamID uint, metric MetricType, periodStart, periodEnd time.Time, limitValue int64) (*UsageCounter, error) {
	if teamID == 0 {
		return nil, fmt.Errorf("team ID is required")
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("invalid metric type: %s", metric)
	}
	if !periodEnd.After(periodStart) {
		return nil, fmt.Errorf("period end must be after period start")
	}
	if limitValue < Unlimited {
		return nil, fmt.Errorf("invalid limit value: %d", limitValue)
	}

	sid, err := id.NewUsageCounterID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SID: %w", err)
	}

	now := biztime.NowUTC()
	return &UsageCounter{
		sid:          sid,
		teamID:       teamID,
		metric:       metric,
		periodStart:  periodStart.UTC(),
		periodEnd:    periodEnd.UTC(),
		currentUsage: 0,
		limitValue:   limitValue,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructUsageCounter reconstructs a usage counter from persistence.
func ReconstructUsageCounter(
	counterID uint,
	sid string,
	teamID uint,
	metric MetricType,
	periodStart, periodEnd time.Time,
	currentUsage, limitValue int64,
	lastResetAt *time.Time,
	createdAt, updatedAt time.Time,
) (*UsageCounter, error) {
	if counterID == 0 {
		return nil, fmt.Errorf("usage counter ID cannot be zero")
	}
	if teamID == 0 {
		return nil, fmt.Errorf("team ID is required")
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("invalid metric type: %s", metric)
	}

	return &UsageCounter{
		id:           counterID,
		sid:          sid,
		teamID:       teamID,
		metric:       metric,
		periodStart:  periodStart,
		periodEnd:    periodEnd,
		currentUsage: currentUsage,
		limitValue:   limitValue,
		lastResetAt:  lastResetAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

// ID returns the counter record ID
func (c *UsageCounter) ID() uint { return c.id }

// SID returns the Stripe-style ID
func (c *UsageCounter) SID() string { return c.sid }

// TeamID returns the owning team ID
func (c *UsageCounter) TeamID() uint { return c.teamID }

// Metric returns the metered metric type
func (c *UsageCounter) Metric() MetricType { return c.metric }

// PeriodStart returns the period start boundary
func (c *UsageCounter) PeriodStart() time.Time { return c.periodStart }

// PeriodEnd returns the period end boundary
func (c *UsageCounter) PeriodEnd() time.Time { return c.periodEnd }

// CurrentUsage returns the consumed amount within the period
func (c *UsageCounter) CurrentUsage() int64 { return c.currentUsage }

// LimitValue returns the limit snapshot taken when the counter was created
func (c *UsageCounter) LimitValue() int64 { return c.limitValue }

// LastResetAt returns when the counter was last rolled over, if ever
func (c *UsageCounter) LastResetAt() *time.Time { return c.lastResetAt }

// CreatedAt returns when the counter was created
func (c *UsageCounter) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns when the counter was last updated
func (c *UsageCounter) UpdatedAt() time.Time { return c.updatedAt }

// SetID sets the counter record ID (only for persistence layer use)
func (c *UsageCounter) SetID(counterID uint) error {
	if c.id != 0 {
		return fmt.Errorf("usage counter ID is already set")
	}
	if counterID == 0 {
		return fmt.Errorf("usage counter ID cannot be zero")
	}
	c.id = counterID
	return nil
}

// Expired reports whether the counter's period has already ended at now.
func (c *UsageCounter) Expired(now time.Time) bool {
	return !now.Before(c.periodEnd)
}

// Remaining returns how much of the limit is left, or Unlimited when uncapped.
func (c *UsageCounter) Remaining() int64 {
	if c.limitValue == Unlimited {
		return Unlimited
	}
	remaining := c.limitValue - c.currentUsage
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Validate performs domain-level validation
func (c *UsageCounter) Validate() error {
	if c.teamID == 0 {
		return fmt.Errorf("team ID is required")
	}
	if !c.metric.IsValid() {
		return fmt.Errorf("invalid metric type: %s", c.metric)
	}
	if !c.periodEnd.After(c.periodStart) {
		return fmt.Errorf("period end must be after period start")
	}
	if c.currentUsage < 0 {
		return fmt.Errorf("current usage cannot be negative")
	}
	return nil
}
