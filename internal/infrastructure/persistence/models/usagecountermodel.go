package models

import "time"

// UsageCounterModel represents the database persistence model for usage counters.
// The composite unique index on (team, metric, period start) is what makes
// lazy creation and rollover idempotent: a second insert for the same period
// hits the constraint instead of producing a duplicate live counter.
//
// No gorm soft-delete column: counters are immutable history and are never
// deleted at all.
type UsageCounterModel struct {
	ID           uint      `gorm:"primarykey"`
	SID          string    `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: uc_xxx"`
	TeamID       uint      `gorm:"not null;uniqueIndex:idx_team_metric_period,priority:1"`
	Metric       string    `gorm:"not null;size:30;uniqueIndex:idx_team_metric_period,priority:2"`
	PeriodStart  time.Time `gorm:"not null;uniqueIndex:idx_team_metric_period,priority:3"`
	PeriodEnd    time.Time `gorm:"not null;index:idx_counter_period_end"`
	CurrentUsage int64     `gorm:"not null;default:0"`
	LimitValue   int64     `gorm:"not null;comment:limit snapshot at counter creation"`
	LastResetAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for GORM
func (UsageCounterModel) TableName() string {
	return "usage_counters"
}
