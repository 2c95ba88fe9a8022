package metering

import (
	"time"

	"formlens/internal/shared/biztime"
)

// BillingInterval represents the cadence of a subscription's billing period
type BillingInterval string

const (
	// IntervalMonthly bills on the anchor's day-of-month
	IntervalMonthly BillingInterval = "monthly"
	// IntervalYearly bills on the anchor's month and day
	IntervalYearly BillingInterval = "yearly"
)

// IsValid checks if the billing interval is valid
func (b BillingInterval) IsValid() bool {
	return b == IntervalMonthly || b == IntervalYearly
}

// String returns the string representation of the billing interval
func (b BillingInterval) String() string {
	return string(b)
}

// PeriodFor computes the billing period containing now for a subscription
// anchored at anchor with the given interval. Boundaries align to the
// anchor's day-of-month (monthly) or month and day (yearly), clamped to the
// last valid day of shorter months: an anchor on the 31st maps to the 30th
// in a 30-day month and to the 28th/29th in February. The anchor's clock
// time is preserved on both boundaries. All results are UTC.
//
// Pure and deterministic. Trial windows bypass this calculation entirely;
// callers use the subscription's trial start/end verbatim.
func PeriodFor(anchor time.Time, interval BillingInterval, now time.Time) (start, end time.Time) {
	anchor = anchor.UTC()
	now = now.UTC()

	switch interval {
	case IntervalYearly:
		return yearlyPeriod(anchor, now)
	default:
		return monthlyPeriod(anchor, now)
	}
}

func monthlyPeriod(anchor, now time.Time) (time.Time, time.Time) {
	start := anchoredDate(now.Year(), now.Month(), anchor)
	if start.After(now) {
		prev := now.AddDate(0, 0, -now.Day()) // last day of previous month
		start = anchoredDate(prev.Year(), prev.Month(), anchor)
	}

	nextMonth := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	end := anchoredDate(nextMonth.Year(), nextMonth.Month(), anchor)
	return start, end
}

func yearlyPeriod(anchor, now time.Time) (time.Time, time.Time) {
	start := anchoredDate(now.Year(), anchor.Month(), anchor)
	if start.After(now) {
		start = anchoredDate(now.Year()-1, anchor.Month(), anchor)
	}
	end := anchoredDate(start.Year()+1, anchor.Month(), anchor)
	return start, end
}

// anchoredDate places the anchor's day-of-month and clock time into the
// given year and month, clamping the day to the month's length.
func anchoredDate(year int, month time.Month, anchor time.Time) time.Time {
	day := anchor.Day()
	if max := biztime.DaysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), time.UTC)
}
