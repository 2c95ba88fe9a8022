package metering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodForMonthly(t *testing.T) {
	tests := []struct {
		name      string
		anchor    time.Time
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid period",
			anchor:    date(2024, time.January, 15),
			now:       date(2024, time.March, 20),
			wantStart: date(2024, time.March, 15),
			wantEnd:   date(2024, time.April, 15),
		},
		{
			name:      "before anchor day falls back to previous month",
			anchor:    date(2024, time.January, 15),
			now:       date(2024, time.March, 10),
			wantStart: date(2024, time.February, 15),
			wantEnd:   date(2024, time.March, 15),
		},
		{
			name:      "now exactly on boundary starts new period",
			anchor:    date(2024, time.January, 15),
			now:       date(2024, time.March, 15),
			wantStart: date(2024, time.March, 15),
			wantEnd:   date(2024, time.April, 15),
		},
		{
			name:      "anchor day 31 clamps to 30-day month",
			anchor:    date(2024, time.January, 31),
			now:       date(2024, time.April, 15),
			wantStart: date(2024, time.March, 31),
			wantEnd:   date(2024, time.April, 30),
		},
		{
			name:      "anchor day 31 clamps to leap February",
			anchor:    date(2024, time.January, 31),
			now:       date(2024, time.February, 10),
			wantStart: date(2024, time.January, 31),
			wantEnd:   date(2024, time.February, 29),
		},
		{
			name:      "anchor day 31 clamps to non-leap February",
			anchor:    date(2023, time.January, 31),
			now:       date(2023, time.February, 10),
			wantStart: date(2023, time.January, 31),
			wantEnd:   date(2023, time.February, 28),
		},
		{
			name:      "period spanning year boundary",
			anchor:    date(2023, time.June, 20),
			now:       date(2024, time.January, 5),
			wantStart: date(2023, time.December, 20),
			wantEnd:   date(2024, time.January, 20),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PeriodFor(tt.anchor, IntervalMonthly, tt.now)
			assert.True(t, start.Equal(tt.wantStart), "start = %v, want %v", start, tt.wantStart)
			assert.True(t, end.Equal(tt.wantEnd), "end = %v, want %v", end, tt.wantEnd)
		})
	}
}

func TestPeriodForYearly(t *testing.T) {
	tests := []struct {
		name      string
		anchor    time.Time
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid period",
			anchor:    date(2023, time.June, 10),
			now:       date(2024, time.January, 5),
			wantStart: date(2023, time.June, 10),
			wantEnd:   date(2024, time.June, 10),
		},
		{
			name:      "after anniversary",
			anchor:    date(2023, time.June, 10),
			now:       date(2024, time.July, 1),
			wantStart: date(2024, time.June, 10),
			wantEnd:   date(2025, time.June, 10),
		},
		{
			name:      "leap day anchor clamps in non-leap year",
			anchor:    date(2024, time.February, 29),
			now:       date(2025, time.March, 10),
			wantStart: date(2025, time.February, 28),
			wantEnd:   date(2026, time.February, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PeriodFor(tt.anchor, IntervalYearly, tt.now)
			assert.True(t, start.Equal(tt.wantStart), "start = %v, want %v", start, tt.wantStart)
			assert.True(t, end.Equal(tt.wantEnd), "end = %v, want %v", end, tt.wantEnd)
		})
	}
}

func TestPeriodForPreservesAnchorClockTime(t *testing.T) {
	anchor := time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

	start, end := PeriodFor(anchor, IntervalMonthly, now)

	assert.Equal(t, 9, start.Hour())
	assert.Equal(t, 30, start.Minute())
	assert.Equal(t, 9, end.Hour())
	assert.Equal(t, 30, end.Minute())
}
