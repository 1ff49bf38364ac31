package model

import (
	"time"

	"github.com/jinzhu/now"
)

// AddMonths adds n calendar months to t, clamping to the last day of the
// target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	first := now.With(t).BeginningOfMonth().AddDate(0, n, 0)
	last := now.With(first).EndOfMonth()
	day := t.Day()
	if day > last.Day() {
		day = last.Day()
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NextDue derives the next-due date from the last completion.
func NextDue(lastCompletedAt *time.Time, validityMonths int) *time.Time {
	if lastCompletedAt == nil {
		return nil
	}
	due := AddMonths(*lastCompletedAt, validityMonths)
	return &due
}
