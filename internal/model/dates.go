package model

import "time"

// DateOnly truncates t to midnight UTC. All date-typed columns store values
// in this form so equality comparisons behave the same on sqlite and
// postgres.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar day (UTC).
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
