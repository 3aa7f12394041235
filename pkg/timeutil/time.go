package timeutil

import "time"

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ParseDate parses a date string and returns a UTC time
func ParseDate(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, time.UTC)
}

// SameDay reports whether two times fall on the same UTC calendar day
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// MonthsBetween returns the number of whole calendar months from start
// to end, rounding partially covered months up. Returns 0 when end is
// not after start.
func MonthsBetween(start, end time.Time) int {
	start, end = StartOfDay(start), StartOfDay(end)
	if !end.After(start) {
		return 0
	}
	months := 0
	for cursor := start.AddDate(0, 1, 0); !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
		months++
	}
	if start.AddDate(0, months, 0).Before(end) {
		months++
	}
	return months
}

// ToUTC converts a time.Time to UTC if it isn't already
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}
