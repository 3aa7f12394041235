// Package fixtures provides test data builders and helpers.
package fixtures

import (
	"time"

	"github.com/shopspring/decimal"
)

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to the given bool
func BoolPtr(b bool) *bool {
	return &b
}

// TimePtr returns a pointer to the given time.Time
func TimePtr(t time.Time) *time.Time {
	return &t
}

// DecimalPtr returns a pointer to the given decimal
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Money parses a fixed-point amount; panics on malformed input, which is
// acceptable in test fixtures
func Money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Date builds a UTC midnight date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
