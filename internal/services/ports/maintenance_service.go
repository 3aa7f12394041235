package ports

import (
	"context"
	"time"

	domain "github.com/subledger/billing-engine/internal/domain/ports"
)

// CheckResult reports one repair check: how many inconsistencies were
// found, how many were fixed, and how many remain
type CheckResult struct {
	Name      string
	Found     int
	Fixed     int
	Remaining int
	Error     string
}

// FixedAny reports whether the check repaired anything
func (c CheckResult) FixedAny() bool {
	return c.Fixed > 0
}

// RepairReport summarizes one full consistency repair pass
type RepairReport struct {
	RanAt      time.Time
	Checks     []CheckResult
	TotalFound int
	TotalFixed int
}

// MaintenanceService provides the consistency repair engine and
// operational maintenance commands
type MaintenanceService interface {
	// RepairConsistency runs every repair check, each in its own
	// transaction; safe to repeat
	RepairConsistency(ctx context.Context) (*RepairReport, error)

	// StatusReport returns per-entity, per-status row counts
	StatusReport(ctx context.Context) (*domain.BusinessDataReport, error)

	// ClearBusinessData deletes all billing business data
	ClearBusinessData(ctx context.Context) error
}

// NumberGenerator produces unique, human-readable record numbers
type NumberGenerator interface {
	// Next returns a fresh number with the given prefix, regenerating on
	// collision as reported by exists
	Next(ctx context.Context, prefix string, exists func(ctx context.Context, number string) (bool, error)) (string, error)
}
