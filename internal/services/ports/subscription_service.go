package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subledger/billing-engine/internal/domain/models"
)

// CreateSubscriptionRequest carries the inputs for subscription creation.
// Validation tags are enforced by the service before any write.
type CreateSubscriptionRequest struct {
	ContractID   string              `validate:"required"`
	ProductID    *string             `validate:"omitempty"`
	ProductName  string              `validate:"required"`
	MonthlyPrice decimal.Decimal     `validate:"-"`
	StartDate    time.Time           `validate:"required"`
	EndDate      *time.Time          `validate:"omitempty"`
	BillingCycle models.BillingCycle `validate:"omitempty"`
	AutoRenew    *bool               `validate:"omitempty"`
}

// UpdateSubscriptionRequest carries a partial update; nil fields are left
// unchanged. Price, cycle, and end-date changes trigger schedule
// synchronization.
type UpdateSubscriptionRequest struct {
	SubscriptionID string `validate:"required"`
	ProductName    *string
	MonthlyPrice   *decimal.Decimal
	BillingCycle   *models.BillingCycle
	EndDate        *time.Time
	AutoRenew      *bool
}

// SweepResult summarizes an auto-renewal or expiry sweep. Sweeps never
// abort on a per-subscription failure.
type SweepResult struct {
	Examined  int
	Processed int
	Failed    int
	Errors    []SweepError
}

// SweepError records one failed subscription within a sweep
type SweepError struct {
	SubscriptionID string
	Error          string
}

// SubscriptionService manages the subscription lifecycle state machine
// and keeps due schedules synchronized with lifecycle events
type SubscriptionService interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (*models.Subscription, error)
	Update(ctx context.Context, req UpdateSubscriptionRequest) (*models.Subscription, error)
	Get(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	ListByContract(ctx context.Context, contractID string) ([]*models.Subscription, error)

	Activate(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	Pause(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	Cancel(ctx context.Context, subscriptionID string, effectiveDate *time.Time) (*models.Subscription, error)
	Renew(ctx context.Context, subscriptionID string, newEndDate time.Time) (*models.Subscription, error)
	Delete(ctx context.Context, subscriptionID string) error

	ProcessAutoRenewals(ctx context.Context, asOf time.Time) (*SweepResult, error)
	ProcessExpired(ctx context.Context, asOf time.Time) (*SweepResult, error)

	// HandleContractTerminated cancels every active subscription under the
	// contract, aligning end dates with the contract's end date
	HandleContractTerminated(ctx context.Context, contractID string) (*SweepResult, error)
}
