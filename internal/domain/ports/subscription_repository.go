package ports

import (
	"context"
	"time"

	"github.com/subledger/billing-engine/internal/domain/models"
)

// SubscriptionRepository defines the interface for subscription persistence.
// All listing queries exclude soft-deleted rows.
type SubscriptionRepository interface {
	// Create creates a new subscription
	Create(ctx context.Context, tx DBTX, subscription *models.Subscription) error

	// GetByID retrieves a subscription by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*models.Subscription, error)

	// Update updates subscription fields
	Update(ctx context.Context, tx DBTX, subscription *models.Subscription) error

	// SoftDelete marks a subscription deleted without removing the row
	SoftDelete(ctx context.Context, tx DBTX, id string, deletedAt time.Time) error

	// ListByContract lists subscriptions belonging to a contract
	ListByContract(ctx context.Context, db DBTX, contractID string) ([]*models.Subscription, error)

	// ListByStatus lists subscriptions in a given status
	ListByStatus(ctx context.Context, db DBTX, status models.SubscriptionStatus) ([]*models.Subscription, error)

	// ListDueForAutoRenewal lists active auto-renewing subscriptions whose
	// end date falls within [from, to]
	ListDueForAutoRenewal(ctx context.Context, db DBTX, from, to time.Time) ([]*models.Subscription, error)

	// ListExpired lists active subscriptions past their end date with
	// auto-renewal disabled
	ListExpired(ctx context.Context, db DBTX, asOf time.Time) ([]*models.Subscription, error)

	// ListActiveWithTerminatedContract lists active subscriptions whose
	// parent contract is terminated (repair query)
	ListActiveWithTerminatedContract(ctx context.Context, db DBTX) ([]*models.Subscription, error)

	// CountByNumber counts subscriptions carrying the given number
	CountByNumber(ctx context.Context, db DBTX, number string) (int64, error)
}
