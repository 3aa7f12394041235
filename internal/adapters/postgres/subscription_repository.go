package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/subledger/billing-engine/internal/domain/models"
	domain "github.com/subledger/billing-engine/internal/domain/ports"
)

// SubscriptionRepository implements ports.SubscriptionRepository
type SubscriptionRepository struct {
	baseRepo
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db domain.DBPort) *SubscriptionRepository {
	return &SubscriptionRepository{baseRepo{db: db}}
}

const subscriptionColumns = `s.id::text, s.contract_id::text, s.product_id::text, s.number, s.product_name,
	s.monthly_price, s.start_date, s.end_date, s.billing_cycle, s.status, s.auto_renew,
	s.created_at, s.updated_at, s.cancelled_at, s.deleted_at`

// Create creates a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, tx domain.DBTX, sub *models.Subscription) error {
	price, err := decimalToNumeric(sub.MonthlyPrice)
	if err != nil {
		return err
	}
	_, err = r.queryer(tx).Exec(ctx, `
		INSERT INTO subscriptions (id, contract_id, product_id, number, product_name, monthly_price,
			start_date, end_date, billing_cycle, status, auto_renew, created_at, updated_at, cancelled_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		sub.ID, sub.ContractID, nullTextPtr(sub.ProductID), sub.Number, sub.ProductName, price,
		sub.StartDate, nullDate(sub.EndDate), string(sub.BillingCycle), string(sub.Status), sub.AutoRenew,
		sub.CreatedAt, sub.UpdatedAt, nullTime(sub.CancelledAt), nullTime(sub.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription by its ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, db domain.DBTX, id string) (*models.Subscription, error) {
	row := r.queryer(db).QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions s WHERE s.id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("get subscription by id: %w", err)
	}
	return sub, nil
}

// Update updates subscription fields
func (r *SubscriptionRepository) Update(ctx context.Context, tx domain.DBTX, sub *models.Subscription) error {
	price, err := decimalToNumeric(sub.MonthlyPrice)
	if err != nil {
		return err
	}
	_, err = r.queryer(tx).Exec(ctx, `
		UPDATE subscriptions
		SET product_name = $2, monthly_price = $3, start_date = $4, end_date = $5,
			billing_cycle = $6, status = $7, auto_renew = $8, updated_at = $9, cancelled_at = $10
		WHERE id = $1`,
		sub.ID, sub.ProductName, price, sub.StartDate, nullDate(sub.EndDate),
		string(sub.BillingCycle), string(sub.Status), sub.AutoRenew, sub.UpdatedAt, nullTime(sub.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// SoftDelete marks a subscription deleted without removing the row
func (r *SubscriptionRepository) SoftDelete(ctx context.Context, tx domain.DBTX, id string, deletedAt time.Time) error {
	_, err := r.queryer(tx).Exec(ctx,
		`UPDATE subscriptions SET deleted_at = $2, updated_at = $2 WHERE id = $1`, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete subscription: %w", err)
	}
	return nil
}

// ListByContract lists subscriptions belonging to a contract
func (r *SubscriptionRepository) ListByContract(ctx context.Context, db domain.DBTX, contractID string) ([]*models.Subscription, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions s
		 WHERE s.contract_id = $1 AND s.deleted_at IS NULL
		 ORDER BY s.created_at`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by contract: %w", err)
	}
	return collectSubscriptions(rows)
}

// ListByStatus lists subscriptions in a given status
func (r *SubscriptionRepository) ListByStatus(ctx context.Context, db domain.DBTX, status models.SubscriptionStatus) ([]*models.Subscription, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions s
		 WHERE s.status = $1 AND s.deleted_at IS NULL
		 ORDER BY s.created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by status: %w", err)
	}
	return collectSubscriptions(rows)
}

// ListDueForAutoRenewal lists active auto-renewing subscriptions whose
// end date falls within [from, to]
func (r *SubscriptionRepository) ListDueForAutoRenewal(ctx context.Context, db domain.DBTX, from, to time.Time) ([]*models.Subscription, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions s
		 WHERE s.status = $1 AND s.auto_renew AND s.deleted_at IS NULL
		   AND s.end_date IS NOT NULL AND s.end_date BETWEEN $2 AND $3
		 ORDER BY s.end_date`, string(models.SubStatusActive), from, to)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions due for auto-renewal: %w", err)
	}
	return collectSubscriptions(rows)
}

// ListExpired lists active subscriptions past their end date with
// auto-renewal disabled
func (r *SubscriptionRepository) ListExpired(ctx context.Context, db domain.DBTX, asOf time.Time) ([]*models.Subscription, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions s
		 WHERE s.status = $1 AND NOT s.auto_renew AND s.deleted_at IS NULL
		   AND s.end_date IS NOT NULL AND s.end_date < $2
		 ORDER BY s.end_date`, string(models.SubStatusActive), asOf)
	if err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

// ListActiveWithTerminatedContract lists active subscriptions whose
// parent contract is terminated
func (r *SubscriptionRepository) ListActiveWithTerminatedContract(ctx context.Context, db domain.DBTX) ([]*models.Subscription, error) {
	rows, err := r.queryer(db).Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions s
		 JOIN contracts c ON c.id = s.contract_id
		 WHERE s.status = $1 AND s.deleted_at IS NULL AND c.status = $2
		 ORDER BY s.created_at`,
		string(models.SubStatusActive), string(models.ContractStatusTerminated))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions with terminated contract: %w", err)
	}
	return collectSubscriptions(rows)
}

// CountByNumber counts subscriptions carrying the given number
func (r *SubscriptionRepository) CountByNumber(ctx context.Context, db domain.DBTX, number string) (int64, error) {
	var count int64
	err := r.queryer(db).QueryRow(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE number = $1`, number).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count subscriptions by number: %w", err)
	}
	return count, nil
}

func scanSubscription(row interface{ Scan(...interface{}) error }) (*models.Subscription, error) {
	var (
		s           models.Subscription
		productID   pgtype.Text
		price       pgtype.Numeric
		endDate     pgtype.Date
		cycle       string
		status      string
		cancelledAt pgtype.Timestamptz
		deletedAt   pgtype.Timestamptz
	)
	err := row.Scan(&s.ID, &s.ContractID, &productID, &s.Number, &s.ProductName,
		&price, &s.StartDate, &endDate, &cycle, &status, &s.AutoRenew,
		&s.CreatedAt, &s.UpdatedAt, &cancelledAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if s.MonthlyPrice, err = numericToDecimal(price); err != nil {
		return nil, err
	}
	s.ProductID = textPtr(productID)
	s.EndDate = datePtr(endDate)
	s.BillingCycle = models.BillingCycle(cycle)
	s.Status = models.SubscriptionStatus(status)
	s.CancelledAt = timePtr(cancelledAt)
	s.DeletedAt = timePtr(deletedAt)
	return &s, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*models.Subscription, error) {
	defer rows.Close()
	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
