package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is master data maintained outside the billing engine.
// The engine only reads it for the analyzer's price fallback.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
