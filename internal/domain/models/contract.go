package models

import "time"

// ContractStatus represents the current state of a contract
type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusTerminated ContractStatus = "TERMINATED"
)

// Contract is the parent aggregate for one or more subscriptions,
// owned by one customer. Termination cascades a cancellation
// requirement onto all child subscriptions.
type Contract struct {
	ID         string
	CustomerID string
	Number     string
	Status     ContractStatus
	StartDate  time.Time
	EndDate    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// IsActive reports whether the contract is active and not soft-deleted
func (c *Contract) IsActive() bool {
	return c.Status == ContractStatusActive && c.DeletedAt == nil
}
