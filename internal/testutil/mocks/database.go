// Package mocks provides shared mock implementations for testing.
package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/subledger/billing-engine/internal/domain/ports"
)

// MockDBPort implements ports.DBPort for service tests. Transactions
// simply run the callback with a nil tx; repositories under test are
// mocked anyway and never touch it.
type MockDBPort struct{}

func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *MockDBPort) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// NopLogger discards all log output
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...ports.Field)  {}
func (NopLogger) Error(msg string, fields ...ports.Field) {}
func (NopLogger) Warn(msg string, fields ...ports.Field)  {}
func (NopLogger) Debug(msg string, fields ...ports.Field) {}
