// Package tx declares the transaction contract used by domain services.
// The pgx implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs fn inside a transaction carried by ctx. A nil error
// commits, anything else rolls back. A nested call joins the outer
// transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager can also open read-only transactions.
type ReadOnlyManager interface {
	Manager

	// ReadOnly runs fn in a transaction that rejects writes.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnly runs fn read-only when m supports it and in an ordinary
// transaction otherwise. Several reads issued from fn see one snapshot.
func ReadOnly(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	if ro, ok := m.(ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return m.RunInTransaction(ctx, fn)
}
