package domain

import "context"

// PendingTransactionRepository is the abstraction for any kind of store
// intended to persist the pending-transaction registry across reloads. The
// whole set is rewritten on every add/remove so that re-reading storage
// always reconstructs the registry.
type PendingTransactionRepository interface {
	// GetAll returns all persisted entries.
	GetAll(ctx context.Context) ([]*PendingTransaction, error)
	// Add persists the given entry.
	Add(ctx context.Context, tx *PendingTransaction) error
	// Remove evicts the entry with the given transaction id. Removing an
	// unknown id is a no-op.
	Remove(ctx context.Context, txID string) error
	// Wipe drops every persisted entry.
	Wipe(ctx context.Context) error
}

// DerivationIndexRepository persists the highest address index derived so
// far, so a fresh session can rederive the same set of addresses without
// user interaction. Absent means no address was ever derived.
type DerivationIndexRepository interface {
	// Get returns the cached index, or ok=false when absent.
	Get(ctx context.Context) (index int, ok bool, err error)
	// Set stores the cached index. The cached value never decreases; Set
	// with a smaller index is a no-op.
	Set(ctx context.Context, index int) error
	// Clear drops the cached index.
	Clear(ctx context.Context) error
}
