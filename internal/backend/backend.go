// Package backend defines the capability the coordinator drives to effect
// migrations against a real database, independent of which SQL dialect or
// driver backs it. Grounded on the teacher's thin-wrapper-over-a-handle
// pattern (pebble.DB there, *sql.DB/*sql.Tx here): the Backend opens
// sessions, a Session carries one transaction's worth of work.
package backend

import (
	"context"

	"github.com/herenow/schemadag/internal/schema"
)

// Session is one coordinator operation's transaction boundary. The
// Coordinator, not the Backend, decides when a Session is committed or
// rolled back.
type Session interface {
	// Bootstrap idempotently ensures the ledger table exists and that the
	// hard-coded bootstrap migration id is recorded. Unlike the other
	// operations it is committed eagerly by the caller, immediately after
	// this call returns, so that a later failure never loses ledger
	// initialization.
	Bootstrap(ctx context.Context) error

	// ListInstalled reads the ledger and returns the set of installed
	// migration ids.
	ListInstalled(ctx context.Context) (map[string]bool, error)

	// ApplyMigration executes m.Apply, then records m.ID in the ledger.
	// Both effects occur in the same underlying transaction.
	ApplyMigration(ctx context.Context, m *schema.Migration) error

	// RevertMigration executes m.Revert (the caller must have already
	// checked m.HasRevert()), then removes m.ID from the ledger.
	RevertMigration(ctx context.Context, m *schema.Migration) error

	// Commit finalizes every effect performed on this session.
	Commit() error

	// Rollback discards every effect performed on this session.
	Rollback() error
}

// Backend opens Sessions against a concrete database. Implementations do
// not decide which migrations to apply, only how to apply them.
type Backend interface {
	// Begin opens a new Session bound to a fresh transaction.
	Begin(ctx context.Context) (Session, error)

	// Close releases the underlying connection. Safe to call once per
	// Backend, typically deferred immediately after Open.
	Close() error
}
