// Package postgres implements internal/backend against PostgreSQL via
// database/sql and lib/pq. Grounded on the teacher's OpenDatabase wrapper
// (commands/common.go) for connection lifecycle, and on jjeffery-migration's
// Command/transact pattern (Begin, run the body, Commit-or-Rollback) for
// session semantics.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/herenow/schemadag/internal/backend"
	"github.com/herenow/schemadag/internal/schema"
)

const bootstrapSQL = `
CREATE TABLE IF NOT EXISTS installed_migrations (
	migration_id TEXT PRIMARY KEY
);
INSERT INTO installed_migrations (migration_id) VALUES ('root') ON CONFLICT DO NOTHING;
`

// Open connects to dsn (a postgres:// connection string) and returns a
// ready Backend. The caller must Close it.
func Open(dsn string) (backend.Backend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, schema.NewSQLError(err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, schema.NewSQLError(err)
	}
	return &Backend{db: db}, nil
}

// NewBackend wraps an already-opened *sql.DB. Exposed separately from Open
// so tests can drive the transactional behavior below against a
// go-sqlmock database instead of a live connection string.
func NewBackend(db *sql.DB) backend.Backend {
	return &Backend{db: db}
}

// Backend is the postgres-backed implementation of backend.Backend.
type Backend struct {
	db *sql.DB
}

// Begin opens a new session bound to a fresh *sql.Tx.
func (b *Backend) Begin(ctx context.Context) (backend.Session, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, schema.NewSQLError(err)
	}
	return &session{tx: tx}, nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	if err := b.db.Close(); err != nil {
		return schema.NewSQLError(err)
	}
	return nil
}

// session wraps a single *sql.Tx for the lifetime of one coordinator
// operation.
type session struct {
	tx *sql.Tx
}

func (s *session) Bootstrap(ctx context.Context) error {
	if _, err := s.tx.ExecContext(ctx, bootstrapSQL); err != nil {
		return schema.NewSQLError(err)
	}
	return nil
}

func (s *session) ListInstalled(ctx context.Context) (map[string]bool, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT migration_id FROM installed_migrations`)
	if err != nil {
		return nil, schema.NewSQLError(err)
	}
	defer rows.Close()

	installed := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, schema.NewSQLError(err)
		}
		installed[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewSQLError(err)
	}
	return installed, nil
}

func (s *session) ApplyMigration(ctx context.Context, m *schema.Migration) error {
	if _, err := s.tx.ExecContext(ctx, m.Apply); err != nil {
		return schema.NewSQLError(err)
	}
	if _, err := s.tx.ExecContext(ctx, `INSERT INTO installed_migrations (migration_id) VALUES ($1)`, m.ID); err != nil {
		return schema.NewSQLError(err)
	}
	return nil
}

func (s *session) RevertMigration(ctx context.Context, m *schema.Migration) error {
	if _, err := s.tx.ExecContext(ctx, m.Revert); err != nil {
		return schema.NewSQLError(err)
	}
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM installed_migrations WHERE migration_id = $1`, m.ID); err != nil {
		return schema.NewSQLError(err)
	}
	return nil
}

func (s *session) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return schema.NewSQLError(err)
	}
	return nil
}

func (s *session) Rollback() error {
	if err := s.tx.Rollback(); err != nil {
		return schema.NewSQLError(err)
	}
	return nil
}
