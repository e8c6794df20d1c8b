package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// Handle is a pooled connection bound to one tenant's schema. Statement
// order issued through a single Handle is preserved; no ordering holds
// across handles or tenants. Callers must Release when done.
type Handle struct {
	Space tenant.Space

	conn  *pgxpool.Conn
	entry *entry
}

// Exec runs a statement on the tenant-scoped connection.
func (h *Handle) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	h.entry.touch()
	return h.conn.Exec(ctx, sql, args...)
}

// Query runs a query on the tenant-scoped connection.
func (h *Handle) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	h.entry.touch()
	return h.conn.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query on the tenant-scoped connection.
func (h *Handle) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	h.entry.touch()
	return h.conn.QueryRow(ctx, sql, args...)
}

// WithTx executes fn inside a transaction. The search_path is re-pinned to
// the tenant schema inside the transaction even though the pool already set
// it at connect time, so a leaked SET on the session cannot widen the scope.
func (h *Handle) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	h.entry.touch()

	tx, err := h.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, h.Space.SchemaName); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Release returns the connection to the tenant's pool.
func (h *Handle) Release() {
	if h.conn != nil {
		h.entry.touch()
		h.conn.Release()
		h.conn = nil
	}
}
