package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// IndexDescriptor declares one required composite index. Every index leads
// with tenant_id so lookups stay selective even if a query ever runs against
// the wrong schema.
type IndexDescriptor struct {
	Table     string
	Columns   []string // without the leading tenant_id
	Predicate string   // optional partial-index predicate
}

// Name renders the index name following <table>_tenant_<columns>_idx.
func (d IndexDescriptor) Name() string {
	return d.Table + "_tenant_" + strings.Join(d.Columns, "_") + "_idx"
}

// CreateSQL renders the idempotent creation statement for one schema.
func (d IndexDescriptor) CreateSQL(schemaName string) string {
	columns := append([]string{"tenant_id"}, d.Columns...)
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		pgx.Identifier{d.Name()}.Sanitize(),
		pgx.Identifier{schemaName, d.Table}.Sanitize(),
		strings.Join(quoted, ", "),
	)
	if d.Predicate != "" {
		sql += " WHERE " + d.Predicate
	}
	return sql
}

// Catalog is the fixed set of composite indexes every tenant schema needs.
// Partial predicates keep the hot subsets small: open tickets, active
// customers, published articles, unsettled expenses.
func Catalog() []IndexDescriptor {
	return []IndexDescriptor{
		{Table: "tickets", Columns: []string{"status"}, Predicate: "status <> 'closed'"},
		{Table: "tickets", Columns: []string{"customer_id"}},
		{Table: "tickets", Columns: []string{"created_at"}},
		{Table: "customers", Columns: []string{"email"}, Predicate: "is_active"},
		{Table: "customers", Columns: []string{"company_id"}},
		{Table: "activity_logs", Columns: []string{"created_at"}},
		{Table: "expense_reports", Columns: []string{"status"}, Predicate: "status = 'submitted'"},
		{Table: "knowledge_articles", Columns: []string{"is_published"}, Predicate: "is_published"},
		{Table: "ticket_templates", Columns: []string{"name"}},
	}
}

// IndexError records one failed index creation. Per-index failures are
// non-fatal; provisioning is a best-effort batch, not a transaction.
type IndexError struct {
	Schema string
	Index  string
	Err    error
}

func (e IndexError) Error() string {
	return fmt.Sprintf("create index %s in %s: %v", e.Index, e.Schema, e.Err)
}

func (e IndexError) Unwrap() error { return e.Err }

// Provisioner applies and verifies the index catalog per tenant schema.
type Provisioner struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewProvisioner builds a Provisioner over the admin pool.
func NewProvisioner(pool *pgxpool.Pool, logger *zap.Logger) *Provisioner {
	if pool == nil {
		panic("index provisioner requires a pool")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{pool: pool, logger: logger}
}

// EnsureIndexes applies the catalog to one tenant schema. Creation is
// idempotent; a failure on one index (e.g., the table does not yet exist in
// an older schema) is logged and the batch continues. The applied count and
// the per-index failures are both returned.
func (p *Provisioner) EnsureIndexes(ctx context.Context, schemaName string) (int, []IndexError, error) {
	if _, err := tenant.TenantIDFromSchema(schemaName); err != nil {
		return 0, nil, fmt.Errorf("ensure indexes: %w", err)
	}

	applied := 0
	var failures []IndexError
	tables := make(map[string]struct{})

	for _, desc := range Catalog() {
		if _, err := p.pool.Exec(ctx, desc.CreateSQL(schemaName)); err != nil {
			failure := IndexError{Schema: schemaName, Index: desc.Name(), Err: err}
			failures = append(failures, failure)
			p.logger.Warn("index creation failed",
				zap.String("schema", schemaName),
				zap.String("index", desc.Name()),
				zap.Error(err),
			)
			continue
		}
		applied++
		tables[desc.Table] = struct{}{}
	}

	// Refresh planner statistics for the tables we just indexed. Advisory:
	// a failed ANALYZE is logged, not returned.
	for table := range tables {
		if _, err := p.pool.Exec(ctx, "ANALYZE "+pgx.Identifier{schemaName, table}.Sanitize()); err != nil {
			p.logger.Warn("analyze failed",
				zap.String("schema", schemaName),
				zap.String("table", table),
				zap.Error(err),
			)
		}
	}

	p.logger.Info("index catalog applied",
		zap.String("schema", schemaName),
		zap.Int("applied", applied),
		zap.Int("failed", len(failures)),
	)

	return applied, failures, nil
}

// Verify counts indexes matching the tenant naming convention and compares
// against the catalog size, returning a boolean health signal.
func (p *Provisioner) Verify(ctx context.Context, schemaName string) (bool, error) {
	if _, err := tenant.TenantIDFromSchema(schemaName); err != nil {
		return false, fmt.Errorf("verify indexes: %w", err)
	}

	var count int
	err := p.pool.QueryRow(ctx, `
        SELECT count(*)
        FROM pg_indexes
        WHERE schemaname = $1
          AND indexname LIKE '%\_tenant\_%\_idx'
    `, schemaName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count tenant indexes in %s: %w", schemaName, err)
	}

	return count >= len(Catalog()), nil
}
