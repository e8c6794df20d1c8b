package persistence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	sqlassets "github.com/atlasdesk/atlasdesk/database"
	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// Statement is a parameterized SQL statement produced by the safety builder.
// Every statement carries a tenant_id predicate by construction.
type Statement struct {
	SQL  string
	Args []any
}

// Builder constructs tenant-safe statements. Schema-per-tenant already
// isolates data physically; the builder is a second, independent layer so a
// connection pointed at the wrong schema still cannot read foreign rows.
// Table and column identifiers are restricted to the embedded catalog, which
// also closes off injection through forged identifiers.
type Builder struct {
	validator *tenant.Validator
	logger    *zap.Logger
	columns   map[string]map[string]struct{}
}

// NewBuilder builds a Builder over the core table catalog.
func NewBuilder(validator *tenant.Validator, logger *zap.Logger) *Builder {
	if validator == nil {
		panic("query builder requires a tenant validator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	columns := make(map[string]map[string]struct{}, len(sqlassets.TableColumns))
	for table, cols := range sqlassets.TableColumns {
		set := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			set[c] = struct{}{}
		}
		columns[table] = set
	}

	return &Builder{validator: validator, logger: logger, columns: columns}
}

// Select builds a SELECT constrained to the tenant's rows. columns may be
// empty to select the table's full allowlisted column set. where holds
// equality conditions; orderBy and limit are optional (empty / zero).
func (b *Builder) Select(ctx context.Context, tenantID, table string, columns []string, where map[string]any, orderBy string, limit int) (Statement, error) {
	id, err := b.validator.Validate(ctx, tenantID, "build_select")
	if err != nil {
		return Statement{}, err
	}
	if err := b.checkTable(table); err != nil {
		return Statement{}, err
	}

	if len(columns) == 0 {
		columns = sqlassets.TableColumns[table]
	}
	for _, c := range columns {
		if err := b.checkColumn(table, c); err != nil {
			return Statement{}, err
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(joinIdentifiers(columns))
	sb.WriteString(" FROM ")
	sb.WriteString(pgx.Identifier{table}.Sanitize())

	args := make([]any, 0, len(where)+1)
	predicate, args, err := b.wherePredicate(table, where, args, id)
	if err != nil {
		return Statement{}, err
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(predicate)

	if orderBy != "" {
		if err := b.checkColumn(table, orderBy); err != nil {
			return Statement{}, err
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(pgx.Identifier{orderBy}.Sanitize())
	}
	if limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(limit))
	}

	return Statement{SQL: sb.String(), Args: args}, nil
}

// Insert builds an INSERT whose tenant_id is forced to the validated tenant,
// overriding any caller-supplied value for that column.
func (b *Builder) Insert(ctx context.Context, tenantID, table string, values map[string]any) (Statement, error) {
	id, err := b.validator.Validate(ctx, tenantID, "build_insert")
	if err != nil {
		return Statement{}, err
	}
	if err := b.checkTable(table); err != nil {
		return Statement{}, err
	}
	if len(values) == 0 {
		return Statement{}, fmt.Errorf("insert into %s: no values", table)
	}

	row := make(map[string]any, len(values)+1)
	for col, val := range values {
		if err := b.checkColumn(table, col); err != nil {
			return Statement{}, err
		}
		row[col] = val
	}
	row["tenant_id"] = id

	columns := sortedKeys(row)
	args := make([]any, 0, len(columns))
	placeholders := make([]string, 0, len(columns))
	for i, col := range columns {
		args = append(args, row[col])
		placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		joinIdentifiers(columns),
		strings.Join(placeholders, ", "),
	)

	return Statement{SQL: sql, Args: args}, nil
}

// Update builds an UPDATE constrained to the tenant's rows. Assignments to
// tenant_id are dropped: row ownership never moves between tenants.
func (b *Builder) Update(ctx context.Context, tenantID, table string, set map[string]any, where map[string]any) (Statement, error) {
	id, err := b.validator.Validate(ctx, tenantID, "build_update")
	if err != nil {
		return Statement{}, err
	}
	if err := b.checkTable(table); err != nil {
		return Statement{}, err
	}

	assignments := make(map[string]any, len(set))
	for col, val := range set {
		if col == "tenant_id" {
			continue
		}
		if err := b.checkColumn(table, col); err != nil {
			return Statement{}, err
		}
		assignments[col] = val
	}
	if len(assignments) == 0 {
		return Statement{}, fmt.Errorf("update %s: no assignable columns", table)
	}

	columns := sortedKeys(assignments)
	args := make([]any, 0, len(columns)+len(where)+1)
	setClauses := make([]string, 0, len(columns))
	for _, col := range columns {
		args = append(args, assignments[col])
		setClauses = append(setClauses, pgx.Identifier{col}.Sanitize()+" = $"+strconv.Itoa(len(args)))
	}

	predicate, args, err := b.wherePredicate(table, where, args, id)
	if err != nil {
		return Statement{}, err
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(setClauses, ", "),
		predicate,
	)

	return Statement{SQL: sql, Args: args}, nil
}

// Delete builds a DELETE constrained to the tenant's rows.
func (b *Builder) Delete(ctx context.Context, tenantID, table string, where map[string]any) (Statement, error) {
	id, err := b.validator.Validate(ctx, tenantID, "build_delete")
	if err != nil {
		return Statement{}, err
	}
	if err := b.checkTable(table); err != nil {
		return Statement{}, err
	}

	args := make([]any, 0, len(where)+1)
	predicate, args, err := b.wherePredicate(table, where, args, id)
	if err != nil {
		return Statement{}, err
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", pgx.Identifier{table}.Sanitize(), predicate)
	return Statement{SQL: sql, Args: args}, nil
}

// wherePredicate renders caller conditions plus the unconditional tenant
// predicate, appending bound values to args.
func (b *Builder) wherePredicate(table string, where map[string]any, args []any, id uuid.UUID) (string, []any, error) {
	clauses := make([]string, 0, len(where)+1)
	for _, col := range sortedKeys(where) {
		if err := b.checkColumn(table, col); err != nil {
			return "", nil, err
		}
		args = append(args, where[col])
		clauses = append(clauses, pgx.Identifier{col}.Sanitize()+" = $"+strconv.Itoa(len(args)))
	}

	args = append(args, id)
	clauses = append(clauses, pgx.Identifier{"tenant_id"}.Sanitize()+" = $"+strconv.Itoa(len(args)))

	return strings.Join(clauses, " AND "), args, nil
}

func (b *Builder) checkTable(table string) error {
	if _, ok := b.columns[table]; !ok {
		return fmt.Errorf("table %q is not in the tenant table catalog", table)
	}
	return nil
}

func (b *Builder) checkColumn(table, column string) error {
	if _, ok := b.columns[table][column]; !ok {
		return fmt.Errorf("column %q is not in the catalog for table %q", column, table)
	}
	return nil
}

func joinIdentifiers(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
