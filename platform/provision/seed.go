package provision

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atlasdesk/atlasdesk/platform/persistence"
	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// SeedDemoData creates a minimal consistent data set of one company, three
// customers and five tickets, so a tenant with no backup is immediately
// usable. It reports whether anything was written: a tenant that already has
// companies is left alone, which makes repeated recovery runs safe. Payloads
// are validated against the embedded row shapes before anything is written,
// and every statement goes through the safety builder so the forced
// tenant_id applies to seeded rows too.
func (m *RecoveryManager) SeedDemoData(ctx context.Context, id uuid.UUID) (bool, error) {
	schemaName := tenant.SchemaName(id)

	count, err := m.rowCount(ctx, schemaName, "companies")
	if err != nil {
		return false, err
	}
	if count > 0 {
		m.logger.Info("demo seed skipped, tenant has data",
			zap.String("tenant_id", id.String()),
			zap.Int64("companies", count),
		)
		return false, nil
	}

	m.transition(id, PhaseSeeding)

	statements, err := m.buildSeedStatements(ctx, id)
	if err != nil {
		return false, err
	}

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, schemaName); err != nil {
		return false, fmt.Errorf("set search_path: %w", err)
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
			return false, fmt.Errorf("seed %s: %w", schemaName, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit seed for %s: %w", schemaName, err)
	}

	m.logger.Info("demo data seeded", zap.String("tenant_id", id.String()))
	return true, nil
}

func (m *RecoveryManager) buildSeedStatements(ctx context.Context, id uuid.UUID) ([]persistence.Statement, error) {
	tenantID := id.String()

	companyID := uuid.New()
	company := map[string]any{
		"tenant_id": tenantID,
		"name":      "Demo Manufacturing Co",
		"industry":  "manufacturing",
	}
	if err := m.shapes.ValidateRow("company", company); err != nil {
		return nil, err
	}

	customers := []map[string]any{
		{"tenant_id": tenantID, "name": "Ada Fields", "email": "ada.fields@example.com", "is_active": true},
		{"tenant_id": tenantID, "name": "Ben Okafor", "email": "ben.okafor@example.com", "is_active": true},
		{"tenant_id": tenantID, "name": "Carla Reyes", "email": "carla.reyes@example.com", "is_active": true},
	}
	customerIDs := make([]uuid.UUID, len(customers))
	for i, c := range customers {
		if err := m.shapes.ValidateRow("customer", c); err != nil {
			return nil, err
		}
		customerIDs[i] = uuid.New()
	}

	tickets := []map[string]any{
		{"tenant_id": tenantID, "subject": "Cannot sign in after password reset", "status": "open", "priority": "high"},
		{"tenant_id": tenantID, "subject": "Invoice totals off by rounding", "status": "open", "priority": "normal"},
		{"tenant_id": tenantID, "subject": "Feature request: export to CSV", "status": "pending", "priority": "low"},
		{"tenant_id": tenantID, "subject": "Dashboard loads slowly on Mondays", "status": "open", "priority": "normal"},
		{"tenant_id": tenantID, "subject": "Warehouse scanner out of sync", "status": "resolved", "priority": "urgent"},
	}
	for _, t := range tickets {
		if err := m.shapes.ValidateRow("ticket", t); err != nil {
			return nil, err
		}
	}

	var statements []persistence.Statement

	stmt, err := m.builder.Insert(ctx, tenantID, "companies", map[string]any{
		"id":       companyID,
		"name":     company["name"],
		"industry": company["industry"],
	})
	if err != nil {
		return nil, err
	}
	statements = append(statements, stmt)

	for i, c := range customers {
		stmt, err := m.builder.Insert(ctx, tenantID, "customers", map[string]any{
			"id":         customerIDs[i],
			"company_id": companyID,
			"name":       c["name"],
			"email":      c["email"],
			"is_active":  c["is_active"],
		})
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	for i, t := range tickets {
		stmt, err := m.builder.Insert(ctx, tenantID, "tickets", map[string]any{
			"id":          uuid.New(),
			"customer_id": customerIDs[i%len(customerIDs)],
			"subject":     t["subject"],
			"status":      t["status"],
			"priority":    t["priority"],
		})
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	return statements, nil
}

func (m *RecoveryManager) rowCount(ctx context.Context, schemaName, table string) (int64, error) {
	var count int64
	sql := "SELECT count(*) FROM " + pgx.Identifier{schemaName, table}.Sanitize()
	if err := m.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s.%s: %w", schemaName, table, err)
	}
	return count, nil
}
