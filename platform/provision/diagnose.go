package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// CorruptSchema details why a tenant schema was flagged Corrupt.
type CorruptSchema struct {
	TenantID uuid.UUID
	Issues   []string
}

// DiagnosisReport is the outcome of a full schema sweep against the tenant
// registry.
type DiagnosisReport struct {
	CheckedAt time.Time
	Healthy   []uuid.UUID
	Missing   []uuid.UUID
	Corrupt   []CorruptSchema
}

// Degraded reports whether any tenant needs repair.
func (r DiagnosisReport) Degraded() bool {
	return len(r.Missing) > 0 || len(r.Corrupt) > 0
}

// Diagnose enumerates existing tenant schemas against the registry. Registry
// entries with no matching schema are Missing; schemas whose core tables
// fail the embedded shape check are Corrupt.
func (m *RecoveryManager) Diagnose(ctx context.Context) (DiagnosisReport, error) {
	report := DiagnosisReport{CheckedAt: time.Now().UTC()}

	records, err := m.registry.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("diagnose: %w", err)
	}

	existing, err := m.tenantSchemas(ctx)
	if err != nil {
		return report, fmt.Errorf("diagnose: %w", err)
	}

	for _, rec := range records {
		m.transition(rec.TenantID, PhaseDiagnosing)

		if _, ok := existing[rec.SchemaName]; !ok {
			report.Missing = append(report.Missing, rec.TenantID)
			m.logger.Warn("tenant schema missing",
				zap.String("tenant_id", rec.TenantID.String()),
				zap.String("schema", rec.SchemaName),
			)
			continue
		}

		issues, err := m.checkShapes(ctx, rec.SchemaName)
		if err != nil {
			// One tenant's failed check must not abort the sweep for the
			// rest; report it as corrupt and move on.
			report.Corrupt = append(report.Corrupt, CorruptSchema{
				TenantID: rec.TenantID,
				Issues:   []string{fmt.Sprintf("shape check failed: %v", err)},
			})
			m.logger.Error("tenant shape check failed",
				zap.String("tenant_id", rec.TenantID.String()),
				zap.String("schema", rec.SchemaName),
				zap.Error(err),
			)
			continue
		}
		if len(issues) > 0 {
			report.Corrupt = append(report.Corrupt, CorruptSchema{TenantID: rec.TenantID, Issues: issues})
			m.logger.Warn("tenant schema corrupt",
				zap.String("tenant_id", rec.TenantID.String()),
				zap.Strings("issues", issues),
			)
			continue
		}

		report.Healthy = append(report.Healthy, rec.TenantID)
	}

	m.logger.Info("diagnosis complete",
		zap.Int("healthy", len(report.Healthy)),
		zap.Int("missing", len(report.Missing)),
		zap.Int("corrupt", len(report.Corrupt)),
	)

	return report, nil
}

// tenantSchemas returns the set of tenant-owned schemas present in the
// database, keyed by schema name.
func (m *RecoveryManager) tenantSchemas(ctx context.Context) (map[string]uuid.UUID, error) {
	rows, err := m.pool.Query(ctx, `
        SELECT schema_name
        FROM information_schema.schemata
        WHERE schema_name LIKE 'tenant\_%'
    `)
	if err != nil {
		return nil, fmt.Errorf("list tenant schemas: %w", err)
	}
	defer rows.Close()

	schemas := make(map[string]uuid.UUID)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		id, err := tenant.TenantIDFromSchema(name)
		if err != nil {
			continue // not a tenant schema, e.g. a manual scratch schema
		}
		schemas[name] = id
	}
	return schemas, rows.Err()
}

// checkShapes validates each core table's live column inventory against the
// embedded shape schemas. A missing table and a wrong column set are both
// reported as issues rather than errors.
func (m *RecoveryManager) checkShapes(ctx context.Context, schemaName string) ([]string, error) {
	var issues []string
	for _, table := range m.shapeTables {
		columns, err := m.tableColumns(ctx, schemaName, table)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			issues = append(issues, fmt.Sprintf("table %s missing", table))
			continue
		}
		if err := m.shapes.ValidateColumns(table, columns); err != nil {
			issues = append(issues, fmt.Sprintf("table %s shape mismatch", table))
		}
	}
	return issues, nil
}

func (m *RecoveryManager) tableColumns(ctx context.Context, schemaName, table string) ([]ColumnInfo, error) {
	rows, err := m.pool.Query(ctx, `
        SELECT column_name, data_type
        FROM information_schema.columns
        WHERE table_schema = $1 AND table_name = $2
        ORDER BY ordinal_position
    `, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schemaName, table, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
