package provision

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	sqlassets "github.com/atlasdesk/atlasdesk/database"
	"github.com/atlasdesk/atlasdesk/platform/persistence"
	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// SchemaState classifies a tenant schema's health.
type SchemaState string

const (
	StateHealthy SchemaState = "healthy"
	StateMissing SchemaState = "missing"
	StateCorrupt SchemaState = "corrupt"
)

// RecoveryPhase labels the step a tenant is going through. Transitions:
// diagnosing -> recreating -> restoring_from_backup | seeding_demo_data ->
// verified.
type RecoveryPhase string

const (
	PhaseDiagnosing RecoveryPhase = "diagnosing"
	PhaseRecreating RecoveryPhase = "recreating"
	PhaseRestoring  RecoveryPhase = "restoring_from_backup"
	PhaseSeeding    RecoveryPhase = "seeding_demo_data"
	PhaseVerified   RecoveryPhase = "verified"
)

// RecoveryConfig tunes the recovery manager.
type RecoveryConfig struct {
	// RatePerSecond throttles per-tenant recovery in the complete-recovery
	// batch so a cluster-wide incident does not turn into a DDL stampede.
	RatePerSecond float64
}

const defaultRecoveryRate = 2.0

// RecoveryManager diagnoses and repairs tenant schemas: recreates lost
// structure, restores rows from the newest backup schema, or seeds a minimal
// demo data set when no backup exists. All DDL is idempotent, so concurrent
// recovery attempts converge instead of racing destructively.
type RecoveryManager struct {
	pool        *pgxpool.Pool
	registry    tenant.Registry
	builder     *persistence.Builder
	indexes     *Provisioner
	shapes      *ShapeValidator
	shapeTables []string
	logger      *zap.Logger
	limiter     *rate.Limiter
}

// NewRecoveryManager wires the recovery manager. All dependencies are
// required except cfg knobs, which have defaults.
func NewRecoveryManager(pool *pgxpool.Pool, registry tenant.Registry, builder *persistence.Builder, indexes *Provisioner, logger *zap.Logger, cfg RecoveryConfig) *RecoveryManager {
	if pool == nil {
		panic("recovery manager requires a pool")
	}
	if registry == nil {
		panic("recovery manager requires a tenant registry")
	}
	if builder == nil {
		panic("recovery manager requires a query builder")
	}
	if indexes == nil {
		panic("recovery manager requires an index provisioner")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRecoveryRate
	}

	return &RecoveryManager{
		pool:        pool,
		registry:    registry,
		builder:     builder,
		indexes:     indexes,
		shapes:      NewShapeValidator(),
		shapeTables: ShapeTables,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

func (m *RecoveryManager) transition(id uuid.UUID, phase RecoveryPhase) {
	m.logger.Info("schema recovery transition",
		zap.String("tenant_id", id.String()),
		zap.String("phase", string(phase)),
	)
}

// RecreateStructure issues idempotent DDL for the tenant's schema: the
// schema itself, the core table set, and the index catalog.
func (m *RecoveryManager) RecreateStructure(ctx context.Context, id uuid.UUID) error {
	schemaName := tenant.SchemaName(id)
	m.transition(id, PhaseRecreating)

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schemaName}.Sanitize()); err != nil {
		return fmt.Errorf("create schema %s: %w", schemaName, err)
	}
	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, schemaName); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	for _, stmt := range persistence.SplitStatements(sqlassets.CoreTablesSQL) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("recreate tables in %s: %w", schemaName, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit structure for %s: %w", schemaName, err)
	}

	// Index failures are non-fatal per index and already logged.
	if _, _, err := m.indexes.EnsureIndexes(ctx, schemaName); err != nil {
		return fmt.Errorf("ensure indexes for %s: %w", schemaName, err)
	}

	return nil
}

// RecoverFromBackup locates the newest backup schema for the tenant and
// copies rows table-by-table with conflict-tolerant inserts, skipping rows
// whose primary key already exists. It reports whether a backup was found
// and applied.
func (m *RecoveryManager) RecoverFromBackup(ctx context.Context, id uuid.UUID) (bool, error) {
	backupSchema, err := m.latestBackupSchema(ctx, id)
	if err != nil {
		return false, err
	}
	if backupSchema == "" {
		m.logger.Info("no backup schema found",
			zap.String("tenant_id", id.String()),
		)
		return false, nil
	}

	m.transition(id, PhaseRestoring)
	schemaName := tenant.SchemaName(id)

	copied := 0
	for _, table := range sqlassets.CoreTables {
		exists, err := m.tableExists(ctx, backupSchema, table)
		if err != nil {
			return copied > 0, err
		}
		if !exists {
			continue
		}

		columns := joinColumns(sqlassets.TableColumns[table])
		sql := fmt.Sprintf(
			"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (id) DO NOTHING",
			pgx.Identifier{schemaName, table}.Sanitize(), columns,
			columns, pgx.Identifier{backupSchema, table}.Sanitize(),
		)
		tag, err := m.pool.Exec(ctx, sql)
		if err != nil {
			m.logger.Warn("backup table restore failed",
				zap.String("tenant_id", id.String()),
				zap.String("backup_schema", backupSchema),
				zap.String("table", table),
				zap.Error(err),
			)
			continue
		}
		copied++
		m.logger.Info("backup table restored",
			zap.String("tenant_id", id.String()),
			zap.String("table", table),
			zap.Int64("rows", tag.RowsAffected()),
		)
	}

	return copied > 0, nil
}

// latestBackupSchema returns the newest backup schema name for a tenant, or
// empty when none exists. Candidates are matched by prefix and then strictly
// parsed, so a stray schema cannot be mistaken for a backup.
func (m *RecoveryManager) latestBackupSchema(ctx context.Context, id uuid.UUID) (string, error) {
	prefix := tenant.BackupSchemaPrefix(id)

	rows, err := m.pool.Query(ctx, `
        SELECT schema_name
        FROM information_schema.schemata
        WHERE schema_name LIKE $1
    `, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("list backup schemas: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		name string
		at   time.Time
	}
	var candidates []candidate
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan backup schema: %w", err)
		}
		owner, at, err := tenant.ParseBackupSchema(name)
		if err != nil || owner != id {
			continue
		}
		candidates = append(candidates, candidate{name: name, at: at})
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].at.After(candidates[j].at) })
	return candidates[0].name, nil
}

func (m *RecoveryManager) tableExists(ctx context.Context, schemaName, table string) (bool, error) {
	var exists bool
	err := m.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
            FROM pg_class c
            JOIN pg_namespace n ON n.oid = c.relnamespace
            WHERE n.nspname = $1 AND c.relname = $2
        )`, schemaName, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s.%s: %w", schemaName, table, err)
	}
	return exists, nil
}

func (m *RecoveryManager) schemaExists(ctx context.Context, schemaName string) (bool, error) {
	var exists bool
	err := m.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)",
		schemaName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check schema %s: %w", schemaName, err)
	}
	return exists, nil
}

func joinColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
