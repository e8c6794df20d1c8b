package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// ErrTenantNotFound marks a registry lookup for an unknown tenant.
var ErrTenantNotFound = errors.New("tenant not found in registry")

// RegistryStore is the PostgreSQL tenant registry. The registry table lives
// in the admin schema and is the source of truth for which tenants exist and
// whether they are active; the data access core reads it for validation and
// recovery, operational tooling also writes it.
type RegistryStore struct {
	pool        *pgxpool.Pool
	adminSchema string
}

// NewRegistryStore builds a store over the admin pool.
func NewRegistryStore(pool *pgxpool.Pool, adminSchema string) (*RegistryStore, error) {
	if pool == nil {
		return nil, errors.New("registry store requires a pool")
	}
	adminSchema = strings.TrimSpace(adminSchema)
	if adminSchema == "" {
		return nil, errors.New("registry store requires an admin schema")
	}
	return &RegistryStore{pool: pool, adminSchema: adminSchema}, nil
}

func (s *RegistryStore) table() string {
	return pgx.Identifier{s.adminSchema, "tenants"}.Sanitize()
}

// ListActive returns every active tenant, oldest first.
func (s *RegistryStore) ListActive(ctx context.Context) ([]tenant.Record, error) {
	query := fmt.Sprintf(`
        SELECT tenant_id, COALESCE(display_name, ''), schema_name, is_active, created_at
        FROM %s
        WHERE is_active
        ORDER BY created_at
    `, s.table())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var records []tenant.Record
	for rows.Next() {
		var rec tenant.Record
		if err := rows.Scan(&rec.TenantID, &rec.DisplayName, &rec.SchemaName, &rec.IsActive, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one tenant record.
func (s *RegistryStore) Get(ctx context.Context, id uuid.UUID) (tenant.Record, error) {
	query := fmt.Sprintf(`
        SELECT tenant_id, COALESCE(display_name, ''), schema_name, is_active, created_at
        FROM %s
        WHERE tenant_id = $1
    `, s.table())

	var rec tenant.Record
	err := s.pool.QueryRow(ctx, query, id).Scan(&rec.TenantID, &rec.DisplayName, &rec.SchemaName, &rec.IsActive, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.Record{}, fmt.Errorf("tenant %s: %w", id, ErrTenantNotFound)
	}
	if err != nil {
		return tenant.Record{}, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return rec, nil
}

// IsActive reports whether the tenant exists and is active. Unknown tenants
// report false without an error.
func (s *RegistryStore) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf("SELECT is_active FROM %s WHERE tenant_id = $1", s.table())

	var active bool
	err := s.pool.QueryRow(ctx, query, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check tenant %s activity: %w", id, err)
	}
	return active, nil
}

// Create inserts a registry entry. The schema name is always derived, never
// caller-supplied.
func (s *RegistryStore) Create(ctx context.Context, id uuid.UUID, displayName string) (tenant.Record, error) {
	if id == uuid.Nil {
		return tenant.Record{}, errors.New("tenant id is required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (tenant_id, display_name, schema_name, is_active)
        VALUES ($1, NULLIF($2, ''), $3, TRUE)
        RETURNING tenant_id, COALESCE(display_name, ''), schema_name, is_active, created_at
    `, s.table())

	var rec tenant.Record
	err := s.pool.QueryRow(ctx, query, id, displayName, tenant.SchemaName(id)).
		Scan(&rec.TenantID, &rec.DisplayName, &rec.SchemaName, &rec.IsActive, &rec.CreatedAt)
	if err != nil {
		return tenant.Record{}, fmt.Errorf("create tenant %s: %w", id, err)
	}
	return rec, nil
}

// SetActive flips the tenant's active flag.
func (s *RegistryStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := fmt.Sprintf("UPDATE %s SET is_active = $2 WHERE tenant_id = $1", s.table())

	tag, err := s.pool.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set tenant %s active=%t: %w", id, active, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s: %w", id, ErrTenantNotFound)
	}
	return nil
}

var _ tenant.Registry = (*RegistryStore)(nil)
