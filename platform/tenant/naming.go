package tenant

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schema names are derived, never stored: tenant_<uuid with hyphens replaced
// by underscores>. The mapping is deterministic, collision-free, and
// reversible, so operational tooling can always recover the owning tenant
// from a schema it finds in the catalog.

const (
	schemaPrefix       = "tenant_"
	backupSchemaPrefix = "backup_tenant_"

	// canonical UUID string length; underscored form is the same length.
	uuidLen = 36
)

// SchemaName returns the canonical PostgreSQL schema name for a tenant.
func SchemaName(id uuid.UUID) string {
	return schemaPrefix + strings.ReplaceAll(id.String(), "-", "_")
}

// TenantIDFromSchema inverts SchemaName. It fails on anything that is not a
// well-formed tenant schema name.
func TenantIDFromSchema(schema string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(schema, schemaPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("schema %q lacks the %q prefix", schema, schemaPrefix)
	}
	if len(rest) != uuidLen {
		return uuid.Nil, fmt.Errorf("schema %q has a malformed tenant id segment", schema)
	}

	id, err := uuid.Parse(strings.ReplaceAll(rest, "_", "-"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("schema %q: %w", schema, err)
	}
	return id, nil
}

// IsTenantSchema reports whether a catalog schema name belongs to a tenant.
func IsTenantSchema(schema string) bool {
	_, err := TenantIDFromSchema(schema)
	return err == nil
}

// BackupSchemaName returns the backup schema name for a tenant at the given
// point in time: backup_tenant_<uuid with underscores>_<unix timestamp>.
func BackupSchemaName(id uuid.UUID, at time.Time) string {
	return backupSchemaPrefix + strings.ReplaceAll(id.String(), "-", "_") + "_" + strconv.FormatInt(at.Unix(), 10)
}

// BackupSchemaPrefix returns the prefix shared by every backup schema of one
// tenant, used to enumerate candidates in the catalog.
func BackupSchemaPrefix(id uuid.UUID) string {
	return backupSchemaPrefix + strings.ReplaceAll(id.String(), "-", "_") + "_"
}

// ParseBackupSchema inverts BackupSchemaName, returning the owning tenant and
// the backup timestamp.
func ParseBackupSchema(schema string) (uuid.UUID, time.Time, error) {
	rest, ok := strings.CutPrefix(schema, backupSchemaPrefix)
	if !ok {
		return uuid.Nil, time.Time{}, fmt.Errorf("schema %q lacks the %q prefix", schema, backupSchemaPrefix)
	}
	if len(rest) < uuidLen+2 || rest[uuidLen] != '_' {
		return uuid.Nil, time.Time{}, fmt.Errorf("schema %q has a malformed backup suffix", schema)
	}

	id, err := uuid.Parse(strings.ReplaceAll(rest[:uuidLen], "_", "-"))
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("schema %q: %w", schema, err)
	}

	unix, err := strconv.ParseInt(rest[uuidLen+1:], 10, 64)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("schema %q timestamp: %w", schema, err)
	}

	return id, time.Unix(unix, 0).UTC(), nil
}
