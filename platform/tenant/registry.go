package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one tenant registry entry. The registry itself is owned by the
// platform; this core only reads it to route and to drive recovery.
type Record struct {
	TenantID    uuid.UUID
	DisplayName string
	SchemaName  string
	IsActive    bool
	CreatedAt   time.Time
}

// Registry is the read surface of the tenant registry consumed by the data
// access core. The persistence package provides the PostgreSQL
// implementation.
type Registry interface {
	// ListActive returns every active tenant, oldest first.
	ListActive(ctx context.Context) ([]Record, error)
	// IsActive reports whether the tenant exists and is active.
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}
