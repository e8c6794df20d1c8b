package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Space captures the resolved tenant routing metadata for an operation.
// It is attached to the context once the tenant has been validated, and is
// what the persistence layer uses to scope connections and statements.
type Space struct {
	TenantID   uuid.UUID
	SchemaName string
}

// SpaceFor derives the Space for a tenant id.
func SpaceFor(id uuid.UUID) Space {
	return Space{TenantID: id, SchemaName: SchemaName(id)}
}

type ctxKey struct{}

// WithSpace returns a derived context carrying the tenant Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, ctxKey{}, space)
}

// FromContext extracts the tenant Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	space, ok := ctx.Value(ctxKey{}).(Space)
	return space, ok
}
