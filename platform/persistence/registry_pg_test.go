package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atlasdesk/atlasdesk/platform/persistence/pgtest"
	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// newTestRegistry bootstraps a throwaway admin schema and returns a store
// over it. The schema is dropped at cleanup so runs never see each other.
func newTestRegistry(t *testing.T) *RegistryStore {
	t.Helper()

	pool := pgtest.Pool(t)
	ctx := context.Background()

	schema := fmt.Sprintf("admin_test_%d", time.Now().UnixNano())
	require.NoError(t, BootstrapAdminSchema(ctx, pool, schema))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %q CASCADE", schema))
	})

	store, err := NewRegistryStore(pool, schema)
	require.NoError(t, err)
	return store
}

func TestRegistryStoreLifecycle(t *testing.T) {
	store := newTestRegistry(t)
	ctx := context.Background()

	id := uuid.New()

	// Unknown tenants are inactive, not errors.
	active, err := store.IsActive(ctx, id)
	require.NoError(t, err)
	require.False(t, active)

	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrTenantNotFound)

	rec, err := store.Create(ctx, id, "Acme Support")
	require.NoError(t, err)
	require.Equal(t, id, rec.TenantID)
	require.Equal(t, "Acme Support", rec.DisplayName)
	require.Equal(t, tenant.SchemaName(id), rec.SchemaName)
	require.True(t, rec.IsActive)
	require.False(t, rec.CreatedAt.IsZero())

	active, err = store.IsActive(ctx, id)
	require.NoError(t, err)
	require.True(t, active)

	records, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, id, records[0].TenantID)

	require.NoError(t, store.SetActive(ctx, id, false))

	active, err = store.IsActive(ctx, id)
	require.NoError(t, err)
	require.False(t, active)

	records, err = store.ListActive(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRegistryStoreCreateRejectsNilID(t *testing.T) {
	store := newTestRegistry(t)

	_, err := store.Create(context.Background(), uuid.Nil, "Nil Co")
	require.Error(t, err)
}

func TestRegistryStoreSetActiveUnknownTenant(t *testing.T) {
	store := newTestRegistry(t)

	err := store.SetActive(context.Background(), uuid.New(), true)
	require.ErrorIs(t, err, ErrTenantNotFound)
}

func TestBootstrapAdminSchemaIsIdempotent(t *testing.T) {
	pool := pgtest.Pool(t)
	ctx := context.Background()

	schema := fmt.Sprintf("admin_boot_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %q CASCADE", schema))
	})

	require.NoError(t, BootstrapAdminSchema(ctx, pool, schema))
	require.NoError(t, BootstrapAdminSchema(ctx, pool, schema))
}
