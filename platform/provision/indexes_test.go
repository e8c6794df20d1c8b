package provision

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlasdesk/atlasdesk/platform/persistence/pgtest"
	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

func TestIndexDescriptorName(t *testing.T) {
	t.Parallel()

	d := IndexDescriptor{Table: "tickets", Columns: []string{"status"}}
	require.Equal(t, "tickets_tenant_status_idx", d.Name())

	d = IndexDescriptor{Table: "customers", Columns: []string{"company_id", "email"}}
	require.Equal(t, "customers_tenant_company_id_email_idx", d.Name())
}

func TestIndexDescriptorCreateSQL(t *testing.T) {
	t.Parallel()

	schema := tenant.SchemaName(uuid.MustParse("11111111-1111-4111-8111-111111111111"))

	d := IndexDescriptor{Table: "tickets", Columns: []string{"status"}, Predicate: "status <> 'closed'"}
	require.Equal(t,
		`CREATE INDEX IF NOT EXISTS "tickets_tenant_status_idx" ON "tenant_11111111_1111_4111_8111_111111111111"."tickets" ("tenant_id", "status") WHERE status <> 'closed'`,
		d.CreateSQL(schema),
	)

	d = IndexDescriptor{Table: "activity_logs", Columns: []string{"created_at"}}
	require.Equal(t,
		`CREATE INDEX IF NOT EXISTS "activity_logs_tenant_created_at_idx" ON "tenant_11111111_1111_4111_8111_111111111111"."activity_logs" ("tenant_id", "created_at")`,
		d.CreateSQL(schema),
	)
}

func TestCatalogLeadsEveryIndexWithTenantID(t *testing.T) {
	t.Parallel()

	schema := tenant.SchemaName(uuid.New())
	for _, d := range Catalog() {
		require.Contains(t, d.CreateSQL(schema), `("tenant_id", `)
		require.Contains(t, d.Name(), "_tenant_")
	}
}

func TestEnsureIndexesRejectsForeignSchema(t *testing.T) {
	p := NewProvisioner(pgtest.Pool(t), zap.NewNop())

	_, _, err := p.EnsureIndexes(context.Background(), "public")
	require.Error(t, err)

	_, err = p.Verify(context.Background(), "admin")
	require.Error(t, err)
}

func TestEnsureIndexesIsIdempotent(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	id := f.createTenant(t, "Index Co")
	require.NoError(t, f.recovery.RecreateStructure(ctx, id))

	schema := tenant.SchemaName(id)

	// RecreateStructure already applied the catalog once; a second pass
	// recreates nothing but still succeeds per index.
	applied, failures, err := f.provisioner.EnsureIndexes(ctx, schema)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Equal(t, len(Catalog()), applied)

	ok, err := f.provisioner.Verify(ctx, schema)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyFalseBeforeProvisioning(t *testing.T) {
	f := newRecoveryFixture(t)
	ctx := context.Background()

	id := f.createTenant(t, "Bare Co")
	schema := tenant.SchemaName(id)

	// Create the schema and tables without the index catalog.
	_, err := f.pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize())
	require.NoError(t, err)

	ok, err := f.provisioner.Verify(ctx, schema)
	require.NoError(t, err)
	require.False(t, ok)
}
