package tenant

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSchemaNameRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("11111111-1111-4111-8111-111111111111")

	schema := SchemaName(id)
	require.Equal(t, "tenant_11111111_1111_4111_8111_111111111111", schema)

	back, err := TenantIDFromSchema(schema)
	require.NoError(t, err)
	require.Equal(t, id, back)
}

func TestSchemaNameDeterministic(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	require.Equal(t, SchemaName(id), SchemaName(id))
}

func TestTenantIDFromSchemaRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema string
	}{
		{name: "no prefix", schema: "11111111_1111_4111_8111_111111111111"},
		{name: "wrong prefix", schema: "backup_tenant_11111111_1111_4111_8111_111111111111_1700000000"},
		{name: "truncated id", schema: "tenant_11111111_1111"},
		{name: "trailing garbage", schema: "tenant_11111111_1111_4111_8111_111111111111x"},
		{name: "not hex", schema: "tenant_zzzzzzzz_1111_4111_8111_111111111111"},
		{name: "empty", schema: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := TenantIDFromSchema(tt.schema)
			require.Error(t, err)
			require.False(t, IsTenantSchema(tt.schema))
		})
	}
}

func TestBackupSchemaRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("2f6c84d2-9c1a-4b77-9a01-3d1f2a8b4c5d")
	at := time.Date(2024, 11, 3, 14, 30, 0, 0, time.UTC)

	name := BackupSchemaName(id, at)
	require.True(t, strings.HasPrefix(name, BackupSchemaPrefix(id)))

	owner, ts, err := ParseBackupSchema(name)
	require.NoError(t, err)
	require.Equal(t, id, owner)
	require.Equal(t, at, ts)
}

func TestParseBackupSchemaRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []string{
		"tenant_11111111_1111_4111_8111_111111111111",
		"backup_tenant_11111111_1111_4111_8111_111111111111",
		"backup_tenant_11111111_1111_4111_8111_111111111111_notatime",
		"backup_tenant_short_1700000000",
	}

	for _, schema := range tests {
		_, _, err := ParseBackupSchema(schema)
		require.Error(t, err, "schema %q", schema)
	}
}
