package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRegistry struct {
	active map[uuid.UUID]bool
}

func (f *fakeRegistry) ListActive(ctx context.Context) ([]Record, error) {
	var records []Record
	for id, active := range f.active {
		if active {
			records = append(records, Record{TenantID: id, SchemaName: SchemaName(id), IsActive: true})
		}
	}
	return records, nil
}

func (f *fakeRegistry) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.active[id], nil
}

func TestValidateRejectsMalformedIdentifiers(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, zap.NewNop())

	tests := []struct {
		name     string
		tenantID string
	}{
		{name: "empty", tenantID: ""},
		{name: "not a uuid", tenantID: "not-a-uuid"},
		{name: "uuid v1 version nibble", tenantID: "11111111-1111-1111-8111-111111111111"},
		{name: "bad variant nibble", tenantID: "11111111-1111-4111-c111-111111111111"},
		{name: "uppercase", tenantID: "11111111-1111-4111-8111-11111111111A"},
		{name: "missing hyphens", tenantID: "11111111111141118111111111111111"},
		{name: "too long", tenantID: "11111111-1111-4111-8111-1111111111112"},
		{name: "sql injection attempt", tenantID: "11111111-1111-4111-8111-1111'; DROP--"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := v.Validate(context.Background(), tt.tenantID, "test_op")
			require.ErrorIs(t, err, ErrInvalidTenantID)
		})
	}
}

func TestValidateAcceptsCanonicalV4(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, zap.NewNop())

	id, err := v.Validate(context.Background(), "11111111-1111-4111-8111-111111111111", "test_op")
	require.NoError(t, err)
	require.Equal(t, uuid.MustParse("11111111-1111-4111-8111-111111111111"), id)
}

func TestValidateConsultsActivityRegistry(t *testing.T) {
	t.Parallel()

	active := uuid.MustParse("11111111-1111-4111-8111-111111111111")
	inactive := uuid.MustParse("22222222-2222-4222-9222-222222222222")
	registry := &fakeRegistry{active: map[uuid.UUID]bool{active: true, inactive: false}}
	v := NewValidator(registry, zap.NewNop())

	_, err := v.Validate(context.Background(), active.String(), "test_op")
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), inactive.String(), "test_op")
	require.ErrorIs(t, err, ErrInvalidTenantID)

	// Unknown tenants are indistinguishable from inactive ones.
	_, err = v.Validate(context.Background(), uuid.New().String(), "test_op")
	require.ErrorIs(t, err, ErrInvalidTenantID)
}

func TestValidateEmitsAuditWarning(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	v := NewValidator(nil, zap.New(core))

	_, err := v.Validate(context.Background(), "99999999-bogus-identifier-value-here", "list_tickets")
	require.ErrorIs(t, err, ErrInvalidTenantID)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "list_tickets", fields["operation"])

	// The offending identifier is truncated before logging.
	logged, ok := fields["tenant_id"].(string)
	require.True(t, ok)
	require.LessOrEqual(t, len([]rune(logged)), 13)
}
