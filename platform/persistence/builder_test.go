package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

const testTenantID = "11111111-1111-4111-8111-111111111111"

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(tenant.NewValidator(nil, zap.NewNop()), zap.NewNop())
}

func TestSelectAlwaysCarriesTenantPredicate(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)

	stmt, err := b.Select(context.Background(), testTenantID, "tickets",
		[]string{"id", "subject"}, map[string]any{"status": "open"}, "created_at", 10)
	require.NoError(t, err)

	require.Contains(t, stmt.SQL, `"tenant_id" = $2`)
	require.Contains(t, stmt.SQL, `"status" = $1`)
	require.Contains(t, stmt.SQL, `ORDER BY "created_at"`)
	require.Contains(t, stmt.SQL, "LIMIT 10")
	require.Equal(t, []any{"open", uuid.MustParse(testTenantID)}, stmt.Args)
}

func TestSelectWithNoConditionsStillFiltersByTenant(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)

	stmt, err := b.Select(context.Background(), testTenantID, "customers", nil, nil, "", 0)
	require.NoError(t, err)

	require.Contains(t, stmt.SQL, `WHERE "tenant_id" = $1`)
	require.Equal(t, []any{uuid.MustParse(testTenantID)}, stmt.Args)
}

func TestInsertForcesTenantID(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	forged := uuid.MustParse("22222222-2222-4222-9222-222222222222")

	stmt, err := b.Insert(context.Background(), testTenantID, "tickets", map[string]any{
		"subject":   "printer on fire",
		"tenant_id": forged, // caller-supplied value must be overridden
	})
	require.NoError(t, err)

	require.Contains(t, stmt.SQL, `"tenant_id"`)
	require.Contains(t, stmt.Args, uuid.MustParse(testTenantID))
	require.NotContains(t, stmt.Args, forged)
}

func TestUpdateDropsTenantReassignment(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	forged := uuid.MustParse("22222222-2222-4222-9222-222222222222")

	stmt, err := b.Update(context.Background(), testTenantID, "tickets",
		map[string]any{"status": "closed", "tenant_id": forged},
		map[string]any{"id": uuid.New()})
	require.NoError(t, err)

	require.NotContains(t, stmt.SQL, `SET "tenant_id"`)
	require.Contains(t, stmt.SQL, `"tenant_id" = $3`)
	require.NotContains(t, stmt.Args, forged)
}

func TestUpdateWithOnlyTenantAssignmentFails(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)

	_, err := b.Update(context.Background(), testTenantID, "tickets",
		map[string]any{"tenant_id": uuid.New()}, nil)
	require.Error(t, err)
}

func TestDeleteCarriesTenantPredicate(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	ticketID := uuid.New()

	stmt, err := b.Delete(context.Background(), testTenantID, "tickets", map[string]any{"id": ticketID})
	require.NoError(t, err)

	require.Contains(t, stmt.SQL, `"id" = $1`)
	require.Contains(t, stmt.SQL, `"tenant_id" = $2`)
	require.Equal(t, []any{ticketID, uuid.MustParse(testTenantID)}, stmt.Args)
}

func TestBuilderRejectsUnknownIdentifiers(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	ctx := context.Background()

	_, err := b.Select(ctx, testTenantID, "pg_shadow", nil, nil, "", 0)
	require.Error(t, err)

	_, err = b.Select(ctx, testTenantID, "tickets", []string{"passwd"}, nil, "", 0)
	require.Error(t, err)

	_, err = b.Insert(ctx, testTenantID, "tickets", map[string]any{"subject; DROP TABLE": "x"})
	require.Error(t, err)

	_, err = b.Select(ctx, testTenantID, "tickets", nil, nil, "evil_column", 0)
	require.Error(t, err)
}

func TestBuilderRejectsInvalidTenant(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)

	_, err := b.Select(context.Background(), "not-a-tenant", "tickets", nil, nil, "", 0)
	require.ErrorIs(t, err, tenant.ErrInvalidTenantID)

	_, err = b.Insert(context.Background(), "", "tickets", map[string]any{"subject": "x"})
	require.ErrorIs(t, err, tenant.ErrInvalidTenantID)
}
