package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

func TestAuditFlagsBareSelect(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)

	report := b.Audit("SELECT * FROM tickets", "listTickets")
	require.False(t, report.Compliant)
	require.Contains(t, report.Issues, IssueMissingTenantID)
	require.Contains(t, report.Issues, IssueSelectWithoutWhere)
}

func TestAuditAcceptsTenantScopedStatements(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)

	tests := []string{
		"SELECT id, subject FROM tickets WHERE tenant_id = $1",
		"UPDATE tickets SET status = 'closed' WHERE id = $1 AND tenant_id = $2",
		"DELETE FROM activity_logs WHERE tenant_id = $1 AND created_at < $2",
		"INSERT INTO tickets (tenant_id, subject) VALUES ($1, $2)",
	}

	for _, sql := range tests {
		report := b.Audit(sql, "test_op")
		require.True(t, report.Compliant, "statement: %s", sql)
		require.Empty(t, report.Issues)
	}
}

func TestAuditFlagsUnboundedWrites(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)

	report := b.Audit("UPDATE tickets SET status = 'closed'", "closeAll")
	require.False(t, report.Compliant)
	require.Contains(t, report.Issues, IssueUpdateWithoutWhere)

	report = b.Audit("DELETE FROM tickets", "purge")
	require.False(t, report.Compliant)
	require.Contains(t, report.Issues, IssueDeleteWithoutWhere)
}

func TestAuditStatementsGeneratedByBuilderAreCompliant(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	ctx := context.Background()

	stmt, err := b.Select(ctx, testTenantID, "tickets", nil, nil, "", 0)
	require.NoError(t, err)
	require.True(t, b.Audit(stmt.SQL, "roundtrip").Compliant)

	stmt, err = b.Delete(ctx, testTenantID, "tickets", nil)
	require.NoError(t, err)
	require.True(t, b.Audit(stmt.SQL, "roundtrip").Compliant)
}

func TestAuditLogsPolicyWarning(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	b := NewBuilder(tenant.NewValidator(nil, zap.NewNop()), zap.New(core))

	report := b.Audit("SELECT * FROM tickets", "listTickets")
	require.False(t, report.Compliant)

	entries := logs.FilterMessage("query isolation violation").All()
	require.Len(t, entries, 1)
	require.Equal(t, "listTickets", entries[0].ContextMap()["operation"])
}
