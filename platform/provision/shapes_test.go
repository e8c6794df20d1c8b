package provision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func companyColumns() []ColumnInfo {
	return []ColumnInfo{
		{Name: "id", Type: "uuid"},
		{Name: "tenant_id", Type: "uuid"},
		{Name: "name", Type: "text"},
		{Name: "industry", Type: "text"},
		{Name: "created_at", Type: "timestamp with time zone"},
	}
}

func TestValidateColumnsAcceptsFullInventory(t *testing.T) {
	t.Parallel()
	v := NewShapeValidator()

	require.NoError(t, v.ValidateColumns("companies", companyColumns()))
}

func TestValidateColumnsRejectsMissingTenantID(t *testing.T) {
	t.Parallel()
	v := NewShapeValidator()

	columns := []ColumnInfo{
		{Name: "id", Type: "uuid"},
		{Name: "name", Type: "text"},
		{Name: "created_at", Type: "timestamp with time zone"},
	}
	require.Error(t, v.ValidateColumns("companies", columns))
}

func TestValidateColumnsRejectsWrongColumnType(t *testing.T) {
	t.Parallel()
	v := NewShapeValidator()

	columns := companyColumns()
	columns[1].Type = "text" // tenant_id demoted from uuid
	require.Error(t, v.ValidateColumns("companies", columns))
}

func TestValidateColumnsUnknownTable(t *testing.T) {
	t.Parallel()
	v := NewShapeValidator()

	require.Error(t, v.ValidateColumns("invoices", companyColumns()))
}

func TestValidateRow(t *testing.T) {
	t.Parallel()
	v := NewShapeValidator()

	tenantID := "11111111-1111-4111-8111-111111111111"

	require.NoError(t, v.ValidateRow("ticket", map[string]any{
		"tenant_id": tenantID,
		"subject":   "Printer on fire",
		"status":    "open",
		"priority":  "urgent",
	}))

	// Status outside the enum.
	require.Error(t, v.ValidateRow("ticket", map[string]any{
		"tenant_id": tenantID,
		"subject":   "Printer on fire",
		"status":    "escalated",
	}))

	// Unknown fields are rejected so a seed typo cannot slip through.
	require.Error(t, v.ValidateRow("ticket", map[string]any{
		"tenant_id": tenantID,
		"subject":   "Printer on fire",
		"status":    "open",
		"assignee":  "ops",
	}))

	require.Error(t, v.ValidateRow("customer", map[string]any{
		"tenant_id": tenantID,
		"name":      "No Email",
	}))
}
