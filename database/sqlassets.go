package sqlassets

import "embed"

// SQL and JSON Schema assets embedded at build time so binaries stay
// self-contained. Admin DDL creates the platform tenant registry; the
// tenant_space DDL is the core table set recreated inside every tenant
// schema.

//go:embed schema/admin/tenants.sql
var TenantsSQL string

//go:embed schema/tenant_space/core_tables.sql
var CoreTablesSQL string

// ShapesFS holds JSON Schemas describing the expected column inventory of
// each core tenant table (shapes/<table>.columns.json) and the row shape of
// seedable entities (shapes/rows/<entity>.json).
//
//go:embed shapes
var ShapesFS embed.FS

// CoreTables lists every table recreated per tenant schema, in dependency
// order (referenced tables first) so backup restores can copy row sets
// without tripping foreign keys.
var CoreTables = []string{
	"companies",
	"customers",
	"tickets",
	"activity_logs",
	"expense_reports",
	"knowledge_articles",
	"ticket_templates",
}

// TableColumns is the identifier allowlist used by the query safety builder.
// Only tables and columns listed here may appear in generated statements.
var TableColumns = map[string][]string{
	"companies":          {"id", "tenant_id", "name", "industry", "created_at"},
	"customers":          {"id", "tenant_id", "company_id", "name", "email", "is_active", "created_at"},
	"tickets":            {"id", "tenant_id", "customer_id", "subject", "status", "priority", "created_at", "updated_at"},
	"activity_logs":      {"id", "tenant_id", "actor", "action", "subject_type", "subject_id", "created_at"},
	"expense_reports":    {"id", "tenant_id", "customer_id", "amount_cents", "currency", "status", "submitted_at"},
	"knowledge_articles": {"id", "tenant_id", "title", "body", "is_published", "created_at", "updated_at"},
	"ticket_templates":   {"id", "tenant_id", "name", "subject_template", "body_template", "created_at"},
}
