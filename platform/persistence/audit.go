package persistence

import (
	"strings"

	"go.uber.org/zap"
)

// Report is the verdict of a static isolation audit over hand-written SQL.
// Non-compliance is a policy warning, not a runtime abort: it gates code
// review and monitoring without breaking production traffic.
type Report struct {
	Operation string
	Compliant bool
	Issues    []string
}

// Audit findings. Kept as stable strings so monitoring can match on them.
const (
	IssueMissingTenantID    = "missing tenant_id reference"
	IssueSelectWithoutWhere = "SELECT without WHERE clause"
	IssueUpdateWithoutWhere = "UPDATE without WHERE clause"
	IssueDeleteWithoutWhere = "DELETE without WHERE clause"
)

// Audit statically scans raw SQL for tenant-isolation violations: a missing
// tenant_id reference, or SELECT/UPDATE/DELETE statements with no WHERE
// clause at all. It never errors; the report says whether the statement may
// bypass the builder safely.
func (b *Builder) Audit(rawSQL, operation string) Report {
	report := Report{Operation: operation, Compliant: true}

	normalized := strings.ToUpper(strings.TrimSpace(rawSQL))
	hasWhere := strings.Contains(normalized, "WHERE")

	if !strings.Contains(normalized, "TENANT_ID") {
		report.Issues = append(report.Issues, IssueMissingTenantID)
	}

	switch {
	case strings.HasPrefix(normalized, "SELECT") && !hasWhere:
		report.Issues = append(report.Issues, IssueSelectWithoutWhere)
	case strings.HasPrefix(normalized, "UPDATE") && !hasWhere:
		report.Issues = append(report.Issues, IssueUpdateWithoutWhere)
	case strings.HasPrefix(normalized, "DELETE") && !hasWhere:
		report.Issues = append(report.Issues, IssueDeleteWithoutWhere)
	}

	if len(report.Issues) > 0 {
		report.Compliant = false
		b.logger.Warn("query isolation violation",
			zap.String("operation", operation),
			zap.Strings("issues", report.Issues),
			zap.String("statement", truncateSQL(rawSQL, 200)),
		)
	}

	return report
}

func truncateSQL(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
