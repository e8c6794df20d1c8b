package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidTenantID marks a malformed or inactive tenant identifier. The
// caller must treat it as an authorization failure, never retry it.
var ErrInvalidTenantID = errors.New("invalid tenant id")

// uuidV4Pattern matches the canonical hyphenated UUID v4 form: version
// nibble 4, variant nibble in {8,9,a,b}.
var uuidV4Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// Validator is the single choke point for tenant isolation: every component
// that touches tenant-scoped storage validates the identifier here first.
// Rejections are logged with the offending identifier (truncated) and the
// operation name so cross-tenant access attempts can be audited later.
type Validator struct {
	registry Registry // optional; nil skips the activity check
	logger   *zap.Logger
}

// NewValidator builds a Validator. registry may be nil when no activity
// registry is available (e.g., bootstrap paths).
func NewValidator(registry Registry, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{registry: registry, logger: logger}
}

// Validate checks the identifier's shape and, when a registry is configured,
// that the tenant is active. It returns the parsed id on success.
func (v *Validator) Validate(ctx context.Context, tenantID, operation string) (uuid.UUID, error) {
	if tenantID == "" {
		v.audit(tenantID, operation, "empty identifier")
		return uuid.Nil, fmt.Errorf("%s: %w: empty identifier", operation, ErrInvalidTenantID)
	}

	if !uuidV4Pattern.MatchString(tenantID) {
		v.audit(tenantID, operation, "not a canonical UUID v4")
		return uuid.Nil, fmt.Errorf("%s: %w: not a canonical UUID v4", operation, ErrInvalidTenantID)
	}

	id, err := uuid.Parse(tenantID)
	if err != nil {
		v.audit(tenantID, operation, "unparseable identifier")
		return uuid.Nil, fmt.Errorf("%s: %w: %v", operation, ErrInvalidTenantID, err)
	}

	if v.registry != nil {
		active, err := v.registry.IsActive(ctx, id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%s: check tenant activity: %w", operation, err)
		}
		if !active {
			v.audit(tenantID, operation, "tenant inactive or unknown")
			return uuid.Nil, fmt.Errorf("%s: %w: tenant inactive or unknown", operation, ErrInvalidTenantID)
		}
	}

	return id, nil
}

// ValidateID is Validate for callers that already hold a parsed uuid.
func (v *Validator) ValidateID(ctx context.Context, id uuid.UUID, operation string) error {
	_, err := v.Validate(ctx, id.String(), operation)
	return err
}

func (v *Validator) audit(tenantID, operation, reason string) {
	v.logger.Warn("tenant validation rejected",
		zap.String("tenant_id", truncate(tenantID, 12)),
		zap.String("operation", operation),
		zap.String("reason", reason),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
