package persistence

import "errors"

var (
	// ErrSchemaNotFound marks an expected tenant schema that is absent from
	// the catalog. Callers should hand the tenant to the recovery manager
	// instead of failing silently.
	ErrSchemaNotFound = errors.New("tenant schema not found")

	// ErrPoolExhausted marks an acquisition that timed out waiting for a
	// connection. It is retryable; the pool itself stays usable.
	ErrPoolExhausted = errors.New("tenant connection pool exhausted")
)
