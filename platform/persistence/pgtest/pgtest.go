// Package pgtest provides a shared PostgreSQL fixture for integration tests.
// TEST_DATABASE_URL points tests at an existing server; otherwise a
// disposable testcontainers instance is started once per test binary. Tests
// skip when neither is available.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	once    sync.Once
	connURL string
	connErr error
)

// URL returns a connection string for a test database, skipping the test
// when no database can be reached.
func URL(t *testing.T) string {
	t.Helper()

	if url, ok := os.LookupEnv("TEST_DATABASE_URL"); ok && url != "" {
		return url
	}

	once.Do(func() {
		// testcontainers panics rather than returning an error when no
		// Docker host can be found; fold that into connErr so the
		// documented skip path still applies.
		defer func() {
			if r := recover(); r != nil {
				connErr = fmt.Errorf("testcontainers: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		container, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("atlasdesk_test"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			connErr = err
			return
		}
		// The container lives for the whole test binary; the reaper removes
		// it when the process exits.
		connURL, connErr = container.ConnectionString(ctx, "sslmode=disable")
	})

	if connErr != nil {
		t.Skipf("postgres unavailable for integration tests: %v", connErr)
	}
	return connURL
}

// Pool connects a pgx pool to the test database and closes it on cleanup.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), URL(t))
	if err != nil {
		t.Fatalf("create test pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
