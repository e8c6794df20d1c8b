package runtime

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/atlasdesk/atlasdesk/platform/logging"
	"github.com/atlasdesk/atlasdesk/platform/persistence"
	"github.com/atlasdesk/atlasdesk/platform/provision"
	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// Config is the CLI's environment-driven configuration. A .env file in the
// working directory is honored for local development.
type Config struct {
	DatabaseURL  string  `env:"DATABASE_URL,required"`
	AdminSchema  string  `env:"ADMIN_SCHEMA" envDefault:"admin"`
	LogLevel     string  `env:"LOG_LEVEL" envDefault:"info"`
	RecoveryRate float64 `env:"RECOVERY_RATE_PER_SECOND" envDefault:"2"`
	PoolMaxConns int32   `env:"POOL_MAX_CONNS" envDefault:"4"`
}

// Runtime is the explicit dependency container for CLI commands: one admin
// pool, one registry, one validator, constructed once and passed by
// reference instead of living in package-level singletons.
type Runtime struct {
	Config    Config
	Logger    *zap.Logger
	Pool      *pgxpool.Pool
	Registry  *persistence.RegistryStore
	Validator *tenant.Validator
	Builder   *persistence.Builder
	Indexes   *provision.Provisioner
	Recovery  *provision.RecoveryManager
}

// New loads configuration, connects the admin pool, and wires every
// component of the data access core.
func New(ctx context.Context) (*Runtime, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{Component: "atlasdesk-cli", Level: cfg.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	pool, err := persistence.NewAdminPool(ctx, persistence.PoolConfig{
		ConnString: cfg.DatabaseURL,
		MaxConns:   cfg.PoolMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect admin pool: %w", err)
	}

	registry, err := persistence.NewRegistryStore(pool, cfg.AdminSchema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init registry store: %w", err)
	}

	validator := tenant.NewValidator(registry, logger)
	builder := persistence.NewBuilder(validator, logger)
	indexes := provision.NewProvisioner(pool, logger)
	recovery := provision.NewRecoveryManager(pool, registry, builder, indexes, logger, provision.RecoveryConfig{
		RatePerSecond: cfg.RecoveryRate,
	})

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Registry:  registry,
		Validator: validator,
		Builder:   builder,
		Indexes:   indexes,
		Recovery:  recovery,
	}, nil
}

// Close releases the admin pool and flushes the logger.
func (r *Runtime) Close() {
	if r.Pool != nil {
		r.Pool.Close()
	}
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}
}
