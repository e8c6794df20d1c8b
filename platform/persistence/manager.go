package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/atlasdesk/atlasdesk/platform/tenant"
)

// ManagerConfig tunes the per-tenant pool registry.
type ManagerConfig struct {
	Pool           PoolConfig
	MaxPools       int           // hard cap on live pools; LRU-evicted beyond it
	AcquireTimeout time.Duration // bounded wait for a connection before ErrPoolExhausted
	IdleThreshold  time.Duration // pools unused this long are swept
	SweepInterval  time.Duration // cadence of the idle sweep
}

const (
	defaultMaxPools       = 64
	defaultAcquireTimeout = 5 * time.Second
	defaultIdleThreshold  = 10 * time.Minute
	defaultSweepInterval  = time.Minute
)

// entry is the registry slot for one tenant. The slot is inserted under the
// registry mutex before the pool is built; concurrent acquirers wait on ready
// instead of racing to create a second pool.
type entry struct {
	space     tenant.Space
	ready     chan struct{}
	pool      *pgxpool.Pool
	err       error
	createdAt time.Time
	lastUsed  atomic.Int64 // unix nanos
}

func (e *entry) touch() { e.lastUsed.Store(time.Now().UnixNano()) }

func (e *entry) lastUsedTime() time.Time { return time.Unix(0, e.lastUsed.Load()) }

// built reports whether the pool construction finished (successfully or not).
func (e *entry) built() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// Manager owns one lazily created connection pool per tenant. It is the one
// piece of mutable shared state in the data access core; all map mutations
// are serialized by mu, while routing to an existing pool only waits on the
// entry's ready channel.
type Manager struct {
	cfg       ManagerConfig
	validator *tenant.Validator
	logger    *zap.Logger
	metrics   *Metrics

	// buildPool constructs the physical pool; a field so tests can stall
	// the build to exercise eviction races.
	buildPool func(ctx context.Context, cfg PoolConfig, space tenant.Space) (*pgxpool.Pool, error)

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

// NewManager builds a Manager. A nil metrics wires an unregistered private
// registry, which is what tests want; production passes NewMetrics with the
// process registerer.
func NewManager(cfg ManagerConfig, validator *tenant.Validator, logger *zap.Logger, metrics *Metrics) *Manager {
	if validator == nil {
		panic("pool manager requires a tenant validator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	if cfg.MaxPools <= 0 {
		cfg.MaxPools = defaultMaxPools
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = defaultAcquireTimeout
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = defaultIdleThreshold
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	return &Manager{
		cfg:       cfg,
		validator: validator,
		logger:    logger,
		metrics:   metrics,
		buildPool: newTenantPool,
		entries:   make(map[uuid.UUID]*entry),
	}
}

// Acquire validates the tenant id and returns a pooled handle scoped to the
// tenant's schema. The wait for a free connection is bounded by
// AcquireTimeout; on expiry the error unwraps to ErrPoolExhausted.
func (m *Manager) Acquire(ctx context.Context, tenantID string) (*Handle, error) {
	id, err := m.validator.Validate(ctx, tenantID, "acquire_connection")
	if err != nil {
		return nil, err
	}
	return m.AcquireID(ctx, id)
}

// AcquireID is Acquire for callers that already hold a validated id.
func (m *Manager) AcquireID(ctx context.Context, id uuid.UUID) (*Handle, error) {
	e, err := m.entryFor(ctx, id)
	if err != nil {
		return nil, err
	}
	e.touch()

	acquireCtx := ctx
	if m.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, m.cfg.AcquireTimeout)
		defer cancel()
	}

	conn, err := e.pool.Acquire(acquireCtx)
	if err != nil {
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			m.metrics.ExhaustedTotal.Inc()
			stat := e.pool.Stat()
			m.logger.Warn("tenant pool exhausted",
				zap.String("tenant_id", id.String()),
				zap.Int32("acquired_conns", stat.AcquiredConns()),
				zap.Int32("total_conns", stat.TotalConns()),
				zap.Duration("wait", m.cfg.AcquireTimeout),
			)
			return nil, fmt.Errorf("tenant %s: %w", id, ErrPoolExhausted)
		}
		return nil, fmt.Errorf("acquire connection for tenant %s: %w", id, err)
	}

	e.touch()
	m.metrics.AcquisitionsTotal.Inc()
	stat := e.pool.Stat()
	m.logger.Debug("tenant connection acquired",
		zap.String("tenant_id", id.String()),
		zap.Int32("acquired_conns", stat.AcquiredConns()),
		zap.Int32("total_conns", stat.TotalConns()),
		zap.Duration("pool_age", time.Since(e.createdAt)),
	)

	return &Handle{Space: e.space, conn: conn, entry: e}, nil
}

// entryFor finds or creates the registry entry for a tenant. New entries are
// claimed with a placeholder under the mutex and built outside it, so two
// concurrent calls for a brand-new tenant converge on a single pool.
func (m *Manager) entryFor(ctx context.Context, id uuid.UUID) (*entry, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		m.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, fmt.Errorf("tenant %s pool unavailable: %w", id, e.err)
		}
		return e, nil
	}

	var victim *entry
	if len(m.entries) >= m.cfg.MaxPools {
		victim = m.removeLeastRecentlyUsedLocked()
	}

	e = &entry{space: tenant.SpaceFor(id), ready: make(chan struct{}), createdAt: time.Now()}
	e.touch()
	m.entries[id] = e
	m.mu.Unlock()

	if victim != nil {
		m.closeEntry(victim, "capacity")
	}

	pool, err := m.buildPool(ctx, m.cfg.Pool, e.space)
	if err != nil {
		e.err = err
		close(e.ready)

		m.mu.Lock()
		if m.entries[id] == e {
			delete(m.entries, id)
		}
		m.mu.Unlock()

		return nil, fmt.Errorf("build pool for tenant %s: %w", id, err)
	}

	m.mu.Lock()
	if m.entries[id] != e {
		// Evicted while the pool was being built. The pool must not
		// outlive its registry slot, so close it and fail the entry for
		// anyone already waiting on it.
		m.mu.Unlock()
		pool.Close()

		e.err = errors.New("pool evicted during build")
		close(e.ready)
		return nil, fmt.Errorf("build pool for tenant %s: %w", id, e.err)
	}
	// Publish under the mutex: once the entry is observable as built, any
	// evictor is guaranteed to close the pool it carries.
	e.pool = pool
	close(e.ready)
	m.mu.Unlock()

	m.metrics.PoolCreationsTotal.Inc()
	m.metrics.PoolsLive.Set(float64(m.PoolCount()))
	m.logger.Info("tenant pool created",
		zap.String("tenant_id", id.String()),
		zap.String("schema", e.space.SchemaName),
	)

	return e, nil
}

// removeLeastRecentlyUsedLocked drops the stalest fully-built entry from the
// registry and returns it for closing. Callers hold mu.
func (m *Manager) removeLeastRecentlyUsedLocked() *entry {
	var victimID uuid.UUID
	var victim *entry
	for id, e := range m.entries {
		if !e.built() {
			continue
		}
		if victim == nil || e.lastUsed.Load() < victim.lastUsed.Load() {
			victimID, victim = id, e
		}
	}
	if victim != nil {
		delete(m.entries, victimID)
	}
	return victim
}

// Evict closes and removes the tenant's pool, if present. Close waits for
// in-flight connections to be released.
func (m *Manager) Evict(id uuid.UUID) bool {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.closeEntry(e, "manual")
	return true
}

// StartIdleSweeper launches the background sweep. It stops when ctx is done.
func (m *Manager) StartIdleSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SweepIdle(time.Now())
			}
		}
	}()
}

// SweepIdle evicts every pool whose last use is older than the idle
// threshold, bounding resource usage under a long-tail tenant population.
// It returns the number of pools evicted.
func (m *Manager) SweepIdle(now time.Time) int {
	cutoff := now.Add(-m.cfg.IdleThreshold)

	m.mu.Lock()
	var victims []*entry
	for id, e := range m.entries {
		if e.built() && e.lastUsedTime().Before(cutoff) {
			delete(m.entries, id)
			victims = append(victims, e)
		}
	}
	m.mu.Unlock()

	for _, e := range victims {
		m.closeEntry(e, "idle")
	}
	return len(victims)
}

// Close evicts every pool. Intended for process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	victims := make([]*entry, 0, len(m.entries))
	for id, e := range m.entries {
		delete(m.entries, id)
		victims = append(victims, e)
	}
	m.mu.Unlock()

	for _, e := range victims {
		m.closeEntry(e, "shutdown")
	}
}

func (m *Manager) closeEntry(e *entry, cause string) {
	if e.built() && e.pool != nil {
		stat := e.pool.Stat()
		m.logger.Info("tenant pool evicted",
			zap.String("tenant_id", e.space.TenantID.String()),
			zap.String("cause", cause),
			zap.Int32("acquired_conns", stat.AcquiredConns()),
			zap.Duration("age", time.Since(e.createdAt)),
			zap.Duration("idle_for", time.Since(e.lastUsedTime())),
		)
		e.pool.Close()
	}
	m.metrics.EvictionsTotal.WithLabelValues(cause).Inc()
	m.metrics.PoolsLive.Set(float64(m.PoolCount()))
}

// PoolCount returns the number of registered pools, including ones still
// being built.
func (m *Manager) PoolCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// PoolStat is a point-in-time snapshot of one tenant pool.
type PoolStat struct {
	TenantID      uuid.UUID
	SchemaName    string
	AcquiredConns int32
	TotalConns    int32
	Age           time.Duration
	IdleFor       time.Duration
}

// Stats snapshots every built pool for capacity monitoring, ordered by
// tenant id for stable output.
func (m *Manager) Stats() []PoolStat {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	now := time.Now()
	stats := make([]PoolStat, 0, len(entries))
	for _, e := range entries {
		if !e.built() || e.pool == nil {
			continue
		}
		stat := e.pool.Stat()
		stats = append(stats, PoolStat{
			TenantID:      e.space.TenantID,
			SchemaName:    e.space.SchemaName,
			AcquiredConns: stat.AcquiredConns(),
			TotalConns:    stat.TotalConns(),
			Age:           now.Sub(e.createdAt),
			IdleFor:       now.Sub(e.lastUsedTime()),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].TenantID.String() < stats[j].TenantID.String()
	})
	return stats
}
