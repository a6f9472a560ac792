package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/subtrackapp/subtrack/pkg/config"
	"github.com/subtrackapp/subtrack/pkg/environment"
	"github.com/subtrackapp/subtrack/pkg/logger"
)

// Manager owns the shared database connections for the process, one per
// target database. All callers borrow the same handle for a given database;
// the cold-start path is deduplicated so concurrent acquisitions never open
// more than one connection per database.
type Manager struct {
	cfg    Config
	env    environment.Environment
	pool   PoolConfig
	policy RetryPolicy
	driver Driver
	log    *slog.Logger
	skip   func() bool
	meter  *Metrics

	// breaker guards the whole retried connect cycle: when the database is
	// down, repeated cold starts fail fast instead of each burning a full
	// retry loop.
	breaker *gobreaker.CircuitBreaker[Conn]

	group   singleflight.Group
	mu      sync.RWMutex
	handles map[string]*Handle // keyed by database name
}

// Option configures a Manager.
type Option func(*Manager)

// WithDriver replaces the production driver, primarily for tests.
func WithDriver(d Driver) Option {
	return func(m *Manager) {
		if d != nil {
			m.driver = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithGuard replaces the build/test execution-context guard. Defaults to
// environment.ShouldSkipDatabaseConnection.
func WithGuard(skip func() bool) Option {
	return func(m *Manager) {
		if skip != nil {
			m.skip = skip
		}
	}
}

// WithRetryPolicy overrides the retry policy resolved from configuration.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(m *Manager) {
		m.policy = p.withDefaults()
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(meter *Metrics) Option {
	return func(m *Manager) {
		m.meter = meter
	}
}

// WithoutBreaker disables the connection circuit breaker.
func WithoutBreaker() Option {
	return func(m *Manager) {
		m.breaker = nil
	}
}

// New constructs a Manager for the given configuration and deployment tier.
// The manager is safe for concurrent use; construct one per process and
// inject it into every call site that needs a connection.
func New(cfg Config, env environment.Environment, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		env:     env,
		pool:    cfg.Pool(env),
		policy:  cfg.RetryPolicy(),
		driver:  NewDriver(cfg.AppName),
		log:     slog.Default(),
		skip:    environment.ShouldSkipDatabaseConnection,
		handles: make(map[string]*Handle),
	}
	m.breaker = gobreaker.NewCircuitBreaker[Conn](gobreaker.Settings{
		Name:    "mongo-connect",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var (
	defaultOnce    sync.Once
	defaultManager *Manager
	defaultErr     error
)

// Default returns the process-wide Manager, constructing it on first call
// from environment configuration. Construction is idempotent under
// concurrent first calls: all callers get the same instance and at most one
// underlying client is ever opened.
func Default() (*Manager, error) {
	defaultOnce.Do(func() {
		var cfg Config
		if err := config.Load(&cfg); err != nil {
			defaultErr = err
			return
		}
		defaultManager = New(cfg, environment.FromEnv())
	})
	return defaultManager, defaultErr
}

type acquireOptions struct {
	direct         bool
	database       string
	connectTimeout time.Duration
}

// AcquireOption adjusts a single acquisition.
type AcquireOption func(*acquireOptions)

// Direct bypasses the shared cache and opens a fresh connection. Intended
// for diagnostic routes; the caller owns the returned handle's lifecycle and
// must disconnect it via its Conn.
func Direct() AcquireOption {
	return func(o *acquireOptions) { o.direct = true }
}

// WithDatabase targets a database other than the configured default. Each
// database gets its own shared cached connection.
func WithDatabase(name string) AcquireOption {
	return func(o *acquireOptions) { o.database = name }
}

// WithConnectTimeout overrides the connect timeout for this acquisition.
func WithConnectTimeout(d time.Duration) AcquireOption {
	return func(o *acquireOptions) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// Acquire returns a live connection handle, reusing the cached one for the
// target database when it is healthy. On a cold start all concurrent callers
// targeting the same database share a single connection attempt with
// bounded, classified retries. Every failure is returned as a
// *ClassifiedError; raw driver errors never escape.
func (m *Manager) Acquire(ctx context.Context, opts ...AcquireOption) (*Handle, error) {
	var o acquireOptions
	for _, opt := range opts {
		opt(&o)
	}
	db := m.databaseName(o)

	// Non-serving contexts (CI builds, static exports, tests) get a
	// synthetic connected handle and no network I/O at all.
	if m.skip() {
		m.meter.Acquire("synthetic")
		return newSyntheticHandle(db), nil
	}

	if o.direct {
		m.meter.Acquire("direct")
		h, err := m.connect(ctx, o)
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	// Fast path: a healthy connection is reused indefinitely within the
	// process, multiplexed across concurrent callers.
	if h := m.cached(db); h != nil {
		m.meter.Acquire("cache")
		h.touch()
		return h, nil
	}

	m.meter.Acquire("cold")
	v, err, _ := m.group.Do("connect:"+db, func() (any, error) {
		// A previous flight may have populated the cache while this caller
		// was queued behind the singleflight lock.
		if h := m.cached(db); h != nil {
			return h, nil
		}
		h, err := m.connect(ctx, o)
		m.mu.Lock()
		m.handles[db] = h // on failure an error-state handle: next acquire starts fresh
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	h := v.(*Handle)
	h.touch()
	return h, nil
}

// cached returns the shared handle for the database when it is in connected
// state.
func (m *Manager) cached(db string) *Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h := m.handles[db]; h != nil && h.State() == StateConnected {
		return h
	}
	return nil
}

func (m *Manager) databaseName(o acquireOptions) string {
	if o.database != "" {
		return o.database
	}
	return m.cfg.DBName
}

// connect performs one full acquisition cycle: normalize the URI, then dial
// with bounded retries, backing off between attempts. Returns the handle in
// connected state on success; on failure returns the handle in error state
// alongside the last classified error.
func (m *Manager) connect(ctx context.Context, o acquireOptions) (*Handle, error) {
	pool := m.pool
	if o.connectTimeout > 0 {
		pool.ConnectTimeout = o.connectTimeout
	}

	var normOpts []NormalizeOption
	if m.cfg.PreserveDBName {
		normOpts = append(normOpts, PreserveDatabaseName())
	}
	uri := Normalize(m.cfg.URI, m.databaseName(o), normOpts...)

	h := newHandle(Sanitize(uri), m.databaseName(o), pool)

	if m.cfg.Debug {
		m.log.DebugContext(ctx, "connecting to mongo",
			logger.Component("mongo"),
			slog.String("uri", h.URI()),
			slog.Uint64("max_pool_size", pool.MaxPoolSize),
		)
	}

	attempt := func() (Conn, error) {
		conn, err := m.driver.Connect(ctx, uri, pool)
		if err != nil {
			cerr := Classify(err)
			m.meter.ConnectAttempt(false)
			return nil, cerr
		}
		m.meter.ConnectAttempt(true)
		return conn, nil
	}

	dial := func() (Conn, error) {
		return retry.NewWithData[Conn](
			retry.Context(ctx),
			retry.Attempts(uint(m.policy.MaxAttempts)),
			retry.RetryIf(func(err error) bool {
				var cerr *ClassifiedError
				return errors.As(err, &cerr) && cerr.Retryable
			}),
			retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
				return m.policy.NextDelay(int(n))
			}),
			retry.OnRetry(func(n uint, err error) {
				m.log.WarnContext(ctx, "mongo connection attempt failed, retrying",
					logger.Component("mongo"),
					slog.Uint64("attempt", uint64(n)+1),
					slog.String("uri", h.URI()),
					logger.Error(err),
				)
			}),
			retry.LastErrorOnly(true),
		).Do(attempt)
	}

	var conn Conn
	var err error
	if m.breaker != nil {
		conn, err = m.breaker.Execute(dial)
	} else {
		conn, err = dial()
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = newClassified(KindServiceUnavailable, "database connections suspended after repeated failures", err)
		}
		cerr := Classify(err)
		h.setState(StateError)
		m.log.ErrorContext(ctx, "mongo connection failed",
			logger.Component("mongo"),
			slog.String("uri", h.URI()),
			slog.String("kind", string(cerr.Kind)),
			logger.Error(cerr.Cause),
		)
		return h, cerr
	}

	h.conn = conn
	h.setState(StateConnected)
	m.log.InfoContext(ctx, "mongo connected",
		logger.Component("mongo"),
		slog.String("uri", h.URI()),
		slog.String("database", h.Database()),
	)
	return h, nil
}

// DisconnectAll closes every cached connection and resets the cache.
// Idempotent and safe to call when nothing is connected. It may race with a
// concurrent Acquire by design: the loser simply reconnects on next use.
// When several disconnects fail the first classified error is returned;
// the remaining connections are still closed.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]*Handle)
	m.mu.Unlock()

	var firstErr error
	closed := 0
	for _, h := range handles {
		if h == nil || h.conn == nil {
			continue
		}
		h.setState(StateDisconnecting)
		err := h.conn.Disconnect(ctx)
		h.setState(StateDisconnected)
		closed++
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return Classify(firstErr)
	}

	if closed > 0 {
		m.log.InfoContext(ctx, "mongo disconnected", logger.Component("mongo"))
	}
	return nil
}
