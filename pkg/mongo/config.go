package mongo

import (
	"time"

	"github.com/subtrackapp/subtrack/pkg/environment"
)

// Config represents the configuration for the database layer. All values are
// environment-driven; zero-valued pool and timeout fields fall back to the
// deployment-tier defaults resolved by Pool.
type Config struct {
	URI     string `env:"MONGODB_URI,required"`                  // URI is the raw connection string, normalized before use.
	DBName  string `env:"MONGODB_DB_NAME" envDefault:"subscriptions"` // DBName is the database the application stores its data in.
	AppName string `env:"MONGODB_APP_NAME" envDefault:"subtrack"`     // AppName is reported to the server for connection attribution.

	MaxPoolSize            uint64        `env:"MONGODB_MAX_POOL_SIZE"`            // MaxPoolSize overrides the tier default when non-zero.
	MinPoolSize            uint64        `env:"MONGODB_MIN_POOL_SIZE"`            // MinPoolSize overrides the tier default when non-zero.
	ConnectTimeout         time.Duration `env:"MONGODB_CONNECT_TIMEOUT"`          // ConnectTimeout overrides the tier default when non-zero.
	ServerSelectionTimeout time.Duration `env:"MONGODB_SERVER_SELECTION_TIMEOUT"` // ServerSelectionTimeout overrides the tier default when non-zero.
	SocketTimeout          time.Duration `env:"MONGODB_SOCKET_TIMEOUT"`           // SocketTimeout overrides the tier default when non-zero.
	MaxConnIdleTime        time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	RetryAttempts  int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"4"`      // RetryAttempts bounds the connection retry loop.
	RetryBaseDelay time.Duration `env:"MONGODB_RETRY_BASE_DELAY" envDefault:"200ms"` // RetryBaseDelay is the first backoff delay.
	RetryMaxDelay  time.Duration `env:"MONGODB_RETRY_MAX_DELAY" envDefault:"5s"`     // RetryMaxDelay caps the backoff delay.
	RetryJitter    float64       `env:"MONGODB_RETRY_JITTER" envDefault:"0.2"`       // RetryJitter spreads delays to avoid coordinated retry storms.

	HealthTimeout time.Duration `env:"MONGODB_HEALTH_TIMEOUT" envDefault:"5s"` // HealthTimeout is the ceiling for a full health probe, distinct from connect timeouts.

	Debug          bool `env:"MONGODB_DEBUG"`            // Debug enables verbose connection logging.
	PreserveDBName bool `env:"MONGODB_PRESERVE_DB_NAME"` // PreserveDBName keeps a database name already present in the URI instead of overwriting it.

	Monitoring MonitoringConfig
	Backup     BackupConfig
}

// MonitoringConfig carries alerting thresholds consumed by external
// monitoring. The connection layer reads and validates them but does not act
// on them itself.
type MonitoringConfig struct {
	PoolAlertThreshold int           `env:"MONGODB_POOL_ALERT_THRESHOLD" envDefault:"80"` // PoolAlertThreshold is the pool-utilization alert percentage.
	MetricsInterval    time.Duration `env:"MONGODB_METRICS_INTERVAL" envDefault:"60s"`
	SlowQueryThreshold time.Duration `env:"MONGODB_SLOW_QUERY_THRESHOLD" envDefault:"100ms"`
}

// BackupConfig carries backup-schedule parameters passed through to the
// backup tooling.
type BackupConfig struct {
	HourlyRetention int    `env:"BACKUP_HOURLY_RETENTION" envDefault:"24"` // HourlyRetention is the number of hourly snapshots to keep.
	DailyRetention  int    `env:"BACKUP_DAILY_RETENTION" envDefault:"7"`   // DailyRetention is the number of daily snapshots to keep.
	PreferredTime   string `env:"BACKUP_PREFERRED_TIME" envDefault:"02:00"` // PreferredTime is the preferred HH:MM start of the daily backup window.
}

// PoolConfig is the immutable pool configuration resolved once per process
// from the environment and the deployment tier. No caller may mutate it
// after the first acquisition.
type PoolConfig struct {
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	MaxConnIdleTime        time.Duration
	TLSEnabled             bool
	RetryWrites            bool
	WriteConcern           string
	ReadPreference         string
}

// tierPool returns the pool defaults for a deployment tier. Production gets
// the largest pool and mandatory TLS; test gets a tiny pool with short
// timeouts so broken CI setups fail fast.
func tierPool(env environment.Environment) PoolConfig {
	base := PoolConfig{
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 10 * time.Second,
		SocketTimeout:          45 * time.Second,
		MaxConnIdleTime:        5 * time.Minute,
		RetryWrites:            true,
		WriteConcern:           "majority",
		ReadPreference:         "primary",
	}
	switch {
	case env.IsProduction():
		base.MaxPoolSize = 50
		base.MinPoolSize = 5
		base.TLSEnabled = true
	case env.IsStaging():
		base.MaxPoolSize = 25
		base.MinPoolSize = 2
		base.TLSEnabled = true
	case env.IsTest():
		base.MaxPoolSize = 5
		base.MinPoolSize = 1
		base.ConnectTimeout = 2 * time.Second
		base.ServerSelectionTimeout = 2 * time.Second
		base.SocketTimeout = 5 * time.Second
	default: // development
		base.MaxPoolSize = 10
		base.MinPoolSize = 1
	}
	return base
}

// Pool resolves the effective pool configuration for the given tier,
// applying environment overrides on top of the tier defaults.
//
// Two invariants always hold on the result: MinPoolSize <= MaxPoolSize, and
// the production tier keeps TLS enabled and majority write concern no matter
// what the overrides say.
func (c Config) Pool(env environment.Environment) PoolConfig {
	pool := tierPool(env)

	if c.MaxPoolSize > 0 {
		pool.MaxPoolSize = c.MaxPoolSize
	}
	if c.MinPoolSize > 0 {
		pool.MinPoolSize = c.MinPoolSize
	}
	if c.ConnectTimeout > 0 {
		pool.ConnectTimeout = c.ConnectTimeout
	}
	if c.ServerSelectionTimeout > 0 {
		pool.ServerSelectionTimeout = c.ServerSelectionTimeout
	}
	if c.SocketTimeout > 0 {
		pool.SocketTimeout = c.SocketTimeout
	}
	if c.MaxConnIdleTime > 0 {
		pool.MaxConnIdleTime = c.MaxConnIdleTime
	}

	if pool.MinPoolSize > pool.MaxPoolSize {
		pool.MinPoolSize = pool.MaxPoolSize
	}
	if env.IsProduction() {
		pool.TLSEnabled = true
		pool.WriteConcern = "majority"
	}
	return pool
}

// RetryPolicy resolves the connection retry policy from the configuration.
func (c Config) RetryPolicy() RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: c.RetryAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
		JitterRatio: c.RetryJitter,
	}
	return p.withDefaults()
}
