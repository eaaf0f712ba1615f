package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	ReadTimeout        time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout       time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout        time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`
	RequireMigrated    bool          `envconfig:"REQUIRE_MIGRATED" default:"true"`
}

type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            string        `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"postgres"`
	Password        string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Database        string        `envconfig:"DB_NAME" default:"corebanking"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	// MaintenanceDatabase is the database the migration worker connects to
	// when the target database does not exist yet.
	MaintenanceDatabase string `envconfig:"DB_MAINTENANCE_NAME" default:"postgres"`
}

// RedisConfig configures the ledger event stream. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Stream   string `envconfig:"EVENTS_STREAM" default:"corebanking:ledger-events"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // json or text
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Logger.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", c.Logger.Format)
	}

	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %d: must not be negative", c.Server.RateLimitPerMinute)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("DB_NAME must not be empty")
	}

	return nil
}

// EventsEnabled reports whether ledger events should be published to Redis.
func (c *Config) EventsEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *DatabaseConfig) DSN() string {
	return c.dsnFor(c.Database)
}

// MaintenanceDSN points at the maintenance database on the same server.
func (c *DatabaseConfig) MaintenanceDSN() string {
	return c.dsnFor(c.MaintenanceDatabase)
}

func (c *DatabaseConfig) dsnFor(database string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
