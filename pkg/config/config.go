package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "motorlote"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Audit        AuditConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOTORLOTE_APP_ENV" required:"true"`
	Port         string `envconfig:"MOTORLOTE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MOTORLOTE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOTORLOTE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MOTORLOTE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"MOTORLOTE_DB_DSN"`

	Host     string `envconfig:"MOTORLOTE_DB_HOST"`
	Port     int    `envconfig:"MOTORLOTE_DB_PORT" default:"5432"`
	User     string `envconfig:"MOTORLOTE_DB_USER"`
	Password string `envconfig:"MOTORLOTE_DB_PASSWORD"`
	Name     string `envconfig:"MOTORLOTE_DB_NAME"`
	SSLMode  string `envconfig:"MOTORLOTE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOTORLOTE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOTORLOTE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOTORLOTE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOTORLOTE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a postgres DSN from the discrete fields when DSN is not
// provided directly.
func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database config incomplete: set MOTORLOTE_DB_DSN or host/user/name")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MOTORLOTE_REDIS_URL"`
	Address      string        `envconfig:"MOTORLOTE_REDIS_ADDR"`
	Password     string        `envconfig:"MOTORLOTE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOTORLOTE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOTORLOTE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOTORLOTE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOTORLOTE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOTORLOTE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOTORLOTE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOTORLOTE_FEATURE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MOTORLOTE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	AuditTopic string `envconfig:"MOTORLOTE_PUBSUB_AUDIT_TOPIC"`
}

// RateLimitConfig throttles mutating API traffic per actor and per client IP.
// A zero limit disables that counter.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"MOTORLOTE_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"MOTORLOTE_RATE_LIMIT_IP" default:"120"`
	ActorLimit int           `envconfig:"MOTORLOTE_RATE_LIMIT_ACTOR" default:"60"`
}

// AuditConfig tunes the audit worker's drain loop.
type AuditConfig struct {
	BatchSize      int `envconfig:"MOTORLOTE_AUDIT_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOTORLOTE_AUDIT_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOTORLOTE_AUDIT_MAX_ATTEMPTS" default:"10"`
}
