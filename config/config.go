package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. FACULTY_AUTH_JWT_SECRET.
const EnvPrefix = "faculty"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Broker     BrokerConfig     `yaml:"broker"`
	QR         QRConfig         `yaml:"qr"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"               split_words:"true"`
	PublicURL       string  `yaml:"public_url"         envconfig:"PUBLIC_URL"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" split_words:"true"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"   split_words:"true"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"  split_words:"true"`
	ShutdownTimeout int     `yaml:"shutdown_timeout_seconds" envconfig:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"            split_words:"true"`
	MaxIdleConns           int    `yaml:"max_idle_conns"            split_words:"true"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" split_words:"true"`
	LogLevel               string `yaml:"log_level"                 split_words:"true"`
}

// AuthConfig holds the signing and hashing parameters for faculty credentials.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"        envconfig:"JWT_SECRET"`
	Issuer          string        `yaml:"issuer"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes" split_words:"true"`
	TokenTTL        time.Duration `yaml:"-"                 ignored:"true"`
	BcryptCost      int           `yaml:"bcrypt_cost"       split_words:"true"`
}

// RealtimeConfig tunes the websocket fan-out.
type RealtimeConfig struct {
	SendBuffer          int           `yaml:"send_buffer"           split_words:"true"`
	PingIntervalSeconds int           `yaml:"ping_interval_seconds" split_words:"true"`
	PingInterval        time.Duration `yaml:"-"                     ignored:"true"`
	AllowedOrigins      []string      `yaml:"allowed_origins"       split_words:"true"`
}

// BrokerConfig enables the optional NATS bridge between server processes.
type BrokerConfig struct {
	NATSURL       string `yaml:"nats_url"       envconfig:"NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" split_words:"true"`
}

// QRConfig holds the QR image parameters.
type QRConfig struct {
	Size            int `yaml:"size"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" split_words:"true"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"  envconfig:"VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" envconfig:"VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size" split_words:"true"`
}

// Load reads the configuration from the given path and applies environment overrides.
// An empty path skips the file and starts from defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:faculty_availability.db?_foreign_keys=on"
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "faculty-availability"
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 24 * 60
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if cfg.Auth.JWTSecret == "" {
		log.Printf("auth.jwt_secret is not set; using an insecure development secret")
		cfg.Auth.JWTSecret = "your-secret-key"
	}

	if cfg.Realtime.SendBuffer <= 0 {
		cfg.Realtime.SendBuffer = 64
	}
	if cfg.Realtime.PingIntervalSeconds <= 0 {
		cfg.Realtime.PingIntervalSeconds = 30
	}
	cfg.Realtime.PingInterval = time.Duration(cfg.Realtime.PingIntervalSeconds) * time.Second

	if cfg.Broker.SubjectPrefix == "" {
		cfg.Broker.SubjectPrefix = "faculty.status"
	}

	if cfg.QR.Size <= 0 {
		cfg.QR.Size = 300
	}
	if cfg.QR.CacheTTLSeconds <= 0 {
		cfg.QR.CacheTTLSeconds = 3600
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
}

type contextKey struct{}

// WithContext stores cfg in ctx.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the config stored by WithContext, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}
