package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Env        string `env:"APP_ENV" envDefault:"dev"`
	AppName    string `env:"APP_NAME" envDefault:"Hirebase API"`
	AppVersion string `env:"APP_VERSION" envDefault:"0.1.0"`
	Port       int    `env:"PORT" envDefault:"8080"`
	APIPrefix  string `env:"API_PREFIX"`

	DBURL         string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"5"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"30"`
	JWTRefreshTTLDays   int    `env:"JWT_REFRESH_TTL_DAYS" envDefault:"7"`
	BcryptCost          int    `env:"BCRYPT_COST"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes       int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaUserTopic string   `env:"KAFKA_USER_TOPIC" envDefault:"user-events"`

	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"hirebase-api"`

	SeedUserEmail     string `env:"SEED_USER_EMAIL"`
	SeedUserPassword  string `env:"SEED_USER_PASSWORD"`
	SeedUserFirstName string `env:"SEED_USER_FIRST_NAME" envDefault:"Platform"`
	SeedUserLastName  string `env:"SEED_USER_LAST_NAME" envDefault:"Admin"`

	JanitorIntervalSeconds  int `env:"JANITOR_INTERVAL_SECONDS" envDefault:"300"`
	JanitorRetentionMinutes int `env:"JANITOR_RETENTION_MINUTES" envDefault:"0"`
	WorkerHealthPort        int `env:"WORKER_HEALTH_PORT" envDefault:"8081"`
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	// a missing .env is normal outside local dev
	_ = godotenv.Load()

	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = buildDBURL()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTAccessTTLMinutes <= 0 || c.JWTRefreshTTLDays <= 0 {
		return errors.New("token TTLs must be positive")
	}

	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func (c Config) JanitorRetention() time.Duration {
	if c.JanitorRetentionMinutes <= 0 {
		return 0
	}
	return time.Duration(c.JanitorRetentionMinutes) * time.Minute
}

func (c Config) JanitorInterval() time.Duration {
	if c.JanitorIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.JanitorIntervalSeconds) * time.Second
}

// AllowedOrigins merges the local frontend defaults with CORS_ALLOWED_ORIGINS.
func (c Config) AllowedOrigins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		"http://localhost:8000",
	}

	seen := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		seen[o] = struct{}{}
	}

	for _, o := range c.CORSAllowedOrigins {
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		origins = append(origins, o)
	}

	return origins
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "hirebase")
	pass := getEnv("DB_PASSWORD", "hirebase")
	name := getEnv("DB_NAME", "hirebase")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
