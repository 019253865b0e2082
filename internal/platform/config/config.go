package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	ServiceName string
	Log         LogConfig
	Auth        AuthConfig
	Admin       AdminConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Audit       AuditConfig
	Draw        DrawConfig
	Credits     CreditsConfig
	RateLimit   RateLimitConfig
	Tracing     TracingConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig configures access token signing and validation.
type AuthConfig struct {
	JWTSigningKey  string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// AdminConfig guards the admin API. TokenHash wins over Token when both are set.
type AdminConfig struct {
	Token     string
	TokenHash string
}

// Enabled reports whether any admin credential is configured.
func (a AdminConfig) Enabled() bool {
	return a.Token != "" || a.TokenHash != ""
}

// DatabaseConfig selects Postgres stores. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig enables the Redis-backed token revocation list when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig forwards audit events to Kafka when brokers are configured.
type AuditConfig struct {
	KafkaBrokers []string
	Topic        string
	BufferSize   int
}

type DrawConfig struct {
	CreditCost  int
	MaxAttempts int
}

// RateLimitConfig caps authenticated API requests per user. Counts live in
// Redis when it is configured.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Disabled bool
}

// TracingConfig exports spans over OTLP/HTTP when an endpoint is set.
type TracingConfig struct {
	OTLPEndpoint string
}

type CreditsConfig struct {
	SignupBonus int
}

const devJWTSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	intVar := func(key string, def int) int {
		v, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := Server{
		Addr:        envString("TOOLBOX_ADDR", ":8080"),
		ServiceName: envString("OTEL_SERVICE_NAME", "toolbox"),
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey:  envString("JWT_SIGNING_KEY", devJWTSigningKey),
			JWTIssuer:      envString("JWT_ISSUER", "toolbox"),
			JWTAudience:    envString("JWT_AUDIENCE", "toolbox-api"),
			AccessTokenTTL: durVar("ACCESS_TOKEN_TTL", 24*time.Hour),
		},
		Admin: AdminConfig{
			Token:     os.Getenv("ADMIN_TOKEN"),
			TokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    intVar("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    intVar("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: durVar("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intVar("REDIS_POOL_SIZE", 10),
			MinIdleConns: intVar("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durVar("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durVar("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durVar("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			KafkaBrokers: envList("KAFKA_BROKERS"),
			Topic:        envString("AUDIT_TOPIC", "toolbox.audit"),
			BufferSize:   intVar("AUDIT_BUFFER_SIZE", 1024),
		},
		Draw: DrawConfig{
			CreditCost:  intVar("DRAW_CREDIT_COST", 1),
			MaxAttempts: intVar("DRAW_MAX_ATTEMPTS", 20),
		},
		Credits: CreditsConfig{
			SignupBonus: intVar("CREDITS_SIGNUP_BONUS", 10),
		},
		RateLimit: RateLimitConfig{
			Requests: intVar("RATE_LIMIT_REQUESTS", 60),
			Window:   durVar("RATE_LIMIT_WINDOW", time.Minute),
			Disabled: envString("RATE_LIMIT_DISABLED", "false") == "true",
		},
		Tracing: TracingConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
	}

	if cfg.Draw.CreditCost < 0 {
		errs = append(errs, "DRAW_CREDIT_COST must not be negative")
	}
	if cfg.Draw.MaxAttempts < 1 {
		errs = append(errs, "DRAW_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.Credits.SignupBonus < 0 {
		errs = append(errs, "CREDITS_SIGNUP_BONUS must not be negative")
	}
	if cfg.RateLimit.Requests < 1 || cfg.RateLimit.Window <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// UsesDevSigningKey reports whether the built-in development JWT key is active.
func (s Server) UsesDevSigningKey() bool {
	return s.Auth.JWTSigningKey == devJWTSigningKey
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return v, nil
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
