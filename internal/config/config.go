package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Session      SessionConfig
	Vault        VaultConfig
	OTP          OTPConfig
	Notification NotificationConfig
	Worker       WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SessionConfig defines signed-cookie session parameters.
type SessionConfig struct {
	Secret             string
	CookieName         string
	MaxAgeDays         int
	PasswordIterations int
}

// VaultConfig defines secure-key encryption parameters. The salt is
// application-wide and fixed; per-record IVs provide uniqueness.
type VaultConfig struct {
	Secret     string
	Salt       string
	Iterations int
}

// OTPConfig defines one-time-password issuance parameters.
type OTPConfig struct {
	Digits          int
	TTLSeconds      int
	CooldownSeconds int
	MaxRequests     int
	MaxAttempts     int
}

// NotificationConfig holds email notifier settings.
type NotificationConfig struct {
	EmailFrom string
	Enabled   bool
}

// WorkerConfig controls background sweeps.
type WorkerConfig struct {
	SweepIntervalMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			Secret:             getEnv("SESSION_SECRET", "dev-secret"),
			CookieName:         getEnv("SESSION_COOKIE_NAME", "helpdesk_session"),
			MaxAgeDays:         getEnvAsInt("SESSION_MAX_AGE_DAYS", 7),
			PasswordIterations: getEnvAsInt("PASSWORD_HASH_ITERATIONS", 100000),
		},
		Vault: VaultConfig{
			Secret:     getEnv("VAULT_SECRET", "dev-vault-secret"),
			Salt:       getEnv("VAULT_SALT", "helpdesk-vault"),
			Iterations: getEnvAsInt("VAULT_KDF_ITERATIONS", 100000),
		},
		OTP: OTPConfig{
			Digits:          getEnvAsInt("OTP_DIGITS", 6),
			TTLSeconds:      getEnvAsInt("OTP_TTL_SECONDS", 900),
			CooldownSeconds: getEnvAsInt("OTP_COOLDOWN_SECONDS", 60),
			MaxRequests:     getEnvAsInt("OTP_MAX_REQUESTS", 3),
			MaxAttempts:     getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			Enabled:   getEnvAsBool("NOTIFY_ENABLED", true),
		},
		Worker: WorkerConfig{
			SweepIntervalMinutes: getEnvAsInt("WORKER_SWEEP_INTERVAL_MINUTES", 60),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MaxAge returns the session cookie lifetime.
func (s SessionConfig) MaxAge() time.Duration {
	days := s.MaxAgeDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// TTL returns the lifetime of an issued code.
func (o OTPConfig) TTL() time.Duration {
	return time.Duration(o.TTLSeconds) * time.Second
}

// Cooldown returns the minimum delay between re-requests.
func (o OTPConfig) Cooldown() time.Duration {
	return time.Duration(o.CooldownSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
