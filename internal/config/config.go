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
	Engine       EngineConfig
	Notification NotificationConfig
	Review       ReviewConfig
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

// EngineConfig tunes the resolution engine and its scheduler.
type EngineConfig struct {
	IntervalSeconds     int
	BackoffBaseSeconds  int
	BackoffCapSeconds   int
	Workers             int
	AutoCloseConfidence float64
	EscalateConfidence  float64
	PassLockTTLSeconds  int
}

// NotificationConfig holds outbound email settings.
type NotificationConfig struct {
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	EmailFrom           string
	MaxDeliveryAttempts int
	RetryDelaySeconds   int
}

// ReviewConfig covers the manager review links and API.
type ReviewConfig struct {
	TokenSecret     string
	TokenTTLMinutes int
	BaseURL         string
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
			Name:                  getEnv("APP_NAME", "resolution-engine"),
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
		Engine: EngineConfig{
			IntervalSeconds:     getEnvAsInt("ENGINE_INTERVAL_SECONDS", 60),
			BackoffBaseSeconds:  getEnvAsInt("ENGINE_BACKOFF_BASE_SECONDS", 60),
			BackoffCapSeconds:   getEnvAsInt("ENGINE_BACKOFF_CAP_SECONDS", 900),
			Workers:             getEnvAsInt("ENGINE_WORKERS", 1),
			AutoCloseConfidence: getEnvAsFloat("ENGINE_AUTO_CLOSE_CONFIDENCE", 0.9),
			EscalateConfidence:  getEnvAsFloat("ENGINE_ESCALATE_CONFIDENCE", 0.5),
			PassLockTTLSeconds:  getEnvAsInt("ENGINE_PASS_LOCK_TTL_SECONDS", 300),
		},
		Notification: NotificationConfig{
			SMTPHost:            getEnv("SMTP_HOST", ""),
			SMTPPort:            getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:        os.Getenv("SMTP_USERNAME"),
			SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
			EmailFrom:           getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			MaxDeliveryAttempts: getEnvAsInt("NOTIFY_MAX_DELIVERY_ATTEMPTS", 3),
			RetryDelaySeconds:   getEnvAsInt("NOTIFY_RETRY_DELAY_SECONDS", 30),
		},
		Review: ReviewConfig{
			TokenSecret:     getEnv("REVIEW_TOKEN_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("REVIEW_TOKEN_TTL_MINUTES", 7*24*60),
			BaseURL:         getEnv("REVIEW_BASE_URL", "http://localhost:8080"),
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

// Interval returns the pass interval duration.
func (e EngineConfig) Interval() time.Duration {
	return time.Duration(e.IntervalSeconds) * time.Second
}

// BackoffBase returns the base delay for failed-pass backoff.
func (e EngineConfig) BackoffBase() time.Duration {
	return time.Duration(e.BackoffBaseSeconds) * time.Second
}

// BackoffCap returns the ceiling for failed-pass backoff.
func (e EngineConfig) BackoffCap() time.Duration {
	return time.Duration(e.BackoffCapSeconds) * time.Second
}

// PassLockTTL returns the cross-instance lock lifetime.
func (e EngineConfig) PassLockTTL() time.Duration {
	return time.Duration(e.PassLockTTLSeconds) * time.Second
}

// RetryDelay returns the spacing between delivery retries.
func (n NotificationConfig) RetryDelay() time.Duration {
	return time.Duration(n.RetryDelaySeconds) * time.Second
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
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
