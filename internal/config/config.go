package config

import (
	"errors"
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
	AMQP         AMQPConfig
	Logger       LoggerConfig
	Suggestion   UpstreamConfig
	Generation   UpstreamConfig
	Pipeline     PipelineConfig
	Seed         SeedConfig
	Notification NotificationConfig
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

// PostgresConfig holds DB connection values for the lifecycle audit log.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	EventChannel string
}

// AMQPConfig holds RabbitMQ values. An empty URL disables the publisher.
type AMQPConfig struct {
	URL           string
	Exchange      string
	RetryAttempts int
	RetryDelay    time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// UpstreamConfig points at one of the external AI services.
type UpstreamConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// PipelineConfig holds the draft lifecycle policy.
type PipelineConfig struct {
	AutoSendThreshold float64
	AutoSendDelay     time.Duration
	AutoSendLatency   time.Duration
	SendLatency       time.Duration
	RelayBuffer       int
}

// SeedConfig locates the initial ticket fixture. Empty Path uses built-in tickets.
type SeedConfig struct {
	Path string
}

// NotificationConfig points operator notifications at a webhook. An empty
// URL disables delivery.
type NotificationConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	threshold, err := strconv.ParseFloat(getEnv("PIPELINE_AUTO_SEND_THRESHOLD", "0.9"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_AUTO_SEND_THRESHOLD: %w", err)
	}

	upstreamTimeout := getEnvAsDuration("UPSTREAM_TIMEOUT", 60*time.Second)

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "draft-pipeline"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 90),
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
			Addr:         os.Getenv("REDIS_ADDR"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			EventChannel: getEnv("REDIS_EVENT_CHANNEL", "draft-pipeline.events"),
		},
		AMQP: AMQPConfig{
			URL:           os.Getenv("AMQP_URL"),
			Exchange:      getEnv("AMQP_EXCHANGE", "draft-pipeline"),
			RetryAttempts: getEnvAsInt("AMQP_RETRY_ATTEMPTS", 5),
			RetryDelay:    getEnvAsDuration("AMQP_RETRY_DELAY", time.Second),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Suggestion: UpstreamConfig{
			BaseURL: getEnv("SUGGESTION_BASE_URL", "http://127.0.0.1:8000"),
			Model:   getEnv("SUGGESTION_MODEL", "gpt-4"),
			Timeout: getEnvAsDuration("SUGGESTION_TIMEOUT", upstreamTimeout),
		},
		Generation: UpstreamConfig{
			BaseURL: getEnv("GENERATION_BASE_URL", "http://127.0.0.1:8000"),
			Model:   getEnv("GENERATION_MODEL", "gpt-4"),
			Timeout: getEnvAsDuration("GENERATION_TIMEOUT", upstreamTimeout),
		},
		Pipeline: PipelineConfig{
			AutoSendThreshold: threshold,
			AutoSendDelay:     getEnvAsDuration("PIPELINE_AUTO_SEND_DELAY", 1500*time.Millisecond),
			AutoSendLatency:   getEnvAsDuration("PIPELINE_AUTO_SEND_LATENCY", time.Second),
			SendLatency:       getEnvAsDuration("PIPELINE_SEND_LATENCY", 800*time.Millisecond),
			RelayBuffer:       getEnvAsInt("PIPELINE_RELAY_BUFFER", 256),
		},
		Seed: SeedConfig{
			Path: os.Getenv("SEED_FILE"),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("NOTIFY_WEBHOOK_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects policies the orchestrator cannot honor.
func (p PipelineConfig) Validate() error {
	if p.AutoSendThreshold < 0 || p.AutoSendThreshold > 1 {
		return fmt.Errorf("auto-send threshold %v outside [0,1]", p.AutoSendThreshold)
	}
	if p.AutoSendDelay < 0 || p.AutoSendLatency < 0 || p.SendLatency < 0 {
		return errors.New("pipeline delays must not be negative")
	}
	return nil
}

// DefaultPipeline returns the reference timings.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		AutoSendThreshold: 0.9,
		AutoSendDelay:     1500 * time.Millisecond,
		AutoSendLatency:   time.Second,
		SendLatency:       800 * time.Millisecond,
		RelayBuffer:       256,
	}
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
