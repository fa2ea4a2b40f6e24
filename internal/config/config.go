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
	Assistant    AssistantConfig
	Cache        CacheConfig
	Conversation ConversationConfig
	Renewal      RenewalConfig
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

// AssistantConfig defines completion-provider parameters.
type AssistantConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float64
	TimeoutSeconds int
}

// Timeout returns the bounded provider call timeout.
func (a AssistantConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// CacheConfig bounds the assistant response cache.
type CacheConfig struct {
	MaxEntries int
	TTLHours   int
	EvictBatch int
}

// TTL returns the entry time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ConversationConfig bounds per-ticket conversation history.
type ConversationConfig struct {
	MaxHistory    int
	ContextWindow int
	RetentionDays int
	KeywordCap    int
}

// Retention returns the conversation retention window.
func (c ConversationConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// RenewalConfig holds renewal pricing.
type RenewalConfig struct {
	UnitCost int
}

// NotificationConfig names the fixed operator channel.
type NotificationConfig struct {
	OperatorChannel string
}

// WorkerConfig controls background job cadence.
type WorkerConfig struct {
	SweepIntervalMinutes  int
	ExpiryCheckHours      int
	ExpiryReminderEnabled bool
}

// SweepInterval returns the conversation sweep cadence.
func (w WorkerConfig) SweepInterval() time.Duration {
	if w.SweepIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(w.SweepIntervalMinutes) * time.Minute
}

// ExpiryCheckInterval returns the subscription expiry scan cadence.
func (w WorkerConfig) ExpiryCheckInterval() time.Duration {
	if w.ExpiryCheckHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(w.ExpiryCheckHours) * time.Hour
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	temperature, err := strconv.ParseFloat(getEnv("ASSISTANT_TEMPERATURE", "0.3"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ASSISTANT_TEMPERATURE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
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
		Assistant: AssistantConfig{
			APIKey:         os.Getenv("ASSISTANT_API_KEY"),
			BaseURL:        getEnv("ASSISTANT_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("ASSISTANT_MODEL", "gpt-3.5-turbo"),
			MaxTokens:      getEnvAsInt("ASSISTANT_MAX_TOKENS", 400),
			Temperature:    temperature,
			TimeoutSeconds: getEnvAsInt("ASSISTANT_TIMEOUT_SECONDS", 30),
		},
		Cache: CacheConfig{
			MaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 500),
			TTLHours:   getEnvAsInt("CACHE_TTL_HOURS", 24),
			EvictBatch: getEnvAsInt("CACHE_EVICT_BATCH", 50),
		},
		Conversation: ConversationConfig{
			MaxHistory:    getEnvAsInt("CONVERSATION_MAX_HISTORY", 20),
			ContextWindow: getEnvAsInt("CONVERSATION_CONTEXT_WINDOW", 10),
			RetentionDays: getEnvAsInt("CONVERSATION_RETENTION_DAYS", 7),
			KeywordCap:    getEnvAsInt("CONVERSATION_KEYWORD_CAP", 10),
		},
		Renewal: RenewalConfig{
			UnitCost: getEnvAsInt("RENEWAL_UNIT_COST", 15),
		},
		Notification: NotificationConfig{
			OperatorChannel: getEnv("NOTIFY_OPERATOR_CHANNEL", "support:operator"),
		},
		Worker: WorkerConfig{
			SweepIntervalMinutes:  getEnvAsInt("WORKER_SWEEP_INTERVAL_MINUTES", 60),
			ExpiryCheckHours:      getEnvAsInt("WORKER_EXPIRY_CHECK_HOURS", 24),
			ExpiryReminderEnabled: getEnvAsBool("WORKER_EXPIRY_REMINDERS", true),
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
