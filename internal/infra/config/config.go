package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory   = "memory"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                   string
	LogLevel              string
	HTTPAddr              string
	StorageDriver         string
	MongoURI              string
	MongoDB               string
	PostgresDSN           string
	KafkaBrokers          []string
	KafkaTopicPrefix      string
	KafkaStatusGroup      string
	IdempotencyTTL        time.Duration
	OutboxPollInterval    time.Duration
	RetryBackoff          []time.Duration
	TxRetryBackoff        []time.Duration
	ReadRetryBackoff      []time.Duration
	BreakerTimeout        time.Duration
	AuthJWTSecret         string
	AuthJWTIssuer         string
	ServiceFeeBasisPoints int64
	DefaultCurrency       string
	ListingCacheTTL       time.Duration
	ListingCacheSize      int64
	CompleteStaysSchedule string
	SchedulerEnabled      bool
	ListingsFixtures      string
	CORSOrigins           []string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                   getEnv("APP_ENV", "dev"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		StorageDriver:         strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
		MongoURI:              os.Getenv("MONGO_URI"),
		MongoDB:               getEnv("MONGO_DB", "staybook"),
		PostgresDSN:           os.Getenv("POSTGRES_DSN"),
		KafkaTopicPrefix:      getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaStatusGroup:      getEnv("KAFKA_STATUS_GROUP", "staybook-booking-status"),
		AuthJWTSecret:         os.Getenv("AUTH_JWT_SECRET"),
		AuthJWTIssuer:         os.Getenv("AUTH_JWT_ISSUER"),
		DefaultCurrency:       strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		CompleteStaysSchedule: getEnv("COMPLETE_STAYS_SCHEDULE", "@hourly"),
		ListingsFixtures:      os.Getenv("LISTINGS_FIXTURES"),
		CORSOrigins:           splitList(getEnv("CORS_ORIGINS", "*")),
	}
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.BreakerTimeout, err = parseDurationEnv("BREAKER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ListingCacheTTL, err = parseDurationEnv("LISTING_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RetryBackoff, err = parseBackoffEnv("RETRY_BACKOFF", "1s,5s,30s"); err != nil {
		return Config{}, err
	}
	if cfg.TxRetryBackoff, err = parseBackoffEnv("TX_RETRY_BACKOFF", "25ms,50ms,100ms"); err != nil {
		return Config{}, err
	}
	if cfg.ReadRetryBackoff, err = parseBackoffEnv("READ_RETRY_BACKOFF", "50ms,150ms"); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerEnabled, err = parseBoolEnv("SCHEDULER_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.ServiceFeeBasisPoints, err = parseIntEnv("SERVICE_FEE_BPS", 1200); err != nil {
		return Config{}, err
	}
	if cfg.ListingCacheSize, err = parseIntEnv("LISTING_CACHE_SIZE", 10_000); err != nil {
		return Config{}, err
	}

	switch cfg.StorageDriver {
	case StorageMemory:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for storage driver %q", cfg.StorageDriver)
		}
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required for storage driver %q", cfg.StorageDriver)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.AuthJWTSecret == "" {
		return Config{}, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.ServiceFeeBasisPoints < 0 || cfg.ServiceFeeBasisPoints > 10_000 {
		return Config{}, fmt.Errorf("SERVICE_FEE_BPS must be between 0 and 10000, got %d", cfg.ServiceFeeBasisPoints)
	}
	if len(cfg.DefaultCurrency) != 3 {
		return Config{}, fmt.Errorf("DEFAULT_CURRENCY must be an ISO 4217 code, got %q", cfg.DefaultCurrency)
	}
	return cfg, nil
}

// KafkaEnabled reports whether broker addresses were configured.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBackoffEnv(key, def string) ([]time.Duration, error) {
	var out []time.Duration
	for _, raw := range strings.Split(getEnv(key, def), ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s component %q: %w", key, raw, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseIntEnv(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
