package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "STORAGE_DRIVER", "MONGO_URI", "POSTGRES_DSN", "KAFKA_BROKERS",
		"TX_RETRY_BACKOFF", "READ_RETRY_BACKOFF", "SERVICE_FEE_BPS", "DEFAULT_CURRENCY", "IDEMP_TTL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("AUTH_JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Fatalf("expected memory driver, got %q", cfg.StorageDriver)
	}
	if cfg.ServiceFeeBasisPoints != 1200 {
		t.Fatalf("expected 1200 bps, got %d", cfg.ServiceFeeBasisPoints)
	}
	want := []time.Duration{25 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}
	if len(cfg.TxRetryBackoff) != len(want) {
		t.Fatalf("unexpected tx backoff %v", cfg.TxRetryBackoff)
	}
	for i := range want {
		if cfg.TxRetryBackoff[i] != want[i] {
			t.Fatalf("tx backoff[%d] = %v, want %v", i, cfg.TxRetryBackoff[i], want[i])
		}
	}
	if cfg.KafkaEnabled() {
		t.Fatalf("kafka must be disabled without brokers")
	}
	if cfg.IdempotencyTTL != 168*time.Hour {
		t.Fatalf("unexpected idempotency ttl %v", cfg.IdempotencyTTL)
	}
}

func TestLoadRequiresDriverSettings(t *testing.T) {
	cases := []struct {
		name   string
		driver string
		want   string
	}{
		{"mongo without uri", "mongo", "MONGO_URI"},
		{"postgres without dsn", "postgres", "POSTGRES_DSN"},
		{"unknown driver", "redis", "STORAGE_DRIVER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("STORAGE_DRIVER", tc.driver)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SERVICE_FEE_BPS":    "20000",
		"TX_RETRY_BACKOFF":   "25ms,soon",
		"IDEMP_TTL":          "forever",
		"DEFAULT_CURRENCY":   "DOLLARS",
		"READ_RETRY_BACKOFF": "x",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%q to be rejected", key, value)
			}
		})
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestLoadSplitsBrokers(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}
