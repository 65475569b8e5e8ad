package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr() != "0.0.0.0:50051" {
		t.Fatalf("GRPCAddr = %q", cfg.GRPCAddr())
	}
	if cfg.SlotDuration != 30*time.Minute || cfg.Capacity != 2 {
		t.Fatalf("scheduler = %s/%d, want 30m/2", cfg.SlotDuration, cfg.Capacity)
	}
	if cfg.DatabaseDriver != DatabaseDriverPostgres {
		t.Fatalf("driver = %q", cfg.DatabaseDriver)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("jwt secret alias not honoured")
	}
	if cfg.KafkaBrokers != "" || cfg.RedisAddr != "" || cfg.OTelEnabled {
		t.Fatalf("optional integrations should be off by default: %+v", cfg)
	}
}

func TestLoad_PrefixedOverrides(t *testing.T) {
	t.Setenv("SHOPBOOK_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("SHOPBOOK_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("SHOPBOOK_DATABASE_DRIVER", "Memory")
	t.Setenv("SHOPBOOK_SCHEDULER_SLOT_DURATION", "45m")
	t.Setenv("SHOPBOOK_SCHEDULER_CAPACITY", "3")
	t.Setenv("SHOPBOOK_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCHost != "127.0.0.1" || cfg.GRPCPort != 6000 {
		t.Fatalf("grpc = %s:%d", cfg.GRPCHost, cfg.GRPCPort)
	}
	if cfg.DatabaseDriver != DatabaseDriverMemory {
		t.Fatalf("driver = %q, want memory", cfg.DatabaseDriver)
	}
	if cfg.SlotDuration != 45*time.Minute || cfg.Capacity != 3 {
		t.Fatalf("scheduler = %s/%d, want 45m/3", cfg.SlotDuration, cfg.Capacity)
	}
	if cfg.KafkaBrokers != "k1:9092, k2:9092" {
		t.Fatalf("brokers = %q", cfg.KafkaBrokers)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "auth.jwt_secret"},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "SHOPBOOK_SCHEDULER_SLOT_DURATION": "half an hour"}, "scheduler.slot_duration"},
		{"zero capacity", map[string]string{"JWT_SECRET": "x", "SHOPBOOK_SCHEDULER_CAPACITY": "0"}, "scheduler.capacity"},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "SHOPBOOK_DATABASE_DRIVER": "mysql"}, "database.driver"},
		{"sample ratio", map[string]string{"JWT_SECRET": "x", "OTEL_SAMPLING_RATIO": "2"}, "otel.sample_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("SHOPBOOK_AUTH_JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want mentioning %q", err, tt.want)
			}
		})
	}
}

func TestLoad_PublishQueue(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SHOPBOOK_KAFKA_PUBLISH_BUFFER", "16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.KafkaPublishBuffer != 16 || cfg.KafkaPublishMaxAttempts != 3 {
		t.Fatalf("publish queue = %d/%d, want 16/3", cfg.KafkaPublishBuffer, cfg.KafkaPublishMaxAttempts)
	}

	t.Setenv("SHOPBOOK_KAFKA_PUBLISH_MAX_ATTEMPTS", "0")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "kafka.publish_max_attempts") {
		t.Fatalf("Load error = %v, want kafka.publish_max_attempts", err)
	}
}

func TestLoadAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SHOPBOOK_AUTH_JWT_SECRET", "")

	auth, err := LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth without secret error: %v", err)
	}
	if auth.TokenTTL != 24*time.Hour || auth.JWTSecret != "" {
		t.Fatalf("auth = %+v, want 24h and no secret", auth)
	}

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SHOPBOOK_AUTH_TOKEN_TTL", "2h")
	auth, err = LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth error: %v", err)
	}
	if auth.TokenTTL != 2*time.Hour || auth.JWTSecret != "s3cret" {
		t.Fatalf("auth = %+v, want 2h and s3cret", auth)
	}

	t.Setenv("SHOPBOOK_AUTH_TOKEN_TTL", "-1h")
	if _, err := LoadAuth(); err == nil || !strings.Contains(err.Error(), "auth.token_ttl") {
		t.Fatalf("LoadAuth error = %v, want auth.token_ttl", err)
	}
}
