package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "VERIFY_TOKEN", "APP_SECRET", "WEBHOOK_CHANNELS",
		"LOG_STORE", "LOG_FILE", "LOG_FORMAT", "REDIS_URL", "REDIS_KEY",
		"DATABASE_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "APPEND_WORKERS",
		"RECENT_LIMIT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERIFY_TOKEN", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port: got %q, want 3000", cfg.Port)
	}
	if cfg.VerifyToken != "s3cret" {
		t.Errorf("VerifyToken: got %q", cfg.VerifyToken)
	}
	if !reflect.DeepEqual(cfg.Channels, []string{"whatsapp"}) {
		t.Errorf("Channels: got %v", cfg.Channels)
	}
	if cfg.Store != "file" || cfg.LogFormat != "ndjson" || cfg.LogFile != "whatsapp_logs.jsonl" {
		t.Errorf("store defaults: got %q %q %q", cfg.Store, cfg.LogFormat, cfg.LogFile)
	}
	if cfg.AppendWorkers != 4 || cfg.RecentLimit != 10 {
		t.Errorf("got workers=%d recent=%d, want 4 and 10", cfg.AppendWorkers, cfg.RecentLimit)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("kafka mirror should be off by default, got %v", cfg.KafkaBrokers)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERIFY_TOKEN", "tok")
	t.Setenv("PORT", "8080")
	t.Setenv("WEBHOOK_CHANNELS", "whatsapp, instagram ,,messenger")
	t.Setenv("LOG_STORE", "REDIS")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("APPEND_WORKERS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port: got %q", cfg.Port)
	}
	if !reflect.DeepEqual(cfg.Channels, []string{"whatsapp", "instagram", "messenger"}) {
		t.Errorf("Channels: got %v", cfg.Channels)
	}
	if cfg.PrimaryChannel() != "whatsapp" {
		t.Errorf("PrimaryChannel: got %q", cfg.PrimaryChannel())
	}
	if cfg.Store != "redis" {
		t.Errorf("Store: got %q", cfg.Store)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("KafkaBrokers: got %v", cfg.KafkaBrokers)
	}
	if cfg.AppendWorkers != 4 {
		t.Errorf("invalid APPEND_WORKERS should fall back to 4, got %d", cfg.AppendWorkers)
	}
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gateway.yml")
	content := `
port: "4000"
verify_token: from-file
channels: [messenger]
log_format: legacy
recent_limit: 25
kafka:
  brokers: [broker:9092]
  topic: audit
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("env should win over file: Port got %q", cfg.Port)
	}
	if cfg.VerifyToken != "from-file" {
		t.Errorf("VerifyToken: got %q", cfg.VerifyToken)
	}
	if cfg.PrimaryChannel() != "messenger" {
		t.Errorf("PrimaryChannel: got %q", cfg.PrimaryChannel())
	}
	if cfg.LogFormat != "legacy" || cfg.RecentLimit != 25 {
		t.Errorf("got format=%q recent=%d", cfg.LogFormat, cfg.RecentLimit)
	}
	if cfg.KafkaTopic != "audit" || len(cfg.KafkaBrokers) != 1 {
		t.Errorf("kafka: got %v %q", cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	if cfg.LogFile != "whatsapp_logs.jsonl" {
		t.Errorf("unset file keys should keep defaults, LogFile got %q", cfg.LogFile)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing token", map[string]string{}, "VERIFY_TOKEN"},
		{"bad port", map[string]string{"VERIFY_TOKEN": "x", "PORT": "http"}, "PORT"},
		{"unknown store", map[string]string{"VERIFY_TOKEN": "x", "LOG_STORE": "s3"}, "LOG_STORE"},
		{"unknown format", map[string]string{"VERIFY_TOKEN": "x", "LOG_FORMAT": "csv"}, "LOG_FORMAT"},
		{"redis without url", map[string]string{"VERIFY_TOKEN": "x", "LOG_STORE": "redis"}, "REDIS_URL"},
		{"postgres without url", map[string]string{"VERIFY_TOKEN": "x", "LOG_STORE": "postgres"}, "DATABASE_URL"},
		{"zero recent limit", map[string]string{"VERIFY_TOKEN": "x", "RECENT_LIMIT": "0"}, "RECENT_LIMIT"},
		{"missing config file", map[string]string{"VERIFY_TOKEN": "x", "CONFIG_FILE": "/nonexistent/gateway.yml"}, "config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_UnknownYAMLKeyRejected(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gateway.yml")
	os.WriteFile(path, []byte("verify_tokn: typo\n"), 0644)
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}
