package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Kafka.Topic != "payment_settlements" {
		t.Errorf("Expected default topic, got %s", cfg.Kafka.Topic)
	}
	if cfg.Kafka.DLQTopic != "payment_settlements.dlq" {
		t.Errorf("Expected derived dead-letter topic, got %s", cfg.Kafka.DLQTopic)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("Expected openai provider, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.LLM.Timeout)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKER", "kafka-1:9092, kafka-2:9092")
	t.Setenv("LLM_PROVIDER", "GROQ")
	t.Setenv("DB_NAME", "ledger")
	t.Setenv("KAFKA_MAX_RETRIES", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("Expected groq provider, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.ActiveProvider().BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("Expected groq base url, got %s", cfg.LLM.ActiveProvider().BaseURL)
	}
	if cfg.Kafka.MaxRetries != 2 {
		t.Errorf("Expected 2 retries, got %d", cfg.Kafka.MaxRetries)
	}
	if want := "host=localhost port=5432 user=postgres password=postgres dbname=ledger sslmode=disable"; cfg.DB.DSN() != want {
		t.Errorf("Expected DSN %q, got %q", want, cfg.DB.DSN())
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "kafka_topic: bills\nhttp_addr: \":9000\"\nbreaker_max_failures: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Kafka.Topic != "bills" || cfg.Kafka.DLQTopic != "bills.dlq" {
		t.Errorf("Expected topic from file, got %s / %s", cfg.Kafka.Topic, cfg.Kafka.DLQTopic)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("Expected :9000, got %s", cfg.HTTPAddr)
	}
	if cfg.Breaker.MaxFailures != 2 {
		t.Errorf("Expected 2 breaker failures, got %d", cfg.Breaker.MaxFailures)
	}
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mystery")

	if _, err := Load(""); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
