package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != StoreMemory || cfg.HTTPAddr != ":8080" || cfg.DefaultCurrency != "USD" || cfg.InvoiceDueDays != 14 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	want := []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}
	if len(cfg.RetryBackoff) != len(want) {
		t.Fatalf("backoff = %v", cfg.RetryBackoff)
	}
	for i := range want {
		if cfg.RetryBackoff[i] != want[i] {
			t.Fatalf("backoff = %v", cfg.RetryBackoff)
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2s")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != StoreSQLite {
		t.Fatalf("store = %q", cfg.Store)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.OutboxPollInterval != 2*time.Second || cfg.DefaultCurrency != "EUR" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE": "cassandra"}},
		{"postgres without url", map[string]string{"STORE": "postgres"}},
		{"bad backoff", map[string]string{"RETRY_BACKOFF": "1s,soon"}},
		{"bad ttl", map[string]string{"IDEMP_TTL": "forever"}},
		{"bad currency", map[string]string{"DEFAULT_CURRENCY": "DOLLARS"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadUnknownStoreIsTyped(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE", "cassandra")
	if _, err := Load(); !errors.Is(err, ErrUnknownStore) {
		t.Fatalf("err = %v", err)
	}
}
