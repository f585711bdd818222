package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LEDGER_SECRET_KEY", "s3cret")
	t.Setenv("ELECTION_YEAR", "")
	t.Setenv("LEDGER_APPEND_ATTEMPTS", "")
	t.Setenv("OUTBOX_POLL_INTERVAL", "")
	t.Setenv("AUTO_MIGRATE", "")
	t.Setenv("SEED_DEMO_DATA", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "ballotbox" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.ElectionYear != 0 || cfg.LedgerAppendAttempts != 5 || cfg.OutboxPollInterval != 2*time.Second {
		t.Fatalf("unexpected ledger defaults: %+v", cfg)
	}
	if !cfg.AutoMigrate || cfg.SeedDemoData {
		t.Fatalf("unexpected flag defaults: auto_migrate=%v seed=%v", cfg.AutoMigrate, cfg.SeedDemoData)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("LEDGER_SECRET_KEY", "s3cret")
	t.Setenv("ELECTION_YEAR", "2026")
	t.Setenv("LEDGER_APPEND_ATTEMPTS", "9")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("AUTO_MIGRATE", "off")
	t.Setenv("SEED_DEMO_DATA", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.ElectionYear != 2026 || cfg.LedgerAppendAttempts != 9 || cfg.OutboxPollInterval != 500*time.Millisecond {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.AutoMigrate || !cfg.SeedDemoData {
		t.Fatalf("unexpected flags: auto_migrate=%v seed=%v", cfg.AutoMigrate, cfg.SeedDemoData)
	}
}

func TestLoadRequiresLedgerSecret(t *testing.T) {
	t.Setenv("LEDGER_SECRET_KEY", "  ")
	if _, err := Load(); !errors.Is(err, ErrLedgerSecretRequired) {
		t.Fatalf("expected ErrLedgerSecretRequired, got %v", err)
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("LEDGER_SECRET_KEY", "s3cret")
	t.Setenv("ELECTION_YEAR", "twenty")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed ELECTION_YEAR")
	}

	t.Setenv("ELECTION_YEAR", "")
	t.Setenv("LEDGER_APPEND_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-positive LEDGER_APPEND_ATTEMPTS")
	}
}
