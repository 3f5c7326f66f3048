package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("ECELL_DATABASE_URL", "postgres://localhost/ecell")
	t.Setenv("ECELL_ADMIN_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("ECELL_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("PORT should win and gain a colon: %q", cfg.Addr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("session ttl default: %s", cfg.SessionTTL)
	}
}

func TestLoadAPIFromEnvRequired(t *testing.T) {
	t.Setenv("ECELL_DATABASE_URL", "")
	t.Setenv("ECELL_ADMIN_SECRET", "s3cret")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected missing database url to fail")
	}

	t.Setenv("ECELL_DATABASE_URL", "postgres://localhost/ecell")
	t.Setenv("ECELL_ADMIN_SECRET", "")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected missing admin secret to fail")
	}
}

func TestGameParamsFromEnv(t *testing.T) {
	t.Setenv("ECELL_STARTING_CASH", "25000")
	t.Setenv("ECELL_ROUND_DURATION", "2m")
	t.Setenv("ECELL_ROUNDS", "5")
	t.Setenv("ECELL_FREEZE_FOR", "not-a-duration")

	p := GameParamsFromEnv()
	if !p.StartingCash.Equal(decimal.NewFromInt(25_000)) {
		t.Fatalf("starting cash override: %s", p.StartingCash)
	}
	if p.RoundDuration != 2*time.Minute || p.Rounds != 5 {
		t.Fatalf("round=%s rounds=%d", p.RoundDuration, p.Rounds)
	}
	if p.FreezeFor != 30*time.Second {
		t.Fatalf("bad duration should keep the default: %s", p.FreezeFor)
	}
	if !p.StartingPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("untouched knob changed: %s", p.StartingPrice)
	}
}
