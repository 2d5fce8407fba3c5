package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.SetDefault("TOKEN_TTL_MINUTES", 0)
	v.SetDefault("TAX_SEASON_MONTH", 13)
	cfg := fromViper(v)
	if cfg.TokenTTL != 60*time.Minute {
		t.Fatalf("expected 60m fallback ttl, got %v", cfg.TokenTTL)
	}
	if cfg.TaxSeasonMonth != 0 {
		t.Fatalf("expected out of range month to lock the vault, got %d", cfg.TaxSeasonMonth)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL_MINUTES", "15")
	t.Setenv("TAX_SEASON_MONTH", "0")
	t.Setenv("TAX_WITHHOLD_RATE", "0.15")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m ttl, got %v", cfg.TokenTTL)
	}
	if cfg.TaxSeasonMonth != 0 || cfg.TaxWithholdRate != "0.15" {
		t.Fatalf("unexpected vault config: %#v", cfg)
	}
	if cfg.ReminderSchedule != "0 8 * * *" {
		t.Fatalf("unexpected reminder schedule: %s", cfg.ReminderSchedule)
	}
}

func TestValidate(t *testing.T) {
	base := Config{AppEnv: "development", DatabaseURL: "postgres://x", JWTSecret: devJWTSecret}
	if err := base.Validate(); err != nil {
		t.Fatalf("development defaults should validate: %v", err)
	}
	prod := base
	prod.AppEnv = "Production"
	if err := prod.Validate(); err == nil {
		t.Fatalf("expected default secret to be rejected in production")
	}
	prod.JWTSecret = "a-real-secret"
	if err := prod.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	missing := base
	missing.DatabaseURL = ""
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected missing database url to be rejected")
	}
}

func TestNewLoggerTagsComponent(t *testing.T) {
	logger := Config{AppEnv: "production"}.NewLogger("server")
	if logger == nil || logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("production logger must not emit debug records")
	}
	if !(Config{}).NewLogger("worker").Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("development logger should emit debug records")
	}
}

func TestOrigins(t *testing.T) {
	if got := (Config{}).Origins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("expected wildcard, got %v", got)
	}
	got := Config{AllowedOrigins: "https://a.example, https://b.example ,"}.Origins()
	if len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}
