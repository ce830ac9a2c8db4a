package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	// Setenv registers restoration, Unsetenv makes the var truly absent:
	// envconfig only enforces required on unset variables.
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pda")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pda")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", cfg.Server.Timezone)
	}
	if cfg.Storage.PresignTTL != 15*time.Minute {
		t.Errorf("PresignTTL = %v, want 15m", cfg.Storage.PresignTTL)
	}
	if cfg.Auth.QRTokenTTL != 12*time.Hour {
		t.Errorf("QRTokenTTL = %v, want 12h", cfg.Auth.QRTokenTTL)
	}
	if cfg.Storage.Enabled() {
		t.Error("storage should be disabled without a bucket")
	}
	if cfg.SMTP.Enabled() {
		t.Error("smtp should be disabled without host and username")
	}
	if cfg.Server.Addr() != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr())
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	c := ServerConfig{Timezone: "Not/AZone"}
	if got := c.Location(); got != time.UTC {
		t.Errorf("Location() = %v, want UTC", got)
	}

	c.Timezone = "UTC"
	if got := c.Location(); got.String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", got)
	}
}
