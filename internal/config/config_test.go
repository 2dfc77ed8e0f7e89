package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("SNAPSHOT_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("port = %s, want %s", cfg.Port, DefaultPort)
	}
	if cfg.SnapshotInterval != DefaultSnapshotInterval {
		t.Errorf("interval = %s, want %s", cfg.SnapshotInterval, DefaultSnapshotInterval)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SNAPSHOT_INTERVAL", "30s")
	t.Setenv("RATE_LIMIT_RPM", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Port)
	}
	if cfg.SnapshotInterval != 30*time.Second {
		t.Errorf("interval = %s, want 30s", cfg.SnapshotInterval)
	}
	if cfg.RateLimitRPM != 60 {
		t.Errorf("rpm = %d, want 60", cfg.RateLimitRPM)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{SnapshotInterval: 100 * time.Millisecond, RateLimitRPM: 60, Env: "development", AllowedOrigins: "*"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sub-second interval")
	}

	cfg = &Config{SnapshotInterval: time.Minute, RateLimitRPM: 0, Env: "development", AllowedOrigins: "*"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero rate limit")
	}

	cfg = &Config{SnapshotInterval: time.Minute, RateLimitRPM: 60, Env: "production", AllowedOrigins: "*"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for wildcard origins in production")
	}
}
