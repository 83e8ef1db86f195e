package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "UTC")

	cfg, err := LoadArgs(nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "./data/request-hub.db" {
		t.Errorf("Expected default DB path, got '%s'", cfg.DBPath)
	}
	if cfg.AdaptorsDir != "./adaptors" {
		t.Errorf("Expected default adaptors dir, got '%s'", cfg.AdaptorsDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 5 || cfg.SchedulerInterval != 30 || cfg.BroadcastLimit != 10 {
		t.Errorf("Unexpected numeric defaults: %+v", cfg)
	}
	if cfg.BroadcastSchedule != "" {
		t.Errorf("Expected no broadcast schedule by default, got '%s'", cfg.BroadcastSchedule)
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFromEnvAndFlags(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("DB_PATH", "/tmp/hub.db")
	t.Setenv("BROADCAST_SCHEDULE", "@daily")
	t.Setenv("API_ACCESS_KEY", "secret")

	cfg, err := LoadArgs([]string{"--port", "9090", "--debug", "--broadcast-limit", "0"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "/tmp/hub.db" {
		t.Errorf("Expected DB path from env, got '%s'", cfg.DBPath)
	}
	if cfg.BroadcastSchedule != "@daily" || cfg.APIAccessKey != "secret" {
		t.Errorf("Expected env values, got %+v", cfg)
	}
	if cfg.Port != "9090" || !cfg.Debug || cfg.BroadcastLimit != 0 {
		t.Errorf("Expected flag values, got %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("TZ", "UTC")

	if _, err := LoadArgs([]string{"--worker-count", "0"}); err == nil {
		t.Error("Expected error for zero workers")
	}
	if _, err := LoadArgs([]string{"--broadcast-limit", "-1"}); err == nil {
		t.Error("Expected error for negative broadcast limit")
	}
	if _, err := LoadArgs([]string{"--unknown-flag"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestApplyTimezone(t *testing.T) {
	original := time.Local
	defer func() { time.Local = original }()

	if err := applyTimezone("Africa/Nairobi"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if time.Local.String() != "Africa/Nairobi" {
		t.Errorf("Expected time.Local to be Africa/Nairobi, got %s", time.Local)
	}

	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}

func TestPublicURL(t *testing.T) {
	cfg := &Cfg{Port: "8080"}
	if cfg.PublicURL() != "http://localhost:8080" {
		t.Errorf("Expected localhost URL, got %s", cfg.PublicURL())
	}

	cfg.BaseUrl = "https://hub.example.com"
	if cfg.PublicURL() != "https://hub.example.com" {
		t.Errorf("Expected base URL, got %s", cfg.PublicURL())
	}
}
