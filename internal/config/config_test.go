package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	if cfg.App.Name != "fleetwatcher" {
		t.Fatalf("unexpected app name: %s", cfg.App.Name)
	}
	if cfg.Server.ListenAddr != ":8000" {
		t.Fatalf("unexpected listen addr: %s", cfg.Server.ListenAddr)
	}
	if cfg.Poller.Interval != 10*time.Second {
		t.Fatalf("unexpected poller interval: %s", cfg.Poller.Interval)
	}
	if cfg.Poller.Window != 5 {
		t.Fatalf("unexpected poller window: %d", cfg.Poller.Window)
	}
	if cfg.Poller.AssetID != "aircraft-C130-017" {
		t.Fatalf("unexpected poller asset: %s", cfg.Poller.AssetID)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected log level: %s", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Server.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty listen addr")
	}

	cfg = base()
	cfg.Poller.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero interval")
	}

	cfg = base()
	cfg.Poller.Window = 51
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for oversized window")
	}

	cfg = base()
	cfg.Poller.Window = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero window")
	}

	cfg = base()
	cfg.Export.MaxDataPoints = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max data points")
	}
}
