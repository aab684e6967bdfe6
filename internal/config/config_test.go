package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/songzhiyuan98/klinelens-go/internal/config"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Params.ATRPeriod != 14 {
		t.Errorf("ATRPeriod = %d, want 14", cfg.Params.ATRPeriod)
	}
	if cfg.Server.DefaultTimeframe != types.Timeframe1m {
		t.Errorf("DefaultTimeframe = %v, want 1m", cfg.Server.DefaultTimeframe)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: 9999
  websocket_path: /live
provider:
  name: alpaca
params:
  atr_period: 20
`)
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Server.WebSocketPath != "/live" {
		t.Errorf("WebSocketPath = %q, want /live", cfg.Server.WebSocketPath)
	}
	if cfg.Server.ProviderName != "alpaca" {
		t.Errorf("ProviderName = %q, want alpaca", cfg.Server.ProviderName)
	}
	if cfg.Params.ATRPeriod != 20 {
		t.Errorf("ATRPeriod = %d, want 20", cfg.Params.ATRPeriod)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("KLINELENS_SERVER_PORT", "7777")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalidParams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
params:
  atr_period: -1
`)
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for negative atr_period")
	}
}
