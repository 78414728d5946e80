package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/airpnp/airpnp/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airpnp.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
bridge:
  base_port: 30000
web:
  enabled: true
  port: 9090
`)

	cfg := config.LoadConfig(path)
	if cfg.GetBasePort() != 30000 {
		t.Fatalf("wrong base port: %d", cfg.GetBasePort())
	}
	if !cfg.GetWebEnabled() || cfg.GetWebPort() != 9090 {
		t.Fatal("web settings not loaded")
	}
}

func TestDefaultsForMissingKeys(t *testing.T) {
	cfg := config.LoadConfig(writeConfig(t, "log:\n  level: debug\n"))

	if cfg.GetLogLevel() != "debug" {
		t.Fatalf("wrong log level: %s", cfg.GetLogLevel())
	}
	// everything else falls back on defaults
	if cfg.GetBasePort() != 22555 {
		t.Fatalf("wrong default base port: %d", cfg.GetBasePort())
	}
	if cfg.GetWebEnabled() {
		t.Fatal("web should default to disabled")
	}
	if cfg.GetAirPlayModel() != "AppleTV2,1" {
		t.Fatalf("wrong default model: %s", cfg.GetAirPlayModel())
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AIRPNP_CONFIG__BRIDGE__BASE_PORT", "23000")

	cfg := config.LoadConfig(writeConfig(t, "bridge:\n  base_port: 30000\n"))
	if cfg.GetBasePort() != 23000 {
		t.Fatalf("env override not applied: %d", cfg.GetBasePort())
	}
}

func TestKeysAreCaseInsensitive(t *testing.T) {
	cfg := config.LoadConfig(writeConfig(t, "Bridge:\n  Base_Port: 31000\n"))
	if cfg.GetBasePort() != 31000 {
		t.Fatalf("mixed-case keys not normalized: %d", cfg.GetBasePort())
	}
}

func TestSetAndGetValue(t *testing.T) {
	cfg := config.LoadConfig(writeConfig(t, "{}\n"))

	cfg.SetValue([]string{"devices", "renderer", "udn"}, "uuid:abc")
	v, err := cfg.GetValue([]string{"devices", "renderer", "udn"})
	if err != nil {
		t.Fatal(err)
	}
	if v != "uuid:abc" {
		t.Fatalf("wrong value: %v", v)
	}

	if _, err := cfg.GetValue([]string{"devices", "missing"}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
