package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEEPSEEK_API_KEY",
		"DATA_DIR", "FOODGATE_ADDR", "FOODGATE_DEBUG",
	} {
		t.Setenv(v, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foodgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("unexpected data dir: %q", cfg.DataDir)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.Tiers.Light.Adapter != "google" || cfg.Tiers.Light.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected light tier: %+v", cfg.Tiers.Light)
	}
	if cfg.Tiers.Heavy.Adapter != "google" {
		t.Fatalf("unexpected heavy tier: %+v", cfg.Tiers.Heavy)
	}
	if cfg.PoolSize != 32 {
		t.Fatalf("unexpected pool size: %d", cfg.PoolSize)
	}
}

func TestLoadReadsFileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api_keys:
  gemini: file-gemini
data_dir: /srv/food
addr: ":9000"
tiers:
  heavy:
    adapter: anthropic
    model: claude-sonnet-4-20250514
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeminiAPIKey != "file-gemini" {
		t.Fatalf("unexpected key: %q", cfg.GeminiAPIKey)
	}
	if cfg.DataDir != "/srv/food" || cfg.Addr != ":9000" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Tiers.Heavy.Adapter != "anthropic" {
		t.Fatalf("unexpected heavy tier: %+v", cfg.Tiers.Heavy)
	}
	// unset tiers still get defaults
	if cfg.Tiers.Light.Adapter != "google" {
		t.Fatalf("light tier default missing: %+v", cfg.Tiers.Light)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "api_keys:\n  gemini: file-gemini\ndata_dir: /srv/food\n")
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("DATA_DIR", "/env/food")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeminiAPIKey != "env-gemini" {
		t.Fatalf("env must win: %q", cfg.GeminiAPIKey)
	}
	if cfg.DataDir != "/env/food" {
		t.Fatalf("env must win: %q", cfg.DataDir)
	}
}

func TestLoadRejectsUnknownTierAdapter(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "tiers:\n  light:\n    adapter: telepathy\n    model: m\n")
	if _, err := Load(path); err == nil {
		t.Fatal("unknown adapter must be rejected")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "api_keys: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml must be rejected")
	}
}

func TestHasAdapter(t *testing.T) {
	cfg := &Config{GeminiAPIKey: "k"}
	if !cfg.HasAdapter("google") {
		t.Fatal("google key is set")
	}
	if cfg.HasAdapter("openai") {
		t.Fatal("openai key is not set")
	}
	if !cfg.HasAdapter("mock") {
		t.Fatal("mock never needs a key")
	}
}
