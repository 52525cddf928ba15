package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.Gateway.DebounceSeconds != 2 {
		t.Fatalf("expected default debounce 2s, got %d", cfg.Gateway.DebounceSeconds)
	}
	if cfg.Agent.WorkingLanguage != "en-IN" {
		t.Fatalf("expected default working language en-IN, got %q", cfg.Agent.WorkingLanguage)
	}
}

func TestLoad_FileValuesAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		// json5: comments allowed
		gateway: {port: 9000, debounce_seconds: 5},
		agent: {model: "from-file"},
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGRIBOT_MODEL", "from-env")
	t.Setenv("AGRIBOT_GROQ_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Port != 9000 {
		t.Fatalf("expected port from file, got %d", cfg.Gateway.Port)
	}
	if cfg.Gateway.DebounceSeconds != 5 {
		t.Fatalf("expected debounce from file, got %d", cfg.Gateway.DebounceSeconds)
	}
	if cfg.Agent.Model != "from-env" {
		t.Fatalf("env should beat file, got model %q", cfg.Agent.Model)
	}
	if !cfg.HasLLM() {
		t.Fatal("expected HasLLM with key set")
	}
}

func TestLoad_LegacyWaitTimeEnv(t *testing.T) {
	t.Setenv("WAIT_TIME", "7")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gateway.DebounceSeconds != 7 {
		t.Fatalf("expected WAIT_TIME override, got %d", cfg.Gateway.DebounceSeconds)
	}
}

func TestHasDelivery(t *testing.T) {
	cfg := Default()
	if cfg.HasDelivery() {
		t.Fatal("empty WPPConnect config should not report delivery")
	}
	cfg.WPPConnect = WPPConnectConfig{BaseURL: "http://wpp:21465", Session: "bot", Token: "tok"}
	if !cfg.HasDelivery() {
		t.Fatal("expected delivery configured")
	}
}
