package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/runner"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playground.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Piston.BaseURL != piston.DefaultBaseURL {
		t.Errorf("base_url = %s", cfg.Piston.BaseURL)
	}
	if cfg.Piston.MaxRetries != 3 || cfg.Piston.Timeout != 30*time.Second {
		t.Errorf("piston = %+v", cfg.Piston)
	}
	if cfg.RunMode() != runner.ModeSequential {
		t.Errorf("mode = %s", cfg.RunMode())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("nats url = %q, want disabled", cfg.NATS.URL)
	}
	if cfg.Storage.DBPath != filepath.Join(dir, ".playground", "playground.db") {
		t.Errorf("db_path = %s", cfg.Storage.DBPath)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PISTON_URL", "http://piston.internal:2000/api/v2/execute")
	path := writeConfig(t, `
piston:
  base_url: ${PISTON_URL}
  max_retries: 5
  timeout: 10s
  requests_per_second: 2.5
runner:
  mode: parallel
server:
  port: 9090
  allowed_origins: ["https://play.example.com"]
log:
  level: debug
  development: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Piston.BaseURL != "http://piston.internal:2000/api/v2/execute" {
		t.Errorf("base_url = %s", cfg.Piston.BaseURL)
	}
	if cfg.Piston.MaxRetries != 5 || cfg.Piston.Timeout != 10*time.Second || cfg.Piston.RequestsPerSecond != 2.5 {
		t.Errorf("piston = %+v", cfg.Piston)
	}
	if cfg.RunMode() != runner.ModeParallel {
		t.Errorf("mode = %s", cfg.RunMode())
	}
	if cfg.Server.Port != 9090 || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if !cfg.Log.Development || cfg.Log.Level != "debug" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if got := len(cfg.PistonOptions()); got != 3 {
		t.Errorf("got %d piston options, want 3", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("PLAYGROUND_SERVER_PORT", "7070")
	t.Setenv("PLAYGROUND_NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override", cfg.Server.Port)
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("nats url = %s", cfg.NATS.URL)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown mode", "runner:\n  mode: batch\n"},
		{"negative retries", "piston:\n  max_retries: -1\n"},
		{"malformed yaml", "piston: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("explicit missing file should be an error")
	}
}
