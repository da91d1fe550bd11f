package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvServerURL, EnvCameraDevice, EnvSnapshotPath, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Error("exists = true for missing file")
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Interval() != 1800*time.Millisecond {
		t.Errorf("interval = %v, want 1.8s", cfg.Interval())
	}
	if cfg.Server.BaseURL != defaultServerURL {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Errorf("data dir %q should be absolute", cfg.Paths.DataDir)
	}
}

func TestLoadParsesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
base_url = "https://attendance.example.com/api/"
timeout_seconds = 5

[camera]
snapshot_path = "`+filepath.Join(dir, "snap.jpg")+`"
interval_ms = 1000

[paths]
data_dir = "`+filepath.Join(dir, "data")+`"

[logging]
format = "JSON"
level = "Debug"
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Error("exists = false")
	}
	if cfg.Server.BaseURL != "https://attendance.example.com/api" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.DBPath() != filepath.Join(dir, "data", "attend.sqlite") {
		t.Errorf("db path = %q", cfg.DBPath())
	}
	if cfg.Camera.Device != defaultCameraDevice {
		t.Errorf("device default lost: %q", cfg.Camera.Device)
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "[server]\nbase_url = \"http://file:8000\"\n")
	t.Setenv(EnvServerURL, "http://env:9000")
	t.Setenv(EnvCameraDevice, "/dev/video2")

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.BaseURL != "http://env:9000" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Camera.Device != "/dev/video2" {
		t.Errorf("device = %q", cfg.Camera.Device)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ATTEND_LOG_LEVEL=warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set, so unset it.
	os.Unsetenv(EnvLogLevel)

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"relative url", func(c *Config) { c.Server.BaseURL = "localhost:8000" }, "base_url"},
		{"ftp url", func(c *Config) { c.Server.BaseURL = "ftp://host" }, "scheme"},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"fast interval", func(c *Config) { c.Camera.IntervalMS = 50 }, "interval_ms"},
		{"no device", func(c *Config) { c.Camera.Device = "" }, "camera.device"},
		{"snapshot without device", func(c *Config) { c.Camera.Device = ""; c.Camera.SnapshotPath = "/tmp/x.jpg" }, ""},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists || cfg.Camera.Grabber != "ffmpeg" {
		t.Errorf("sample config = %+v", cfg.Camera)
	}
	if _, err := cfg.Encode(); err != nil {
		t.Errorf("encode: %v", err)
	}
}
