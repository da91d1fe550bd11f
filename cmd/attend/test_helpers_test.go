package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jwulff/attend/internal/config"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	snapshot   string
}

func setupCLITestEnv(t *testing.T, serverURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{config.EnvServerURL, config.EnvCameraDevice, config.EnvSnapshotPath, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	snapshot := filepath.Join(base, "snapshot.jpg")
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 12)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.WriteFile(snapshot, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	if serverURL == "" {
		serverURL = "http://127.0.0.1:1"
	}
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[server]
base_url = %q
timeout_seconds = 5

[camera]
snapshot_path = %q
interval_ms = 200
lock_dir = %q

[paths]
data_dir = %q
log_dir = %q

[logging]
level = "debug"
`, serverURL, snapshot, filepath.Join(base, "locks"), filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath, snapshot: snapshot}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// mockService imitates the verification service.
type mockService struct {
	status      int
	verify      map[string]any
	checkedIn   bool
	verifyCalls atomic.Int32
}

func (m *mockService) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/verify_face/", func(w http.ResponseWriter, r *http.Request) {
		m.verifyCalls.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if m.status != 0 {
			w.WriteHeader(m.status)
		}
		_ = json.NewEncoder(w).Encode(m.verify)
	})
	mux.HandleFunc("/attendance_status/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"checked_in": m.checkedIn, "checked_out": false})
	})
	mux.HandleFunc("/get_times/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"check_in_start":  "08:00",
			"check_in_end":    "10:00",
			"check_out_start": "17:00",
			"check_out_end":   "19:00",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
