package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvServerURL    = "ATTEND_SERVER_URL"
	EnvCameraDevice = "ATTEND_CAMERA_DEVICE"
	EnvSnapshotPath = "ATTEND_SNAPSHOT_PATH"
	EnvLogLevel     = "ATTEND_LOG_LEVEL"
)

// loadDotEnv loads .env files from the config directory and the working
// directory. Variables already set in the environment win.
func loadDotEnv(configDir string) error {
	var files []string
	for _, dir := range []string{configDir, "."} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat env file: %w", err)
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		c.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCameraDevice)); v != "" {
		c.Camera.Device = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapshotPath)); v != "" {
		c.Camera.SnapshotPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalize() error {
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	c.Camera.Grabber = strings.TrimSpace(c.Camera.Grabber)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	paths := []*string{&c.Paths.DataDir, &c.Paths.LogDir, &c.Camera.LockDir, &c.Camera.SnapshotPath}
	for _, p := range paths {
		expanded, err := expandPath(strings.TrimSpace(*p))
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}
