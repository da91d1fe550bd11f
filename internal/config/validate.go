package config

import (
	"errors"
	"fmt"
	"net/url"
)

const minIntervalMS = 200

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url must be set")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q must be an absolute http(s) url", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url scheme %q is not supported", u.Scheme)
	}
	if c.Server.TimeoutSeconds <= 0 {
		return errors.New("server.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.IntervalMS < minIntervalMS {
		return fmt.Errorf("camera.interval_ms must be at least %d", minIntervalMS)
	}
	if c.Camera.SnapshotPath != "" {
		return nil
	}
	if c.Camera.Device == "" {
		return errors.New("camera.device must be set when camera.snapshot_path is empty")
	}
	if c.Camera.Grabber == "" {
		return errors.New("camera.grabber must be set when camera.snapshot_path is empty")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}
