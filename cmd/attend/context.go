package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jwulff/attend/internal/config"
	"github.com/jwulff/attend/internal/db"
	"github.com/jwulff/attend/internal/logging"
	"github.com/jwulff/attend/internal/verify"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to the log file, plus stderr when echo is set. Stdout is
// left to the renderer or the MCP protocol.
func (c *commandContext) logger(echo bool) (*slog.Logger, io.Closer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	outputs := []string{cfg.LogPath()}
	if echo {
		outputs = append(outputs, "stderr")
	}
	logger, closer, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	return logger, closer, nil
}

func (c *commandContext) client(logger *slog.Logger) (*verify.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := verify.NewClient(cfg.Server.BaseURL, cfg.Timeout(), verify.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("verification client: %w", err)
	}
	return client, nil
}

// withReadStore opens the attendance log read-only. missing is true when
// nothing has been recorded on this machine yet.
func (c *commandContext) withReadStore(fn func(store *db.Store) error) (missing bool, err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(cfg.DBPath()); errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	store, err := db.OpenReadOnly(cfg.DBPath())
	if err != nil {
		return false, err
	}
	defer store.Close()
	return false, fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
