package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/attend/internal/app"
	"github.com/jwulff/attend/internal/attendance"
	"github.com/jwulff/attend/internal/capture"
	"github.com/jwulff/attend/internal/config"
	"github.com/jwulff/attend/internal/db"
	"github.com/jwulff/attend/internal/logging"
	"github.com/jwulff/attend/internal/scheduler"
)

// snapshotStaleIntervals is how many capture intervals a snapshot file may
// go without being refreshed before it counts as unavailable.
const snapshotStaleIntervals = 10

// exitError carries a non-zero exit status whose reason was already printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var name string
	var headless bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Verify one user's face and record attendance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			session, err := attendance.NewSession(userID, name)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("headless") {
				headless = !isTerminal(cmd.OutOrStdout())
			}

			logger, closer, err := ctx.logger(headless)
			if err != nil {
				return err
			}
			defer closer.Close()

			client, err := ctx.client(logger)
			if err != nil {
				return err
			}

			store, err := db.Open(cfg.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			source, device := newSource(cfg)
			dispatcher := app.NewDispatcher(nil)
			opts := app.Options{
				Session:    session,
				Source:     source,
				Verifier:   client,
				Scheduler:  scheduler.New(),
				Lock:       capture.NewDeviceLock(cfg.Camera.LockDir, device),
				Recorder:   store,
				Dispatcher: dispatcher,
				Interval:   cfg.Interval(),
				Headless:   headless,
				Logger:     logger,
			}
			if cfg.Camera.WaitForDevice && cfg.Camera.SnapshotPath == "" {
				opts.WaitForCamera = func(waitCtx context.Context) error {
					return capture.WaitForDevice(waitCtx, device, logger)
				}
			}

			logger.Info("kiosk starting",
				logging.String(logging.FieldEventType, "run_start"),
				logging.String(logging.FieldUserID, session.UserID()),
				logging.String(logging.FieldDevice, device),
				logging.Bool("headless", headless),
			)

			model, err := runProgram(cmd, app.New(opts), dispatcher, headless)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), model)
			logger.Info("kiosk finished",
				logging.String(logging.FieldEventType, "run_finish"),
				logging.Int("exit_code", model.ExitCode()),
				logging.Int("attempts", model.Attempts()),
			)
			if code := model.ExitCode(); code != app.ExitSuccess {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id to verify")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name shown on the kiosk")
	cmd.Flags().BoolVar(&headless, "headless", false, "Run without the terminal UI (default when stdout is not a terminal)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSource(cfg *config.Config) (app.Source, string) {
	if cfg.Camera.SnapshotPath != "" {
		staleAfter := time.Duration(snapshotStaleIntervals) * cfg.Interval()
		return capture.NewFileSource(cfg.Camera.SnapshotPath, staleAfter), cfg.Camera.SnapshotPath
	}
	return capture.NewCommandSource(cfg.Camera.Device, cfg.Camera.Grabber, cfg.Camera.GrabberArgs), cfg.Camera.Device
}

func runProgram(cmd *cobra.Command, model app.Model, dispatcher *app.Dispatcher, headless bool) (app.Model, error) {
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	programOpts := []tea.ProgramOption{
		tea.WithContext(runCtx),
		tea.WithOutput(cmd.OutOrStdout()),
	}
	if headless {
		programOpts = append(programOpts, tea.WithoutRenderer(), tea.WithInput(nil))
	} else {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	p := tea.NewProgram(model, programOpts...)
	dispatcher.Attach(p)
	defer model.Close()

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
			return model, context.Canceled
		}
		return model, fmt.Errorf("run kiosk: %w", err)
	}
	result, ok := final.(app.Model)
	if !ok {
		return model, fmt.Errorf("run kiosk: unexpected model %T", final)
	}
	return result, nil
}

func printResult(out io.Writer, m app.Model) {
	switch {
	case m.Fatal() != "":
		fmt.Fprintf(out, "Camera unavailable: %s\n", m.Fatal())
	case m.LastResult().Success:
		rec := m.LastResult().Record
		fmt.Fprintf(out, "%s: %s\n", rec.DisplayName, rec.Message)
		var details []string
		if rec.CheckInTime != "" {
			details = append(details, "check-in "+rec.CheckInTime)
		}
		if rec.CheckOutTime != "" {
			details = append(details, "check-out "+rec.CheckOutTime)
		}
		if len(details) > 0 {
			fmt.Fprintln(out, strings.Join(details, ", "))
		}
		if rec.DetectedImageURL != "" {
			fmt.Fprintf(out, "Image: %s\n", rec.DetectedImageURL)
		}
	case m.LastResult().Reason != "":
		fmt.Fprintf(out, "Attendance not recorded: %s\n", m.LastResult().Reason)
	default:
		fmt.Fprintln(out, "Cancelled")
	}
}

