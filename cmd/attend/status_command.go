package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jwulff/attend/internal/attendance"
	"github.com/jwulff/attend/internal/db"
	"github.com/jwulff/attend/internal/logging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a user's attendance status and the allowed time windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := ctx.logger(false)
			if err != nil {
				return err
			}
			defer closer.Close()

			client, err := ctx.client(logger)
			if err != nil {
				return err
			}

			status, err := client.Status(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("attendance status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:        %s\n", userID)
			fmt.Fprintf(out, "Checked in:  %s\n", yesNo(status.CheckedIn))
			fmt.Fprintf(out, "Checked out: %s\n", yesNo(status.CheckedOut))
			fmt.Fprintf(out, "Next:        %s\n", status.Mode())

			windows, err := client.Windows(cmd.Context())
			if err != nil {
				logger.Warn("time windows unavailable", logging.Error(err))
				fmt.Fprintln(out, "Windows:     unavailable")
			} else {
				fmt.Fprintf(out, "Check-in:    %s - %s\n", windows.CheckInStart, windows.CheckInEnd)
				fmt.Fprintf(out, "Check-out:   %s - %s\n", windows.CheckOutStart, windows.CheckOutEnd)
			}

			var latest *attendance.Record
			if _, err := ctx.withReadStore(func(store *db.Store) error {
				rec, err := store.LatestRecord(userID)
				latest = rec
				return err
			}); err != nil {
				logger.Warn("local history unavailable", logging.Error(err))
			}
			if latest != nil {
				fmt.Fprintf(out, "Last seen:   %s (%s)\n", latest.Message, humanize.Time(latest.RecordedAt))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id to look up")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatWhen(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.Time(t))
}
