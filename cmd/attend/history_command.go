package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwulff/attend/internal/attendance"
	"github.com/jwulff/attend/internal/db"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List attendance recorded by this kiosk",
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []attendance.Record
			missing, err := ctx.withReadStore(func(store *db.Store) error {
				var err error
				if userID != "" {
					records, err = store.RecordsForUser(userID, limit)
				} else {
					records, err = store.RecentRecords(limit)
				}
				return err
			})
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if records == nil {
					records = []attendance.Record{}
				}
				return enc.Encode(records)
			}
			if missing || len(records) == 0 {
				fmt.Fprintln(out, "No attendance recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					formatWhen(r.RecordedAt),
					r.UserID,
					r.DisplayName,
					string(r.Kind),
					r.CheckInTime,
					r.CheckOutTime,
					formatMatch(r.Similarity),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "User", "Name", "Kind", "In", "Out", "Match"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Only show this user")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum rows to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func formatMatch(similarity float64) string {
	if similarity <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", similarity*100)
}
