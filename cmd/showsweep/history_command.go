package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"showsweep/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [key]",
		Short: "Show the action log, optionally for one series",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			key := ""
			if len(args) == 1 {
				key = strings.TrimSpace(args[0])
			}
			records, err := st.ActionHistory(cmd.Context(), key, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, newHistoryRows(records))
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No actions recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(records))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print history as JSON")
	return cmd
}

func renderHistory(records []store.ActionRecord) string {
	const stampLayout = "2006-01-02 15:04"
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		runID := rec.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		rows = append(rows, []string{
			rec.Timestamp.Local().Format(stampLayout),
			rec.ItemKey,
			rec.Title,
			rec.Action,
			string(rec.Outcome),
			orDash(runID),
			orDash(rec.Detail),
		})
	}
	return renderTable(
		"Action history",
		[]string{"When", "Key", "Title", "Action", "Outcome", "Run", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
