package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"showsweep/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize recorded series and actions",
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

			summary, err := st.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			statuses, err := st.ListStatus(cmd.Context(), !all)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, statusJSON{
					Items:        summary.Items,
					WithCrossRef: summary.WithCrossRef,
					Actions:      summary.Actions,
					ByAction:     summary.ByAction,
					LastRunID:    summary.LastRunID,
					Series:       newStatusRows(statuses),
				})
			}

			colorize := isTerminal(cmd.OutOrStdout())
			lines := renderSectionHeader("ShowSweep", colorize)
			lines = append(lines,
				renderStatusLine("Config", statusInfo, ctx.configPath, colorize),
				renderStatusLine("Database", statusInfo, st.Path(), colorize),
				renderStatusLine("Series", statusInfo, strconv.Itoa(summary.Items), colorize),
				renderStatusLine("With TVDB id", statusInfo, strconv.Itoa(summary.WithCrossRef), colorize),
				renderStatusLine("Actions", statusInfo, actionBreakdown(summary), colorize),
				renderStatusLine("Last action", statusInfo, relativeTime(summary.LastActionAt), colorize),
				renderStatusLine("Cache backend", statusInfo, cfg.Cache.Backend, colorize),
				renderStatusLine("Sonarr", statusInfo, yesNo(cfg.SonarrEnabled()), colorize),
			)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if len(statuses) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderStatusTable(statuses))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every known series, not only those acted on")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func actionBreakdown(summary store.Summary) string {
	if summary.Actions == 0 {
		return "none"
	}
	names := make([]string, 0, len(summary.ByAction))
	for name := range summary.ByAction {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %d", name, summary.ByAction[name]))
	}
	return fmt.Sprintf("%d (%s)", summary.Actions, strings.Join(parts, ", "))
}

func renderStatusTable(statuses []store.ItemStatus) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []string{
			s.Key,
			s.Title,
			yearText(s.Year),
			orDash(s.CrossRefID),
			orDash(s.LastAction),
			orDash(string(s.LastOutcome)),
			relativeTime(s.LastActionTime),
		})
	}
	return renderTable(
		"",
		[]string{"Key", "Title", "Year", "TVDB", "Last action", "Outcome", "When"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
	)
}
