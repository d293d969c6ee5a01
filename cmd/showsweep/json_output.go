package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"showsweep/internal/store"
	"showsweep/internal/sweep"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type reportJSON struct {
	RunID            string         `json:"run_id"`
	Started          time.Time      `json:"started"`
	Finished         time.Time      `json:"finished"`
	DryRun           bool           `json:"dry_run"`
	Scanned          int            `json:"scanned"`
	InventoryError   string         `json:"inventory_error,omitempty"`
	Rejected         map[string]int `json:"rejected"`
	RejectedByGuard  map[string]int `json:"rejected_by_guard"`
	Errors           int            `json:"errors"`
	Eligible         []eligibleJSON `json:"eligible"`
	Actions          []actionJSON   `json:"actions"`
	ReclaimableBytes int64          `json:"reclaimable_bytes"`
}

type eligibleJSON struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	Year           int    `json:"year,omitempty"`
	CrossRefID     string `json:"tvdb_id,omitempty"`
	CrossRefSource string `json:"tvdb_source,omitempty"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
}

type actionJSON struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Disposition string `json:"disposition"`
	Outcome     string `json:"outcome"`
	Refused     bool   `json:"refused,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func newReportJSON(report sweep.Report) reportJSON {
	out := reportJSON{
		RunID:            report.RunID,
		Started:          report.Started,
		Finished:         report.Finished,
		DryRun:           report.DryRun,
		Scanned:          report.Scanned,
		InventoryError:   report.InventoryError,
		Rejected:         make(map[string]int, len(report.Rejected)),
		RejectedByGuard:  report.RejectedByGuard,
		Errors:           report.Errors,
		Eligible:         make([]eligibleJSON, 0, len(report.Eligible)),
		Actions:          make([]actionJSON, 0, len(report.Acted)),
		ReclaimableBytes: report.ReclaimableBytes,
	}
	for class, n := range report.Rejected {
		out.Rejected[string(class)] = n
	}
	for _, d := range report.Eligible {
		out.Eligible = append(out.Eligible, eligibleJSON{
			Key:            d.Item.Key,
			Title:          d.Item.Title,
			Year:           d.Item.Year,
			CrossRefID:     d.CrossRefID,
			CrossRefSource: d.CrossRefSource,
			SizeBytes:      d.Item.SizeBytes,
		})
	}
	for _, res := range report.Acted {
		out.Actions = append(out.Actions, actionJSON{
			Key:         res.Item.Key,
			Title:       res.Item.Title,
			Disposition: string(res.Disposition),
			Outcome:     string(res.Outcome),
			Refused:     res.Refused,
			Detail:      res.Record.Detail,
		})
	}
	return out
}

type statusJSON struct {
	Items        int            `json:"items"`
	WithCrossRef int            `json:"with_tvdb_id"`
	Actions      int            `json:"actions"`
	ByAction     map[string]int `json:"by_action"`
	LastRunID    string         `json:"last_run_id,omitempty"`
	Series       []statusRow    `json:"series"`
}

type statusRow struct {
	Key            string     `json:"key"`
	Title          string     `json:"title"`
	Year           int        `json:"year,omitempty"`
	CrossRefID     string     `json:"tvdb_id,omitempty"`
	LastAction     string     `json:"last_action,omitempty"`
	LastOutcome    string     `json:"last_outcome,omitempty"`
	LastActionTime *time.Time `json:"last_action_time,omitempty"`
	LastRunID      string     `json:"last_run_id,omitempty"`
}

func newStatusRows(statuses []store.ItemStatus) []statusRow {
	rows := make([]statusRow, 0, len(statuses))
	for _, s := range statuses {
		row := statusRow{
			Key:         s.Key,
			Title:       s.Title,
			Year:        s.Year,
			CrossRefID:  s.CrossRefID,
			LastAction:  s.LastAction,
			LastOutcome: string(s.LastOutcome),
			LastRunID:   s.LastRunID,
		}
		if !s.LastActionTime.IsZero() {
			when := s.LastActionTime
			row.LastActionTime = &when
		}
		rows = append(rows, row)
	}
	return rows
}

type historyRow struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Detail    string    `json:"detail,omitempty"`
}

func newHistoryRows(records []store.ActionRecord) []historyRow {
	rows := make([]historyRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, historyRow{
			ID:        rec.ID,
			Key:       rec.ItemKey,
			Title:     rec.Title,
			Year:      rec.Year,
			Action:    rec.Action,
			Outcome:   string(rec.Outcome),
			Timestamp: rec.Timestamp,
			RunID:     rec.RunID,
			Detail:    rec.Detail,
		})
	}
	return rows
}
