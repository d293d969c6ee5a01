package store

import (
	"database/sql"
	"errors"
	"time"
)

const statusColumns = "item_key, title, year, cross_ref_id, last_action, last_action_time, last_processed, last_run_id, last_outcome"

const actionColumns = "id, item_key, action, timestamp, run_id, outcome, detail"

func scanStatus(scanner interface{ Scan(dest ...any) error }) (*ItemStatus, error) {
	var (
		key           string
		title         sql.NullString
		year          sql.NullInt64
		crossRef      sql.NullString
		lastAction    sql.NullString
		lastActionRaw sql.NullString
		processedRaw  sql.NullString
		runID         sql.NullString
		outcome       sql.NullString
	)
	if err := scanner.Scan(&key, &title, &year, &crossRef, &lastAction, &lastActionRaw, &processedRaw, &runID, &outcome); err != nil {
		return nil, err
	}
	status := &ItemStatus{
		Key:         key,
		Title:       title.String,
		Year:        int(year.Int64),
		CrossRefID:  crossRef.String,
		LastAction:  lastAction.String,
		LastRunID:   runID.String,
		LastOutcome: Outcome(outcome.String),
	}
	if ts, err := parseTimeString(lastActionRaw.String); err == nil {
		status.LastActionTime = ts
	}
	if ts, err := parseTimeString(processedRaw.String); err == nil {
		status.LastProcessed = ts
	}
	return status, nil
}

func scanAction(scanner interface{ Scan(dest ...any) error }) (*ActionRecord, error) {
	var (
		rec     ActionRecord
		tsRaw   string
		runID   sql.NullString
		outcome sql.NullString
		detail  sql.NullString
	)
	if err := scanner.Scan(&rec.ID, &rec.ItemKey, &rec.Action, &tsRaw, &runID, &outcome, &detail); err != nil {
		return nil, err
	}
	if ts, err := parseTimeString(tsRaw); err == nil {
		rec.Timestamp = ts
	}
	rec.RunID = runID.String
	rec.Outcome = Outcome(outcome.String)
	rec.Detail = detail.String
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
