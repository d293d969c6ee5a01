package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetStatus returns the status projection for key, or nil when the item has
// never been recorded.
func (s *Store) GetStatus(ctx context.Context, key string) (*ItemStatus, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+statusColumns+" FROM items_status WHERE item_key = ?", key)
	status, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get status", err)
	}
	return status, nil
}

// CrossRef returns the persisted cross-reference id for key, if any.
func (s *Store) CrossRef(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT cross_ref_id FROM items_status WHERE item_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", wrapErr("get cross ref", err)
	}
	return value.String, nil
}

// SaveCrossRef records the item identity and cross-reference id without
// touching the last action. An empty crossRef keeps any stored value.
func (s *Store) SaveCrossRef(ctx context.Context, key, title string, year int, crossRef string) error {
	_, err := s.execWithRetry(ctx, `INSERT INTO items_status (item_key, title, year, cross_ref_id, last_processed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_key) DO UPDATE SET
			title = COALESCE(excluded.title, items_status.title),
			year = COALESCE(excluded.year, items_status.year),
			cross_ref_id = COALESCE(excluded.cross_ref_id, items_status.cross_ref_id),
			last_processed = excluded.last_processed`,
		key, nullableString(title), nullableInt(year), nullableString(crossRef), formatTime(s.now()),
	)
	return wrapErr("save cross ref", err)
}

// RecordAction appends rec to the action log and points the status
// projection at it, in one transaction. Timestamp defaults to now.
func (s *Store) RecordAction(ctx context.Context, rec ActionRecord) (ActionRecord, error) {
	if strings.TrimSpace(rec.ItemKey) == "" || strings.TrimSpace(rec.Action) == "" {
		return rec, wrapErr("record action", errors.New("item key and action are required"))
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if rec.Outcome == "" {
		rec.Outcome = OutcomeOK
	}
	ts := formatTime(rec.Timestamp)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO action_log (item_key, action, timestamp, run_id, outcome, detail)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ItemKey, rec.Action, ts, nullableString(rec.RunID), string(rec.Outcome), nullableString(rec.Detail))
		if err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("action id: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO items_status (item_key, title, year, last_action, last_action_time, last_processed, last_run_id, last_outcome)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(item_key) DO UPDATE SET
				title = COALESCE(excluded.title, items_status.title),
				year = COALESCE(excluded.year, items_status.year),
				last_action = excluded.last_action,
				last_action_time = excluded.last_action_time,
				last_processed = excluded.last_processed,
				last_run_id = excluded.last_run_id,
				last_outcome = excluded.last_outcome`,
			rec.ItemKey, nullableString(rec.Title), nullableInt(rec.Year), rec.Action, ts, ts, nullableString(rec.RunID), string(rec.Outcome))
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	return rec, wrapErr("record action", err)
}

// ListStatus returns status rows, most recently acted first. When actedOnly
// is set, items without a recorded action are omitted.
func (s *Store) ListStatus(ctx context.Context, actedOnly bool) ([]ItemStatus, error) {
	query := "SELECT " + statusColumns + " FROM items_status"
	if actedOnly {
		query += " WHERE last_action IS NOT NULL"
	}
	query += " ORDER BY COALESCE(last_action_time, last_processed) DESC, item_key"
	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return nil, wrapErr("list status", err)
	}
	defer rows.Close()

	var out []ItemStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, wrapErr("scan status", err)
		}
		out = append(out, *status)
	}
	return out, wrapErr("list status", rows.Err())
}

// ActionHistory returns action log rows, newest first. An empty key returns
// every item; limit <= 0 returns all rows.
func (s *Store) ActionHistory(ctx context.Context, key string, limit int) ([]ActionRecord, error) {
	query := "SELECT " + actionColumns + " FROM action_log"
	args := []any{}
	if key != "" {
		query += " WHERE item_key = ?"
		args = append(args, key)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, wrapErr("action history", err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		rec, err := scanAction(rows)
		if err != nil {
			return nil, wrapErr("scan action", err)
		}
		out = append(out, *rec)
	}
	return out, wrapErr("action history", rows.Err())
}

// Summarize aggregates the projection and log for status output.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	summary := Summary{ByAction: make(map[string]int)}
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COUNT(cross_ref_id) FROM items_status`)
	if err := row.Scan(&summary.Items, &summary.WithCrossRef); err != nil {
		return summary, wrapErr("summarize items", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT action, COUNT(1) FROM action_log GROUP BY action`)
	if err != nil {
		return summary, wrapErr("summarize actions", err)
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return summary, wrapErr("scan action counts", err)
		}
		summary.ByAction[action] = count
		summary.Actions += count
	}
	if err := rows.Err(); err != nil {
		return summary, wrapErr("summarize actions", err)
	}

	var (
		runID sql.NullString
		tsRaw sql.NullString
	)
	err = s.db.QueryRowContext(ctx, `SELECT run_id, timestamp FROM action_log ORDER BY id DESC LIMIT 1`).Scan(&runID, &tsRaw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return summary, wrapErr("last action", err)
	}
	summary.LastRunID = runID.String
	if ts, perr := parseTimeString(tsRaw.String); perr == nil {
		summary.LastActionAt = ts
	}
	return summary, nil
}
