package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"showsweep/internal/cache"
)

func cacheTable(source cache.Source) (string, error) {
	if !source.Valid() {
		return "", fmt.Errorf("unknown cache source %q", source)
	}
	return "cache_" + string(source), nil
}

// LoadFact implements cache.Backend.
func (s *Store) LoadFact(ctx context.Context, source cache.Source, key string) (cache.Entry, bool, error) {
	table, err := cacheTable(source)
	if err != nil {
		return cache.Entry{}, false, err
	}
	var (
		value      int
		checkedRaw string
		title      sql.NullString
		requestRaw sql.NullString
	)
	ctx = ensureContext(ctx)
	if source == cache.SourceRequests {
		err = s.db.QueryRowContext(ctx, "SELECT value, last_checked, title, request_date FROM "+table+" WHERE item_key = ?", key).
			Scan(&value, &checkedRaw, &title, &requestRaw)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT value, last_checked FROM "+table+" WHERE item_key = ?", key).
			Scan(&value, &checkedRaw)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, err
	}
	checked, err := parseTimeString(checkedRaw)
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("parse last_checked for %s/%s: %w", source, key, err)
	}
	entry := cache.Entry{Fact: cache.Fact{Value: value != 0, Title: title.String}, CheckedAt: checked}
	if ts, perr := parseTimeString(requestRaw.String); perr == nil {
		entry.RequestDate = ts
	}
	return entry, true, nil
}

// StoreFacts implements cache.Backend. All entries are written in one
// transaction.
func (s *Store) StoreFacts(ctx context.Context, source cache.Source, entries map[string]cache.Entry) error {
	table, err := cacheTable(source)
	if err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var query string
		if source == cache.SourceRequests {
			query = "INSERT OR REPLACE INTO " + table + " (item_key, value, last_checked, title, request_date) VALUES (?, ?, ?, ?, ?)"
		} else {
			query = "INSERT OR REPLACE INTO " + table + " (item_key, value, last_checked) VALUES (?, ?, ?)"
		}
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for key, entry := range entries {
			args := []any{key, boolToInt(entry.Value), formatTime(entry.CheckedAt)}
			if source == cache.SourceRequests {
				args = append(args, nullableString(entry.Title), nullableTime(entry.RequestDate))
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", source, key, err)
			}
		}
		return nil
	})
}

// CacheStats implements cache.Backend.
func (s *Store) CacheStats(ctx context.Context) ([]cache.SourceStats, error) {
	ctx = ensureContext(ctx)
	out := make([]cache.SourceStats, 0, len(cache.Sources))
	for _, source := range cache.Sources {
		table, err := cacheTable(source)
		if err != nil {
			return nil, err
		}
		stats := cache.SourceStats{Source: source}
		var oldest, newest sql.NullString
		var positive sql.NullInt64
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(1), SUM(value), MIN(last_checked), MAX(last_checked) FROM "+table).
			Scan(&stats.Entries, &positive, &oldest, &newest)
		if err != nil {
			return nil, err
		}
		stats.Positive = int(positive.Int64)
		if ts, perr := parseTimeString(oldest.String); perr == nil {
			stats.Oldest = ts
		}
		if ts, perr := parseTimeString(newest.String); perr == nil {
			stats.Newest = ts
		}
		out = append(out, stats)
	}
	return out, nil
}

// ClearFacts implements cache.Backend.
func (s *Store) ClearFacts(ctx context.Context, source cache.Source) (int, error) {
	table, err := cacheTable(source)
	if err != nil {
		return 0, err
	}
	res, err := s.execWithRetry(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
