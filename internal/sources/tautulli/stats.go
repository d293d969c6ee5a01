package tautulli

import (
	"context"
	"log/slog"

	"showsweep/internal/cache"
	"showsweep/internal/logging"
	"showsweep/internal/sources"
)

// WatchStats is the history-service watch check.
type WatchStats struct {
	client *Client
	cache  *cache.FreshnessCache
	policy cache.Policy
	logger *slog.Logger
}

// NewWatchStats wires the adapter.
func NewWatchStats(client *Client, facts *cache.FreshnessCache, policy cache.Policy, logger *slog.Logger) *WatchStats {
	return &WatchStats{
		client: client,
		cache:  facts,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "tautulli"),
	}
}

// HasWatchStats returns Yes when any play is recorded for item. On a cache
// miss for an unwatched series without a known tvdb id the id is discovered
// too, falling back to a metadata lookup when the stats response lacks it.
func (w *WatchStats) HasWatchStats(ctx context.Context, item sources.Item) (sources.Finding, error) {
	fact, ok, err := w.cache.Lookup(ctx, cache.SourceWatchStats, item.Key, w.policy)
	if err != nil {
		return sources.Finding{}, err
	}
	if ok {
		return sources.Finding{Verdict: sources.VerdictOf(fact.Value)}, nil
	}

	plays, crossRef, err := w.client.WatchStats(ctx, item.Key)
	if err != nil {
		logging.WarnWithContext(w.logger, "watch stats check failed",
			"tautulli_stats_failed",
			logging.String(logging.FieldItemKey, item.Key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, sources.Hint(serviceName, err)),
			logging.String(logging.FieldImpact, "series kept this run"),
		)
		return sources.Finding{Verdict: sources.Unknown}, nil
	}
	watched := plays > 0
	if err := w.cache.Put(ctx, cache.SourceWatchStats, item.Key, cache.Fact{Value: watched, Title: item.Title}); err != nil {
		return sources.Finding{}, err
	}

	if !watched && crossRef == "" && item.CrossRefID == "" {
		crossRef = w.lookup(ctx, item.Key)
	}
	w.logger.Debug("watch stats fetched",
		logging.String(logging.FieldItemKey, item.Key),
		logging.Int("plays", plays),
		logging.String("tvdb_id", crossRef),
	)
	return sources.Finding{Verdict: sources.VerdictOf(watched), CrossRefID: crossRef}, nil
}

// ResolveCrossRef looks up the tvdb id for key. It returns "" when the
// history service does not know it or cannot be reached.
func (w *WatchStats) ResolveCrossRef(ctx context.Context, key string) string {
	return w.lookup(ctx, key)
}

func (w *WatchStats) lookup(ctx context.Context, key string) string {
	id, err := w.client.Metadata(ctx, key)
	if err != nil {
		logging.WarnWithContext(w.logger, "tvdb id lookup failed",
			"tautulli_metadata_failed",
			logging.String(logging.FieldItemKey, key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, sources.Hint(serviceName, err)),
			logging.String(logging.FieldImpact, "series cannot be unmonitored until the id is known"),
		)
		return ""
	}
	if id == "" {
		w.logger.Debug("no tvdb id in metadata", logging.String(logging.FieldItemKey, key))
	}
	return id
}
