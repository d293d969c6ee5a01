package plex

import (
	"context"
	"log/slog"

	"showsweep/internal/cache"
	"showsweep/internal/logging"
	"showsweep/internal/sources"
)

// WatchHistory answers whether a series has any play history on the media
// server, backed by the durable freshness cache.
type WatchHistory struct {
	client *Client
	cache  *cache.FreshnessCache
	policy cache.Policy
	logger *slog.Logger
}

// NewWatchHistory wires the watch-history check.
func NewWatchHistory(client *Client, facts *cache.FreshnessCache, policy cache.Policy, logger *slog.Logger) *WatchHistory {
	return &WatchHistory{
		client: client,
		cache:  facts,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "plex-history"),
	}
}

// HasWatchHistory returns Yes when any play is recorded for item. The
// history endpoint answers an empty container for a never-played item, so
// any failure, a 404 included, returns Unknown and is not cached. Only cache
// failures error.
func (w *WatchHistory) HasWatchHistory(ctx context.Context, item sources.Item) (sources.Finding, error) {
	fact, ok, err := w.cache.Lookup(ctx, cache.SourceWatchHistory, item.Key, w.policy)
	if err != nil {
		return sources.Finding{}, err
	}
	if ok {
		w.logger.Debug("watch history cache hit",
			logging.String(logging.FieldItemKey, item.Key),
			logging.Bool("watched", fact.Value),
		)
		return sources.Finding{Verdict: sources.VerdictOf(fact.Value)}, nil
	}

	plays, err := w.client.PlayCount(ctx, item.Key)
	if err != nil {
		logging.WarnWithContext(w.logger, "watch history check failed",
			"plex_history_failed",
			logging.String(logging.FieldItemKey, item.Key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, sources.Hint(serviceName, err)),
			logging.String(logging.FieldImpact, "series kept this run"),
		)
		return sources.Finding{Verdict: sources.Unknown}, nil
	}

	watched := plays > 0
	if err := w.cache.Put(ctx, cache.SourceWatchHistory, item.Key, cache.Fact{Value: watched, Title: item.Title}); err != nil {
		return sources.Finding{}, err
	}
	w.logger.Debug("watch history fetched",
		logging.String(logging.FieldItemKey, item.Key),
		logging.Int("plays", plays),
	)
	return sources.Finding{Verdict: sources.VerdictOf(watched)}, nil
}
