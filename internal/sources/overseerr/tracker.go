package overseerr

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"showsweep/internal/cache"
	"showsweep/internal/logging"
	"showsweep/internal/sources"
)

// Fetcher returns every TV request known to the tracker.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]Record, error)
}

// TrackerOptions tunes the recency check.
type TrackerOptions struct {
	Policy      cache.Policy
	Threshold   time.Duration
	SnapshotTTL time.Duration
}

// Tracker answers IsRecentRequest from the durable cache, then the in-memory
// snapshot, then a fresh bulk fetch, in that order.
type Tracker struct {
	fetcher Fetcher
	cache   *cache.FreshnessCache
	opts    TrackerOptions
	logger  *slog.Logger

	mu       sync.Mutex
	snapshot *Snapshot
	started  time.Time
}

// NewTracker wires the adapter. snapshot is owned by the tracker for its
// lifetime and refreshed in place; pass a new Snapshot for a cold start.
func NewTracker(fetcher Fetcher, facts *cache.FreshnessCache, snapshot *Snapshot, opts TrackerOptions, logger *slog.Logger) *Tracker {
	if snapshot == nil {
		snapshot = &Snapshot{}
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = time.Hour
	}
	return &Tracker{
		fetcher:  fetcher,
		cache:    facts,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "overseerr-tracker"),
		snapshot: snapshot,
		started:  facts.Now(),
	}
}

// Snapshot returns the snapshot the tracker answers from.
func (t *Tracker) Snapshot() *Snapshot {
	return t.snapshot
}

// IsRecentRequest returns Yes when item was requested within the threshold.
// A failed bulk fetch yields Unknown; only cache failures error.
func (t *Tracker) IsRecentRequest(ctx context.Context, item sources.Item) (sources.Finding, error) {
	fact, ok, err := t.cache.Lookup(ctx, cache.SourceRequests, item.Key, t.opts.Policy)
	if err != nil {
		return sources.Finding{}, err
	}
	if ok {
		return sources.Finding{Verdict: sources.VerdictOf(fact.Value)}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snapshotUsable(t.cache.Now()) {
		if t.snapshot.Err != nil {
			return sources.Finding{Verdict: sources.Unknown}, nil
		}
		return t.answerAndBackfill(ctx, item)
	}

	records, err := t.fetcher.FetchAll(ctx)
	fetched := t.cache.Now()
	if err != nil {
		*t.snapshot = *newSnapshot(fetched, nil, err)
		logging.WarnWithContext(t.logger, "request snapshot fetch failed",
			"overseerr_fetch_failed",
			logging.String(logging.FieldItemKey, item.Key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, sources.Hint(serviceName, err)),
			logging.String(logging.FieldImpact, "series needing a request check are kept until the snapshot expires"),
			logging.Duration("retry_after", t.opts.SnapshotTTL),
		)
		return sources.Finding{Verdict: sources.Unknown}, nil
	}
	*t.snapshot = *newSnapshot(fetched, records, nil)

	batch := make(map[string]cache.Fact, len(t.snapshot.byKey)+1)
	for key, list := range t.snapshot.byKey {
		batch[key] = t.factFor(list, fetched)
	}
	if _, ok := batch[item.Key]; !ok {
		batch[item.Key] = cache.Fact{Value: false, Title: item.Title}
	}
	if err := t.cache.PutBatch(ctx, cache.SourceRequests, batch); err != nil {
		return sources.Finding{}, err
	}
	t.logger.Info("request snapshot refreshed",
		logging.Int("requests", len(records)),
		logging.Int("series", len(t.snapshot.byKey)),
	)
	return sources.Finding{Verdict: sources.VerdictOf(batch[item.Key].Value)}, nil
}

func (t *Tracker) snapshotUsable(now time.Time) bool {
	if !t.snapshot.Fresh(now, t.opts.SnapshotTTL) {
		return false
	}
	// forced runs only trust snapshots fetched by this tracker
	return !t.opts.Policy.Force || !t.snapshot.Fetched.Before(t.started)
}

func (t *Tracker) answerAndBackfill(ctx context.Context, item sources.Item) (sources.Finding, error) {
	fact := t.factFor(t.snapshot.Lookup(item.Key), t.cache.Now())
	if fact.Title == "" {
		fact.Title = item.Title
	}
	if err := t.cache.Put(ctx, cache.SourceRequests, item.Key, fact); err != nil {
		return sources.Finding{}, err
	}
	return sources.Finding{Verdict: sources.VerdictOf(fact.Value)}, nil
}

func (t *Tracker) factFor(records []Record, now time.Time) cache.Fact {
	s := summarize(records, now, t.opts.Threshold)
	return cache.Fact{Value: s.recent, Title: s.title, RequestDate: s.latest}
}
