package cache

import (
	"context"
	"time"

	"showsweep/internal/services"
)

// Source names a per-adapter cache namespace.
type Source string

const (
	// SourceRequests caches request-recency facts from the request tracker.
	SourceRequests Source = "overseerr"
	// SourceWatchHistory caches play-history facts from the media server.
	SourceWatchHistory Source = "plex"
	// SourceWatchStats caches watch-time facts from the history service.
	SourceWatchStats Source = "tautulli"
)

// Sources lists every namespace in a stable order.
var Sources = []Source{SourceRequests, SourceWatchHistory, SourceWatchStats}

// Valid reports whether s is a known namespace.
func (s Source) Valid() bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

// Fact is the cached observation for one item.
type Fact struct {
	Value bool
	// Title is informational and may be empty.
	Title string
	// RequestDate is the newest request timestamp; request facts only.
	RequestDate time.Time
}

// Entry is a fact plus the time it was last verified.
type Entry struct {
	Fact
	CheckedAt time.Time
}

// SourceStats summarises one namespace.
type SourceStats struct {
	Source   Source
	Entries  int
	Positive int
	Oldest   time.Time
	Newest   time.Time
}

// Backend is the durable storage behind a FreshnessCache.
type Backend interface {
	LoadFact(ctx context.Context, source Source, key string) (Entry, bool, error)
	StoreFacts(ctx context.Context, source Source, entries map[string]Entry) error
	CacheStats(ctx context.Context) ([]SourceStats, error)
	ClearFacts(ctx context.Context, source Source) (int, error)
}

// FreshnessCache reads and writes facts on a Backend.
type FreshnessCache struct {
	backend Backend
	now     func() time.Time
}

// New wraps backend. A nil now defaults to time.Now.
func New(backend Backend, now func() time.Time) *FreshnessCache {
	if now == nil {
		now = time.Now
	}
	return &FreshnessCache{backend: backend, now: now}
}

// Now returns the cache's notion of the current time.
func (c *FreshnessCache) Now() time.Time {
	return c.now()
}

// Get returns the stored fact and its age. Freshness is the caller's call.
func (c *FreshnessCache) Get(ctx context.Context, source Source, key string) (Fact, time.Duration, bool, error) {
	entry, ok, err := c.backend.LoadFact(ctx, source, key)
	if err != nil {
		return Fact{}, 0, false, services.Wrap(services.ErrDataIntegrity, "cache", "get", string(source)+"/"+key, err)
	}
	if !ok {
		return Fact{}, 0, false, nil
	}
	age := c.now().Sub(entry.CheckedAt)
	if age < 0 {
		age = 0
	}
	return entry.Fact, age, true, nil
}

// Put upserts one fact stamped with the current time.
func (c *FreshnessCache) Put(ctx context.Context, source Source, key string, fact Fact) error {
	return c.PutBatch(ctx, source, map[string]Fact{key: fact})
}

// PutBatch upserts many facts in one transaction, all stamped with the same
// write time.
func (c *FreshnessCache) PutBatch(ctx context.Context, source Source, facts map[string]Fact) error {
	if len(facts) == 0 {
		return nil
	}
	now := c.now()
	entries := make(map[string]Entry, len(facts))
	for key, fact := range facts {
		entries[key] = Entry{Fact: fact, CheckedAt: now}
	}
	if err := c.backend.StoreFacts(ctx, source, entries); err != nil {
		return services.Wrap(services.ErrDataIntegrity, "cache", "put", string(source), err)
	}
	return nil
}

// Stats summarises every namespace.
func (c *FreshnessCache) Stats(ctx context.Context) ([]SourceStats, error) {
	stats, err := c.backend.CacheStats(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrDataIntegrity, "cache", "stats", "", err)
	}
	return stats, nil
}

// Clear drops every fact in source and returns how many were removed.
func (c *FreshnessCache) Clear(ctx context.Context, source Source) (int, error) {
	n, err := c.backend.ClearFacts(ctx, source)
	if err != nil {
		return 0, services.Wrap(services.ErrDataIntegrity, "cache", "clear", string(source), err)
	}
	return n, nil
}

// Policy decides whether a cached fact may be trusted.
type Policy struct {
	TTL time.Duration
	// NegativeTTL applies to facts whose Value is false. Zero means TTL.
	NegativeTTL time.Duration
	// Force treats every entry as stale so callers re-verify.
	Force bool
}

// Fresh reports whether a fact of the given age is still trusted.
func (p Policy) Fresh(fact Fact, age time.Duration) bool {
	if p.Force {
		return false
	}
	ttl := p.TTL
	if !fact.Value && p.NegativeTTL > 0 {
		ttl = p.NegativeTTL
	}
	return age < ttl
}

// Lookup reads key and returns the fact only when policy trusts it.
func (c *FreshnessCache) Lookup(ctx context.Context, source Source, key string, policy Policy) (Fact, bool, error) {
	if policy.Force {
		return Fact{}, false, nil
	}
	fact, age, ok, err := c.Get(ctx, source, key)
	if err != nil || !ok {
		return Fact{}, false, err
	}
	if !policy.Fresh(fact, age) {
		return Fact{}, false, nil
	}
	return fact, true, nil
}
