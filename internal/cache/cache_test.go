package cache_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"showsweep/internal/cache"
	"showsweep/internal/services"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newBoltCache(t *testing.T) (*cache.FreshnessCache, *clock) {
	t.Helper()
	backend, err := cache.OpenBolt(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	clk := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return cache.New(backend, clk.Now), clk
}

func TestPutThenGetReturnsValueWithZeroAge(t *testing.T) {
	c, _ := newBoltCache(t)
	ctx := context.Background()
	requested := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := c.Put(ctx, cache.SourceRequests, "101", cache.Fact{Value: true, Title: "Show", RequestDate: requested}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fact, age, ok, err := c.Get(ctx, cache.SourceRequests, "101")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !fact.Value || fact.Title != "Show" || !fact.RequestDate.Equal(requested) {
		t.Fatalf("unexpected fact %+v", fact)
	}
	if age != 0 {
		t.Fatalf("expected zero age, got %v", age)
	}

	if _, _, ok, _ := c.Get(ctx, cache.SourceWatchStats, "101"); ok {
		t.Fatal("expected namespaces to be independent")
	}
}

func TestWriteSupersedesPreviousValue(t *testing.T) {
	c, clk := newBoltCache(t)
	ctx := context.Background()

	if err := c.Put(ctx, cache.SourceWatchHistory, "7", cache.Fact{Value: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	clk.now = clk.now.Add(3 * time.Hour)
	if err := c.Put(ctx, cache.SourceWatchHistory, "7", cache.Fact{Value: false}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fact, age, ok, err := c.Get(ctx, cache.SourceWatchHistory, "7")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if fact.Value || age != 0 {
		t.Fatalf("expected latest write to win, got %+v age=%v", fact, age)
	}
}

func TestLookupHonoursTTLAndForce(t *testing.T) {
	c, clk := newBoltCache(t)
	ctx := context.Background()
	policy := cache.Policy{TTL: 24 * time.Hour, NegativeTTL: time.Hour}

	if err := c.PutBatch(ctx, cache.SourceWatchStats, map[string]cache.Fact{
		"pos": {Value: true},
		"neg": {Value: false},
	}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	if _, ok, _ := c.Lookup(ctx, cache.SourceWatchStats, "neg", policy); !ok {
		t.Fatal("expected fresh negative fact")
	}
	if _, ok, _ := c.Lookup(ctx, cache.SourceWatchStats, "pos", cache.Policy{TTL: 24 * time.Hour, Force: true}); ok {
		t.Fatal("expected force to bypass cache")
	}

	clk.now = clk.now.Add(time.Hour)
	if _, ok, _ := c.Lookup(ctx, cache.SourceWatchStats, "neg", policy); ok {
		t.Fatal("expected negative fact to be stale at its own ttl")
	}
	if fact, ok, _ := c.Lookup(ctx, cache.SourceWatchStats, "pos", policy); !ok || !fact.Value {
		t.Fatal("expected positive fact to remain fresh")
	}

	clk.now = clk.now.Add(23 * time.Hour)
	if _, ok, _ := c.Lookup(ctx, cache.SourceWatchStats, "pos", policy); ok {
		t.Fatal("expected positive fact to be stale once age reaches ttl")
	}
	if _, _, ok, _ := c.Get(ctx, cache.SourceWatchStats, "pos"); !ok {
		t.Fatal("expected stale entries to remain stored")
	}
}

func TestStatsAndClear(t *testing.T) {
	c, _ := newBoltCache(t)
	ctx := context.Background()
	if err := c.PutBatch(ctx, cache.SourceRequests, map[string]cache.Fact{"a": {Value: true}, "b": {}, "c": {}}); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != len(cache.Sources) {
		t.Fatalf("expected stats per source, got %d", len(stats))
	}
	if stats[0].Source != cache.SourceRequests || stats[0].Entries != 3 || stats[0].Positive != 1 {
		t.Fatalf("unexpected request stats %+v", stats[0])
	}

	removed, err := c.Clear(ctx, cache.SourceRequests)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	if _, _, ok, _ := c.Get(ctx, cache.SourceRequests, "a"); ok {
		t.Fatal("expected cleared entry to be gone")
	}
}

type brokenBackend struct{}

func (brokenBackend) LoadFact(context.Context, cache.Source, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("disk I/O error")
}

func (brokenBackend) StoreFacts(context.Context, cache.Source, map[string]cache.Entry) error {
	return errors.New("disk I/O error")
}

func (brokenBackend) CacheStats(context.Context) ([]cache.SourceStats, error) {
	return nil, errors.New("disk I/O error")
}

func (brokenBackend) ClearFacts(context.Context, cache.Source) (int, error) {
	return 0, errors.New("disk I/O error")
}

func TestBackendFailuresAreDataIntegrityErrors(t *testing.T) {
	c := cache.New(brokenBackend{}, nil)
	ctx := context.Background()
	if _, _, _, err := c.Get(ctx, cache.SourceRequests, "x"); !errors.Is(err, services.ErrDataIntegrity) {
		t.Fatalf("expected data integrity error from Get, got %v", err)
	}
	if err := c.Put(ctx, cache.SourceRequests, "x", cache.Fact{}); !errors.Is(err, services.ErrDataIntegrity) {
		t.Fatalf("expected data integrity error from Put, got %v", err)
	}
}

func TestSourceValid(t *testing.T) {
	if !cache.SourceWatchHistory.Valid() {
		t.Fatal("expected plex to be a valid source")
	}
	if cache.Source("sonarr").Valid() {
		t.Fatal("expected sonarr not to be a cache source")
	}
}
