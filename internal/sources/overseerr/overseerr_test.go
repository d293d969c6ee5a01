package overseerr_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"showsweep/internal/cache"
	"showsweep/internal/config"
	"showsweep/internal/services"
	"showsweep/internal/sources"
	"showsweep/internal/sources/overseerr"
)

var baseNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeTracker struct {
	mu         sync.Mutex
	path       string
	requests   []map[string]any
	noPageInfo bool
	pages      int // overrides the reported page count when > 0
	failPage   int
	failAll    bool
	skips      []int
}

func (f *fakeTracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("X-Api-Key") != "key" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if r.URL.Path != f.path {
		http.NotFound(w, r)
		return
	}
	if f.failAll {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	take, _ := strconv.Atoi(r.URL.Query().Get("take"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if take == 1 && r.URL.Query().Get("skip") == "" {
		// endpoint check
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
		return
	}
	f.skips = append(f.skips, skip)
	page := skip/take + 1
	if page == f.failPage {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	end := min(skip+take, len(f.requests))
	results := []map[string]any{}
	if skip < len(f.requests) {
		results = f.requests[skip:end]
	}
	body := map[string]any{"results": results}
	if !f.noPageInfo && page == 1 {
		pages := (len(f.requests) + take - 1) / take
		if f.pages > 0 {
			pages = f.pages
		}
		body["pageInfo"] = map[string]any{"pages": pages, "pageSize": take, "results": len(f.requests), "page": page}
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeTracker) fetches() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.skips...)
}

func tvRequest(key string, created time.Time) map[string]any {
	return map[string]any{
		"createdAt": created.Format("2006-01-02T15:04:05.000Z"),
		"media":     map[string]any{"ratingKey": key, "tvdbId": 1000, "name": "Show " + key},
	}
}

func newTestClient(t *testing.T, fake *fakeTracker, pageSize, maxPages int) *overseerr.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg := config.Overseerr{URL: srv.URL, APIKey: "key", PageSize: pageSize, MaxPages: maxPages}
	return overseerr.NewClient(cfg, 2*time.Second, nil, nil)
}

func newCache(t *testing.T, now *time.Time) *cache.FreshnessCache {
	t.Helper()
	backend, err := cache.OpenBolt(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return cache.New(backend, func() time.Time { return *now })
}

func manyRequests(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := range n {
		out = append(out, tvRequest(fmt.Sprint(i+1), baseNow.AddDate(0, 0, -i)))
	}
	return out
}

func TestFetchAllPagination(t *testing.T) {
	tests := []struct {
		name       string
		requests   int
		noPageInfo bool
		pages      int
		maxPages   int
		wantSkips  []int
		wantCount  int
	}{
		{name: "exact multiple stops at reported pages", requests: 4, wantSkips: []int{0, 2}, wantCount: 4},
		{name: "partial last page", requests: 5, wantSkips: []int{0, 2, 4}, wantCount: 5},
		{name: "single page", requests: 1, wantSkips: []int{0}, wantCount: 1},
		{name: "empty tracker", requests: 0, wantSkips: []int{0}, wantCount: 0},
		{name: "no page info follows full pages", requests: 4, noPageInfo: true, wantSkips: []int{0, 2, 4}, wantCount: 4},
		{name: "no page info short page", requests: 3, noPageInfo: true, wantSkips: []int{0, 2}, wantCount: 3},
		{name: "overstated pages stop on empty page", requests: 2, pages: 5, wantSkips: []int{0, 2}, wantCount: 2},
		{name: "page cap", requests: 10, maxPages: 2, wantSkips: []int{0, 2}, wantCount: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeTracker{path: "/api/v1/request", requests: manyRequests(tt.requests), noPageInfo: tt.noPageInfo, pages: tt.pages}
			client := newTestClient(t, fake, 2, tt.maxPages)

			records, err := client.FetchAll(context.Background())
			if err != nil {
				t.Fatalf("FetchAll: %v", err)
			}
			if len(records) != tt.wantCount {
				t.Fatalf("expected %d records, got %d", tt.wantCount, len(records))
			}
			got := fake.fetches()
			if fmt.Sprint(got) != fmt.Sprint(tt.wantSkips) {
				t.Fatalf("expected skips %v, got %v", tt.wantSkips, got)
			}
		})
	}
}

func TestFetchAllFiltersAndParses(t *testing.T) {
	fake := &fakeTracker{path: "/request", requests: []map[string]any{
		tvRequest("1", baseNow),
		{"createdAt": "2024-01-01T00:00:00.000Z", "media": map[string]any{"ratingKey": "2", "tmdbId": 5, "mediaType": "movie"}},
		{"createdAt": "", "media": map[string]any{"ratingKey": 3, "seasons": []any{}, "name": "Numeric Key"}},
		{"createdAt": "2024-01-01T00:00:00.000Z", "media": map[string]any{"tvdbId": 9}},
	}}
	client := newTestClient(t, fake, 10, 0)

	endpoint, err := client.Endpoint(context.Background())
	if err != nil || endpoint != "/request" {
		t.Fatalf("expected fallback endpoint, got %q err=%v", endpoint, err)
	}
	records, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 tv records with keys, got %+v", records)
	}
	if records[0].Key != "1" || !records[0].CreatedAt.Equal(baseNow) || records[0].Title != "Show 1" {
		t.Fatalf("unexpected first record %+v", records[0])
	}
	if records[1].Key != "3" || !records[1].CreatedAt.IsZero() {
		t.Fatalf("unexpected second record %+v", records[1])
	}
}

func TestFetchAllFailsWholeOnPageError(t *testing.T) {
	fake := &fakeTracker{path: "/api/v1/request", requests: manyRequests(6), failPage: 2}
	client := newTestClient(t, fake, 2, 0)

	if _, err := client.FetchAll(context.Background()); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient failure, got %v", err)
	}
}

func TestEndpointResolutionFailure(t *testing.T) {
	fake := &fakeTracker{path: "/elsewhere"}
	client := newTestClient(t, fake, 2, 0)
	if _, err := client.Endpoint(context.Background()); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected endpoint resolution failure, got %v", err)
	}
}

func trackerOptions() overseerr.TrackerOptions {
	return overseerr.TrackerOptions{
		Policy:      cache.Policy{TTL: 24 * time.Hour},
		Threshold:   365 * 24 * time.Hour,
		SnapshotTTL: time.Hour,
	}
}

func TestTrackerFetchesOnceAndBackfills(t *testing.T) {
	now := baseNow
	fake := &fakeTracker{path: "/api/v1/request", requests: []map[string]any{
		tvRequest("old", baseNow.AddDate(-2, 0, 0)),
		tvRequest("recent", baseNow.AddDate(0, 0, -10)),
		tvRequest("old", baseNow.AddDate(-3, 0, 0)),
		{"media": map[string]any{"ratingKey": "undated", "tvdbId": 4}},
	}}
	client := newTestClient(t, fake, 100, 0)
	facts := newCache(t, &now)
	snapshot := &overseerr.Snapshot{}
	tracker := overseerr.NewTracker(client, facts, snapshot, trackerOptions(), nil)
	ctx := context.Background()

	expect := map[string]sources.Verdict{
		"recent":   sources.Yes,
		"old":      sources.No,
		"undated":  sources.No,
		"unknown1": sources.No,
		"unknown2": sources.No,
	}
	for _, key := range []string{"recent", "old", "undated", "unknown1", "unknown2"} {
		finding, err := tracker.IsRecentRequest(ctx, sources.Item{Key: key})
		if err != nil {
			t.Fatalf("IsRecentRequest(%s): %v", key, err)
		}
		if finding.Verdict != expect[key] {
			t.Fatalf("%s: expected %v, got %v", key, expect[key], finding.Verdict)
		}
	}
	if got := fake.fetches(); len(got) != 1 {
		t.Fatalf("expected a single page fetch, got %v", got)
	}
	if snapshot.Fetched.IsZero() || len(snapshot.Records) != 4 {
		t.Fatalf("expected caller's snapshot to be refreshed in place, got %+v", snapshot)
	}

	fact, _, ok, err := facts.Get(ctx, cache.SourceRequests, "old")
	if err != nil || !ok {
		t.Fatalf("expected batch write for old, ok=%v err=%v", ok, err)
	}
	if fact.Value || !fact.RequestDate.Equal(baseNow.AddDate(-2, 0, 0)) || fact.Title != "Show old" {
		t.Fatalf("unexpected folded fact %+v", fact)
	}
	if _, _, ok, _ := facts.Get(ctx, cache.SourceRequests, "unknown2"); !ok {
		t.Fatal("expected snapshot answer to be backfilled into the durable cache")
	}

	// A new tracker with the durable cache warm never touches the network.
	cold := overseerr.NewTracker(client, facts, nil, trackerOptions(), nil)
	for key, want := range expect {
		finding, err := cold.IsRecentRequest(ctx, sources.Item{Key: key})
		if err != nil || finding.Verdict != want {
			t.Fatalf("%s: expected cached %v, got %v err=%v", key, want, finding.Verdict, err)
		}
	}
	if got := fake.fetches(); len(got) != 1 {
		t.Fatalf("expected no further fetches, got %v", got)
	}
}

func TestTrackerRecordsFailedSnapshot(t *testing.T) {
	now := baseNow
	fake := &fakeTracker{path: "/api/v1/request", requests: manyRequests(1)}
	client := newTestClient(t, fake, 100, 0)
	if _, err := client.Endpoint(context.Background()); err != nil {
		t.Fatalf("Endpoint: %v", err)
	}
	fake.mu.Lock()
	fake.failAll = true
	fake.mu.Unlock()

	facts := newCache(t, &now)
	snapshot := &overseerr.Snapshot{}
	tracker := overseerr.NewTracker(client, facts, snapshot, trackerOptions(), nil)
	ctx := context.Background()

	for _, key := range []string{"1", "2"} {
		finding, err := tracker.IsRecentRequest(ctx, sources.Item{Key: key})
		if err != nil || finding.Verdict != sources.Unknown {
			t.Fatalf("expected unknown, got %v err=%v", finding.Verdict, err)
		}
	}
	if snapshot.Err == nil {
		t.Fatal("expected failure recorded on snapshot")
	}
	if _, _, ok, _ := facts.Get(ctx, cache.SourceRequests, "1"); ok {
		t.Fatal("failed fetch must not write cache entries")
	}

	fake.mu.Lock()
	fake.failAll = false
	fake.mu.Unlock()
	now = now.Add(2 * time.Hour)
	finding, err := tracker.IsRecentRequest(ctx, sources.Item{Key: "1"})
	if err != nil || finding.Verdict != sources.Yes {
		t.Fatalf("expected refetch after snapshot ttl, got %v err=%v", finding.Verdict, err)
	}
}

func TestTrackerForceRefreshIgnoresCache(t *testing.T) {
	now := baseNow
	fake := &fakeTracker{path: "/api/v1/request"}
	client := newTestClient(t, fake, 100, 0)
	facts := newCache(t, &now)
	ctx := context.Background()
	if err := facts.Put(ctx, cache.SourceRequests, "1", cache.Fact{Value: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	opts := trackerOptions()
	opts.Policy.Force = true
	tracker := overseerr.NewTracker(client, facts, nil, opts, nil)
	finding, err := tracker.IsRecentRequest(ctx, sources.Item{Key: "1"})
	if err != nil || finding.Verdict != sources.No {
		t.Fatalf("expected live negative answer, got %v err=%v", finding.Verdict, err)
	}
	if got := fake.fetches(); len(got) != 1 {
		t.Fatalf("expected one live fetch, got %v", got)
	}
	fact, _, _, _ := facts.Get(ctx, cache.SourceRequests, "1")
	if fact.Value {
		t.Fatal("expected forced refresh to overwrite the cached fact")
	}
}
