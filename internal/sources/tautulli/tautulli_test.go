package tautulli_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"showsweep/internal/cache"
	"showsweep/internal/config"
	"showsweep/internal/sources"
	"showsweep/internal/sources/tautulli"
)

type fakeHistory struct {
	mu       sync.Mutex
	stats    map[string]string
	metadata map[string]string
	calls    map[string]int
}

func (f *fakeHistory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := r.URL.Query()
	if r.URL.Path != "/api/v2" || q.Get("apikey") != "key" {
		http.NotFound(w, r)
		return
	}
	cmd, key := q.Get("cmd"), q.Get("rating_key")
	f.calls[cmd]++
	var data string
	var ok bool
	switch cmd {
	case "get_item_watch_time_stats":
		data, ok = f.stats[key]
	case "get_metadata":
		data, ok = f.metadata[key]
	}
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, `{"response": {"result": "success", "message": null, "data": %s}}`, data)
}

func (f *fakeHistory) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[cmd]
}

func newAdapter(t *testing.T, fake *fakeHistory) (*tautulli.WatchStats, *cache.FreshnessCache) {
	t.Helper()
	if fake.calls == nil {
		fake.calls = map[string]int{}
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := tautulli.NewClient(config.Tautulli{URL: srv.URL, APIKey: "key"}, 2*time.Second, nil, nil)

	backend, err := cache.OpenBolt(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	facts := cache.New(backend, nil)
	return tautulli.NewWatchStats(client, facts, cache.Policy{TTL: time.Hour}, nil), facts
}

const zeroPlays = `[{"query_days": 1, "total_plays": 0}, {"query_days": 0, "total_plays": 0}]`

func TestCrossRefDiscoveryVariants(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"top level guids", `{"guids": ["imdb://tt1", "tvdb://393206"]}`, "393206"},
		{"metadata guids", `{"metadata": {"guids": ["tvdb://11"]}}`, "11"},
		{"details metadata", `{"details": {"metadata": {"guids": ["tmdb://5", "tvdb://12"]}}}`, "12"},
		{"external ids", `{"metadata": {"external_ids": {"tvdb_id": 13}}}`, "13"},
		{"tvdbId field", `{"metadata": {"tvdbId": "14"}}`, "14"},
		{"list metadata", `[{"total_plays": 0, "metadata": {"guids": ["tvdb://15"]}}]`, "15"},
		{"non numeric", `{"guids": ["tvdb://abc"]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, meta := zeroPlays, tt.data
			if strings.HasPrefix(tt.data, "[") {
				stats, meta = tt.data, `{}`
			}
			fake := &fakeHistory{stats: map[string]string{"1": stats}, metadata: map[string]string{"1": meta}}
			adapter, _ := newAdapter(t, fake)
			finding, err := adapter.HasWatchStats(context.Background(), sources.Item{Key: "1"})
			if err != nil {
				t.Fatalf("HasWatchStats: %v", err)
			}
			if finding.Verdict != sources.No || finding.CrossRefID != tt.want {
				t.Fatalf("expected No with %q, got %+v", tt.want, finding)
			}
		})
	}
}

func TestWatchStatsFallsBackToMetadata(t *testing.T) {
	fake := &fakeHistory{
		stats:    map[string]string{"1": zeroPlays},
		metadata: map[string]string{"1": `{"guids": ["tvdb://77"]}`},
	}
	adapter, _ := newAdapter(t, fake)
	ctx := context.Background()

	finding, err := adapter.HasWatchStats(ctx, sources.Item{Key: "1"})
	if err != nil || finding.Verdict != sources.No || finding.CrossRefID != "77" {
		t.Fatalf("expected metadata fallback, got %+v err=%v", finding, err)
	}
	// cached second answer makes no calls and carries no id
	finding, err = adapter.HasWatchStats(ctx, sources.Item{Key: "1"})
	if err != nil || finding.Verdict != sources.No || finding.CrossRefID != "" {
		t.Fatalf("expected cached negative, got %+v err=%v", finding, err)
	}
	if fake.count("get_item_watch_time_stats") != 1 || fake.count("get_metadata") != 1 {
		t.Fatalf("unexpected call counts %v", fake.calls)
	}
}

func TestWatchedSeriesSkipsMetadataLookup(t *testing.T) {
	fake := &fakeHistory{stats: map[string]string{"2": `[{"total_plays": 0}, {"total_plays": 4}]`}}
	adapter, _ := newAdapter(t, fake)

	finding, err := adapter.HasWatchStats(context.Background(), sources.Item{Key: "2"})
	if err != nil || finding.Verdict != sources.Yes {
		t.Fatalf("expected watched, got %+v err=%v", finding, err)
	}
	if fake.count("get_metadata") != 0 {
		t.Fatal("watched series must not trigger a metadata lookup")
	}
}

func TestWatchStatsFailureIsUnknown(t *testing.T) {
	fake := &fakeHistory{}
	adapter, facts := newAdapter(t, fake)
	ctx := context.Background()

	finding, err := adapter.HasWatchStats(ctx, sources.Item{Key: "3"})
	if err != nil || finding.Verdict != sources.Unknown {
		t.Fatalf("expected unknown, got %+v err=%v", finding, err)
	}
	if _, _, ok, _ := facts.Get(ctx, cache.SourceWatchStats, "3"); ok {
		t.Fatal("failed check must not be cached")
	}
	if id := adapter.ResolveCrossRef(ctx, "3"); id != "" {
		t.Fatalf("expected empty id on failure, got %q", id)
	}
}

func TestWatchStatsUnexpectedDataIsUnknown(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null data", `{"response": {"result": "success", "data": null}}`},
		{"empty object", `{"response": {"result": "success", "data": {}}}`},
		{"object with plays", `{"response": {"result": "success", "data": {"total_plays": 7}}}`},
		{"string data", `{"response": {"result": "success", "data": "oops"}}`},
		{"missing data", `{"response": {"result": "success"}}`},
		{"empty result", `{"response": {"result": "", "data": [{"total_plays": 0}]}}`},
		{"error result", `{"response": {"result": "error", "message": "bad key", "data": []}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()
			client := tautulli.NewClient(config.Tautulli{URL: srv.URL, APIKey: "key"}, time.Second, nil, nil)
			backend, err := cache.OpenBolt(filepath.Join(t.TempDir(), "cache.bolt"))
			if err != nil {
				t.Fatalf("OpenBolt: %v", err)
			}
			defer backend.Close()
			facts := cache.New(backend, nil)
			adapter := tautulli.NewWatchStats(client, facts, cache.Policy{TTL: time.Hour}, nil)
			ctx := context.Background()

			finding, err := adapter.HasWatchStats(ctx, sources.Item{Key: "9", CrossRefID: "900"})
			if err != nil || finding.Verdict != sources.Unknown {
				t.Fatalf("expected unknown, got %+v err=%v", finding, err)
			}
			if _, _, ok, _ := facts.Get(ctx, cache.SourceWatchStats, "9"); ok {
				t.Fatal("unexpected response must not be cached")
			}
		})
	}
}

func TestResolveCrossRef(t *testing.T) {
	fake := &fakeHistory{metadata: map[string]string{"4": `{"metadata": {"external_ids": {"tvdb_id": 99}}}`}}
	adapter, _ := newAdapter(t, fake)
	if id := adapter.ResolveCrossRef(context.Background(), "4"); id != "99" {
		t.Fatalf("expected 99, got %q", id)
	}
}
