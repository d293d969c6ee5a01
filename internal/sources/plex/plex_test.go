package plex_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"showsweep/internal/cache"
	"showsweep/internal/config"
	"showsweep/internal/services"
	"showsweep/internal/sources"
	"showsweep/internal/sources/plex"
)

type fakePlex struct {
	mu        sync.Mutex
	shows     []map[string]any
	seasons   []map[string]any
	children  map[string][]map[string]any
	leaves    map[string][]map[string]any
	history   map[string]int
	noHistory bool
	failing   map[string]bool
	deleted   []string
	requests  map[string]int
}

func newFakePlex() *fakePlex {
	return &fakePlex{
		children: map[string][]map[string]any{},
		leaves:   map[string][]map[string]any{},
		history:  map[string]int{},
		failing:  map[string]bool{},
		requests: map[string]int{},
	}
}

func (f *fakePlex) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakePlex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.URL.Path]++

	if r.Header.Get("X-Plex-Token") != "token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	path := r.URL.Path
	switch {
	case r.Method == http.MethodDelete:
		key := strings.TrimPrefix(path, "/library/metadata/")
		if f.failing[key] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.deleted = append(f.deleted, key)
		return
	case path == "/library/sections":
		writeContainer(w, map[string]any{"Directory": []map[string]any{
			{"key": "1", "type": "movie", "title": "Movies"},
			{"key": "2", "type": "show", "title": "TV Shows"},
		}})
	case path == "/library/sections/2/all":
		list := f.shows
		if r.URL.Query().Get("type") == "3" {
			list = f.seasons
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Start"))
		size, _ := strconv.Atoi(r.URL.Query().Get("X-Plex-Container-Size"))
		end := min(start+size, len(list))
		page := []map[string]any{}
		if start < len(list) {
			page = list[start:end]
		}
		writeContainer(w, map[string]any{"size": len(page), "totalSize": len(list), "Metadata": page})
	case path == "/status/sessions/history/all":
		key := r.URL.Query().Get("metadataItemID")
		if f.failing[key] {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if f.noHistory {
			http.NotFound(w, r)
			return
		}
		plays := f.history[key]
		writeContainer(w, map[string]any{"size": min(plays, 1), "totalSize": plays})
	case strings.HasSuffix(path, "/children"):
		key := strings.TrimSuffix(strings.TrimPrefix(path, "/library/metadata/"), "/children")
		writeContainer(w, map[string]any{"Metadata": f.children[key]})
	case strings.HasSuffix(path, "/allLeaves"):
		key := strings.TrimSuffix(strings.TrimPrefix(path, "/library/metadata/"), "/allLeaves")
		writeContainer(w, map[string]any{"Metadata": f.leaves[key]})
	default:
		http.NotFound(w, r)
	}
}

func writeContainer(w http.ResponseWriter, container map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"MediaContainer": container})
}

func newClient(t *testing.T, fake *fakePlex) *plex.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return plex.NewClient(config.Plex{URL: srv.URL, Token: "token", Library: "tv shows"}, 2*time.Second, nil, nil)
}

func newCache(t *testing.T, now func() time.Time) *cache.FreshnessCache {
	t.Helper()
	backend, err := cache.OpenBolt(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return cache.New(backend, now)
}

func TestInventoryDerivesStructuralFlags(t *testing.T) {
	fake := newFakePlex()
	fake.shows = []map[string]any{
		{"ratingKey": "10", "title": "Pilot Only", "year": 2020, "guid": "plex://show/abc", "Guid": []map[string]any{{"id": "imdb://tt1"}, {"id": "tvdb://393206"}}},
		{"ratingKey": "11", "title": "One Season", "year": 2019, "guid": "com.plexapp.agents.thetvdb://121361?lang=en"},
		{"ratingKey": "12", "title": "Long Runner"},
		{"ratingKey": "13", "title": "Late Season"},
	}
	fake.seasons = []map[string]any{
		{"ratingKey": "100", "parentRatingKey": "10", "index": 1, "leafCount": 1},
		{"ratingKey": "110", "parentRatingKey": "11", "index": 1, "leafCount": 8},
		{"ratingKey": "120", "parentRatingKey": "12", "index": 1, "leafCount": 10},
		{"ratingKey": "121", "parentRatingKey": "12", "index": 2, "leafCount": 10},
		{"ratingKey": "130", "parentRatingKey": "13", "index": 3, "leafCount": 1},
	}
	inv := plex.NewInventory(newClient(t, fake), nil)

	items, err := inv.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	expect := []struct {
		key                   string
		crossRef              string
		singleSeason, singleE bool
	}{
		{"10", "393206", true, true},
		{"11", "121361", true, false},
		{"12", "", false, false},
		{"13", "", false, true},
	}
	for i, want := range expect {
		got := items[i]
		if got.Key != want.key || got.CrossRefID != want.crossRef || got.SingleSeason != want.singleSeason || got.SingleEpisode != want.singleE {
			t.Fatalf("item %d: got %+v, want %+v", i, got, want)
		}
	}
	if items[0].Year != 2020 || items[0].Title != "Pilot Only" {
		t.Fatalf("unexpected identity %+v", items[0])
	}
}

func TestInventoryPagesThroughLargeLibraries(t *testing.T) {
	fake := newFakePlex()
	for i := range 150 {
		fake.shows = append(fake.shows, map[string]any{"ratingKey": fmt.Sprint(1000 + i), "title": fmt.Sprintf("Show %d", i)})
	}
	inv := plex.NewInventory(newClient(t, fake), nil)

	items, err := inv.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 150 {
		t.Fatalf("expected all 150 shows across pages, got %d", len(items))
	}
	// two show pages plus one season page
	if got := fake.count("/library/sections/2/all"); got != 3 {
		t.Fatalf("expected 3 listing calls, got %d", got)
	}
	if got := fake.count("/library/sections"); got != 1 {
		t.Fatalf("expected section lookup once, got %d", got)
	}
}

func TestInventoryUnknownLibrary(t *testing.T) {
	fake := newFakePlex()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	client := plex.NewClient(config.Plex{URL: srv.URL, Token: "token", Library: "Anime"}, time.Second, nil, nil)

	_, err := plex.NewInventory(client, nil).ListItems(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWatchHistoryCachesVerifiedFacts(t *testing.T) {
	fake := newFakePlex()
	fake.history["1"] = 3
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	facts := newCache(t, func() time.Time { return now })
	policy := cache.Policy{TTL: 24 * time.Hour}
	history := plex.NewWatchHistory(newClient(t, fake), facts, policy, nil)
	ctx := context.Background()

	for range 2 {
		finding, err := history.HasWatchHistory(ctx, sources.Item{Key: "1"})
		if err != nil || finding.Verdict != sources.Yes {
			t.Fatalf("expected watched, got %+v err=%v", finding, err)
		}
	}
	if got := fake.count("/status/sessions/history/all"); got != 1 {
		t.Fatalf("expected one live call, got %d", got)
	}

	// an empty container means never played
	finding, err := history.HasWatchHistory(ctx, sources.Item{Key: "2"})
	if err != nil || finding.Verdict != sources.No {
		t.Fatalf("expected unwatched, got %+v err=%v", finding, err)
	}

	now = now.Add(25 * time.Hour)
	if _, err := history.HasWatchHistory(ctx, sources.Item{Key: "1"}); err != nil {
		t.Fatalf("HasWatchHistory: %v", err)
	}
	if got := fake.count("/status/sessions/history/all"); got != 3 {
		t.Fatalf("expected stale entry to be re-verified, got %d calls", got)
	}
}

func TestWatchHistoryFailureIsUnknownAndUncached(t *testing.T) {
	fake := newFakePlex()
	fake.failing["5"] = true
	facts := newCache(t, nil)
	history := plex.NewWatchHistory(newClient(t, fake), facts, cache.Policy{TTL: time.Hour}, nil)
	ctx := context.Background()

	finding, err := history.HasWatchHistory(ctx, sources.Item{Key: "5"})
	if err != nil || finding.Verdict != sources.Unknown {
		t.Fatalf("expected unknown without error, got %+v err=%v", finding, err)
	}
	if _, _, ok, _ := facts.Get(ctx, cache.SourceWatchHistory, "5"); ok {
		t.Fatal("failed check must not be cached")
	}
}

func TestWatchHistoryMissingEndpointIsUnknown(t *testing.T) {
	fake := newFakePlex()
	fake.noHistory = true
	facts := newCache(t, nil)
	history := plex.NewWatchHistory(newClient(t, fake), facts, cache.Policy{TTL: time.Hour}, nil)
	ctx := context.Background()

	finding, err := history.HasWatchHistory(ctx, sources.Item{Key: "42"})
	if err != nil || finding.Verdict != sources.Unknown {
		t.Fatalf("expected unknown without error, got %+v err=%v", finding, err)
	}
	if _, _, ok, _ := facts.Get(ctx, cache.SourceWatchHistory, "42"); ok {
		t.Fatal("a 404 from the history endpoint must not be cached")
	}
}

func TestKeepFirstSeason(t *testing.T) {
	fake := newFakePlex()
	fake.children["7"] = []map[string]any{
		{"ratingKey": "73", "type": "season", "index": 3},
		{"ratingKey": "71", "type": "season", "index": 1},
		{"ratingKey": "72", "type": "season", "index": 2},
	}
	lib := plex.NewLibrary(newClient(t, fake), nil)

	result, err := lib.KeepFirstSeason(context.Background(), "7")
	if err != nil {
		t.Fatalf("KeepFirstSeason: %v", err)
	}
	if result.KeptSeason != 1 || result.Deleted != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if strings.Join(fake.deleted, ",") != "72,73" {
		t.Fatalf("unexpected deletions %v", fake.deleted)
	}
}

func TestKeepFirstEpisodeContinuesPastFailures(t *testing.T) {
	fake := newFakePlex()
	fake.children["8"] = []map[string]any{
		{"ratingKey": "81", "type": "season", "index": 1},
		{"ratingKey": "82", "type": "season", "index": 2},
	}
	fake.children["81"] = []map[string]any{
		{"ratingKey": "813", "type": "episode", "index": 3},
		{"ratingKey": "811", "type": "episode", "index": 1},
		{"ratingKey": "812", "type": "episode", "index": 2},
	}
	fake.failing["812"] = true
	lib := plex.NewLibrary(newClient(t, fake), nil)

	result, err := lib.KeepFirstEpisode(context.Background(), "8")
	if !errors.Is(err, services.ErrPartialAction) {
		t.Fatalf("expected partial action error, got %v", err)
	}
	if result.KeptEpisode != 1 || result.Deleted != 2 || len(result.Failed) != 1 || result.Failed[0] != "S01E02" {
		t.Fatalf("unexpected result %+v", result)
	}
	if strings.Join(fake.deleted, ",") != "813,82" {
		t.Fatalf("expected remaining deletions to proceed, got %v", fake.deleted)
	}
}

func TestDeleteShowAndDiskUsage(t *testing.T) {
	fake := newFakePlex()
	fake.leaves["9"] = []map[string]any{
		{"ratingKey": "91", "Media": []map[string]any{{"Part": []map[string]any{{"size": 1000}, {"size": 24}}}}},
		{"ratingKey": "92", "Media": []map[string]any{{"Part": []map[string]any{{"size": 2000}}}, {"Part": []map[string]any{{"size": 500}}}}},
	}
	lib := plex.NewLibrary(newClient(t, fake), nil)
	ctx := context.Background()

	size, err := lib.DiskUsage(ctx, "9")
	if err != nil || size != 3524 {
		t.Fatalf("expected 3524 bytes, got %d err=%v", size, err)
	}
	if err := lib.DeleteShow(ctx, "9"); err != nil {
		t.Fatalf("DeleteShow: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "9" {
		t.Fatalf("unexpected deletions %v", fake.deleted)
	}
	if _, err := lib.KeepFirstSeason(ctx, "404"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected missing seasons to be not found, got %v", err)
	}
}
