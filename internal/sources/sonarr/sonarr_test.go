package sonarr_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"showsweep/internal/config"
	"showsweep/internal/services"
	"showsweep/internal/sources/sonarr"
)

type fakeSonarr struct {
	mu      sync.Mutex
	series  map[string][]map[string]any
	put     map[string]any
	deleted string
	failPut bool
}

func (f *fakeSonarr) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("X-Api-Key") != "key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v3/series":
		list := f.series[r.URL.Query().Get("tvdbId")]
		if list == nil {
			list = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(list)
	case r.Method == http.MethodPut && r.URL.Path == "/api/v3/series/7":
		if f.failPut {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.put)
		w.WriteHeader(http.StatusAccepted)
	case r.Method == http.MethodDelete && r.URL.Path == "/api/v3/series/7":
		f.deleted = r.URL.Query().Get("deleteFiles")
	default:
		http.NotFound(w, r)
	}
}

func newClient(t *testing.T, fake *fakeSonarr, cfg config.Sonarr) *sonarr.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL
	cfg.APIKey = "key"
	return sonarr.NewClient(cfg, 2*time.Second, nil, nil)
}

func sampleSeries() map[string][]map[string]any {
	return map[string][]map[string]any{
		"393206": {
			{"id": 7, "title": "Pilot Only", "monitored": true, "qualityProfileId": 4, "seasons": []any{map[string]any{"seasonNumber": 1, "monitored": true}}},
			{"id": 8, "title": "Duplicate"},
		},
	}
}

func TestStopTrackingUnmonitorsFullDocument(t *testing.T) {
	fake := &fakeSonarr{series: sampleSeries()}
	client := newClient(t, fake, config.Sonarr{})

	if err := client.StopTracking(context.Background(), "393206"); err != nil {
		t.Fatalf("StopTracking: %v", err)
	}
	if fake.put == nil || fake.put["monitored"] != false || fake.put["title"] != "Pilot Only" {
		t.Fatalf("unexpected put body %v", fake.put)
	}
	if fake.put["qualityProfileId"] != float64(4) || fake.put["seasons"] == nil {
		t.Fatalf("expected unmodelled fields to round-trip, got %v", fake.put)
	}
	if fake.deleted != "" {
		t.Fatal("series must not be deleted unless configured")
	}
}

func TestStopTrackingDeletesWhenConfigured(t *testing.T) {
	fake := &fakeSonarr{series: sampleSeries()}
	client := newClient(t, fake, config.Sonarr{DeleteSeries: true, DeleteFiles: true})

	if err := client.StopTracking(context.Background(), "393206"); err != nil {
		t.Fatalf("StopTracking: %v", err)
	}
	if fake.deleted != "true" {
		t.Fatalf("expected deleteFiles=true, got %q", fake.deleted)
	}
}

func TestStopTrackingFailures(t *testing.T) {
	ctx := context.Background()

	client := newClient(t, &fakeSonarr{series: sampleSeries()}, config.Sonarr{})
	if err := client.StopTracking(ctx, ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected missing id to be not found, got %v", err)
	}
	if err := client.StopTracking(ctx, "1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected unknown series to be not found, got %v", err)
	}

	failing := newClient(t, &fakeSonarr{series: sampleSeries(), failPut: true}, config.Sonarr{})
	if err := failing.StopTracking(ctx, "393206"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient put failure, got %v", err)
	}
}
