package testsupport

import (
	"context"
	"testing"

	"showsweep/internal/config"
	"showsweep/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// RecordAction appends an action for tests using the provided store.
func RecordAction(t testing.TB, st *store.Store, key, action, runID string) store.ActionRecord {
	t.Helper()

	rec, err := st.RecordAction(context.Background(), store.ActionRecord{ItemKey: key, Action: action, RunID: runID})
	if err != nil {
		t.Fatalf("store.RecordAction: %v", err)
	}
	return rec
}
