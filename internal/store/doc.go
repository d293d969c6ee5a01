// Package store persists ShowSweep state in SQLite.
//
// The Store owns the current-status projection (items_status), the
// append-only action log, and the per-source cache tables that back the
// freshness cache. The schema is versioned: numbered SQL files under
// migrations/ are applied in order inside one transaction and recorded in
// schema_migrations, so new columns arrive through additive migrations
// rather than runtime probing. A database carrying migrations this binary
// does not know is rejected.
//
// Every failure surfaced by this package wraps services.ErrDataIntegrity; a
// sweep cannot proceed without a working store.
package store
