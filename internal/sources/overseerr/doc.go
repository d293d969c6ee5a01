// Package overseerr answers whether a series was requested recently. The
// request tracker is queried in bulk: every TV request is fetched page by
// page into a Snapshot, the durable cache is refreshed from it in one batch,
// and later queries are answered from the cache or the snapshot without
// further network calls.
package overseerr
