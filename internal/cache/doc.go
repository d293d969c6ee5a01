// Package cache provides the freshness-bounded fact store shared by every
// source adapter.
//
// A FreshnessCache returns a stored fact together with its age and leaves the
// trust decision to the caller, which applies its own Policy (for example a
// shorter TTL for negative facts). Facts are kept in one namespace per Source
// on a durable Backend: the SQLite store or a bbolt file. Writes are upserts;
// a batch write is a single all-or-nothing transaction.
package cache
