// Package sources holds the pieces shared by every external service adapter:
// the three-valued Verdict adapters answer with, the Item produced by
// inventory enumeration, a JSON-over-HTTP client that applies the service's
// rate limit and per-call timeout, and transient failure classification.
//
// Adapters live in subpackages (plex, overseerr, tautulli, sonarr). They never
// surface network failures as errors; a failed check yields Unknown and only
// durable store failures propagate.
package sources
