// Package sweep classifies every series the media server reports and hands
// the eligible ones to the action layer.
//
// Each item passes an ordered chain of guards: structural flags, recent
// requests, watch stats and watch history. The first guard that rejects
// ends evaluation for that item, so later sources are never queried for
// it. A guard whose source cannot answer rejects the item as unverified;
// the chain never lets an unanswered check through.
//
// Run is the single entry point. It owns the run id, isolates per-item
// failures, and returns a Report with per-guard rejection counts, the
// eligible set, and the outcome of every applied disposition. Only a store
// failure aborts a run.
package sweep
