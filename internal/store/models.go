package store

import "time"

// Outcome classifies how an attempted action ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
	OutcomeDryRun  Outcome = "dry_run"
)

// ItemStatus is the current-status projection for one item. It always
// reflects the most recent recorded action only.
type ItemStatus struct {
	Key            string
	Title          string
	Year           int
	CrossRefID     string
	LastAction     string
	LastActionTime time.Time
	LastProcessed  time.Time
	LastRunID      string
	LastOutcome    Outcome
}

// Acted reports whether any action has been recorded for the item.
func (s ItemStatus) Acted() bool {
	return s.LastAction != ""
}

// ActionRecord is one append-only action log row.
type ActionRecord struct {
	ID        int64
	ItemKey   string
	Title     string
	Year      int
	Action    string
	Timestamp time.Time
	RunID     string
	Outcome   Outcome
	Detail    string
}

// Summary aggregates store contents for status output.
type Summary struct {
	Items        int
	WithCrossRef int
	Actions      int
	ByAction     map[string]int
	LastRunID    string
	LastActionAt time.Time
}
