package sweep

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"showsweep/internal/actions"
	"showsweep/internal/store"
)

// Report summarizes one run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	DryRun   bool
	Scanned  int
	// InventoryError is set when enumeration failed and the run processed
	// no items.
	InventoryError  string
	Rejected        map[Classification]int
	RejectedByGuard map[string]int
	Eligible        []Decision
	Acted           []actions.Result
	// Errors counts items skipped because of an unexpected per-item failure.
	Errors           int
	ReclaimableBytes int64
}

func newReport(runID string, started time.Time, dryRun bool) Report {
	return Report{
		RunID:           runID,
		Started:         started,
		DryRun:          dryRun,
		Rejected:        make(map[Classification]int),
		RejectedByGuard: make(map[string]int),
	}
}

func (r *Report) add(d Decision) {
	if d.Classification == Eligible {
		r.Eligible = append(r.Eligible, d)
		return
	}
	r.Rejected[d.Classification]++
	r.RejectedByGuard[d.Guard]++
}

// RejectedTotal is the number of items any guard rejected.
func (r Report) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// Outcomes counts acted results by outcome; refused results are counted
// under "refused".
func (r Report) Outcomes() map[string]int {
	counts := make(map[string]int)
	for _, res := range r.Acted {
		if res.Refused {
			counts["refused"]++
			continue
		}
		counts[string(res.Outcome)]++
	}
	return counts
}

// Failed reports whether any applied disposition did not fully succeed.
func (r Report) Failed() bool {
	for _, res := range r.Acted {
		if res.Outcome == store.OutcomeFailed || res.Outcome == store.OutcomePartial {
			return true
		}
	}
	return false
}

// sortDecisions orders decisions by title using English collation, then
// year, then key.
func sortDecisions(list []Decision) {
	col := collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Item, list[j].Item
		if cmp := col.CompareString(a.Title, b.Title); cmp != 0 {
			return cmp < 0
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Key < b.Key
	})
}
