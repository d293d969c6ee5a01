package overseerr

import "time"

// Snapshot is the in-memory result of one bulk request fetch. A failed fetch
// is recorded too, so callers within the snapshot TTL do not retry it.
// The zero value is an empty snapshot that has never been fetched.
type Snapshot struct {
	Fetched time.Time
	Records []Record
	Err     error

	byKey map[string][]Record
}

func newSnapshot(fetched time.Time, records []Record, err error) *Snapshot {
	s := &Snapshot{Fetched: fetched, Records: records, Err: err}
	s.byKey = make(map[string][]Record, len(records))
	for _, r := range records {
		s.byKey[r.Key] = append(s.byKey[r.Key], r)
	}
	return s
}

// Fresh reports whether the snapshot was fetched within ttl of now.
func (s *Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil || s.Fetched.IsZero() {
		return false
	}
	return now.Sub(s.Fetched) < ttl
}

// Lookup returns every request recorded for key.
func (s *Snapshot) Lookup(key string) []Record {
	if s == nil {
		return nil
	}
	if s.byKey == nil && len(s.Records) > 0 {
		s.byKey = newSnapshot(s.Fetched, s.Records, s.Err).byKey
	}
	return s.byKey[key]
}

// summary folds the requests for one key into a cache fact: recent when any
// request is younger than threshold, dated by the newest request.
type summary struct {
	title  string
	recent bool
	latest time.Time
}

func summarize(records []Record, now time.Time, threshold time.Duration) summary {
	var out summary
	for _, r := range records {
		if out.title == "" {
			out.title = r.Title
		}
		if r.CreatedAt.IsZero() {
			continue
		}
		if r.CreatedAt.After(out.latest) {
			out.latest = r.CreatedAt
		}
		if now.Sub(r.CreatedAt) < threshold {
			out.recent = true
		}
	}
	return out
}
