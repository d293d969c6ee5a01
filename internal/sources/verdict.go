package sources

// Verdict is the answer an adapter gives for one eligibility check.
// The zero value is Unknown so an unset verdict never reads as a negative.
type Verdict int

const (
	Unknown Verdict = iota
	No
	Yes
)

// VerdictOf converts a verified boolean fact.
func VerdictOf(value bool) Verdict {
	if value {
		return Yes
	}
	return No
}

func (v Verdict) String() string {
	switch v {
	case No:
		return "no"
	case Yes:
		return "yes"
	default:
		return "unknown"
	}
}

// Finding is a verdict plus a cross-reference id the adapter happened to
// discover while producing it. CrossRefID is empty when nothing was found.
type Finding struct {
	Verdict    Verdict
	CrossRefID string
}
