package sweep

// Classification is the terminal state an item reaches in the guard chain.
type Classification string

const (
	Eligible              Classification = "ELIGIBLE"
	RejectedStructural    Classification = "REJECTED_STRUCTURAL"
	RejectedRecentRequest Classification = "REJECTED_RECENT_REQUEST"
	RejectedWatched       Classification = "REJECTED_WATCHED"
	RejectedUnverified    Classification = "REJECTED_UNVERIFIED"
)

// Guard names, in evaluation order.
const (
	GuardStructural    = "structural"
	GuardRecentRequest = "recent_request"
	GuardWatchStats    = "watch_stats"
	GuardWatchHistory  = "watch_history"
)

// Guards lists every guard in evaluation order.
var Guards = []string{GuardStructural, GuardRecentRequest, GuardWatchStats, GuardWatchHistory}

// Rejected reports whether c removes the item from the eligible set.
func (c Classification) Rejected() bool {
	return c != Eligible
}
