package sources

import (
	"strconv"
	"strings"
)

// Item is one series enumerated from the media server.
type Item struct {
	Key   string
	Title string
	Year  int
	// GUID is the media server's agent identifier, used for legacy
	// cross-reference extraction.
	GUID string
	// CrossRefID is the monitoring service identifier when known at
	// enumeration time.
	CrossRefID string
	// SingleSeason is set when the only season present is season 1.
	SingleSeason bool
	// SingleEpisode is set when the only season present holds one episode.
	SingleEpisode bool
	// SizeBytes is the on-disk size when disk usage was requested.
	SizeBytes int64
}

// DisplayTitle renders "Title (Year)" or just the title.
func (i Item) DisplayTitle() string {
	if i.Year > 0 {
		return i.Title + " (" + strconv.Itoa(i.Year) + ")"
	}
	return i.Title
}

// LegacyCrossRef extracts the series id from legacy thetvdb agent GUIDs such
// as "com.plexapp.agents.thetvdb://121361/1/1?lang=en". The first all-digit
// path segment wins.
func LegacyCrossRef(guid string) string {
	guid = strings.TrimSpace(guid)
	if !strings.Contains(guid, "thetvdb") {
		return ""
	}
	_, rest, ok := strings.Cut(guid, "://")
	if !ok {
		return ""
	}
	if idx := strings.IndexAny(rest, "?#"); idx >= 0 {
		rest = rest[:idx]
	}
	for segment := range strings.SplitSeq(rest, "/") {
		if isDigits(segment) {
			return segment
		}
	}
	return ""
}

// CrossRefFromGUID extracts the trailing numeric segment of modern tvdb GUIDs
// such as "tvdb://393206".
func CrossRefFromGUID(guid string) string {
	guid = strings.TrimSpace(guid)
	if !strings.Contains(strings.ToLower(guid), "tvdb") {
		return ""
	}
	guid = strings.TrimRight(guid, "/")
	idx := strings.LastIndexAny(guid, "/:")
	candidate := guid[idx+1:]
	if isDigits(candidate) {
		return candidate
	}
	return ""
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

