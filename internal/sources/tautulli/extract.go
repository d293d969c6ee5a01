package tautulli

import (
	"encoding/json"
	"strconv"
	"strings"

	"showsweep/internal/sources"
)

// extractCrossRef finds a tvdb id in a response payload. It checks, in
// order: top-level guids, the metadata object (directly or under details)
// for guids, external_ids.tvdb_id and tvdbId, then the metadata guids of
// list entries.
func extractCrossRef(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return ""
	}

	switch v := data.(type) {
	case map[string]any:
		if id := fromGuids(v["guids"]); id != "" {
			return id
		}
		meta, _ := v["metadata"].(map[string]any)
		if meta == nil {
			if details, ok := v["details"].(map[string]any); ok {
				meta, _ = details["metadata"].(map[string]any)
			}
		}
		if meta != nil {
			if id := fromGuids(meta["guids"]); id != "" {
				return id
			}
			if ext, ok := meta["external_ids"].(map[string]any); ok {
				if id := scalar(ext["tvdb_id"]); id != "" {
					return id
				}
			}
			if id := scalar(meta["tvdbId"]); id != "" {
				return id
			}
		}
	case []any:
		for _, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if meta, ok := obj["metadata"].(map[string]any); ok {
				if id := fromGuids(meta["guids"]); id != "" {
					return id
				}
			}
		}
	}
	return ""
}

func fromGuids(value any) string {
	list, ok := value.([]any)
	if !ok {
		return ""
	}
	for _, entry := range list {
		if s, ok := entry.(string); ok {
			if id := sources.CrossRefFromGUID(s); id != "" {
				return id
			}
		}
	}
	return ""
}

func scalar(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v <= 0 {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
