package actions

import (
	"fmt"
	"strings"

	"showsweep/internal/config"
	"showsweep/internal/services"
)

// Disposition is the cleanup action chosen for an eligible series.
type Disposition string

const (
	Delete           Disposition = config.ActionDelete
	KeepFirstSeason  Disposition = config.ActionKeepFirstSeason
	KeepFirstEpisode Disposition = config.ActionKeepFirstEpisode
	Keep             Disposition = config.ActionKeep
)

// Dispositions lists every disposition in prompt order.
var Dispositions = []Disposition{Delete, KeepFirstSeason, KeepFirstEpisode, Keep}

// ParseDisposition accepts the canonical names with dashes or underscores.
func ParseDisposition(value string) (Disposition, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	for _, d := range Dispositions {
		if string(d) == normalized {
			return d, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "actions", "parse disposition", fmt.Sprintf("unknown disposition %q", value), nil)
}

// Destructive reports whether the disposition removes media and must stop
// the monitoring service from re-downloading it.
func (d Disposition) Destructive() bool {
	return d != Keep
}
