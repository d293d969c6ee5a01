package plex

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"showsweep/internal/logging"
	"showsweep/internal/services"
)

// TrimResult reports what a structural trim removed.
type TrimResult struct {
	KeptSeason  int
	KeptEpisode int
	Deleted     int
	Failed      []string
}

// Library performs structural operations on series.
type Library struct {
	client *Client
	logger *slog.Logger
}

// NewLibrary wraps client.
func NewLibrary(client *Client, logger *slog.Logger) *Library {
	return &Library{client: client, logger: logging.NewComponentLogger(logger, "plex-library")}
}

// DeleteShow removes the whole series and its files.
func (l *Library) DeleteShow(ctx context.Context, key string) error {
	if err := l.client.Delete(ctx, key); err != nil {
		return err
	}
	l.logger.Info("series deleted", logging.String(logging.FieldItemKey, key))
	return nil
}

// KeepFirstSeason deletes every season except the lowest-indexed one.
// Individual failures are collected and do not stop the remaining deletions.
func (l *Library) KeepFirstSeason(ctx context.Context, key string) (TrimResult, error) {
	seasons, err := l.seasons(ctx, key)
	if err != nil {
		return TrimResult{}, err
	}
	result := TrimResult{KeptSeason: seasons[0].Index}
	for _, season := range seasons[1:] {
		l.deleteChild(ctx, key, fmt.Sprintf("season %d", season.Index), season.RatingKey, &result)
	}
	return result, l.finish(key, "keep first season", result)
}

// KeepFirstEpisode keeps only the lowest-indexed episode of the
// lowest-indexed season and deletes everything else.
func (l *Library) KeepFirstEpisode(ctx context.Context, key string) (TrimResult, error) {
	seasons, err := l.seasons(ctx, key)
	if err != nil {
		return TrimResult{}, err
	}
	first := seasons[0]
	episodes, err := l.client.Children(ctx, first.RatingKey)
	if err != nil {
		return TrimResult{}, err
	}
	if len(episodes) == 0 {
		return TrimResult{}, services.Wrap(services.ErrNotFound, serviceName, "keep first episode", fmt.Sprintf("season %d of %s has no episodes", first.Index, key), nil)
	}
	sortByIndex(episodes)

	result := TrimResult{KeptSeason: first.Index, KeptEpisode: episodes[0].Index}
	for _, episode := range episodes[1:] {
		l.deleteChild(ctx, key, fmt.Sprintf("S%02dE%02d", first.Index, episode.Index), episode.RatingKey, &result)
	}
	for _, season := range seasons[1:] {
		l.deleteChild(ctx, key, fmt.Sprintf("season %d", season.Index), season.RatingKey, &result)
	}
	return result, l.finish(key, "keep first episode", result)
}

// DiskUsage sums the size of every file below key.
func (l *Library) DiskUsage(ctx context.Context, key string) (int64, error) {
	episodes, err := l.client.Leaves(ctx, key)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, episode := range episodes {
		for _, m := range episode.Media {
			for _, p := range m.Part {
				total += p.Size
			}
		}
	}
	return total, nil
}

func (l *Library) seasons(ctx context.Context, key string) ([]metadata, error) {
	children, err := l.client.Children(ctx, key)
	if err != nil {
		return nil, err
	}
	seasons := children[:0]
	for _, child := range children {
		if child.Type == "" || child.Type == "season" {
			seasons = append(seasons, child)
		}
	}
	if len(seasons) == 0 {
		return nil, services.Wrap(services.ErrNotFound, serviceName, "list seasons", "no seasons for "+key, nil)
	}
	sortByIndex(seasons)
	return seasons, nil
}

func (l *Library) deleteChild(ctx context.Context, showKey, label, childKey string, result *TrimResult) {
	if err := l.client.Delete(ctx, childKey); err != nil {
		result.Failed = append(result.Failed, label)
		logging.WarnWithContext(l.logger, "structural delete failed",
			"plex_delete_failed",
			logging.String(logging.FieldItemKey, showKey),
			logging.String("target", label),
			logging.Error(err),
			logging.String(logging.FieldImpact, label+" remains on disk"),
		)
		return
	}
	result.Deleted++
	l.logger.Info("deleted", logging.String(logging.FieldItemKey, showKey), logging.String("target", label))
}

func (l *Library) finish(key, operation string, result TrimResult) error {
	if len(result.Failed) > 0 {
		return services.Wrap(services.ErrPartialAction, serviceName, operation, "failed: "+strings.Join(result.Failed, ", "), nil)
	}
	l.logger.Info(operation+" complete",
		logging.String(logging.FieldItemKey, key),
		logging.Int("deleted", result.Deleted),
	)
	return nil
}

func sortByIndex(list []metadata) {
	slices.SortStableFunc(list, func(a, b metadata) int {
		return a.Index - b.Index
	})
}
