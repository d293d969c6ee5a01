package plex

import (
	"context"
	"log/slog"
	"strings"

	"showsweep/internal/logging"
	"showsweep/internal/sources"
)

// Inventory enumerates the series in the configured TV library. It is always
// live and never cached.
type Inventory struct {
	client *Client
	logger *slog.Logger
}

// NewInventory wraps client.
func NewInventory(client *Client, logger *slog.Logger) *Inventory {
	return &Inventory{client: client, logger: logging.NewComponentLogger(logger, "plex-inventory")}
}

// ListItems returns every series with its structural flags. Shows and
// seasons are fetched as two section listings so no per-show request is
// needed.
func (i *Inventory) ListItems(ctx context.Context) ([]sources.Item, error) {
	sectionID, err := i.client.SectionID(ctx)
	if err != nil {
		return nil, err
	}
	shows, err := i.client.listSection(ctx, sectionID, typeShow)
	if err != nil {
		return nil, err
	}
	seasons, err := i.client.listSection(ctx, sectionID, typeSeason)
	if err != nil {
		return nil, err
	}

	byShow := make(map[string][]metadata, len(shows))
	for _, season := range seasons {
		if season.ParentRatingKey == "" {
			continue
		}
		byShow[season.ParentRatingKey] = append(byShow[season.ParentRatingKey], season)
	}

	items := make([]sources.Item, 0, len(shows))
	for _, show := range shows {
		if show.RatingKey == "" {
			continue
		}
		item := sources.Item{
			Key:        show.RatingKey,
			Title:      strings.TrimSpace(show.Title),
			Year:       show.Year,
			GUID:       show.GUID,
			CrossRefID: showCrossRef(show),
		}
		if own := byShow[show.RatingKey]; len(own) == 1 {
			item.SingleSeason = own[0].Index == 1
			item.SingleEpisode = own[0].LeafCount == 1
		}
		items = append(items, item)
		i.logger.Debug("enumerated series",
			logging.String(logging.FieldItemKey, item.Key),
			logging.String("title", item.Title),
			logging.Bool("single_season", item.SingleSeason),
			logging.Bool("single_episode", item.SingleEpisode),
		)
	}
	i.logger.Info("library enumerated",
		logging.String("library", i.client.library),
		logging.Int("series", len(items)),
		logging.Int("seasons", len(seasons)),
	)
	return items, nil
}

func showCrossRef(show metadata) string {
	for _, g := range show.Guids {
		if id := sources.CrossRefFromGUID(g.ID); id != "" {
			return id
		}
	}
	return sources.LegacyCrossRef(show.GUID)
}
