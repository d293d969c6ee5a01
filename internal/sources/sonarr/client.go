package sonarr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"showsweep/internal/config"
	"showsweep/internal/logging"
	"showsweep/internal/services"
	"showsweep/internal/sources"
)

const serviceName = "sonarr"

// Series is one monitoring-service series. Doc holds the full document so
// updates round-trip fields this package does not model.
type Series struct {
	ID        int
	Title     string
	Monitored bool
	Doc       map[string]any
}

// Client talks to the monitoring service v3 API.
type Client struct {
	api          *sources.Client
	deleteSeries bool
	deleteFiles  bool
	logger       *slog.Logger
}

// NewClient builds a client for cfg. limiter may be nil.
func NewClient(cfg config.Sonarr, timeout time.Duration, limiter sources.Throttle, logger *slog.Logger) *Client {
	api := sources.NewClient(serviceName, cfg.URL, timeout, limiter, logger)
	api.Header.Set("X-Api-Key", strings.TrimSpace(cfg.APIKey))
	return &Client{
		api:          api,
		deleteSeries: cfg.DeleteSeries,
		deleteFiles:  cfg.DeleteFiles,
		logger:       logging.NewComponentLogger(logger, serviceName),
	}
}

// SetHTTPClient replaces the HTTP backend.
func (c *Client) SetHTTPClient(doer sources.HTTPDoer) {
	c.api.HTTP = doer
}

// FindByTVDB returns the first series matching tvdbID.
func (c *Client) FindByTVDB(ctx context.Context, tvdbID string) (Series, error) {
	var list []map[string]any
	if err := c.api.GetJSON(ctx, "/api/v3/series", url.Values{"tvdbId": {tvdbID}}, &list); err != nil {
		return Series{}, err
	}
	if len(list) == 0 {
		return Series{}, services.Wrap(services.ErrNotFound, serviceName, "find series", "no series with tvdb id "+tvdbID, nil)
	}
	doc := list[0]
	id, _ := doc["id"].(float64)
	if id <= 0 {
		return Series{}, services.Wrap(services.ErrNotFound, serviceName, "find series", "series without id for tvdb id "+tvdbID, nil)
	}
	title, _ := doc["title"].(string)
	monitored, _ := doc["monitored"].(bool)
	return Series{ID: int(id), Title: title, Monitored: monitored, Doc: doc}, nil
}

// Unmonitor writes the full series document back with monitored=false.
func (c *Client) Unmonitor(ctx context.Context, series Series) error {
	doc := make(map[string]any, len(series.Doc)+1)
	for k, v := range series.Doc {
		doc[k] = v
	}
	doc["monitored"] = false
	path := "/api/v3/series/" + strconv.Itoa(series.ID)
	return c.api.Do(ctx, http.MethodPut, path, nil, doc, nil)
}

// Delete removes the series, and its files when deleteFiles is set.
func (c *Client) Delete(ctx context.Context, series Series, deleteFiles bool) error {
	path := "/api/v3/series/" + strconv.Itoa(series.ID)
	query := url.Values{"deleteFiles": {strconv.FormatBool(deleteFiles)}}
	return c.api.Do(ctx, http.MethodDelete, path, query, nil, nil)
}

// StopTracking locates the series by tvdbID and unmonitors it, then deletes
// it when configured to.
func (c *Client) StopTracking(ctx context.Context, tvdbID string) error {
	tvdbID = strings.TrimSpace(tvdbID)
	if tvdbID == "" {
		return services.Wrap(services.ErrNotFound, serviceName, "stop tracking", "no tvdb id", nil)
	}
	series, err := c.FindByTVDB(ctx, tvdbID)
	if err != nil {
		return err
	}
	if err := c.Unmonitor(ctx, series); err != nil {
		return err
	}
	c.logger.Info("series unmonitored",
		logging.String("tvdb_id", tvdbID),
		logging.String("title", series.Title),
		logging.Int("series_id", series.ID),
	)
	if !c.deleteSeries {
		return nil
	}
	if err := c.Delete(ctx, series, c.deleteFiles); err != nil {
		return fmt.Errorf("unmonitored but delete failed: %w", err)
	}
	c.logger.Info("series removed", logging.String("tvdb_id", tvdbID), logging.Bool("delete_files", c.deleteFiles))
	return nil
}
