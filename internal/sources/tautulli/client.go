package tautulli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"showsweep/internal/config"
	"showsweep/internal/services"
	"showsweep/internal/sources"
)

const (
	serviceName = "tautulli"
	apiPath     = "/api/v2"
)

type envelope struct {
	Response struct {
		Result  string          `json:"result"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"response"`
}

type watchStat struct {
	TotalPlays float64 `json:"total_plays"`
}

// Client issues history service API commands.
type Client struct {
	api *sources.Client
}

// NewClient builds a client for cfg. limiter may be nil.
func NewClient(cfg config.Tautulli, timeout time.Duration, limiter sources.Throttle, logger *slog.Logger) *Client {
	api := sources.NewClient(serviceName, cfg.URL, timeout, limiter, logger)
	api.Query.Set("apikey", strings.TrimSpace(cfg.APIKey))
	return &Client{api: api}
}

// SetHTTPClient replaces the HTTP backend.
func (c *Client) SetHTTPClient(doer sources.HTTPDoer) {
	c.api.HTTP = doer
}

// WatchStats runs get_item_watch_time_stats for key and returns the play
// count plus any tvdb id present in the response. Data that is not a list
// of stat rows is an error, never zero plays.
func (c *Client) WatchStats(ctx context.Context, key string) (int, string, error) {
	data, err := c.command(ctx, "get_item_watch_time_stats", key)
	if err != nil {
		return 0, "", err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return 0, "", services.Wrap(services.ErrTransient, serviceName, "watch stats", "unexpected data shape", nil)
	}
	var stats []watchStat
	if err := json.Unmarshal(data, &stats); err != nil {
		return 0, "", services.Wrap(services.ErrTransient, serviceName, "watch stats", "decode data", err)
	}
	plays := 0
	for _, s := range stats {
		if s.TotalPlays > 0 {
			plays += int(s.TotalPlays)
		}
	}
	return plays, extractCrossRef(data), nil
}

// Metadata runs get_metadata for key and returns the tvdb id, if any.
func (c *Client) Metadata(ctx context.Context, key string) (string, error) {
	data, err := c.command(ctx, "get_metadata", key)
	if err != nil {
		return "", err
	}
	return extractCrossRef(data), nil
}

func (c *Client) command(ctx context.Context, cmd, key string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("cmd", cmd)
	query.Set("rating_key", key)
	var env envelope
	if err := c.api.GetJSON(ctx, apiPath, query, &env); err != nil {
		return nil, err
	}
	if result := strings.ToLower(strings.TrimSpace(env.Response.Result)); result != "success" {
		return nil, services.Wrap(services.ErrTransient, serviceName, cmd, fmt.Sprintf("result %q: %s", env.Response.Result, env.Response.Message), nil)
	}
	return env.Response.Data, nil
}
