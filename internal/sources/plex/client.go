package plex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"showsweep/internal/config"
	"showsweep/internal/services"
	"showsweep/internal/sources"
)

const (
	pageSize    = 100
	typeShow    = 2
	typeSeason  = 3
	serviceName = "plex"
)

// Client wraps the media server HTTP API for one TV library.
type Client struct {
	api     *sources.Client
	library string

	mu        sync.Mutex
	sectionID string
}

// NewClient builds a client for cfg. limiter may be nil.
func NewClient(cfg config.Plex, timeout time.Duration, limiter sources.Throttle, logger *slog.Logger) *Client {
	api := sources.NewClient(serviceName, cfg.URL, timeout, limiter, logger)
	api.Header.Set("X-Plex-Token", strings.TrimSpace(cfg.Token))
	api.Header.Set("X-Plex-Product", "ShowSweep")
	return &Client{api: api, library: cfg.Library}
}

// SetHTTPClient replaces the HTTP backend.
func (c *Client) SetHTTPClient(doer sources.HTTPDoer) {
	c.api.HTTP = doer
}

// SectionID resolves the configured library name to its section key. The
// result is cached for the life of the client.
func (c *Client) SectionID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sectionID != "" {
		return c.sectionID, nil
	}

	var resp apiResponse
	if err := c.api.GetJSON(ctx, "/library/sections", nil, &resp); err != nil {
		return "", err
	}
	for _, dir := range resp.MediaContainer.Directory {
		if dir.Key != "" && strings.EqualFold(strings.TrimSpace(dir.Title), strings.TrimSpace(c.library)) {
			c.sectionID = dir.Key
			return dir.Key, nil
		}
	}
	return "", services.Wrap(services.ErrConfiguration, serviceName, "resolve library", fmt.Sprintf("library %q not found", c.library), nil)
}

// listSection pages through /library/sections/{id}/all for one metadata type.
func (c *Client) listSection(ctx context.Context, sectionID string, kind int) ([]metadata, error) {
	var out []metadata
	path := fmt.Sprintf("/library/sections/%s/all", url.PathEscape(sectionID))
	for start := 0; ; start += pageSize {
		query := url.Values{}
		query.Set("type", strconv.Itoa(kind))
		query.Set("includeGuids", "1")
		query.Set("X-Plex-Container-Start", strconv.Itoa(start))
		query.Set("X-Plex-Container-Size", strconv.Itoa(pageSize))

		var resp apiResponse
		if err := c.api.GetJSON(ctx, path, query, &resp); err != nil {
			return nil, err
		}
		page := resp.MediaContainer.Metadata
		out = append(out, page...)

		total := resp.MediaContainer.TotalSize
		if len(page) < pageSize || (total > 0 && len(out) >= total) {
			return out, nil
		}
	}
}

// Children lists the direct children of key (seasons of a show, episodes of a
// season).
func (c *Client) Children(ctx context.Context, key string) ([]metadata, error) {
	var resp apiResponse
	path := fmt.Sprintf("/library/metadata/%s/children", url.PathEscape(key))
	if err := c.api.GetJSON(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Metadata, nil
}

// Leaves lists every episode below key.
func (c *Client) Leaves(ctx context.Context, key string) ([]metadata, error) {
	var resp apiResponse
	path := fmt.Sprintf("/library/metadata/%s/allLeaves", url.PathEscape(key))
	if err := c.api.GetJSON(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Metadata, nil
}

// PlayCount returns the number of history entries recorded for key.
func (c *Client) PlayCount(ctx context.Context, key string) (int, error) {
	query := url.Values{}
	query.Set("metadataItemID", key)
	query.Set("X-Plex-Container-Start", "0")
	query.Set("X-Plex-Container-Size", "1")
	var resp apiResponse
	if err := c.api.GetJSON(ctx, "/status/sessions/history/all", query, &resp); err != nil {
		return 0, err
	}
	container := resp.MediaContainer
	switch {
	case container.TotalSize > 0:
		return container.TotalSize, nil
	case container.Size > 0:
		return container.Size, nil
	default:
		return len(container.Metadata), nil
	}
}

// Delete removes key (show, season or episode) and its files.
func (c *Client) Delete(ctx context.Context, key string) error {
	path := fmt.Sprintf("/library/metadata/%s", url.PathEscape(key))
	return c.api.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}
