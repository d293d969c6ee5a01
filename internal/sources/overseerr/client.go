package overseerr

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"showsweep/internal/config"
	"showsweep/internal/logging"
	"showsweep/internal/services"
	"showsweep/internal/sources"
)

const (
	serviceName     = "overseerr"
	endpointTimeout = 5 * time.Second
)

// endpointCandidates are tried in order; the first answering 200 is used for
// the life of the client.
var endpointCandidates = []string{"/api/v1/request", "/request"}

// Record is one TV request. CreatedAt is zero when the tracker sent no
// parsable timestamp.
type Record struct {
	Key       string
	Title     string
	CreatedAt time.Time
}

// Client pages through the request tracker's request listing.
type Client struct {
	api      *sources.Client
	pageSize int
	maxPages int
	logger   *slog.Logger

	mu       sync.Mutex
	endpoint string
}

// NewClient builds a client for cfg. limiter may be nil.
func NewClient(cfg config.Overseerr, timeout time.Duration, limiter sources.Throttle, logger *slog.Logger) *Client {
	api := sources.NewClient(serviceName, cfg.URL, timeout, limiter, logger)
	api.Header.Set("X-Api-Key", strings.TrimSpace(cfg.APIKey))
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		api:      api,
		pageSize: pageSize,
		maxPages: cfg.MaxPages,
		logger:   logging.NewComponentLogger(logger, serviceName),
	}
}

// SetHTTPClient replaces the HTTP backend.
func (c *Client) SetHTTPClient(doer sources.HTTPDoer) {
	c.api.HTTP = doer
}

// Endpoint returns the working request listing path, probing candidates on
// first use.
func (c *Client) Endpoint(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endpoint != "" {
		return c.endpoint, nil
	}

	check := *c.api
	check.Timeout = endpointTimeout
	var lastErr error
	for _, candidate := range endpointCandidates {
		err := check.GetJSON(ctx, candidate, url.Values{"take": {"1"}}, nil)
		if err == nil {
			c.endpoint = candidate
			c.logger.Debug("request endpoint resolved", logging.String("endpoint", candidate))
			return candidate, nil
		}
		c.logger.Debug("request endpoint check failed", logging.String("endpoint", candidate), logging.Error(err))
		lastErr = err
	}
	return "", services.Wrap(services.ErrTransient, serviceName, "resolve endpoint", "no working request endpoint; check URL and API key", lastErr)
}

// FetchAll returns every TV request. Pagination stops when the page count
// reported on the first page is reached or a page comes back empty. Without
// page info a short page ends it. The configured page cap always applies.
// Any page failure fails the whole fetch.
func (c *Client) FetchAll(ctx context.Context) ([]Record, error) {
	endpoint, err := c.Endpoint(ctx)
	if err != nil {
		return nil, err
	}

	var records []Record
	totalPages := 0
	for page := 1; ; page++ {
		if c.maxPages > 0 && page > c.maxPages {
			logging.WarnWithContext(c.logger, "request pagination capped",
				"overseerr_page_cap",
				logging.Int("max_pages", c.maxPages),
				logging.String(logging.FieldImpact, "older requests were not considered"),
				logging.String(logging.FieldErrorHint, "raise overseerr.max_pages"),
			)
			break
		}
		query := url.Values{}
		query.Set("take", strconv.Itoa(c.pageSize))
		query.Set("skip", strconv.Itoa((page-1)*c.pageSize))
		query.Set("sort", "modified")

		var resp pageResponse
		if err := c.api.GetJSON(ctx, endpoint, query, &resp); err != nil {
			return nil, services.Wrap(services.ErrTransient, serviceName, "fetch requests", fmt.Sprintf("page %d", page), err)
		}
		if page == 1 && resp.PageInfo != nil {
			totalPages = resp.PageInfo.Pages
		}
		for _, req := range resp.Results {
			if !req.Media.isTV() || req.Media.RatingKey == "" {
				continue
			}
			records = append(records, Record{
				Key:       string(req.Media.RatingKey),
				Title:     strings.TrimSpace(req.Media.Name),
				CreatedAt: parseCreatedAt(req.CreatedAt),
			})
		}
		c.logger.Debug("request page fetched",
			logging.Int("page", page),
			logging.Int("pages", totalPages),
			logging.Int("results", len(resp.Results)),
		)

		if totalPages > 0 {
			if page >= totalPages {
				break
			}
			if len(resp.Results) == 0 {
				break
			}
			continue
		}
		if len(resp.Results) < c.pageSize {
			break
		}
	}
	return records, nil
}

func parseCreatedAt(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
