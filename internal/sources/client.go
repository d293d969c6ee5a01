package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"showsweep/internal/logging"
	"showsweep/internal/services"
)

const userAgent = "ShowSweep-Go/0.1.0"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Throttle blocks until the service's rate budget permits one call.
type Throttle interface {
	Acquire(ctx context.Context)
}

// StatusError reports a non-success HTTP status from an external service.
type StatusError struct {
	Service string
	Method  string
	Path    string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s %s returned %d", e.Service, e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s %s returned %d: %s", e.Service, e.Method, e.Path, e.Code, e.Body)
}

// Client performs JSON requests against one external service. Every request
// first takes a token from Limiter and runs under Timeout.
type Client struct {
	Service string
	BaseURL string
	Timeout time.Duration
	HTTP    HTTPDoer
	Limiter Throttle
	// Header is applied to every request (authentication headers).
	Header http.Header
	// Query is merged into every request (authentication parameters).
	Query  url.Values
	Logger *slog.Logger
}

// NewClient builds a Client with trimmed base URL and a default HTTP client.
func NewClient(service, baseURL string, timeout time.Duration, limiter Throttle, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		Service: service,
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Timeout: timeout,
		HTTP:    &http.Client{},
		Limiter: limiter,
		Header:  make(http.Header),
		Query:   make(url.Values),
		Logger:  logger,
	}
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Do issues one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded JSON response. Failures are tagged with
// services.ErrNotFound for 404 and services.ErrTransient otherwise.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.Limiter != nil {
		c.Limiter.Acquire(ctx)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, c.Service, method+" "+path, "marshal request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, c.Service, method+" "+path, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.Header {
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				req.Header.Set(key, v)
			}
		}
	}

	c.logger().Debug("service request", logging.String("method", method), logging.String("path", path))
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, c.Service, method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		statusErr := &StatusError{
			Service: c.Service,
			Method:  method,
			Path:    path,
			Code:    resp.StatusCode,
			Body:    strings.TrimSpace(string(data)),
		}
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, c.Service, method+" "+path, "", statusErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, c.Service, method+" "+path, "decode response", err)
	}
	return nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	merged := make(url.Values, len(c.Query)+len(query))
	for key, values := range c.Query {
		merged[key] = append([]string(nil), values...)
	}
	for key, values := range query {
		merged[key] = append([]string(nil), values...)
	}
	target := c.BaseURL + path
	if len(merged) > 0 {
		target += "?" + merged.Encode()
	}
	return target
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return logging.NewNop()
	}
	return c.Logger
}
