// Package overpass provides a client for Overpass QL areal queries over an
// ordered list of interchangeable mirror endpoints. Mirrors are tried in
// configured order; the first one that answers wins and the rest are never
// contacted.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tjfontaine/geoscope/internal/fallback"
)

const defaultAttemptTimeout = 15 * time.Second

// Element is a single OSM feature returned by an areal query.
type Element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags,omitempty"`
}

// Response is the decoded Overpass payload.
type Response struct {
	Elements []Element `json:"elements"`
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAttemptTimeout bounds each individual mirror attempt.
func WithAttemptTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.attemptTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client issues Overpass queries with ordered mirror fallback.
type Client struct {
	mirrors        []string
	httpClient     *http.Client
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// NewClient creates a client over the given mirror endpoints.
func NewClient(mirrors []string, opts ...ClientOption) *Client {
	c := &Client{
		mirrors:        mirrors,
		httpClient:     http.DefaultClient,
		attemptTimeout: defaultAttemptTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs one Overpass QL query against the mirror sequence and returns
// the first successful response, or the aggregated error when every mirror
// fails. Callers decide how to degrade; this client never invents data.
func (c *Client) Query(ctx context.Context, query string) (*Response, error) {
	attempts := make([]fallback.Attempt[*Response], len(c.mirrors))
	for i, mirror := range c.mirrors {
		attempts[i] = func(ctx context.Context) (*Response, error) {
			resp, err := c.queryMirror(ctx, mirror, query)
			if err != nil {
				c.logger.Warn("overpass mirror failed",
					slog.String("mirror", mirror),
					slog.String("error", err.Error()),
				)
			}
			return resp, err
		}
	}
	return fallback.First(ctx, c.attemptTimeout, attempts)
}

func (c *Client) queryMirror(ctx context.Context, mirror, query string) (*Response, error) {
	// Overpass expects an urlencoded body of the form data=<query>.
	body := url.Values{"data": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mirror, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("mirror returned status %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
