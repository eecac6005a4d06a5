// Package geocode resolves business addresses to coordinates through a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when no query yields a location.
var ErrNotFound = errors.New("geocode: location not found")

// Location is a resolved coordinate pair.
type Location struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name,omitempty"`
}

// Config configures the search client.
type Config struct {
	BaseURL   string
	UserAgent string
	// Interval is the minimum spacing between outbound requests.
	Interval time.Duration
	Timeout  time.Duration
}

// Client performs throttled free-text searches.
type Client struct {
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewClient constructs a client. Requests are spaced by cfg.Interval with no
// burst allowance.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Search returns the best match for query or ErrNotFound.
func (c *Client) Search(ctx context.Context, query string) (Location, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Location{}, err
	}
	endpoint := c.baseURL + "/search?" + url.Values{
		"format": {"json"},
		"limit":  {"1"},
		"q":      {query},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocode: search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geocode: search status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Location{}, fmt.Errorf("geocode: decode: %w", err)
	}
	if len(results) == 0 {
		return Location{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Location{}, fmt.Errorf("geocode: lat %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Location{}, fmt.Errorf("geocode: lon %q: %w", results[0].Lon, err)
	}
	c.logger.Debug("geocode search", slog.String("query", query), slog.Float64("lat", lat), slog.Float64("lng", lng))
	return Location{Lat: lat, Lng: lng, DisplayName: results[0].DisplayName}, nil
}
