package rtings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	productsListPath  = "/api/v2/table_tool__products_list"
	ratingsPath       = "/api/v2/table_tool__ratings"
	columnOptionsPath = "/api/v2/table_tool__column_options"
)

// Silo tells the client where a category lives on the source and which
// usage columns to request
type Silo struct {
	Name   string
	Usages []string
}

// ClientConfig holds the rating source connection settings
type ClientConfig struct {
	BaseURL           string
	SessionCookie     string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	Silos             map[string]Silo // keyed by category
}

// Client fetches table-tool data from the rating source
type Client struct {
	httpClient    *http.Client
	baseURL       string
	sessionCookie string
	userAgent     string
	maxRetries    int
	silos         map[string]Silo
	rateLimiter   *rate.Limiter
	logger        zerolog.Logger
	debug         bool
}

// NewClient creates a new rating source client
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "ratingsync/1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		sessionCookie: cfg.SessionCookie,
		userAgent:     userAgent,
		maxRetries:    retries,
		silos:         cfg.Silos,
		rateLimiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 3),
		logger:        logger,
	}
}

// SetDebug toggles logging of every request and response status
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// FetchCategory fetches the products list and ratings of a category
func (c *Client) FetchCategory(ctx context.Context, category string) (*domain.RawSnapshot, error) {
	silo, err := c.silo(category)
	if err != nil {
		return nil, err
	}

	var products productsListResponse
	if err := c.getJSON(ctx, productsListPath, siloParams(silo, false), &products); err != nil {
		return nil, fmt.Errorf("products list: %w", err)
	}

	var ratings ratingsResponse
	if err := c.getJSON(ctx, ratingsPath, siloParams(silo, true), &ratings); err != nil {
		return nil, fmt.Errorf("ratings: %w", err)
	}

	snapshot := &domain.RawSnapshot{
		Category: category,
		Products: MapProducts(products.Data.Products),
		Ratings:  MapRatings(ratings.Data.Ratings),
	}

	c.logger.Info().
		Str("category", category).
		Int("products", len(snapshot.Products)).
		Int("ratings", len(snapshot.Ratings)).
		Msg("fetched table data")

	return snapshot, nil
}

// FetchColumnOptions lists the usage columns the source offers for a category
func (c *Client) FetchColumnOptions(ctx context.Context, category string) ([]domain.ColumnOption, error) {
	silo, err := c.silo(category)
	if err != nil {
		return nil, err
	}

	var options columnOptionsResponse
	if err := c.getJSON(ctx, columnOptionsPath, siloParams(silo, false), &options); err != nil {
		return nil, fmt.Errorf("column options: %w", err)
	}

	return MapColumnOptions(options.Data.Silo.TestBench.Usages), nil
}

func (c *Client) silo(category string) (Silo, error) {
	silo, ok := c.silos[category]
	if !ok {
		return Silo{}, fmt.Errorf("%w: %s", domain.ErrUnknownCategory, category)
	}
	if silo.Name == "" {
		silo.Name = category
	}
	return silo, nil
}

func siloParams(silo Silo, withUsages bool) url.Values {
	params := url.Values{}
	params.Add("silo", silo.Name)
	params.Add("test_bench", "recent")
	if withUsages && len(silo.Usages) > 0 {
		params.Add("usages", strings.Join(silo.Usages, ","))
	}
	return params
}

// getJSON issues a GET and decodes the body into out, retrying transient
// failures with exponential backoff. A 404 means the source has no data.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("request failed")
			lastErr = err
			if waitErr := c.backoff(ctx, attempt); waitErr != nil {
				return waitErr
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if c.debug {
			c.logger.Debug().Str("url", reqURL).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("response")
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return domain.ErrNoData
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: status %d (session cookie rejected)", domain.ErrSourceAPIFailure, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			lastErr = fmt.Errorf("%w: status %d", domain.ErrSourceAPIFailure, resp.StatusCode)
			c.logger.Warn().Int("attempt", attempt).Int("status", resp.StatusCode).Str("path", path).Msg("source API error")
			if waitErr := c.backoff(ctx, attempt); waitErr != nil {
				return waitErr
			}
			continue
		case readErr != nil:
			lastErr = fmt.Errorf("%w: read body: %v", domain.ErrSourceAPIFailure, readErr)
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return lastErr
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.sessionCookie != "" {
		req.Header.Set("Cookie", c.sessionCookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceAPIFailure, err)
	}

	return resp, nil
}

// backoff waits before the next attempt. After the last attempt it only
// reports whether ctx is done.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries {
		return ctx.Err()
	}
	return sleepContext(ctx, exponentialBackoff(attempt))
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
