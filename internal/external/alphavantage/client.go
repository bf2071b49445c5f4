package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/pricedelta/internal/pricing"
	"github.com/wonny/pricedelta/pkg/httputil"
	"github.com/wonny/pricedelta/pkg/logger"
	"github.com/wonny/pricedelta/pkg/redis"
)

// Config holds everything the client needs; nothing is read from the environment here
type Config struct {
	APIKey            string
	BaseURL           string
	OutputSize        string
	RequestsPerMinute int
	Location          *time.Location
}

// rawCacheTTL bounds how long a diagnostic raw payload may be replayed
const rawCacheTTL = redis.TTLMedium

// PayloadCache stores raw payloads; *redis.Cache implements it
type PayloadCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client handles communication with the Alpha Vantage API
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      PayloadCache
	limiter    *rate.Limiter
	cfg        Config
	logger     *logger.Logger
	now        func() time.Time
}

// NewClient creates a new Alpha Vantage client. cache may be nil.
func NewClient(cfg Config, httpClient *httputil.Client, cache PayloadCache, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.alphavantage.co/query"
	}
	if cfg.OutputSize == "" {
		cfg.OutputSize = "full"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		httpClient: httpClient,
		cache:      cache,
		limiter:    rate.NewLimiter(limit, 1),
		cfg:        cfg,
		logger:     log.WithField("module", "alphavantage"),
		now:        time.Now,
	}
}

// HasAPIKey reports whether a key is configured
func (c *Client) HasAPIKey() bool {
	return c.cfg.APIKey != ""
}

// FetchDailyRaw returns the unprocessed TIME_SERIES_DAILY payload for symbol.
// A payload fetched within rawCacheTTL may be replayed from cache.
// Provider notices are returned as *FetchError.
func (c *Client) FetchDailyRaw(ctx context.Context, symbol string) (json.RawMessage, error) {
	symbol = normalize(symbol)

	if raw, ok := c.cached(ctx, symbol); ok {
		return raw, nil
	}

	raw, _, err := c.fetchDaily(ctx, symbol)
	return raw, err
}

// FetchSeries fetches and parses one instrument's daily series.
// It always goes to the provider so a batch never commits an earlier payload.
func (c *Client) FetchSeries(ctx context.Context, symbol string) (*pricing.PriceSeries, error) {
	symbol = normalize(symbol)

	_, resp, err := c.fetchDaily(ctx, symbol)
	if err != nil {
		return nil, err
	}

	series, err := ParseDailySeries(symbol, resp, c.cfg.Location)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":       symbol,
		"observations": series.Len(),
	}).Debug("Fetched daily series")

	return series, nil
}

// fetchDaily requests a fresh payload and caches it for the raw endpoint
func (c *Client) fetchDaily(ctx context.Context, symbol string) (json.RawMessage, *DailyResponse, error) {
	if !c.HasAPIKey() {
		return nil, nil, fetchErr(symbol, ErrMissingAPIKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fetchErr(symbol, fmt.Errorf("rate limiter: %w", err))
	}

	body, err := c.get(ctx, symbol)
	if err != nil {
		return nil, nil, err
	}

	resp, err := DecodeDaily(symbol, body)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Alpha Vantage returned an unusable payload")
		return nil, nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, c.cacheKey(symbol), json.RawMessage(body), rawCacheTTL); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to cache daily series")
		}
	}

	return body, resp, nil
}

// cached returns a usable payload stored by an earlier fetch
func (c *Client) cached(ctx context.Context, symbol string) (json.RawMessage, bool) {
	if c.cache == nil || !c.HasAPIKey() {
		return nil, false
	}

	var raw json.RawMessage
	if found, err := c.cache.Get(ctx, c.cacheKey(symbol), &raw); err != nil || !found {
		return nil, false
	}
	if _, err := DecodeDaily(symbol, raw); err != nil {
		return nil, false
	}

	c.logger.WithField("symbol", symbol).Debug("Raw daily payload served from cache")
	return raw, true
}

func (c *Client) cacheKey(symbol string) string {
	return redis.DailySeriesKey(symbol, c.now().In(c.cfg.Location).Format(pricing.DateLayout))
}

func (c *Client) get(ctx context.Context, symbol string) ([]byte, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("apikey", c.cfg.APIKey)
	params.Set("outputsize", c.cfg.OutputSize)

	fullURL := fmt.Sprintf("%s?%s", c.cfg.BaseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fetchErr(symbol, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetchErr(symbol, fmt.Errorf("read response body failed: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fetchErr(symbol, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	return body, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
