package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"whaleradarr/cache"
)

// Bar is one daily OHLCV bar returned by the chart API
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Client fetches daily OHLCV history from a Yahoo-compatible chart API.
// Responses are cached in Redis for a short TTL so repeated staleness or
// radar calls within the same window do not hammer the provider.
type Client struct {
	baseURL  string
	client   *http.Client
	redis    *cache.RedisClient
	cacheTTL time.Duration
}

// NewClient creates a new market data client. The redis client may be nil,
// which disables caching.
func NewClient(baseURL string, timeout time.Duration, redis *cache.RedisClient, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		redis:    redis,
		cacheTTL: cacheTTL,
	}
}

// chartResponse mirrors the subset of the chart API payload we consume
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyHistory fetches up to `days` calendar days of daily bars for a
// ticker, oldest first. Bars with missing OHLC values are skipped.
func (c *Client) GetDailyHistory(ctx context.Context, ticker string, days int) ([]Bar, error) {
	cacheKey := fmt.Sprintf("marketdata:daily:%s:%d", ticker, days)
	if c.redis != nil {
		var cached []Bar
		if err := c.redis.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	url := fmt.Sprintf("%s/%s?range=%dd&interval=1d", c.baseURL, ticker, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "whaleradarr/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market data request for %s returned %d", ticker, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}

	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", ticker, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no market data available for %s", ticker)
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		bar := Bar{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:  *quote.Open[i],
			High:  *quote.High[i],
			Low:   *quote.Low[i],
			Close: *quote.Close[i],
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no usable bars for %s", ticker)
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, cacheKey, bars, c.cacheTTL); err != nil {
			log.Printf("⚠️  Failed to cache market data for %s: %v", ticker, err)
		}
	}

	return bars, nil
}
