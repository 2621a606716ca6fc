package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/auction-profile/internal/data"
)

// Client interface for testability
type Client interface {
	FetchBars(ctx context.Context, symbol, interval, rng string) ([]data.Bar, error)
	FetchQuote(ctx context.Context, symbol string) (*data.Quote, error)
}

type HTTPClient struct {
	httpClient    *http.Client
	baseURL       string
	userAgent     string
	limiter       *rate.Limiter
	retryCount    int
	retryDelay    time.Duration
	quoteInterval string
	quoteRange    string
	logger        *zap.Logger
	now           func() time.Time
}

func NewClient(baseURL, userAgent string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:       baseURL,
		userAgent:     userAgent,
		limiter:       rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount:    retryCount,
		retryDelay:    retryDelay,
		quoteInterval: "30m",
		quoteRange:    "1d",
		logger:        logger,
		now:           time.Now,
	}
}

// WithQuoteSeries sets the interval and range FetchQuote requests.
func (c *HTTPClient) WithQuoteSeries(interval, rng string) *HTTPClient {
	c.quoteInterval = interval
	c.quoteRange = rng
	return c
}

// FetchBars returns bars for symbol, oldest first. A symbol with no prints in
// the range yields an empty slice.
func (c *HTTPClient) FetchBars(ctx context.Context, symbol, interval, rng string) ([]data.Bar, error) {
	body, err := c.getChart(ctx, symbol, interval, rng)
	if err != nil {
		return nil, err
	}
	bars, err := DecodeChart(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s/%s: %w", symbol, interval, rng, err)
	}
	return bars, nil
}

// FetchQuote builds the latest-data snapshot from the quote series.
func (c *HTTPClient) FetchQuote(ctx context.Context, symbol string) (*data.Quote, error) {
	bars, err := c.FetchBars(ctx, symbol, c.quoteInterval, c.quoteRange)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s quote: %w", symbol, ErrNoData)
	}
	return data.QuoteFromBars(data.NormalizeSymbol(symbol), bars, c.now()), nil
}

func (c *HTTPClient) getChart(ctx context.Context, symbol, interval, rng string) ([]byte, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("interval", interval)
	q.Set("range", rng)
	chartURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(data.NormalizeSymbol(symbol)), q.Encode())
	c.logger.Debug("requesting", zap.String("url", chartURL))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, chartURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

var (
	_ Client           = (*HTTPClient)(nil)
	_ data.BarSource   = (*HTTPClient)(nil)
	_ data.QuoteSource = (*HTTPClient)(nil)
)
