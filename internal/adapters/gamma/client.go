package gamma

// Client fetches live Polymarket markets from the Gamma REST API to
// seed the simulation catalogue with real questions and prices. The
// simulation itself never calls out; this runs once at startup when
// live seeding is requested.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

const (
	defaultBaseURL = "https://gamma-api.polymarket.com"
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	retryBackoff   = 500 * time.Millisecond

	// Seeded prices stay inside the band the simulation enforces.
	priceFloor = 0.01
	priceCeil  = 0.99
)

// Client is a minimal Gamma API client.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a client against the given base URL; empty means the
// public Gamma endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// gammaMarket is the subset of the Gamma market payload this client
// consumes. outcomePrices arrives as a JSON-encoded string array.
type gammaMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Category      string `json:"category"`
	OutcomePrices string `json:"outcomePrices"`
}

// FetchInstruments returns up to limit active markets mapped onto the
// simulation catalogue shape. Markets whose price cannot be parsed are
// skipped rather than failing the whole seed.
func (c *Client) FetchInstruments(ctx context.Context, limit int) ([]domain.Instrument, error) {
	if limit <= 0 {
		limit = 6
	}
	url := fmt.Sprintf("%s/markets?active=true&closed=false&limit=%d", c.baseURL, limit)

	body, err := c.getWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("gamma.FetchInstruments: %w", err)
	}

	var markets []gammaMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("gamma.FetchInstruments: decode: %w", err)
	}

	out := make([]domain.Instrument, 0, len(markets))
	for _, m := range markets {
		price, ok := yesPrice(m.OutcomePrices)
		if !ok || m.ID == "" || m.Question == "" {
			continue
		}
		category := m.Category
		if category == "" {
			category = "other"
		}
		out = append(out, domain.Instrument{
			ID:       "mkt_" + m.ID,
			Title:    m.Question,
			Category: category,
			Price:    clamp(price),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("gamma.FetchInstruments: no usable markets in response")
	}
	return out, nil
}

func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, lastErr
			}
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// yesPrice extracts the YES outcome price from the doubly-encoded
// outcomePrices field, e.g. "[\"0.42\", \"0.58\"]".
func yesPrice(raw string) (float64, bool) {
	var prices []string
	if err := json.Unmarshal([]byte(raw), &prices); err != nil || len(prices) == 0 {
		return 0, false
	}
	p, err := strconv.ParseFloat(prices[0], 64)
	if err != nil || p <= 0 || p >= 1 {
		return 0, false
	}
	return p, true
}

func clamp(p float64) float64 {
	if p < priceFloor {
		return priceFloor
	}
	if p > priceCeil {
		return priceCeil
	}
	return p
}
