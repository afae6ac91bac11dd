// Package quotes wraps the Yahoo Finance HTTP API. It is the only part of
// the system that talks to the market-data provider; everything else consumes
// transient Quote and Candle values.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockwatch/models"
)

// DefaultBaseURL is the public Yahoo Finance query host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrSymbolNotFound is returned when the provider knows nothing about a symbol
var ErrSymbolNotFound = errors.New("symbol not found")

// Client fetches quotes and historical bars from Yahoo Finance
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new quote client. An empty baseURL selects the
// public Yahoo Finance endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// quoteResponse represents the Yahoo v7 quote API response
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string  `json:"symbol"`
			Currency                   string  `json:"currency"`
			RegularMarketPrice         float64 `json:"regularMarketPrice"`
			RegularMarketChange        float64 `json:"regularMarketChange"`
			RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
			RegularMarketTime          int64   `json:"regularMarketTime"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// chartResponse represents the Yahoo v8 chart API response
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the current quote for a single symbol
func (c *Client) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	quotes, err := c.fetchQuotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, ErrSymbolNotFound
	}
	return &quotes[0], nil
}

// Quotes fetches current quotes for a list of symbols in one batched call.
// The lookup is best-effort: a provider-level failure degrades to an empty
// result, and symbols the provider does not know are simply absent.
func (c *Client) Quotes(ctx context.Context, symbols []string) []models.Quote {
	if len(symbols) == 0 {
		return nil
	}
	quotes, err := c.fetchQuotes(ctx, symbols)
	if err != nil {
		return nil
	}
	return quotes
}

// fetchQuotes calls the v7 quote API for the given symbols
func (c *Client) fetchQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s",
		c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	var response quoteResponse
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	if response.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("provider error: %s", response.QuoteResponse.Error.Description)
	}

	quotes := make([]models.Quote, 0, len(response.QuoteResponse.Result))
	for _, r := range response.QuoteResponse.Result {
		quotes = append(quotes, models.Quote{
			Symbol:        r.Symbol,
			Price:         r.RegularMarketPrice,
			Change:        r.RegularMarketChange,
			ChangePercent: r.RegularMarketChangePercent,
			Currency:      r.Currency,
			Time:          time.Unix(r.RegularMarketTime, 0).UTC(),
		})
	}
	return quotes, nil
}

// Historical fetches daily closing bars for a symbol over a date range.
// Zero start/end values default to the trailing one month.
func (c *Client) Historical(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, -1, 0)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		c.baseURL, url.PathEscape(strings.ToUpper(symbol)), start.Unix(), end.Unix())

	var response chartResponse
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	if response.Chart.Error != nil {
		return nil, fmt.Errorf("provider error: %s", response.Chart.Error.Description)
	}
	if len(response.Chart.Result) == 0 {
		return nil, ErrSymbolNotFound
	}

	result := response.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []models.Candle{}, nil
	}

	bars := result.Indicators.Quote[0]
	candles := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		candle := models.Candle{Date: time.Unix(ts, 0).UTC()}
		if i < len(bars.Open) {
			candle.Open = bars.Open[i]
		}
		if i < len(bars.High) {
			candle.High = bars.High[i]
		}
		if i < len(bars.Low) {
			candle.Low = bars.Low[i]
		}
		if i < len(bars.Close) {
			candle.Close = bars.Close[i]
		}
		if i < len(bars.Volume) {
			candle.Volume = bars.Volume[i]
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// getJSON performs a GET request and decodes the JSON response body
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "stockwatch/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch from provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSymbolNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse provider response: %w", err)
	}
	return nil
}
