package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockwatch/models"
)

// QuoteClient talks to the stock service's bulk price endpoint
type QuoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewQuoteClient creates a client for the stock service
func NewQuoteClient(baseURL string) *QuoteClient {
	return &QuoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Prices fetches current quotes for a set of symbols in one batched call
func (qc *QuoteClient) Prices(ctx context.Context, symbols []string) ([]models.Quote, error) {
	payload, err := json.Marshal(map[string][]string{"symbols": symbols})
	if err != nil {
		return nil, fmt.Errorf("failed to encode symbols: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		qc.baseURL+"/prices", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := qc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prices returned status %d: %s", resp.StatusCode, string(body))
	}

	var fetched []models.Quote
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		return nil, fmt.Errorf("failed to parse prices: %w", err)
	}
	return fetched, nil
}
