// Package clients provides typed HTTP clients for the internal APIs the
// alert evaluation service consumes.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockwatch/models"
)

// AccountClient talks to the user service's internal alert endpoints
type AccountClient struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
}

// NewAccountClient creates a client for the user service
func NewAccountClient(baseURL, internalToken string) *AccountClient {
	return &AccountClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		internalToken: internalToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PendingAlerts fetches all untriggered alerts joined with owning usernames
func (ac *AccountClient) PendingAlerts(ctx context.Context) ([]models.PendingAlert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		ac.baseURL+"/internal/alerts/pending", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	ac.setInternalToken(req)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending alerts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pending alerts returned status %d: %s", resp.StatusCode, string(body))
	}

	var pending []models.PendingAlert
	if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
		return nil, fmt.Errorf("failed to parse pending alerts: %w", err)
	}
	return pending, nil
}

// TriggerAlert marks one alert as triggered via the user service
func (ac *AccountClient) TriggerAlert(ctx context.Context, alertID uint) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/alerts/%d/trigger", ac.baseURL, alertID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	ac.setInternalToken(req)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to trigger alert %d: %w", alertID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trigger alert %d returned status %d: %s", alertID, resp.StatusCode, string(body))
	}
	return nil
}

func (ac *AccountClient) setInternalToken(req *http.Request) {
	if ac.internalToken != "" {
		req.Header.Set("X-Internal-Token", ac.internalToken)
	}
}
