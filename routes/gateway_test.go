package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// echoUpstream answers every request with the method, path and body it saw
func echoUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
			"query":  r.URL.RawQuery,
			"body":   string(body),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

// newGateway serves the gateway router over a real listener. The reverse
// proxy needs request contexts with a Done channel, which only a live
// server provides.
func newGateway(t *testing.T, userURL, stockURL string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	if err := SetupGatewayRoutes(router, userURL, stockURL); err != nil {
		t.Fatalf("SetupGatewayRoutes failed: %v", err)
	}

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doGateway(t *testing.T, gateway *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, gateway.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return resp, payload
}

func TestGatewayForwardsWithPrefixStripped(t *testing.T) {
	users := echoUpstream(t)
	stocks := echoUpstream(t)
	gateway := newGateway(t, users.URL, stocks.URL)

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		wantPath  string
		wantQuery string
	}{
		{"user route", http.MethodPost, "/api/users/login", `{"username":"alice"}`, "/login", ""},
		{"nested user route", http.MethodDelete, "/api/users/track/AAPL", "", "/track/AAPL", ""},
		{"authed user route", http.MethodGet, "/api/users/tracked", "", "/tracked", ""},
		{"stock route", http.MethodGet, "/api/stocks/price/AAPL", "", "/price/AAPL", ""},
		{"stock route with query", http.MethodGet, "/api/stocks/historical/AAPL?start=2024-01-01", "", "/historical/AAPL", "start=2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, payload := doGateway(t, gateway, tt.method, tt.path, tt.body)

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
			}

			var echo map[string]string
			if err := json.Unmarshal(payload, &echo); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if echo["method"] != tt.method {
				t.Errorf("expected method %s, got %s", tt.method, echo["method"])
			}
			if echo["path"] != tt.wantPath {
				t.Errorf("expected upstream path %s, got %s", tt.wantPath, echo["path"])
			}
			if echo["query"] != tt.wantQuery {
				t.Errorf("expected query %q, got %q", tt.wantQuery, echo["query"])
			}
			if echo["body"] != tt.body {
				t.Errorf("expected body %q forwarded, got %q", tt.body, echo["body"])
			}
		})
	}
}

func TestGatewayHealth(t *testing.T) {
	gateway := newGateway(t, "http://127.0.0.1:1", "http://127.0.0.1:1")

	resp, payload := doGateway(t, gateway, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var response map[string]string
	if err := json.Unmarshal(payload, &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["service"] != "api-gateway" {
		t.Errorf("unexpected health response: %v", response)
	}
}

func TestGatewayUpstreamUnavailable(t *testing.T) {
	// Nothing listens on the target port
	gateway := newGateway(t, "http://127.0.0.1:1", "http://127.0.0.1:1")

	resp, payload := doGateway(t, gateway, http.MethodGet, "/api/users/tracked", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}

	var response map[string]string
	if err := json.Unmarshal(payload, &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] == "" {
		t.Errorf("expected a JSON error body, got %s", payload)
	}
}
