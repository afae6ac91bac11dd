package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stockwatch/config"
	"stockwatch/models"
	"stockwatch/routes"
	"stockwatch/services/clients"
)

// newUserService spins up a real user service over an in-memory database
func newUserService(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := models.MigrateUserModels(db); err != nil {
		t.Fatalf("user migration failed: %v", err)
	}
	if err := models.MigrateAlertModels(db); err != nil {
		t.Fatalf("alert migration failed: %v", err)
	}

	router := gin.New()
	routes.SetupUserRoutes(router, db, &config.Config{JWTSecret: "test-secret"})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// newStockService fakes the stock service bulk price endpoint with a fixed
// price per symbol
func newStockService(t *testing.T, priceMap map[string]float64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/prices" {
			http.NotFound(w, r)
			return
		}
		var request struct {
			Symbols []string `json:"symbols"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		results := make([]models.Quote, 0, len(request.Symbols))
		for _, symbol := range request.Symbols {
			if price, ok := priceMap[symbol]; ok {
				results = append(results, models.Quote{Symbol: symbol, Price: price})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(results)
	}))
	t.Cleanup(server.Close)
	return server
}

// postJSON sends a JSON request and decodes the JSON response body
func postJSON(t *testing.T, method, url, token string, body, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// setupUserWithAlert registers a user, tracks AAPL and creates a below-100
// alert, returning the session token
func setupUserWithAlert(t *testing.T, userService *httptest.Server) string {
	t.Helper()

	creds := map[string]string{"username": "alice", "password": "hunter22"}
	if status := postJSON(t, http.MethodPost, userService.URL+"/register", "", creds, nil); status != http.StatusCreated {
		t.Fatalf("register returned status %d", status)
	}

	var login struct {
		Token string `json:"token"`
		User  struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	if status := postJSON(t, http.MethodPost, userService.URL+"/login", "", creds, &login); status != http.StatusOK {
		t.Fatalf("login returned status %d", status)
	}
	if login.Token == "" || login.User.Username != "alice" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	track := map[string]string{"symbol": "AAPL"}
	if status := postJSON(t, http.MethodPost, userService.URL+"/track", login.Token, track, nil); status != http.StatusCreated {
		t.Fatalf("track returned status %d", status)
	}

	alert := map[string]interface{}{
		"symbol":       "AAPL",
		"target_price": 100,
		"condition":    "below",
	}
	if status := postJSON(t, http.MethodPost, userService.URL+"/alerts", login.Token, alert, nil); status != http.StatusCreated {
		t.Fatalf("create alert returned status %d", status)
	}

	return login.Token
}

// fetchAlerts lists the user's alerts through the public API
func fetchAlerts(t *testing.T, userService *httptest.Server, token string) []models.Alert {
	t.Helper()

	var alerts []models.Alert
	if status := postJSON(t, http.MethodGet, userService.URL+"/alerts", token, nil, &alerts); status != http.StatusOK {
		t.Fatalf("list alerts returned status %d", status)
	}
	return alerts
}

func TestEndToEndAlertTriggers(t *testing.T) {
	userService := newUserService(t)
	stockService := newStockService(t, map[string]float64{"AAPL": 95})
	token := setupUserWithAlert(t, userService)

	ev := NewEvaluator(
		clients.NewAccountClient(userService.URL, ""),
		clients.NewQuoteClient(stockService.URL),
		nil,
	)
	if err := ev.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	alerts := fetchAlerts(t, userService, token)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if !alerts[0].IsTriggered {
		t.Error("alert should be triggered at price 95 with condition below 100")
	}
	if alerts[0].TriggeredAt == nil {
		t.Error("triggered_at should be set")
	}

	// A second cycle finds no pending alerts and changes nothing
	if err := ev.RunCycle(context.Background()); err != nil {
		t.Fatalf("second RunCycle returned error: %v", err)
	}
	alerts = fetchAlerts(t, userService, token)
	if !alerts[0].IsTriggered {
		t.Error("alert must stay triggered")
	}
}

func TestEndToEndAlertStaysPending(t *testing.T) {
	userService := newUserService(t)
	stockService := newStockService(t, map[string]float64{"AAPL": 150})
	token := setupUserWithAlert(t, userService)

	ev := NewEvaluator(
		clients.NewAccountClient(userService.URL, ""),
		clients.NewQuoteClient(stockService.URL),
		nil,
	)
	if err := ev.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	alerts := fetchAlerts(t, userService, token)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].IsTriggered {
		t.Error("alert must stay untriggered at price 150 with condition below 100")
	}
}
