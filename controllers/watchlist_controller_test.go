package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch/middleware"
)

// newUserRouter builds a router with auth, watchlist and alert endpoints,
// mirroring the user service routing
func newUserRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	authController := NewAuthController(db, testJWTSecret)
	watchlistController := NewWatchlistController(db)
	alertController := NewAlertController(db)

	router.POST("/register", authController.Register)
	router.POST("/login", authController.Login)

	authed := router.Group("/", middleware.AuthRequired(testJWTSecret))
	{
		authed.GET("/tracked", watchlistController.GetTracked)
		authed.POST("/track", watchlistController.TrackSymbol)
		authed.DELETE("/track/:symbol", watchlistController.UntrackSymbol)
		authed.GET("/alerts", alertController.GetAlerts)
		authed.POST("/alerts", alertController.CreateAlert)
		authed.DELETE("/alerts/:id", alertController.DeleteAlert)
	}

	router.PATCH("/alerts/:id/trigger", alertController.TriggerAlert)
	router.GET("/internal/alerts/pending", alertController.GetPendingAlerts)

	return router
}

func TestTrackedSymbols(t *testing.T) {
	db := setupTestDB(t)
	router := newUserRouter(db)
	token := loginToken(t, router, "alice", "hunter22")

	t.Run("requires authentication", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/tracked", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
		}
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/tracked", "not-a-token", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("tracks symbols upper-cased in insertion order", func(t *testing.T) {
		for _, symbol := range []string{"aapl", "MSFT"} {
			w := doJSON(router, http.MethodPost, "/track", token,
				map[string]string{"symbol": symbol})
			if w.Code != http.StatusCreated {
				t.Fatalf("track %q returned status %d", symbol, w.Code)
			}
		}

		var symbols []string
		w := doJSON(router, http.MethodGet, "/tracked", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("tracked returned status %d", w.Code)
		}
		if err := json.NewDecoder(w.Body).Decode(&symbols); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
			t.Errorf("expected [AAPL MSFT], got %v", symbols)
		}
	})

	t.Run("rejects tracking the same symbol twice", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/track", token,
			map[string]string{"symbol": "AAPL"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("untracks a symbol", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/track/AAPL", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("untrack returned status %d", w.Code)
		}

		var symbols []string
		w = doJSON(router, http.MethodGet, "/tracked", token, nil)
		if err := json.NewDecoder(w.Body).Decode(&symbols); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(symbols) != 1 || symbols[0] != "MSFT" {
			t.Errorf("expected [MSFT], got %v", symbols)
		}
	})

	t.Run("watchlists are scoped per user", func(t *testing.T) {
		otherToken := loginToken(t, router, "bob", "secret99")

		var symbols []string
		w := doJSON(router, http.MethodGet, "/tracked", otherToken, nil)
		if err := json.NewDecoder(w.Body).Decode(&symbols); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(symbols) != 0 {
			t.Errorf("expected empty watchlist for bob, got %v", symbols)
		}

		// Same symbol tracked by a second user is allowed
		w = doJSON(router, http.MethodPost, "/track", otherToken,
			map[string]string{"symbol": "MSFT"})
		if w.Code != http.StatusCreated {
			t.Errorf("bob tracking MSFT returned status %d", w.Code)
		}
	})
}
