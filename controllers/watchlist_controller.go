package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch/middleware"
	"stockwatch/models"
)

// WatchlistController handles tracked-symbol requests
type WatchlistController struct {
	db *gorm.DB
}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController(db *gorm.DB) *WatchlistController {
	return &WatchlistController{db: db}
}

// GetTracked returns the authenticated user's tracked symbols
// GET /tracked
func (wc *WatchlistController) GetTracked(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
		return
	}

	var tracked []models.TrackedStock
	if err := wc.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&tracked).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tracked stocks"})
		return
	}

	symbols := make([]string, 0, len(tracked))
	for _, t := range tracked {
		symbols = append(symbols, t.Symbol)
	}

	c.JSON(http.StatusOK, symbols)
}

// TrackSymbol adds a symbol to the authenticated user's watchlist
// POST /track
func (wc *WatchlistController) TrackSymbol(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
		return
	}

	var request struct {
		Symbol string `json:"symbol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
		return
	}

	tracked := models.TrackedStock{
		UserID: userID,
		Symbol: strings.ToUpper(request.Symbol),
	}
	if err := wc.db.Create(&tracked).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to track stock (might already be tracked)"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Stock tracked successfully"})
}

// UntrackSymbol removes a symbol from the authenticated user's watchlist
// DELETE /track/:symbol
func (wc *WatchlistController) UntrackSymbol(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
		return
	}

	symbol := strings.ToUpper(c.Param("symbol"))
	if err := wc.db.Where("user_id = ? AND symbol = ?", userID, symbol).
		Delete(&models.TrackedStock{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to untrack stock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock untracked successfully"})
}
