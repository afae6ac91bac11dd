package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockwatch/middleware"
	"stockwatch/models"
)

// AlertController handles price alert requests, including the internal
// endpoints consumed by the alert evaluation service
type AlertController struct {
	db *gorm.DB
}

// NewAlertController creates a new alert controller
func NewAlertController(db *gorm.DB) *AlertController {
	return &AlertController{db: db}
}

// GetAlerts returns the authenticated user's alerts
// GET /alerts
func (ac *AlertController) GetAlerts(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
		return
	}

	var alerts []models.Alert
	if err := ac.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// CreateAlert creates a price alert for the authenticated user
// POST /alerts
func (ac *AlertController) CreateAlert(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
		return
	}

	var request struct {
		Symbol      string          `json:"symbol" binding:"required"`
		TargetPrice decimal.Decimal `json:"target_price" binding:"required"`
		Condition   string          `json:"condition" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create alert"})
		return
	}

	if !models.IsValidAlertCondition(request.Condition) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "Invalid alert condition",
			"valid_conditions": models.ValidAlertConditions(),
		})
		return
	}

	if !request.TargetPrice.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Target price must be positive"})
		return
	}

	alert := models.Alert{
		UserID:      userID,
		Symbol:      strings.ToUpper(request.Symbol),
		TargetPrice: request.TargetPrice,
		Condition:   request.Condition,
	}
	if err := ac.db.Create(&alert).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// DeleteAlert deletes one of the authenticated user's alerts
// DELETE /alerts/:id
func (ac *AlertController) DeleteAlert(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
		return
	}

	if err := ac.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.Alert{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted successfully"})
}

// TriggerAlert marks an alert as triggered. The transition is idempotent:
// an already-triggered or unknown id still reports success to the caller.
// PATCH /alerts/:id/trigger (internal)
func (ac *AlertController) TriggerAlert(c *gin.Context) {
	now := time.Now()
	err := ac.db.Model(&models.Alert{}).
		Where("id = ? AND is_triggered = ?", c.Param("id"), false).
		Updates(map[string]interface{}{
			"is_triggered": true,
			"triggered_at": now,
		}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert marked as triggered"})
}

// GetPendingAlerts returns all untriggered alerts joined with owning usernames
// GET /internal/alerts/pending (internal)
func (ac *AlertController) GetPendingAlerts(c *gin.Context) {
	pending := make([]models.PendingAlert, 0)
	err := ac.db.Model(&models.Alert{}).
		Select("alerts.id, alerts.user_id, alerts.symbol, alerts.target_price, alerts.condition, users.username").
		Joins("JOIN users ON alerts.user_id = users.id").
		Where("alerts.is_triggered = ?", false).
		Scan(&pending).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending alerts"})
		return
	}

	c.JSON(http.StatusOK, pending)
}
