package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Alert represents a user-defined price threshold with a direction.
// Once triggered an alert stays triggered; there is no re-arming.
type Alert struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Symbol      string          `gorm:"size:10;not null" json:"symbol"`
	TargetPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"target_price"`
	Condition   string          `gorm:"size:10;not null" json:"condition"` // above, below
	IsTriggered bool            `gorm:"default:false" json:"is_triggered"`
	TriggeredAt *time.Time      `json:"triggered_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PendingAlert is an untriggered alert joined with its owner's username,
// as served by the internal pending-alerts endpoint
type PendingAlert struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"user_id"`
	Symbol      string          `json:"symbol"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Condition   string          `json:"condition"`
	Username    string          `json:"username"`
}

// Alert condition constants
const (
	ConditionAbove = "above"
	ConditionBelow = "below"
)

// ValidAlertConditions returns valid alert conditions
func ValidAlertConditions() []string {
	return []string{ConditionAbove, ConditionBelow}
}

// IsValidAlertCondition checks if the condition is valid
func IsValidAlertCondition(condition string) bool {
	for _, valid := range ValidAlertConditions() {
		if condition == valid {
			return true
		}
	}
	return false
}

// MigrateAlertModels runs database migrations for alert-related models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(&Alert{})
}
