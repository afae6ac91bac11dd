package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"stockwatch/models"
	"stockwatch/services/triggerlog"
)

// AlertSource provides pending alerts and the trigger transition,
// implemented by the user service client
type AlertSource interface {
	PendingAlerts(ctx context.Context) ([]models.PendingAlert, error)
	TriggerAlert(ctx context.Context, alertID uint) error
}

// PriceSource provides bulk current prices, implemented by the stock
// service client
type PriceSource interface {
	Prices(ctx context.Context, symbols []string) ([]models.Quote, error)
}

// TriggerRecorder receives trigger events for auditing
type TriggerRecorder interface {
	Record(ctx context.Context, event triggerlog.TriggerEvent)
}

// Evaluator transitions untriggered alerts whose condition is currently
// satisfied into the triggered state
type Evaluator struct {
	alerts   AlertSource
	prices   PriceSource
	recorder TriggerRecorder
}

// NewEvaluator creates an evaluator. The recorder may be nil.
func NewEvaluator(alerts AlertSource, prices PriceSource, recorder TriggerRecorder) *Evaluator {
	return &Evaluator{
		alerts:   alerts,
		prices:   prices,
		recorder: recorder,
	}
}

// RunCycle performs one evaluation pass. A failure fetching pending alerts
// or prices aborts the whole cycle; per-alert failures only skip that alert,
// so one bad symbol or trigger call cannot block the rest. Skipped and
// failed alerts stay untriggered and are retried on the next cycle.
func (e *Evaluator) RunCycle(ctx context.Context) error {
	pending, err := e.alerts.PendingAlerts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending alerts: %w", err)
	}

	if len(pending) == 0 {
		log.Println("No pending alerts.")
		return nil
	}

	symbols := distinctSymbols(pending)
	fetched, err := e.prices.Prices(ctx, symbols)
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}

	priceMap := make(map[string]float64, len(fetched))
	for _, q := range fetched {
		priceMap[q.Symbol] = q.Price
	}

	for _, alert := range pending {
		price, ok := priceMap[alert.Symbol]
		if !ok || price == 0 {
			// Missing or zero price means the provider had no data this
			// cycle; the alert is retried next time
			continue
		}

		if !shouldTrigger(alert.Condition, price, alert.TargetPrice) {
			continue
		}

		log.Printf("[ALERT] User %s: %s is now %v (condition: %s %s)",
			alert.Username, alert.Symbol, price, alert.Condition, alert.TargetPrice)

		if err := e.alerts.TriggerAlert(ctx, alert.ID); err != nil {
			log.Printf("Failed to mark alert %d as triggered: %v", alert.ID, err)
			continue
		}

		if e.recorder != nil {
			e.recorder.Record(ctx, triggerlog.TriggerEvent{
				AlertID:     alert.ID,
				UserID:      alert.UserID,
				Username:    alert.Username,
				Symbol:      alert.Symbol,
				Price:       price,
				TargetPrice: alert.TargetPrice.String(),
				Condition:   alert.Condition,
				TriggeredAt: time.Now().UTC(),
			})
		}
	}

	return nil
}

// shouldTrigger evaluates the alert condition against the current price.
// Comparison is inclusive at the boundary in both directions: exact equality
// triggers for both "above" and "below".
func shouldTrigger(condition string, price float64, target decimal.Decimal) bool {
	current := decimal.NewFromFloat(price)
	switch condition {
	case models.ConditionAbove:
		return current.GreaterThanOrEqual(target)
	case models.ConditionBelow:
		return current.LessThanOrEqual(target)
	default:
		return false
	}
}

// distinctSymbols collapses the symbols of the pending alerts into a set,
// so each symbol is looked up exactly once per cycle
func distinctSymbols(pending []models.PendingAlert) []string {
	seen := make(map[string]bool, len(pending))
	symbols := make([]string, 0, len(pending))
	for _, alert := range pending {
		if !seen[alert.Symbol] {
			seen[alert.Symbol] = true
			symbols = append(symbols, alert.Symbol)
		}
	}
	return symbols
}
