// Package scheduler runs the alert evaluation loop on a fixed cadence.
// Each cycle fetches pending alerts from the user service, requests current
// prices for their distinct symbols in bulk, and marks satisfied alerts
// triggered. Cycles are independent: a failed cycle is simply retried at the
// next tick.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler manages the recurring evaluation job
type Scheduler struct {
	cron      *gocron.Scheduler
	evaluator *Evaluator
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler that evaluates alerts every interval
func NewScheduler(evaluator *Evaluator, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      gocron.NewScheduler(time.UTC),
		evaluator: evaluator,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the evaluation job. Runs do not overlap: a tick that fires
// while the previous cycle is still in flight is skipped.
func (s *Scheduler) Start() {
	log.Printf("Starting alert scheduler, checking every %v...", s.interval)

	s.cron.Every(s.interval).SingletonMode().Do(func() {
		log.Printf("[%s] Running alert check...", time.Now().UTC().Format(time.RFC3339))
		if err := s.evaluator.RunCycle(s.ctx); err != nil {
			log.Printf("Error during alert check cycle: %v", err)
		}
	})

	s.cron.StartAsync()
	log.Println("Alert scheduler started successfully")
}

// Stop cancels in-flight work and stops the scheduler
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	log.Println("Alert scheduler stopped")
}
