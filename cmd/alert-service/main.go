package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"stockwatch/config"
	"stockwatch/scheduler"
	"stockwatch/services/clients"
	"stockwatch/services/triggerlog"
)

// checkInterval is the evaluation cadence
const checkInterval = time.Minute

func main() {
	log.Println("Alert Service - Starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Optional MongoDB trigger log
	recorder, err := triggerlog.New(context.Background(), cfg.MongoURI)
	if err != nil {
		log.Printf("Warning: Trigger log unavailable: %v", err)
		recorder = nil
	}

	// Wire the evaluation loop against the user and stock services
	accountClient := clients.NewAccountClient(cfg.UserServiceURL, cfg.InternalToken)
	quoteClient := clients.NewQuoteClient(cfg.StockServiceURL)

	var rec scheduler.TriggerRecorder
	if recorder != nil {
		rec = recorder
	}
	evaluator := scheduler.NewEvaluator(accountClient, quoteClient, rec)

	jobScheduler := scheduler.NewScheduler(evaluator, checkInterval)
	jobScheduler.Start()
	log.Printf("Alert Service started. Checking alerts every %v...", checkInterval)

	// Health check server keeps the process observable
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "alert-service"})
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Alert Service HTTP server listening on 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop scheduler first
	jobScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if recorder != nil {
		recorder.Close(ctx)
	}

	log.Println("Alert Service shutdown completed")
}
