// Package main provides the entry point for the ContextGuard API server
// @title ContextGuard API
// @version 1.0
// @description Adaptive context-aware login trust API server.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
// @Security BearerAuth
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"contextguard/internal/api/routes"
	"contextguard/internal/config"
	"contextguard/internal/database"
	"contextguard/internal/metrics"
	"contextguard/internal/repository/postgres"
	"contextguard/internal/validation"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	// Load environment file
	if err := godotenv.Load(*envFile); err != nil && *envFile == ".env" {
		log.Printf("Warning: %v", err)
	}

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize validators
	validation.Initialize()

	// Register Prometheus collectors
	metrics.Register()

	// Schedule maintenance jobs
	scheduler := startMaintenance(cfg, db)
	defer scheduler.Stop()

	// Setup routes
	router := routes.SetupRoutes(cfg, db)

	// Convert port string to int
	port, err := strconv.Atoi(cfg.API.Port)
	if err != nil {
		log.Fatalf("Invalid port number: %v", err)
	}

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

// startMaintenance schedules the nightly cleanup jobs: purging stale
// unresolved suspicious login records and expiring old audit rows. Blocked
// records are never purged.
func startMaintenance(cfg *config.Config, db *sql.DB) *cron.Cron {
	suspiciousRepo := postgres.NewSuspiciousLoginRepository(db)
	auditRepo := postgres.NewAuditLogRepository(db)

	staleAge := time.Duration(cfg.Trust.StaleRecordMaxAgeDays) * 24 * time.Hour
	auditAge := time.Duration(cfg.Trust.AuditRetentionDays) * 24 * time.Hour

	c := cron.New()

	if _, err := c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		purged, err := suspiciousRepo.PurgeStale(ctx, staleAge)
		if err != nil {
			log.Printf("Failed to purge stale suspicious login records: %v", err)
			return
		}
		log.Printf("Purged %d stale suspicious login records", purged)
	}); err != nil {
		log.Fatalf("Failed to schedule suspicious login cleanup: %v", err)
	}

	if _, err := c.AddFunc("30 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := auditRepo.CleanupOld(ctx, auditAge); err != nil {
			log.Printf("Failed to clean up old audit logs: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule audit log cleanup: %v", err)
	}

	c.Start()
	return c
}
