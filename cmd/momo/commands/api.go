package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/api"
	"github.com/mhan/momo/internal/api/handlers"
	"github.com/mhan/momo/internal/s1_universe"
	"github.com/mhan/momo/internal/selection"
	"github.com/mhan/momo/pkg/database"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/metrics"
	"github.com/mhan/momo/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read-only API server",
	Long: `Starts the read-only HTTP API over the stored screen results.

Without a scheduler in the process, /api/v1/runs is empty and the
websocket run feed is absent. Use momo scheduler start for the full
daemon.

Endpoints:
  GET /health                          - health check
  GET /metrics                         - Prometheus metrics
  GET /api/v1/universe/{cohort}        - current constituents
  GET /api/v1/universe/{cohort}/changes - membership change log
  GET /api/v1/rankings/{cohort}        - momentum rankings
  GET /api/v1/picks/{cohort}           - screened picks
  GET /api/v1/reports                  - report listing
  GET /api/v1/runs                     - scheduler run history
  GET /                                - report browser

Example:
  momo api
  momo api --port 8084`,
	RunE: runAPIServer,
}

var (
	// Flags
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo API Server ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Connect to Redis (response cache no-ops when disabled)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	// 5. Create metrics registry
	m := metrics.New()

	// 6. Create repositories
	universeRepo := s1_universe.NewRepository(db.Pool)
	scoreRepo := selection.NewRepository(db.Pool)

	// 7. Create handlers. No scheduler in this process, so run
	// history stays empty and no feed is attached.
	cache := redis.NewCache(redisClient, "momo")
	screenHandler := handlers.NewScreenHandler(universeRepo, scoreRepo, cache, log)
	runsHandler := handlers.NewRunsHandler(nil, log)
	reportsHandler := handlers.NewReportsHandler(cfg.Report.ReportDir, log)

	// 8. Create router
	router := api.NewRouter(screenHandler, runsHandler, reportsHandler, nil, m, cfg.Report.SiteDir, log)

	// 9. Create server
	server := api.New(cfg, log, router)

	// 10. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /metrics")
	fmt.Println("  GET  /api/v1/universe/{cohort}")
	fmt.Println("  GET  /api/v1/rankings/{cohort}")
	fmt.Println("  GET  /api/v1/picks/{cohort}")
	fmt.Println("  GET  /api/v1/reports")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
