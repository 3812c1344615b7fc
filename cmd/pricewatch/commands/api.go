package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openpantry/priceintel/internal/api"
	"github.com/openpantry/priceintel/internal/api/handlers"
	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/internal/scheduler"
	"github.com/openpantry/priceintel/internal/scheduler/jobs"
	"github.com/openpantry/priceintel/pkg/config"
	"github.com/openpantry/priceintel/pkg/logger"
	"github.com/openpantry/priceintel/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server with the scheduled jobs.

Endpoints:
  GET  /health                                    - Health check
  POST /api/prices                                - Capture a price
  GET  /api/prices/{component}/quality            - Data quality stage
  GET  /api/prices/{component}/history            - Price history
  GET  /api/prices/{component}/stores             - Cross-store comparison
  GET  /api/prices/{component}/prediction         - 30-day forecast
  GET  /api/trends/trending                       - Trending prices
  GET  /api/alerts/price-drops                    - Price drop alerts
  POST /api/deals/assess                          - Assess a deal
  GET  /api/deals/{component}/next-sale           - Sale cycle prediction
  GET  /api/deals/campaigns/{adDeal}/fake-deals   - Fake deal report
  GET  /ws/alerts                                 - Live alert stream

Example:
  go run ./cmd/pricewatch api
  go run ./cmd/pricewatch api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	stores, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "priceintel")

	service := pricing.NewService(stores.prices, stores.trends, stores.assessments, cfg.Pricing, log.Zerolog())

	alertHub := api.NewAlertHub(log)
	priceHandler := handlers.NewPriceHandler(service, cache, cfg, log)
	dealHandler := handlers.NewDealHandler(service, log)

	router := api.NewRouter(priceHandler, dealHandler, alertHub, log)
	server := api.New(cfg, log, router)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewTrendRecomputeJob(service, log)); err != nil {
		return fmt.Errorf("register trend job: %w", err)
	}
	if err := sched.AddJob(jobs.NewAlertSweepJob(service, alertHub, log)); err != nil {
		return fmt.Errorf("register alert job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
