package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tradesim/internal/backtest"
	"tradesim/internal/config"
	"tradesim/internal/database"
	"tradesim/internal/engine"
	"tradesim/internal/logger"
	"tradesim/internal/market"
	"tradesim/internal/notify"
	"tradesim/internal/server"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Synthetic market data and event fan-out
	gen := market.NewGenerator()
	hub := notify.NewHub(log)

	var publisher notify.Publisher = hub
	if cfg.Webhook.URL != "" {
		publisher = notify.Fanout{hub, notify.NewWebhookPublisher(&cfg.Webhook, log)}
		log.Info("Webhook publisher enabled", zap.String("url", cfg.Webhook.URL))
	}

	// Core components
	eng := engine.NewEngine(db, gen, publisher, cfg.Trading, log)
	runner := backtest.NewRunner(gen, log)
	gateway := notify.NewGateway(hub, gen, log)
	srv := server.NewServer(cfg.Server.Port, eng, runner, db, gen, gateway, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	srv.Start()
	eng.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Venue has been shut down.")
}
