package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auto-trade-engine-go/internal/api"
	"auto-trade-engine-go/internal/config"
	"auto-trade-engine-go/internal/database"
	"auto-trade-engine-go/internal/exchange"
	"auto-trade-engine-go/internal/logger"
	"auto-trade-engine-go/internal/metrics"
	"auto-trade-engine-go/internal/trading"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize exchange connector. A missing gateway URL means every
	// execution runs as a paper trade.
	var connector exchange.Connector
	if cfg.Exchange.BaseURL != "" {
		rest := exchange.NewRestConnector(&cfg.Exchange, log)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rest.Ping(pingCtx); err != nil {
			log.Warn("Exchange gateway unreachable, executions will degrade to paper trades", zap.Error(err))
		}
		cancel()
		connector = rest
	} else {
		log.Warn("No exchange gateway configured, running in paper-trade mode")
	}

	// Wire the engine
	m := metrics.New()
	svc := trading.NewService(db, connector, cfg, log, m)
	sweeper := trading.NewSweeper(svc, cfg.Trading, log)
	server := api.NewServer(cfg.Server.Port, svc, m.Handler(), log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	server.Start()

	// Run the background sweeps; blocks until shutdown and lets in-flight
	// sweeps finish their current batch.
	sweeper.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("API server forced to shutdown", zap.Error(err))
	}

	log.Info("Engine has been shut down.")
}
