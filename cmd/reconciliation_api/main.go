package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/panjf2000/ants/v2"

	"github.com/fechamento-diario/internal/api"
	"github.com/fechamento-diario/internal/config"
	"github.com/fechamento-diario/internal/data/mongo"
	"github.com/fechamento-diario/internal/data/postgres"
	"github.com/fechamento-diario/internal/logger"
	"github.com/fechamento-diario/internal/platform/messaging/producers"
	"github.com/fechamento-diario/internal/platform/persistence"
	"github.com/fechamento-diario/internal/reconciliation/matching"
	"github.com/fechamento-diario/internal/reconciliation/parser"
	"github.com/fechamento-diario/internal/reconciliation/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciliation_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for escalation alerts
	alertProducer, err := producers.NewAlertMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize alert Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize worker pool for batch resolutions
	workerPool, err := ants.NewPool(cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	closureRepo := postgres.NewClosureRepository(log, postgresDB)
	settlementRepo := postgres.NewSettlementRepository(log, postgresDB)
	divergenceRepo := postgres.NewDivergenceRepository(log, postgresDB)
	salesLedger := postgres.NewSalesLedger(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize services
	escalator := service.NewEscalator(log, alertProducer,
		cfg.Reconciliation.EscalationValueThreshold, cfg.Reconciliation.EscalationCountThreshold)
	closureService := service.NewClosureService(
		log,
		postgresDB,
		closureRepo,
		settlementRepo,
		divergenceRepo,
		salesLedger,
		auditRepo,
		parser.NewParser(log),
		matching.NewEngine(cfg.Reconciliation.AmountToleranceCents),
		escalator,
	)
	resolutionService := service.NewResolutionService(log, divergenceRepo, closureRepo, auditRepo, workerPool)

	// Initialize REST server
	server := api.NewServer(log, cfg, closureService, resolutionService, auditRepo)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no request observes closed dependencies
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	workerPool.Release()

	if err = alertProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("Application exiting due to server error", "error", serverErr)
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}
