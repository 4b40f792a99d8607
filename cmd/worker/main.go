package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"nhanhsync/internal/config"
	"nhanhsync/internal/database"
	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
	"nhanhsync/internal/store"
	"nhanhsync/internal/sync"
	"nhanhsync/internal/worker"
	"nhanhsync/internal/worker/processors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Stores and sync engine
	catalog := store.NewCatalog(db.DB)
	orders := store.NewOrders(db.DB)
	links := store.NewLinks(db.DB)
	settings := store.NewSettings(db.DB)
	state := store.NewSyncState(db.DB)

	client := nhanh.NewClient(cfg, settings, logger)
	coord := sync.NewCoordinator(settings, state, logger)
	inventory := sync.NewInventoryReconciler(client, catalog, links, settings, coord, logger)
	orderSync := sync.NewOrderReconciler(client, orders, catalog, links, settings, coord, logger)

	processor := processors.NewEventProcessor(orderSync, inventory, logger)

	// Initialize worker
	w := worker.New(cfg, logger, processor)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}
