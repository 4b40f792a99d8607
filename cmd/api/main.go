package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nhanhsync/internal/api"
	"nhanhsync/internal/config"
	"nhanhsync/internal/database"
	"nhanhsync/internal/events"
	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
	"nhanhsync/internal/store"
	"nhanhsync/internal/sync"
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

	// Stores
	catalog := store.NewCatalog(db.DB)
	orders := store.NewOrders(db.DB)
	links := store.NewLinks(db.DB)
	media := store.NewMedia(db.DB, cfg.MediaDir)
	settings := store.NewSettings(db.DB)
	state := store.NewSyncState(db.DB)

	seedSettings(cfg, settings, logger)

	// Remote client and sync engine
	client := nhanh.NewClient(cfg, settings, logger)
	coord := sync.NewCoordinator(settings, state, logger)
	products := sync.NewProductReconciler(client, catalog, links, media, settings, coord, logger)
	inventory := sync.NewInventoryReconciler(client, catalog, links, settings, coord, logger)
	orderSync := sync.NewOrderReconciler(client, orders, catalog, links, settings, coord, logger)
	dispatcher := sync.NewWebhookDispatcher(products, inventory, orderSync, client, settings, coord, logger)
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.EventsTopic, logger)
	defer publisher.Close()

	// Scheduled pulls
	coord.SetRunner(sync.TypeProducts, func(ctx context.Context) {
		products.Pull(ctx)
	})
	coord.SetRunner(sync.TypeInventory, func(ctx context.Context) {
		inventory.Pull(ctx)
	})
	if err := coord.ApplySchedule(context.Background()); err != nil {
		logger.Error("Failed to apply sync schedule: %v", err)
	}
	coord.Start()
	defer coord.Stop()

	// Initialize API server
	server := api.New(cfg, logger, db, api.Deps{
		Client:     client,
		Products:   products,
		Inventory:  inventory,
		Orders:     orderSync,
		Dispatcher: dispatcher,
		Coord:      coord,
		Settings:   settings,
		Publisher:  publisher,
	})

	// Start server
	go func() {
		logger.Info("Starting API server on port " + cfg.APIPort)
		if err := server.Start(); err != nil {
			logger.Error("Server stopped: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Failed to shut down server: %v", err)
	}
}

// seedSettings copies environment configuration into the settings store on
// first boot. Values already set through the API win over the environment.
func seedSettings(cfg *config.Config, settings *store.Settings, logger *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	defaults := map[string]string{
		nhanh.SettingAppID:        cfg.NhanhAppID,
		nhanh.SettingSecretKey:    cfg.NhanhSecretKey,
		sync.SettingWebhookToken:  cfg.WebhookToken,
		sync.SettingSyncFrequency: "hourly",
	}
	for key, value := range defaults {
		if value == "" {
			continue
		}
		if err := settings.SetDefault(ctx, key, value); err != nil {
			logger.Error("Failed to seed setting %s: %v", key, err)
		}
	}
}
