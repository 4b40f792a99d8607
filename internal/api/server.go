package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nhanhsync/internal/api/handlers"
	"nhanhsync/internal/api/middleware"
	"nhanhsync/internal/config"
	"nhanhsync/internal/database"
	"nhanhsync/internal/events"
	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
	"nhanhsync/internal/sync"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the HTTP surface is wired with.
type Deps struct {
	Client     *nhanh.Client
	Products   *sync.ProductReconciler
	Inventory  *sync.InventoryReconciler
	Orders     *sync.OrderReconciler
	Dispatcher *sync.WebhookDispatcher
	Coord      *sync.Coordinator
	Settings   sync.SettingsStore
	Publisher  *events.Publisher
}

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, deps Deps) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(deps.Dispatcher, logger)
	syncHandler := handlers.NewSyncHandler(deps.Products, deps.Inventory, deps.Coord, logger)
	productHandler := handlers.NewProductHandler(db.DB, deps.Products, logger)
	orderHandler := handlers.NewOrderHandler(db.DB, deps.Orders, deps.Publisher, logger)
	nhanhHandler := handlers.NewNhanhHandler(deps.Client, logger)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Coord, logger)
	shippingHandler := handlers.NewShippingHandler(deps.Client, deps.Settings, logger)

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Inbound webhooks from Nhanh.vn
		v1.POST("/webhook", webhookHandler.Receive)

		// Manual sync triggers and observability
		syncGroup := v1.Group("/sync")
		{
			syncGroup.POST("/products", syncHandler.RunProducts)
			syncGroup.POST("/inventory", syncHandler.RunInventory)
			syncGroup.GET("/stats", syncHandler.Stats)
			syncGroup.GET("/logs", syncHandler.Logs)
			syncGroup.DELETE("/logs", syncHandler.ClearLogs)
		}

		// Products
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.POST("/:id/sync", productHandler.Sync)
			products.POST("/:id/link", productHandler.Link)
		}

		// Orders
		orders := v1.Group("/orders")
		{
			orders.GET("/:id", orderHandler.Get)
			orders.POST("/:id/push", orderHandler.Push)
			orders.POST("/:id/pull", orderHandler.Pull)
			orders.PUT("/:id/status", orderHandler.UpdateStatus)
		}

		// Nhanh.vn OAuth
		nhanhGroup := v1.Group("/nhanh")
		{
			nhanhGroup.GET("/login-url", nhanhHandler.LoginURL)
			nhanhGroup.GET("/callback", nhanhHandler.Callback)
			nhanhGroup.GET("/status", nhanhHandler.Status)
		}

		// Settings
		v1.GET("/settings", settingsHandler.Get)
		v1.PUT("/settings", settingsHandler.Update)

		// Shipping
		v1.POST("/shipping/estimate", shippingHandler.Estimate)
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Router exposes the Gin engine, mainly for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
