package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/san-kum/pose-analyzer/server/cache"
	"github.com/san-kum/pose-analyzer/server/config"
	"github.com/san-kum/pose-analyzer/server/handlers"
	"github.com/san-kum/pose-analyzer/server/middleware"
	"github.com/san-kum/pose-analyzer/server/session"
	"github.com/san-kum/pose-analyzer/server/store"
)

type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	manager     *session.Manager
	store       *store.Store
	cache       cache.Cache
	rateLimiter *middleware.RateLimiter
	config      *config.Config
}

func main() {
	cfg := config.LoadConfig()

	var logger *zap.Logger
	var err error

	if cfg.Logging.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := cfg.ValidateConfig(logger); err != nil {
		logger.Fatal("Configuration validation failed", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	server.manager.Close()
	server.rateLimiter.Shutdown()

	if err := server.cache.Close(); err != nil {
		logger.Error("Failed to close cache", zap.Error(err))
	}
	if err := server.store.Close(); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	reportStore, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	reportCache := cache.NewMemoryCache(cfg.Storage.CacheSize, cfg.Storage.CacheTTL, logger)

	manager := session.NewManager(cfg.Analysis, logger)

	rateLimiter := middleware.NewRateLimiter(
		cfg.Security.RateLimitRPS,
		cfg.Security.RateLimitBurst,
		logger,
	)

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.Security.MaxRequestSize))

	sink := handlers.NewReportSink(reportStore.Reports(), reportCache, logger)
	wsHandler := handlers.NewWebSocketHandler(manager, sink, logger)
	dashHandler := handlers.NewDashboardHandler(manager, sink, reportStore.Reports(), reportCache, logger)

	setupRoutes(router, wsHandler, dashHandler, rateLimiter)

	return &Server{
		router:      router,
		logger:      logger,
		manager:     manager,
		store:       reportStore,
		cache:       reportCache,
		rateLimiter: rateLimiter,
		config:      cfg,
	}, nil
}

func setupRoutes(router *gin.Engine, wsHandler *handlers.WebSocketHandler, dashHandler *handlers.DashboardHandler, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", middleware.HealthCheck())

	// Live landmark-frame ingestion for the browser pose model.
	router.GET("/ws", wsHandler.HandleWebSocket)

	api := router.Group("/api/v1")
	api.Use(rateLimiter.RateLimit())
	{
		api.GET("/health", middleware.HealthCheck())
		api.GET("/stats", dashHandler.GetStats)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", dashHandler.CreateSession)
			sessions.POST("/:id/start", dashHandler.StartSession)
			sessions.POST("/:id/frames", dashHandler.ProcessFrame)
			sessions.POST("/:id/stop", dashHandler.StopSession)
			sessions.POST("/:id/reset", dashHandler.ResetSession)

			sessions.GET("/:id/metrics", dashHandler.GetMetrics)
			sessions.GET("/:id/history", dashHandler.GetHistory)
			sessions.GET("/:id/aggregates", dashHandler.GetAggregates)
			sessions.GET("/:id/insights", dashHandler.GetInsights)
			sessions.GET("/:id/report", dashHandler.GetSessionReport)
			sessions.GET("/:id/chart", dashHandler.SessionChart)
		}

		reports := api.Group("/reports")
		{
			reports.GET("", dashHandler.ListReports)
			reports.GET("/:id", dashHandler.GetStoredReport)
			reports.DELETE("/:id", dashHandler.DeleteStoredReport)
		}
	}

	// Dashboard pages; the client bundle runs the pose model and renders
	// the skeleton overlay.
	router.Static("/static", "./web/static")
	router.StaticFile("/", "./web/index.html")
	router.StaticFile("/dashboard", "./web/dashboard.html")
}
