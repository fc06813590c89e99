package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pdfchat/config"
	"pdfchat/handler"
	"pdfchat/middleware"
	"pdfchat/pkg/logger"
	"pdfchat/pkg/telemetry"
	"pdfchat/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})

	slog.Info("configuration loaded successfully")

	// Initialize telemetry
	inst := telemetry.Noop()
	if cfg.Telemetry.Enabled {
		var cleanup func()
		inst, cleanup, err = telemetry.Init(context.Background(), cfg.Telemetry.Dir)
		if err != nil {
			slog.Error("failed to initialize telemetry", "error", err)
			os.Exit(1)
		}
		defer cleanup()
	}

	// Initialize services
	backendClient := service.NewBackendClient(&cfg.Backend, inst)

	service.InitSessionStore(&cfg.Session)
	store := service.GetSessionStore()

	// Background document-status polling
	poller := service.NewStatusPoller(backendClient, store,
		time.Duration(cfg.Session.PollIntervalSeconds)*time.Second)
	poller.Start(context.Background())
	defer poller.Stop()

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(&cfg.Session, store)
	uploadHandler := handler.NewUploadHandler(backendClient, cfg, inst)
	queryHandler := handler.NewQueryHandler(backendClient, cfg, inst)
	historyHandler := handler.NewHistoryHandler(&cfg.Session)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(cfg.Server.RatePerMinute, time.Minute))

	// Non-POST on a POST-only route must answer 405, not 404
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		resp := gin.H{
			"status":          "ok",
			"active_sessions": store.Count(),
			"timestamp":       time.Now().Format(time.RFC3339),
		}
		if status := poller.LastStatus(); status != nil {
			resp["document_loaded"] = status.DocumentLoaded
			resp["chat_messages"] = status.ChatMessages
		}
		c.JSON(http.StatusOK, resp)
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/session", sessionHandler.Create)
	}

	// Session-scoped routes
	protected := api.Group("/")
	protected.Use(middleware.SessionAuth(&cfg.Session, store))
	{
		protected.GET("/session", sessionHandler.Status)
		protected.POST("/upload", uploadHandler.Upload)
		protected.POST("/query", queryHandler.Query)
		protected.GET("/history", historyHandler.Get)
		protected.DELETE("/history", historyHandler.Clear)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	poller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
