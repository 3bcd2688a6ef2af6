// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warestock/replenishd/internal/api"
	"github.com/warestock/replenishd/internal/cache"
	"github.com/warestock/replenishd/internal/config"
	"github.com/warestock/replenishd/internal/engine"
	"github.com/warestock/replenishd/internal/repository"
	"github.com/warestock/replenishd/internal/repository/postgres"
	"github.com/warestock/replenishd/internal/scheduler"
	"github.com/warestock/replenishd/internal/service"
	"github.com/warestock/replenishd/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Wire the engine stack
	factStore := postgres.NewFactStore(db)
	runStore := postgres.NewRunStore(db)

	recommendationCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("recommendation cache unavailable, continuing without it")
		recommendationCache = cache.NewNoopRecommendationCache()
	}

	configProvider := repository.StaticConfigProvider{Config: cfg.Engine.ReplenishmentPolicy()}
	eng := engine.New(factStore, cfg.Engine.WorkerCount)
	runner := scheduler.NewRunner(runStore, configProvider, eng, recommendationCache)
	replenishmentService := service.NewReplenishmentService(runStore, recommendationCache, runner)

	// Initialize HTTP server
	router := api.NewRouter(replenishmentService, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
