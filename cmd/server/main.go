package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/recipecost/internal/api"
	"github.com/andresuchdata/recipecost/internal/cache"
	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/metrics"
	"github.com/andresuchdata/recipecost/internal/propagation"
	"github.com/andresuchdata/recipecost/internal/repository/postgres"
	"github.com/andresuchdata/recipecost/internal/service"
	"github.com/andresuchdata/recipecost/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	logger.Configure(cfg.Server.Mode)
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

	recipeRepo := postgres.NewRecipeRepository(db)
	ingredientRepo := postgres.NewIngredientRepository(db)
	historyRepo := postgres.NewPriceHistoryRepository(db)

	// Initialize caches
	recipeCache, err := cache.NewRecipeCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Recipe cache unavailable, continuing without it")
		recipeCache = cache.NewNoopRecipeCache()
	}
	ingredientCache, err := cache.NewIngredientCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Ingredient cache unavailable, continuing without it")
		ingredientCache = cache.NewNoopIngredientCache()
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	// Initialize services
	propagator := propagation.NewPropagator(recipeRepo, propagation.ConfigFrom(cfg.Costing), collector)
	recipeService := service.NewRecipeService(recipeRepo, recipeCache, cfg.Costing, collector)
	ingredientService := service.NewIngredientService(ingredientRepo, historyRepo, ingredientCache, recipeCache, propagator)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		RecipeService:     recipeService,
		IngredientService: ingredientService,
		Metrics:           collector,
		MetricsPath:       cfg.Metrics.Path,
	}, cfg.Server.AllowedOrigins)

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

	// Propagations in flight get the persist timeout to finish their saves
	shutdownTimeout := 5 * time.Second
	if cfg.Costing.PersistTimeout > shutdownTimeout {
		shutdownTimeout = cfg.Costing.PersistTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
