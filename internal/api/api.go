package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/recipecost/internal/api/handlers"
	"github.com/andresuchdata/recipecost/internal/api/middleware"
	"github.com/andresuchdata/recipecost/internal/metrics"
)

type Services struct {
	RecipeService     handlers.RecipeService
	IngredientService handlers.IngredientService
	Metrics           *metrics.Collector
	MetricsPath       string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.NoRoute(func(c *gin.Context) {
		errorResponse(c, http.StatusNotFound, "route not found")
	})

	if services == nil {
		return router
	}

	if services.Metrics != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(services.Metrics.Handler()))
	}

	apiGroup := router.Group("/api/v1")

	if services.RecipeService != nil {
		recipeHandler := handlers.NewRecipeHandler(services.RecipeService)
		recipeGroup := apiGroup.Group("/recipes")
		{
			recipeGroup.GET("", recipeHandler.List)
			recipeGroup.POST("", recipeHandler.Create)
			recipeGroup.POST("/calculate", recipeHandler.Calculate)
			recipeGroup.POST("/validate", recipeHandler.Validate)
			recipeGroup.POST("/recalculate", recipeHandler.Recalculate)
			recipeGroup.GET("/:id", recipeHandler.Get)
			recipeGroup.PUT("/:id", recipeHandler.Update)
		}
	}

	if services.IngredientService != nil {
		ingredientHandler := handlers.NewIngredientHandler(services.IngredientService, handlers.NewValidator())
		ingredientGroup := apiGroup.Group("/ingredients")
		{
			ingredientGroup.GET("", ingredientHandler.List)
			ingredientGroup.POST("", ingredientHandler.Create)
			ingredientGroup.GET("/:id", ingredientHandler.Get)
			ingredientGroup.PUT("/:id/price", ingredientHandler.UpdatePrice)
			ingredientGroup.GET("/:id/price-history", ingredientHandler.PriceHistory)
			ingredientGroup.POST("/prices/import", ingredientHandler.ImportPrices)
		}
	}

	return router
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
