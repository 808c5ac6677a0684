package api

import (
	"github.com/codeclash/similitude/internal/cache"
	"github.com/codeclash/similitude/internal/config"
	"github.com/codeclash/similitude/internal/repository"
	"github.com/codeclash/similitude/internal/similarity"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	cfg *config.Config,
	engine *similarity.Engine,
	workerPool *similarity.WorkerPool,
	comparisons *repository.ComparisonsRepository,
	reportCache *cache.ReportCache,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())

	handler := NewHandler(cfg, engine, workerPool, comparisons, reportCache)
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	if cfg.JWTSecret != "" {
		api.Use(JWTAuthMiddleware(cfg.JWTSecret))
	}
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/compare", handler.Compare)
		api.GET("/comparisons", handler.ListComparisons)
		api.GET("/comparisons/:id", handler.GetComparison)
	}

	return router
}
