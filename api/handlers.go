package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gcbaptista/tagsearch/config"
	"github.com/gcbaptista/tagsearch/internal/app"
	"github.com/gcbaptista/tagsearch/internal/ratelimit"
	"github.com/gcbaptista/tagsearch/services"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (string, error)
	CacheSizes() map[string]int
}

// API holds dependencies for API handlers.
type API struct {
	searcher     services.Searcher
	groups       services.GroupLister
	recommender  services.Recommender
	pregenerator services.Pregenerator
	ingester     services.Ingester
	stats        services.StatsProvider
	suggester    services.TagSuggester
	caches       services.CacheResetter
	health       HealthChecker

	searchCfg    config.SearchConfig
	groupsCfg    config.GroupsConfig
	recommendCfg config.RecommendConfig
	startedAt    time.Time
}

// NewAPI creates the handler set over a wired application.
func NewAPI(a *app.App) *API {
	return &API{
		searcher:     a.Search,
		groups:       a.Groups,
		recommender:  a.Recommend,
		pregenerator: a.Recommend,
		ingester:     a.Ingest,
		stats:        a.Stats,
		suggester:    a.Suggest,
		caches:       a,
		health:       a,
		searchCfg:    a.Config.Search,
		groupsCfg:    a.Config.Groups,
		recommendCfg: a.Config.Recommend,
		startedAt:    time.Now(),
	}
}

// NewRouter builds a gin engine with the standard middleware stack and every route.
func NewRouter(a *app.App, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLoggerMiddleware(logger))
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware())
	if a.Config.Server.MaxBodyBytes > 0 {
		router.Use(RequestSizeLimitMiddleware(a.Config.Server.MaxBodyBytes))
	}
	SetupRoutes(router, NewAPI(a), a.Limiter)
	return router
}

// SetupRoutes defines all the API routes. A nil limiter disables rate limiting.
func SetupRoutes(router *gin.Engine, api *API, limiter *ratelimit.Limiter) {
	// Operational routes are never rate limited
	router.GET("/health", api.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := router.Group("", RateLimitMiddleware(limiter))

	limited.GET("/stats", api.StatsHandler)
	limited.POST("/caches/reset", api.ResetCachesHandler)

	postRoutes := limited.Group("/posts")
	{
		postRoutes.POST("", api.ImportPostsHandler)
		postRoutes.GET("/search", api.SearchPostsHandler)
		postRoutes.GET("/:postId/recommendations", api.RecommendationsHandler)
	}

	groupRoutes := limited.Group("/groups")
	{
		groupRoutes.POST("", api.ImportGroupHandler)        // Upsert one group
		groupRoutes.GET("/merged", api.MergedGroupsHandler) // Deduplicated group views
	}

	tagRoutes := limited.Group("/tags")
	{
		tagRoutes.GET("/wildcard/validate", api.ValidateWildcardHandler)
		tagRoutes.GET("/wildcard/expand", api.ExpandWildcardHandler)
		tagRoutes.GET("/suggest", api.SuggestTagsHandler)
	}

	recRoutes := limited.Group("/recommendations")
	{
		recRoutes.GET("/pregeneration", api.PregenerationStatusHandler)
		recRoutes.POST("/pregeneration", api.StartPregenerationHandler)
		recRoutes.DELETE("/cache", api.ClearRecommendationCacheHandler)
	}
}

// HealthCheckHandler reports liveness and database reachability
func (api *API) HealthCheckHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := api.health.Ping(ctx); err != nil {
		SendError(c, http.StatusServiceUnavailable, ErrorCodeUnavailable, "Database unreachable: "+err.Error())
		return
	}
	version, err := api.health.SchemaVersion(ctx)
	if err != nil {
		SendInternalError(c, "health check", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"schema_version": version,
		"uptime":         time.Since(api.startedAt).Round(time.Second).String(),
		"caches":         api.health.CacheSizes(),
		"pregeneration":  api.pregenerator.PregenerationProgress().Status,
	})
}

// StatsHandler returns corpus statistics. ?refresh=true forces recomputation.
func (api *API) StatsHandler(c *gin.Context) {
	refresh := c.Query("refresh") == "true"

	stats, err := api.stats.CorpusStats(c.Request.Context(), refresh)
	if err != nil {
		SendServiceError(c, "statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ResetCachesHandler clears every process-local cache
func (api *API) ResetCachesHandler(c *gin.Context) {
	api.caches.ResetCaches()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Caches reset"})
}
