package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PregenerationStatusHandler returns the current or last pregeneration run
func (api *API) PregenerationStatusHandler(c *gin.Context) {
	progress := api.pregenerator.PregenerationProgress()
	c.JSON(http.StatusOK, gin.H{
		"job":      progress,
		"progress": progress.GetProgressPercentage(),
	})
}

// StartPregenerationHandler starts a background pregeneration run. It answers 202
// immediately, or 409 while a run is active.
func (api *API) StartPregenerationHandler(c *gin.Context) {
	progress, err := api.pregenerator.StartPregeneration()
	if err != nil {
		SendServiceError(c, "pregeneration", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Recommendation pregeneration started",
		"job":     progress,
	})
}

// ClearRecommendationCacheHandler drops every persisted recommendation
func (api *API) ClearRecommendationCacheHandler(c *gin.Context) {
	cleared, err := api.recommender.ClearCache(c.Request.Context())
	if err != nil {
		SendServiceError(c, "recommendation cache clear", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"cleared": cleared,
	})
}
