package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/tagsearch/model"
)

// ImportPostsRequest is the body of POST /posts
type ImportPostsRequest struct {
	Posts []model.PostInput `json:"posts" binding:"required,min=1,dive"`
}

// ImportPostsHandler upserts a batch of posts with their tags. Tag statistics are
// refreshed and every cache is invalidated before it returns.
func (api *API) ImportPostsHandler(c *gin.Context) {
	var req ImportPostsRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	res, err := api.ingester.ImportPosts(c.Request.Context(), req.Posts)
	if err != nil {
		SendServiceError(c, "post import", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RecommendParams are the query parameters of GET /posts/:postId/recommendations
type RecommendParams struct {
	Limit int `form:"limit" validate:"gte=0"`
}

// RecommendationsHandler returns posts similar to the one in the path
func (api *API) RecommendationsHandler(c *gin.Context) {
	postID, result := ValidatePostID(c.Param("postId"))
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var params RecommendParams
	if result := ValidateQueryBinding(c, &params); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	res, err := api.recommender.Recommend(c.Request.Context(), postID, params.Limit)
	if err != nil {
		SendServiceError(c, "recommendation", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
