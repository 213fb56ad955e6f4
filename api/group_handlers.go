package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

// MergedGroupsParams are the query parameters of GET /groups/merged
type MergedGroupsParams struct {
	SourceType string `form:"source_type" validate:"max=64"`
	Order      string `form:"order" validate:"omitempty,oneof=random newest oldest largest"`
	Seed       string `form:"seed" validate:"max=64"`
	Page       int    `form:"page" validate:"gte=0"`
	PageSize   int    `form:"page_size" validate:"gte=0"`
}

// MergedGroupsHandler lists groups deduplicated by ordered membership
func (api *API) MergedGroupsHandler(c *gin.Context) {
	var params MergedGroupsParams
	if result := ValidateQueryBinding(c, &params); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	order, err := services.ParseOrder(params.Order)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
		return
	}

	res, err := api.groups.MergedGroups(c.Request.Context(), services.MergedGroupsRequest{
		SourceType: params.SourceType,
		Order:      order,
		Seed:       params.Seed,
		Page:       params.Page,
		PageSize:   params.PageSize,
	})
	if err != nil {
		SendServiceError(c, "merged groups", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ImportGroupHandler upserts one group keyed by (source_type, source_id)
func (api *API) ImportGroupHandler(c *gin.Context) {
	var req model.GroupInput
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	id, err := api.ingester.ImportGroup(c.Request.Context(), req)
	if err != nil {
		SendServiceError(c, "group import", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          id,
		"source_type": req.SourceType,
		"source_id":   req.SourceID,
	})
}
