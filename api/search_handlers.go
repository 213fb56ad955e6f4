package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/tagsearch/internal/query"
	"github.com/gcbaptista/tagsearch/model"
	"github.com/gcbaptista/tagsearch/services"
)

// suggestionsPerUnknownTag bounds the "did you mean" list attached to searches.
const suggestionsPerUnknownTag = 3

// SearchParams are the query parameters of GET /posts/search
type SearchParams struct {
	Tags     string `form:"tags" validate:"max=2048"`
	Order    string `form:"order" validate:"omitempty,oneof=random newest oldest largest"`
	Seed     string `form:"seed" validate:"max=64"`
	Page     int    `form:"page" validate:"gte=0"`
	PageSize int    `form:"page_size" validate:"gte=0"`
}

// SearchResponse is a search result plus suggestions for tags that matched nothing
type SearchResponse struct {
	*services.SearchResult
	Suggestions map[string][]string `json:"suggestions,omitempty"`
}

// SearchPostsHandler resolves a comma separated tag query.
// Terms prefixed with '-' are excluded and terms containing '*' are wildcards.
func (api *API) SearchPostsHandler(c *gin.Context) {
	var params SearchParams
	if result := ValidateQueryBinding(c, &params); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	order, err := services.ParseOrder(params.Order)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
		return
	}

	res, err := api.searcher.SearchQuery(c.Request.Context(), services.SearchQuery{
		Query:    params.Tags,
		Order:    order,
		Seed:     params.Seed,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
	if err != nil {
		SendServiceError(c, "search", err)
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		SearchResult: res,
		Suggestions:  api.suggestFor(c.Request.Context(), res.UnknownTags),
	})
}

// suggestFor looks up close matches for unknown literal tags. Failures only drop
// the suggestions.
func (api *API) suggestFor(ctx context.Context, unknown []string) map[string][]string {
	var out map[string][]string
	for _, term := range unknown {
		if query.IsWildcard(term) {
			continue
		}
		tags, err := api.suggester.Suggest(ctx, term, suggestionsPerUnknownTag)
		if err != nil || len(tags) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[term] = tagNames(tags)
	}
	return out
}

// ValidateWildcardHandler checks a wildcard pattern without touching the store.
// It always answers 200 with {valid, error}.
func (api *API) ValidateWildcardHandler(c *gin.Context) {
	c.JSON(http.StatusOK, query.CheckWildcard(strings.ToLower(strings.TrimSpace(c.Query("pattern")))))
}

// ExpandWildcardHandler lists the tag names a wildcard pattern matches
func (api *API) ExpandWildcardHandler(c *gin.Context) {
	pattern := strings.ToLower(strings.TrimSpace(c.Query("pattern")))
	if pattern == "" {
		result := &ValidationResult{Valid: true}
		result.AddError("pattern", "Pattern is required")
		SendValidationError(c, result)
		return
	}

	names, err := api.searcher.ExpandWildcard(c.Request.Context(), pattern)
	if err != nil {
		SendServiceError(c, "wildcard expansion", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pattern": pattern,
		"tags":    names,
		"total":   len(names),
	})
}

// SuggestParams are the query parameters of GET /tags/suggest
type SuggestParams struct {
	Q     string `form:"q" validate:"required,max=256"`
	Limit int    `form:"limit" validate:"gte=0,lte=50"`
}

// SuggestTagsHandler proposes known tags close to a possibly misspelled one
func (api *API) SuggestTagsHandler(c *gin.Context) {
	var params SuggestParams
	if result := ValidateQueryBinding(c, &params); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	tags, err := api.suggester.Suggest(c.Request.Context(), params.Q, params.Limit)
	if err != nil {
		SendServiceError(c, "tag suggestion", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":       params.Q,
		"suggestions": tags,
	})
}

func tagNames(tags []model.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}
