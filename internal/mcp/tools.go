package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
	"github.com/gcbaptista/tagsearch/internal/query"
	"github.com/gcbaptista/tagsearch/services"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodePostNotFound     = -32001 // Requested post does not exist
	ErrorCodeJobRunning       = -32002 // Pregeneration is already running
	ErrorCodeCapacityExceeded = -32003 // Wildcard matches too many tags
)

// handleSearchPosts handles the search_posts tool invocation
func (s *Server) handleSearchPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	order, err := services.ParseOrder(getStringDefault(args, "order", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"order": args["order"],
		})
	}

	res, err := s.searcher.SearchQuery(ctx, services.SearchQuery{
		Query:    getStringDefault(args, "query", ""),
		Order:    order,
		Seed:     getStringDefault(args, "seed", ""),
		Page:     getIntDefault(args, "page", 1),
		PageSize: getIntDefault(args, "page_size", 0),
	})
	if err != nil {
		return nil, s.serviceError("search", err)
	}
	return mcp.NewToolResultText(formatJSON(res)), nil
}

// handleMergedGroups handles the merged_groups tool invocation
func (s *Server) handleMergedGroups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	order, err := services.ParseOrder(getStringDefault(args, "order", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"order": args["order"],
		})
	}

	res, err := s.groups.MergedGroups(ctx, services.MergedGroupsRequest{
		SourceType: getStringDefault(args, "source_type", ""),
		Order:      order,
		Seed:       getStringDefault(args, "seed", ""),
		Page:       getIntDefault(args, "page", 1),
		PageSize:   getIntDefault(args, "page_size", 0),
	})
	if err != nil {
		return nil, s.serviceError("merged groups", err)
	}
	return mcp.NewToolResultText(formatJSON(res)), nil
}

// handleRecommendPosts handles the recommend_posts tool invocation
func (s *Server) handleRecommendPosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	postID := getIntDefault(args, "post_id", 0)
	if postID <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "post_id parameter is required and must be positive", map[string]interface{}{
			"post_id": args["post_id"],
		})
	}

	res, err := s.recommender.Recommend(ctx, int64(postID), getIntDefault(args, "limit", 0))
	if err != nil {
		return nil, s.serviceError("recommendation", err)
	}
	return mcp.NewToolResultText(formatJSON(res)), nil
}

// handleValidateWildcard handles the validate_wildcard tool invocation
func (s *Server) handleValidateWildcard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	pattern := strings.ToLower(strings.TrimSpace(getStringDefault(args, "pattern", "")))
	if pattern == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "pattern parameter is required", nil)
	}

	check := query.CheckWildcard(pattern)
	response := map[string]interface{}{
		"pattern": pattern,
		"valid":   check.Valid,
	}
	if !check.Valid {
		response["error"] = check.Error
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	if getBoolDefault(args, "expand", false) {
		names, err := s.searcher.ExpandWildcard(ctx, pattern)
		if err != nil {
			return nil, s.serviceError("wildcard expansion", err)
		}
		response["tags"] = names
		response["total"] = len(names)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePregenerationStatus handles the pregeneration_status tool invocation
func (s *Server) handlePregenerationStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progress := s.pregenerator.PregenerationProgress()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"job":      progress,
		"progress": progress.GetProgressPercentage(),
	})), nil
}

// handleStartPregeneration handles the start_pregeneration tool invocation
func (s *Server) handleStartPregeneration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progress, err := s.pregenerator.StartPregeneration()
	if err != nil {
		return nil, s.serviceError("pregeneration", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status": "accepted",
		"job":    progress,
	})), nil
}

// serviceError maps a service failure onto an MCP error code
func (s *Server) serviceError(operation string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		return newMCPError(ErrorCodeCapacityExceeded, err.Error(), data)
	case errors.Is(err, apperrors.ErrInvalidInput):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), data)
	case errors.Is(err, apperrors.ErrNotFound):
		return newMCPError(ErrorCodePostNotFound, err.Error(), data)
	case errors.Is(err, apperrors.ErrConflict):
		return newMCPError(ErrorCodeJobRunning, err.Error(), data)
	}
	s.logger.Error().Err(err).Str("operation", operation).Msg("tool call failed")
	return newMCPError(ErrorCodeInternalError, operation+" failed", data)
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments returns the tool arguments as a map. Missing arguments are an empty map.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
