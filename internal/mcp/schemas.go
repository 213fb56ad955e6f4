package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var orderSchema = map[string]interface{}{
	"type":        "string",
	"description": "Result order",
	"enum":        []string{"newest", "oldest", "largest", "random"},
	"default":     "newest",
}

func pagingProperties(props map[string]interface{}) map[string]interface{} {
	props["order"] = orderSchema
	props["seed"] = map[string]interface{}{
		"type":        "string",
		"description": "Seed for random order; one is generated when omitted",
	}
	props["page"] = map[string]interface{}{
		"type":        "integer",
		"description": "1-based page number",
		"default":     1,
		"minimum":     1,
	}
	props["page_size"] = map[string]interface{}{
		"type":        "integer",
		"description": "Items per page, clamped to the configured maximum",
		"minimum":     1,
	}
	return props
}

// searchPostsTool returns the tool definition for search_posts
func searchPostsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_posts",
		Description: "Find posts by tag query. Terms are comma separated; '-tag' excludes, '*' is a wildcard",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: pagingProperties(map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Tag query, e.g. \"blue_eyes, -smile, *_hair\". Empty lists every post",
				},
			}),
		},
	}
}

// mergedGroupsTool returns the tool definition for merged_groups
func mergedGroupsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "merged_groups",
		Description: "List post groups with identical ordered membership merged into one entry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: pagingProperties(map[string]interface{}{
				"source_type": map[string]interface{}{
					"type":        "string",
					"description": "Only consider groups of this source type",
				},
			}),
		},
	}
}

// recommendPostsTool returns the tool definition for recommend_posts
func recommendPostsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "recommend_posts",
		Description: "Recommend posts similar to a post by weighted shared tags",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"post_id": map[string]interface{}{
					"type":        "integer",
					"description": "Source post id",
					"minimum":     1,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of recommendations",
					"minimum":     1,
				},
			},
			Required: []string{"post_id"},
		},
	}
}

// validateWildcardTool returns the tool definition for validate_wildcard
func validateWildcardTool() mcp.Tool {
	return mcp.Tool{
		Name:        "validate_wildcard",
		Description: "Check a wildcard tag pattern and optionally list the tags it matches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Wildcard pattern, e.g. \"*_eyes\"",
				},
				"expand": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, also return matching tag names",
					"default":     false,
				},
			},
			Required: []string{"pattern"},
		},
	}
}

// pregenerationStatusTool returns the tool definition for pregeneration_status
func pregenerationStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "pregeneration_status",
		Description: "Report the current or last recommendation pregeneration run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// startPregenerationTool returns the tool definition for start_pregeneration
func startPregenerationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "start_pregeneration",
		Description: "Start recomputing recommendations for every eligible post in the background",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
