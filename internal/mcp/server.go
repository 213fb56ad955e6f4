// Package mcp exposes the search, group and recommendation services as MCP tools
// over stdio.
package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/gcbaptista/tagsearch/internal/app"
	"github.com/gcbaptista/tagsearch/services"
)

const (
	// ServerName is the MCP server name
	ServerName = "tagsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the services it exposes
type Server struct {
	mcp *server.MCPServer

	searcher     services.Searcher
	groups       services.GroupLister
	recommender  services.Recommender
	pregenerator services.Pregenerator
	logger       zerolog.Logger
}

// NewServer registers every tool against the services of a.
func NewServer(a *app.App, logger zerolog.Logger) (*Server, error) {
	if a == nil {
		return nil, errors.New("mcp server requires an app")
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
		),
		searcher:     a.Search,
		groups:       a.Groups,
		recommender:  a.Recommend,
		pregenerator: a.Recommend,
		logger:       logger.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP server on stdio and blocks until stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info().Str("name", ServerName).Str("version", ServerVersion).Msg("serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchPostsTool(), s.handleSearchPosts)
	s.mcp.AddTool(mergedGroupsTool(), s.handleMergedGroups)
	s.mcp.AddTool(recommendPostsTool(), s.handleRecommendPosts)
	s.mcp.AddTool(validateWildcardTool(), s.handleValidateWildcard)
	s.mcp.AddTool(pregenerationStatusTool(), s.handlePregenerationStatus)
	s.mcp.AddTool(startPregenerationTool(), s.handleStartPregeneration)
}
