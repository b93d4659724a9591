// Package mcp implements the Model Context Protocol server for the
// festival listing service.
//
// The MCP server exposes the read side of the HTTP API as tools, so
// MCP-compatible AI agents can search and inspect festival listings
// without speaking REST.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bduran04/festival-finder/internal/model"
	"github.com/bduran04/festival-finder/internal/storage"
)

// Server wraps the MCP server with the festival storage layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	db        *storage.DB
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all tools registered.
func New(db *storage.DB, version string, logger *slog.Logger) *Server {
	s := &Server{
		db:     db,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"festival-finder",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// festival_search — full-text search over listings.
	s.mcpServer.AddTool(
		mcplib.NewTool("festival_search",
			mcplib.WithDescription("Search festival listings by keyword. Matches name, venue, city, and description; results are ranked by relevance."),
			mcplib.WithString("query", mcplib.Description("Search query"), mcplib.Required()),
			mcplib.WithNumber("limit", mcplib.Description("Maximum results to return")),
		),
		s.handleSearch,
	)

	// festival_get — fetch one listing by ID.
	s.mcpServer.AddTool(
		mcplib.NewTool("festival_get",
			mcplib.WithDescription("Fetch a single festival listing by its numeric ID"),
			mcplib.WithNumber("id", mcplib.Description("Festival ID"), mcplib.Required()),
		),
		s.handleGet,
	)

	// festival_categories — list distinct categories.
	s.mcpServer.AddTool(
		mcplib.NewTool("festival_categories",
			mcplib.WithDescription("List the festival categories currently in use"),
		),
		s.handleCategories,
	)

	// festival_stats — per-category counts.
	s.mcpServer.AddTool(
		mcplib.NewTool("festival_stats",
			mcplib.WithDescription("Aggregate statistics: total festivals and per-category counts"),
		),
		s.handleStats,
	)
}

func (s *Server) handleSearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}
	// Same default as the HTTP search endpoint.
	limit := request.GetInt("limit", 20)

	results, err := s.db.SearchFestivals(ctx, query, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"festivals": results,
		"total":     len(results),
	}, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleGet(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := request.GetInt("id", 0)
	if id <= 0 {
		return errorResult("id must be a positive integer"), nil
	}

	festival, err := s.db.GetFestival(ctx, int64(id))
	if err != nil {
		return errorResult(fmt.Sprintf("failed to get festival: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(festival, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleCategories(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	categories, err := s.db.ListCategories(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list categories: %v", err)), nil
	}
	if len(categories) == 0 {
		for _, c := range model.Categories() {
			categories = append(categories, string(c))
		}
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"categories": categories,
	}, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleStats(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	stats, err := s.db.Stats(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}
	stats.Status = "operational"

	resultData, _ := json.MarshalIndent(stats, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
