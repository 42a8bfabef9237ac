// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes read-only admin tools over stdio, so an operator's LLM assistant
// can inspect the store without touching it.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mindadmin/internal/aggregate"
	"github.com/starford/mindadmin/internal/apperr"
	"github.com/starford/mindadmin/internal/export"
	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/store"
)

// Server wraps the MCP server with admin tools.
type Server struct {
	mcp    *server.MCPServer
	store  *store.Store
	stats  *aggregate.Aggregator
	export *export.Builder
}

// New creates a new MCP server with all tools registered.
func New(st *store.Store, stats *aggregate.Aggregator, exp *export.Builder) *Server {
	s := &Server{store: st, stats: stats, export: exp}

	s.mcp = server.NewMCPServer(
		"Mindscape Admin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("overview_stats",
		mcp.WithDescription("Totals for users, posts, and rooms plus the current feature flags."),
	), s.overviewStats)

	s.mcp.AddTool(mcp.NewTool("list_users",
		mcp.WithDescription("List user profiles. Passwords are never included."),
	), s.listUsers)

	s.mcp.AddTool(mcp.NewTool("posts_by_day",
		mcp.WithDescription("Daily post counts over a trailing window, UTC calendar dates."),
		mcp.WithNumber("window", mcp.Description("Window size in days (default 30)")),
	), s.postsByDay)

	s.mcp.AddTool(mcp.NewTool("heart_rate_summary",
		mcp.WithDescription("Mean, minimum, and maximum heart rate sampled across all users."),
	), s.heartRateSummary)

	s.mcp.AddTool(mcp.NewTool("user_report",
		mcp.WithDescription("CSV report of one user's posts and vital samples, ascending by timestamp."),
		mcp.WithString("email", mcp.Required(), mcp.Description("The user's email address")),
	), s.userReport)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) overviewStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flags := s.store.Settings()
	out, _ := json.MarshalIndent(map[string]any{
		"total_users":      len(s.store.Users()),
		"total_posts":      len(s.store.Posts()),
		"total_rooms":      len(s.store.Rooms()),
		"posting_enabled":  flags.PostingEnabled,
		"maintenance_mode": flags.MaintenanceMode,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users := s.store.Users()
	redacted := make([]models.User, len(users))
	for i, u := range users {
		redacted[i] = u.Redacted()
	}
	out, _ := json.MarshalIndent(redacted, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) postsByDay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	window := 30
	if n, err := req.RequireInt("window"); err == nil && n > 0 {
		window = n
	}
	days := s.stats.PostsByDay(time.Now(), window)
	out, _ := json.MarshalIndent(days, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) heartRateSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, ok := s.stats.HeartRateSummary()
	if !ok {
		return mcp.NewToolResultText("no heart rate data"), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) userReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.export.UserReport(email)
	if err != nil {
		if errors.Is(err, apperr.ErrNoData) {
			return mcp.NewToolResultText(fmt.Sprintf("no posts or vitals for %s", email)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
