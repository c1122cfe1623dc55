package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("TinyLifts", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("TinyLifts strength training logbook. Query exercises, per-exercise history, plateau detection and progression suggestions, session volume, and training stats. Weights are in kilograms."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetExerciseHistory, Handler: h.getExerciseHistory},
		server.ServerTool{Tool: toolGetProgression, Handler: h.getProgression},
		server.ServerTool{Tool: toolGetSessionVolume, Handler: h.getSessionVolume},
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
		server.ServerTool{Tool: toolGetStats, Handler: h.getStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resProgressionBoard, Handler: h.progressionBoard},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentSessions = mcp.NewResource(
	"tinylifts://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The ten most recent completed sessions with duration, volume and set counts"),
	mcp.WithMIMEType("application/json"),
)

var resProgressionBoard = mcp.NewResource(
	"tinylifts://progression",
	"Progression Board",
	mcp.WithResourceDescription("Plateau status and next-session suggestion for every exercise"),
	mcp.WithMIMEType("application/json"),
)
