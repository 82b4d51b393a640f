package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ctrl SessionControl, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("liftlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("liftlog active-workout server. Read the running session's clock, rest timer and current set, and drive it: pause, resume, complete sets, pick the next exercise, skip rest."),
	)

	h := &handlers{ctrl: ctrl, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSessionState, Handler: h.getSessionState},
		server.ServerTool{Tool: toolPauseSession, Handler: h.pauseSession},
		server.ServerTool{Tool: toolResumeSession, Handler: h.resumeSession},
		server.ServerTool{Tool: toolCompleteSet, Handler: h.completeSet},
		server.ServerTool{Tool: toolSelectExercise, Handler: h.selectExercise},
		server.ServerTool{Tool: toolSkipRest, Handler: h.skipRest},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resSessionState, Handler: h.sessionState},
		server.ServerResource{Resource: resLiveStatus, Handler: h.liveStatus},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ctrl SessionControl
	log  *slog.Logger
}

// --- Resource definitions ---

var resSessionState = mcp.NewResource(
	"liftlog://session_state",
	"Session State",
	mcp.WithResourceDescription("The active workout session: elapsed time, pause and rest state, current set and per-exercise progress"),
	mcp.WithMIMEType("application/json"),
)

var resLiveStatus = mcp.NewResource(
	"liftlog://live_status",
	"Live Status",
	mcp.WithResourceDescription("Live status activities shown outside the app, including recently ended ones until they are dismissed"),
	mcp.WithMIMEType("application/json"),
)
