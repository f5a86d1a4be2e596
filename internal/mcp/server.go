package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winsession/internal/ipc"
	"github.com/1broseidon/winsession/internal/wm"
)

const (
	ServerName    = "winsession"
	ServerVersion = "0.1.0"
)

// WindowService is the part of the window manager the tools drive.
type WindowService interface {
	ListWindowInfo(ctx context.Context) ([]ipc.WindowInfo, error)
	RequestFocus(ctx context.Context, id wm.WindowID) error
	MinimizeAllAppWindows(ctx context.Context, display wm.DisplayID) error
	ToggleShownStateForAllAppWindows(ctx context.Context) error
	NotifyScreenshotEvent(ctx context.Context, display wm.DisplayID) error
}

// Server exposes the window manager to MCP clients.
type Server struct {
	mcpServer *mcpsdk.Server
	svc       WindowService
	logger    *slog.Logger
}

// NewServer creates an MCP server over svc.
func NewServer(svc WindowService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		logger: logger.With("component", "mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the windows known to the window manager service with their type, mode, display, rectangle, visibility and focus. Sorted by window id.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Give input focus to a shown, focusable window and raise it.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "minimize_all",
		Description: "Minimize every shown application main window on a display. Sub-windows are hidden with their parent.",
	}, s.handleMinimizeAll)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_all_windows",
		Description: "Minimize all shown application windows, or restore the ones minimized by the previous toggle when none is shown.",
	}, s.handleToggleAll)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "notify_screenshot",
		Description: "Tell every shown window on a display that a screenshot was taken.",
	}, s.handleScreenshot)
}
