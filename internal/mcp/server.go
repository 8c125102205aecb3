package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/workspace"
)

const (
	ServerName    = "dwindle"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools forward to.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListWorkspaces() ([]ipc.WorkspaceInfo, error)
	ListMonitors() ([]ipc.MonitorInfo, error)
	GetTree(ws string) (*ipc.TreeData, error)
	Layout(command ipc.CommandType, p ipc.LayoutPayload) error
	SummonWorkspace(name string) (*workspace.Workspace, error)
	MoveWorkspaceToMonitor(name, monitor string) error
	FocusMonitor(direction string, wrap bool) (*workspace.Monitor, error)
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

// Server exposes the daemon's control surface as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
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
		Name:        "get_status",
		Description: "Report daemon status: tracked windows, workspaces, monitors, the focused monitor and workspace, and live accessibility sessions.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_workspaces",
		Description: "List every workspace with its window count and the monitor showing it, if any.",
	}, s.handleListWorkspaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List connected monitors with their frames and the workspace each one shows.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_tree",
		Description: "Return the split tree of a workspace (default: the workspace of the focused monitor).",
	}, s.handleGetTree)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_direction",
		Description: "Focus the nearest window in a direction (left, right, up, down). Crosses to the next monitor when the workspace has no window there.",
	}, s.directional(ipc.CommandFocus))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move the selected window towards a direction, re-inserting it next to its neighbor.",
	}, s.directional(ipc.CommandMove))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "swap_window",
		Description: "Swap the selected window with its neighbor in a direction.",
	}, s.directional(ipc.CommandSwap))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_window",
		Description: "Grow the selected window towards a direction by delta (a split ratio step, default 0.1).",
	}, s.handleResize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "balance_workspace",
		Description: "Reset every split ratio of a workspace so windows share space evenly.",
	}, s.simple(ipc.CommandBalance))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_orientation",
		Description: "Flip the split containing the selected window between side-by-side and stacked.",
	}, s.simple(ipc.CommandToggleOrientation))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_fullscreen",
		Description: "Toggle the selected window between its tile and the whole workspace area.",
	}, s.simple(ipc.CommandToggleFullscreen))

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "preselect",
		Description: "Choose where the next new window is inserted relative to the selected one, or clear the choice.",
	}, s.handlePreselect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "summon_workspace",
		Description: "Show a workspace on the focused monitor, creating it when it does not exist. A workspace visible on another monitor swaps places.",
	}, s.handleSummonWorkspace)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_workspace_to_monitor",
		Description: "Show a workspace on a monitor, matched by name, index or wildcard pattern.",
	}, s.handleMoveWorkspaceToMonitor)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_monitor",
		Description: "Move focus to the monitor next to the focused one.",
	}, s.handleFocusMonitor)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Reread the daemon's configuration file.",
	}, s.handleReload)
}
