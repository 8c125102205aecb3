package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/dwindle/internal/ax"
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/tiling"
	"github.com/1broseidon/dwindle/internal/workspace"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandFocus             CommandType = "FOCUS"
	CommandMove              CommandType = "MOVE"
	CommandSwap              CommandType = "SWAP"
	CommandResize            CommandType = "RESIZE"
	CommandBalance           CommandType = "BALANCE"
	CommandToggleOrientation CommandType = "TOGGLE_ORIENTATION"
	CommandToggleFullscreen  CommandType = "TOGGLE_FULLSCREEN"
	CommandCycleRatio        CommandType = "CYCLE_RATIO"
	CommandMoveToRoot        CommandType = "MOVE_TO_ROOT"
	CommandPreselect         CommandType = "PRESELECT"

	CommandSummonWorkspace        CommandType = "SUMMON_WORKSPACE"
	CommandMoveWorkspaceToMonitor CommandType = "MOVE_WORKSPACE_TO_MONITOR"
	CommandFocusMonitor           CommandType = "FOCUS_MONITOR"

	CommandGetStatus      CommandType = "GET_STATUS"
	CommandListWorkspaces CommandType = "LIST_WORKSPACES"
	CommandListMonitors   CommandType = "LIST_MONITORS"
	CommandGetTree        CommandType = "GET_TREE"
	CommandReload         CommandType = "RELOAD"
)

// IsLayout reports whether c acts on the split tree of a workspace and
// takes a LayoutPayload.
func (c CommandType) IsLayout() bool {
	switch c {
	case CommandFocus, CommandMove, CommandSwap, CommandResize, CommandBalance,
		CommandToggleOrientation, CommandToggleFullscreen, CommandCycleRatio,
		CommandMoveToRoot, CommandPreselect:
		return true
	}
	return false
}

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// LayoutPayload parameterises the layout commands. Workspace defaults to
// the workspace of the focused monitor.
type LayoutPayload struct {
	Direction string  `json:"direction,omitempty"`
	Delta     float64 `json:"delta,omitempty"`
	Forward   bool    `json:"forward,omitempty"`
	Stable    bool    `json:"stable,omitempty"`
	// Clear cancels a pending preselection instead of setting one.
	Clear     bool   `json:"clear,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// ParseDirection validates the direction of the payload.
func (p LayoutPayload) ParseDirection() (platform.Direction, error) {
	return platform.ParseDirection(p.Direction)
}

type WorkspacePayload struct {
	Name    string `json:"name"`
	Monitor string `json:"monitor,omitempty"`
}

type MonitorPayload struct {
	Direction string `json:"direction"`
	Wrap      bool   `json:"wrap,omitempty"`
}

type TreePayload struct {
	Workspace string `json:"workspace,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	UptimeSeconds   int64            `json:"uptime_seconds"`
	Windows         int              `json:"windows"`
	Workspaces      int              `json:"workspaces"`
	Monitors        int              `json:"monitors"`
	FocusedMonitor  string           `json:"focused_monitor,omitempty"`
	FocusedWindow   string           `json:"focused_window,omitempty"`
	ActiveWorkspace string           `json:"active_workspace,omitempty"`
	Animating       bool             `json:"animating"`
	Sessions        []ax.SessionInfo `json:"sessions"`
	ConfigPath      string           `json:"config_path,omitempty"`
}

// WorkspaceInfo describes one workspace for LIST_WORKSPACES.
type WorkspaceInfo struct {
	workspace.Workspace
	Monitor string `json:"monitor,omitempty"`
	Windows int    `json:"windows"`
}

// MonitorInfo describes one monitor for LIST_MONITORS.
type MonitorInfo struct {
	workspace.Monitor
	Workspace string `json:"workspace,omitempty"`
	Focused   bool   `json:"focused"`
}

// TreeData is the split tree of one workspace.
type TreeData struct {
	Workspace string           `json:"workspace"`
	Root      *tiling.NodeInfo `json:"root,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
