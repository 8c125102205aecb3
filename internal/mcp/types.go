package mcp

import (
	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
)

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

// WorkspaceInput names the target workspace of a layout tool.
type WorkspaceInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Workspace name (default: workspace of the focused monitor)"`
}

// DirectionInput is the input for focus_direction, move_window and swap_window.
type DirectionInput struct {
	Direction string `json:"direction" jsonschema:"required,One of left, right, up, down"`
	Workspace string `json:"workspace,omitempty" jsonschema:"Workspace name (default: workspace of the focused monitor)"`
}

// ResizeInput is the input for resize_window.
type ResizeInput struct {
	Direction string  `json:"direction" jsonschema:"required,Edge to grow towards: left, right, up, down"`
	Delta     float64 `json:"delta,omitempty" jsonschema:"Split ratio step (default: 0.1)"`
	Workspace string  `json:"workspace,omitempty" jsonschema:"Workspace name (default: workspace of the focused monitor)"`
}

// PreselectInput is the input for preselect.
type PreselectInput struct {
	Direction string `json:"direction,omitempty" jsonschema:"Side of the selected window for the next insertion: left, right, up, down"`
	Clear     bool   `json:"clear,omitempty" jsonschema:"When true, cancel the pending preselection"`
	Workspace string `json:"workspace,omitempty" jsonschema:"Workspace name (default: workspace of the focused monitor)"`
}

// SummonWorkspaceInput is the input for summon_workspace.
type SummonWorkspaceInput struct {
	Name string `json:"name" jsonschema:"required,Workspace name"`
}

// MoveWorkspaceInput is the input for move_workspace_to_monitor.
type MoveWorkspaceInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Workspace name (default: workspace of the focused monitor)"`
	Monitor   string `json:"monitor,omitempty" jsonschema:"Monitor name, 1-based index, main, secondary or a pattern with * and ? (default: focused monitor)"`
}

// FocusMonitorInput is the input for focus_monitor.
type FocusMonitorInput struct {
	Direction string `json:"direction" jsonschema:"required,One of left, right, up, down"`
	Wrap      bool   `json:"wrap,omitempty" jsonschema:"Wrap around to the far monitor at the edge"`
}

// ActionOutput reports a command that returns no data.
type ActionOutput struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// WorkspaceSummary describes a single workspace.
type WorkspaceSummary struct {
	Name       string `json:"name"`
	Monitor    string `json:"monitor,omitempty"`
	Windows    int    `json:"windows"`
	Visible    bool   `json:"visible"`
	Persistent bool   `json:"persistent"`
}

// ListWorkspacesOutput is the output for list_workspaces.
type ListWorkspacesOutput struct {
	Workspaces []WorkspaceSummary `json:"workspaces"`
}

// MonitorSummary describes a single monitor.
type MonitorSummary struct {
	Name      string        `json:"name"`
	Frame     platform.Rect `json:"frame"`
	Visible   platform.Rect `json:"visible"`
	Workspace string        `json:"workspace,omitempty"`
	Focused   bool          `json:"focused"`
}

// ListMonitorsOutput is the output for list_monitors.
type ListMonitorsOutput struct {
	Monitors []MonitorSummary `json:"monitors"`
}

// SummonWorkspaceOutput is the output for summon_workspace.
type SummonWorkspaceOutput struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// FocusMonitorOutput is the output for focus_monitor.
type FocusMonitorOutput struct {
	Name  string        `json:"name"`
	Frame platform.Rect `json:"frame"`
}

func summarizeWorkspace(info ipc.WorkspaceInfo) WorkspaceSummary {
	return WorkspaceSummary{
		Name:       info.Name,
		Monitor:    info.Monitor,
		Windows:    info.Windows,
		Visible:    info.Visible,
		Persistent: info.Persistent,
	}
}

func summarizeMonitor(info ipc.MonitorInfo) MonitorSummary {
	return MonitorSummary{
		Name:      info.Name,
		Frame:     info.Frame,
		Visible:   info.Monitor.Visible,
		Workspace: info.Workspace,
		Focused:   info.Focused,
	}
}
