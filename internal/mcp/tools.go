package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
)

func textResult(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
	}
}

// jsonResult renders v as indented JSON text. Used for outputs whose types
// have no finite JSON schema, such as the recursive split tree.
func jsonResult(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return textResult(string(data)), nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, any, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, nil, err
	}
	res, err := jsonResult(st)
	return res, nil, err
}

func (s *Server) handleListWorkspaces(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ListWorkspacesOutput, error) {
	list, err := s.daemon.ListWorkspaces()
	if err != nil {
		return nil, ListWorkspacesOutput{}, err
	}
	out := ListWorkspacesOutput{Workspaces: make([]WorkspaceSummary, 0, len(list))}
	for _, info := range list {
		out.Workspaces = append(out.Workspaces, summarizeWorkspace(info))
	}
	return nil, out, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	list, err := s.daemon.ListMonitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, err
	}
	out := ListMonitorsOutput{Monitors: make([]MonitorSummary, 0, len(list))}
	for _, info := range list {
		out.Monitors = append(out.Monitors, summarizeMonitor(info))
	}
	return nil, out, nil
}

func (s *Server) handleGetTree(_ context.Context, _ *mcpsdk.CallToolRequest, args WorkspaceInput) (*mcpsdk.CallToolResult, any, error) {
	tree, err := s.daemon.GetTree(strings.TrimSpace(args.Workspace))
	if err != nil {
		return nil, nil, err
	}
	res, err := jsonResult(tree)
	return res, nil, err
}

// directional builds the handler of a layout command that only needs a
// direction.
func (s *Server) directional(cmd ipc.CommandType) func(context.Context, *mcpsdk.CallToolRequest, DirectionInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, args DirectionInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
		dir, err := platform.ParseDirection(args.Direction)
		if err != nil {
			return nil, ActionOutput{}, err
		}
		return s.layout(cmd, ipc.LayoutPayload{Direction: dir.String(), Workspace: args.Workspace})
	}
}

// simple builds the handler of a layout command without arguments.
func (s *Server) simple(cmd ipc.CommandType) func(context.Context, *mcpsdk.CallToolRequest, WorkspaceInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, args WorkspaceInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
		return s.layout(cmd, ipc.LayoutPayload{Workspace: args.Workspace})
	}
}

func (s *Server) handleResize(_ context.Context, _ *mcpsdk.CallToolRequest, args ResizeInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	dir, err := platform.ParseDirection(args.Direction)
	if err != nil {
		return nil, ActionOutput{}, err
	}
	if args.Delta < 0 || args.Delta >= 1 {
		return nil, ActionOutput{}, fmt.Errorf("delta must be in [0, 1), got %g", args.Delta)
	}
	return s.layout(ipc.CommandResize, ipc.LayoutPayload{Direction: dir.String(), Delta: args.Delta, Workspace: args.Workspace})
}

func (s *Server) handlePreselect(_ context.Context, _ *mcpsdk.CallToolRequest, args PreselectInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	p := ipc.LayoutPayload{Clear: args.Clear, Workspace: args.Workspace}
	if !args.Clear {
		dir, err := platform.ParseDirection(args.Direction)
		if err != nil {
			return nil, ActionOutput{}, err
		}
		p.Direction = dir.String()
	}
	return s.layout(ipc.CommandPreselect, p)
}

func (s *Server) layout(cmd ipc.CommandType, p ipc.LayoutPayload) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.daemon.Layout(cmd, p); err != nil {
		s.logger.Debug("mcp layout command failed", "command", cmd, "error", err)
		return nil, ActionOutput{}, err
	}
	msg := strings.ToLower(string(cmd))
	if p.Direction != "" {
		msg += " " + p.Direction
	}
	out := ActionOutput{OK: true, Message: msg}
	return textResult(msg), out, nil
}

func (s *Server) handleSummonWorkspace(_ context.Context, _ *mcpsdk.CallToolRequest, args SummonWorkspaceInput) (*mcpsdk.CallToolResult, SummonWorkspaceOutput, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return nil, SummonWorkspaceOutput{}, fmt.Errorf("name is required")
	}
	existed := false
	if list, err := s.daemon.ListWorkspaces(); err == nil {
		for _, info := range list {
			if info.Name == name {
				existed = true
				break
			}
		}
	}
	ws, err := s.daemon.SummonWorkspace(name)
	if err != nil {
		return nil, SummonWorkspaceOutput{}, err
	}
	return nil, SummonWorkspaceOutput{Name: ws.Name, Created: !existed}, nil
}

func (s *Server) handleMoveWorkspaceToMonitor(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWorkspaceInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.daemon.MoveWorkspaceToMonitor(strings.TrimSpace(args.Workspace), strings.TrimSpace(args.Monitor)); err != nil {
		return nil, ActionOutput{}, err
	}
	msg := "workspace moved"
	return textResult(msg), ActionOutput{OK: true, Message: msg}, nil
}

func (s *Server) handleFocusMonitor(_ context.Context, _ *mcpsdk.CallToolRequest, args FocusMonitorInput) (*mcpsdk.CallToolResult, FocusMonitorOutput, error) {
	dir, err := platform.ParseDirection(args.Direction)
	if err != nil {
		return nil, FocusMonitorOutput{}, err
	}
	mon, err := s.daemon.FocusMonitor(dir.String(), args.Wrap)
	if err != nil {
		return nil, FocusMonitorOutput{}, err
	}
	return nil, FocusMonitorOutput{Name: mon.Name, Frame: mon.Frame}, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ActionOutput{}, err
	}
	msg := "configuration reloaded"
	return textResult(msg), ActionOutput{OK: true, Message: msg}, nil
}
