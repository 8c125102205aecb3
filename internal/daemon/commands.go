package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
	"github.com/1broseidon/dwindle/internal/workspace"
)

// DefaultResizeDelta is the ratio step used when a resize asks for none.
const DefaultResizeDelta = 0.1

var (
	ErrNoSelection = errors.New("no selected window")
	ErrNoNeighbor  = errors.New("no window in that direction")
	ErrNoMonitor   = errors.New("no monitor")
)

var _ ipc.Controller = (*Controller)(nil)

func (c *Controller) Status(ctx context.Context) (ipc.StatusData, error) {
	return call(ctx, c, func() (ipc.StatusData, error) {
		st := ipc.StatusData{
			UptimeSeconds: int64(c.now().Sub(c.started) / time.Second),
			Windows:       c.model.Len(),
			Workspaces:    len(c.spaces.Workspaces()),
			Monitors:      len(c.spaces.Monitors()),
			Animating:     c.engine.HasAnimations(),
			Sessions:      c.registry.Sessions(),
			ConfigPath:    c.configPath,
		}
		if mon, ok := c.spaces.Monitor(c.focusedMonitor); ok {
			st.FocusedMonitor = mon.Name
		}
		if ws, ok := c.focusedWorkspace(); ok {
			st.ActiveWorkspace = ws.Name
		}
		if !c.focused.IsZero() {
			st.FocusedWindow = c.focused.Short()
		}
		return st, nil
	})
}

func (c *Controller) Workspaces(ctx context.Context) ([]ipc.WorkspaceInfo, error) {
	return call(ctx, c, func() ([]ipc.WorkspaceInfo, error) {
		list := c.spaces.Workspaces()
		out := make([]ipc.WorkspaceInfo, 0, len(list))
		for _, ws := range list {
			info := ipc.WorkspaceInfo{Workspace: ws, Windows: len(c.model.Windows(ws.ID))}
			if mon, ok := c.spaces.MonitorForWorkspace(ws.ID); ok {
				info.Monitor = mon.Name
			}
			out = append(out, info)
		}
		return out, nil
	})
}

func (c *Controller) Monitors(ctx context.Context) ([]ipc.MonitorInfo, error) {
	return call(ctx, c, func() ([]ipc.MonitorInfo, error) {
		mons := c.spaces.Monitors()
		out := make([]ipc.MonitorInfo, 0, len(mons))
		for _, mon := range mons {
			info := ipc.MonitorInfo{Monitor: mon, Focused: mon.ID == c.focusedMonitor}
			if ws, ok := c.spaces.ActiveWorkspace(mon.ID); ok {
				info.Workspace = ws.Name
			}
			out = append(out, info)
		}
		return out, nil
	})
}

func (c *Controller) Tree(ctx context.Context, name string) (ipc.TreeData, error) {
	return call(ctx, c, func() (ipc.TreeData, error) {
		ws, err := c.resolveWorkspace(name)
		if err != nil {
			return ipc.TreeData{}, err
		}
		out := ipc.TreeData{Workspace: ws.Name}
		if root, ok := c.engine.Describe(ws.ID); ok {
			out.Root = &root
		}
		return out, nil
	})
}

// resolveWorkspace finds an existing workspace by name; the empty name
// means the workspace of the focused monitor.
func (c *Controller) resolveWorkspace(name string) (workspace.Workspace, error) {
	if name == "" {
		ws, ok := c.focusedWorkspace()
		if !ok {
			return workspace.Workspace{}, ErrNoMonitor
		}
		return ws, nil
	}
	id, ok := c.spaces.WorkspaceID(name, false)
	if !ok {
		return workspace.Workspace{}, fmt.Errorf("unknown workspace %q", name)
	}
	ws, _ := c.spaces.Workspace(id)
	return ws, nil
}

// Layout runs one of the split tree commands against a workspace.
func (c *Controller) Layout(ctx context.Context, cmd ipc.CommandType, p ipc.LayoutPayload) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		return struct{}{}, c.layout(cmd, p)
	})
	return err
}

func (c *Controller) layout(cmd ipc.CommandType, p ipc.LayoutPayload) error {
	ws, err := c.resolveWorkspace(p.Workspace)
	if err != nil {
		return err
	}
	direction := func() (platform.Direction, error) {
		return p.ParseDirection()
	}

	var ok bool
	switch cmd {
	case ipc.CommandFocus:
		dir, err := direction()
		if err != nil {
			return err
		}
		h, found := c.engine.MoveFocus(ws.ID, dir)
		if !found {
			// Fall through to the next monitor in that direction.
			if _, err := c.focusMonitor(dir, false); err != nil {
				return ErrNoNeighbor
			}
			return nil
		}
		c.focusWindow(h)
		return nil
	case ipc.CommandMove:
		dir, err := direction()
		if err != nil {
			return err
		}
		ok = c.engine.MoveWindow(ws.ID, dir)
	case ipc.CommandSwap:
		dir, err := direction()
		if err != nil {
			return err
		}
		ok = c.engine.SwapWindows(ws.ID, dir)
	case ipc.CommandResize:
		dir, err := direction()
		if err != nil {
			return err
		}
		delta := p.Delta
		if delta == 0 {
			delta = DefaultResizeDelta
		}
		ok = c.engine.ResizeSelected(ws.ID, dir, delta)
	case ipc.CommandBalance:
		ok = c.engine.BalanceSizes(ws.ID)
	case ipc.CommandToggleOrientation:
		ok = c.engine.ToggleOrientation(ws.ID)
	case ipc.CommandToggleFullscreen:
		ok = c.engine.ToggleFullscreen(ws.ID)
	case ipc.CommandCycleRatio:
		ok = c.engine.CycleSplitRatio(ws.ID, p.Forward)
	case ipc.CommandMoveToRoot:
		ok = c.engine.MoveSelectionToRoot(ws.ID, p.Stable)
	case ipc.CommandPreselect:
		if p.Clear {
			c.engine.ClearPreselection(ws.ID)
			return nil
		}
		dir, err := direction()
		if err != nil {
			return err
		}
		c.engine.Preselect(ws.ID, dir)
		return nil
	default:
		return fmt.Errorf("unknown layout command %s", cmd)
	}

	if !ok {
		switch cmd {
		case ipc.CommandMove, ipc.CommandSwap:
			return ErrNoNeighbor
		case ipc.CommandBalance:
			// Balancing an already balanced or empty tree is fine.
			return nil
		}
		return ErrNoSelection
	}
	c.relayout()
	return nil
}

// focusWindow gives h input focus.
func (c *Controller) focusWindow(h windows.Handle) {
	e, ok := c.model.Entry(h)
	if !ok {
		return
	}
	if err := c.backend.FocusWindow(e.Key.WindowID); err != nil {
		c.logger.Debug("focus failed", "window", h.Short(), "error", err)
	}
	c.noteFocus(e.Key.PID, e.Key.WindowID)
}

// SummonWorkspace shows the named workspace on the focused monitor,
// creating it if needed.
func (c *Controller) SummonWorkspace(ctx context.Context, name string) (workspace.Workspace, error) {
	if _, err := workspace.ParseName(name); err != nil {
		return workspace.Workspace{}, err
	}
	return call(ctx, c, func() (workspace.Workspace, error) {
		if _, ok := c.focusedWorkspace(); !ok {
			return workspace.Workspace{}, ErrNoMonitor
		}
		ws, ok := c.spaces.SummonWorkspace(name, c.focusedMonitor)
		if !ok {
			return workspace.Workspace{}, fmt.Errorf("workspace %q is pinned to another monitor", name)
		}
		c.relayout()
		c.focusSelected(ws.ID)
		return ws, nil
	})
}

// MoveWorkspaceToMonitor shows the named workspace on the monitor matched
// by monitor (a name or pattern; empty means the focused monitor).
func (c *Controller) MoveWorkspaceToMonitor(ctx context.Context, name, monitor string) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		ws, err := c.resolveWorkspace(name)
		if err != nil {
			return struct{}{}, err
		}
		target, ok := c.spaces.Monitor(c.focusedMonitor)
		if monitor != "" {
			target, ok = c.spaces.FindMonitor(monitor)
		}
		if !ok {
			return struct{}{}, fmt.Errorf("unknown monitor %q", monitor)
		}
		if !c.spaces.MoveWorkspaceToMonitor(ws.ID, target.ID) {
			return struct{}{}, fmt.Errorf("workspace %q cannot move to monitor %q", ws.Name, target.Name)
		}
		c.relayout()
		return struct{}{}, nil
	})
	return err
}

// FocusMonitor moves focus to the monitor next to the focused one.
func (c *Controller) FocusMonitor(ctx context.Context, p ipc.MonitorPayload) (workspace.Monitor, error) {
	dir, err := platform.ParseDirection(p.Direction)
	if err != nil {
		return workspace.Monitor{}, err
	}
	return call(ctx, c, func() (workspace.Monitor, error) {
		return c.focusMonitor(dir, p.Wrap)
	})
}

func (c *Controller) focusMonitor(dir platform.Direction, wrap bool) (workspace.Monitor, error) {
	if _, ok := c.focusedWorkspace(); !ok {
		return workspace.Monitor{}, ErrNoMonitor
	}
	mon, ok := c.spaces.AdjacentMonitor(c.focusedMonitor, dir, wrap)
	if !ok {
		return workspace.Monitor{}, fmt.Errorf("no monitor %s of the focused one", dir)
	}
	c.focusedMonitor = mon.ID
	if ws, ok := c.spaces.ActiveWorkspaceOrFirst(mon.ID); ok {
		c.focusSelected(ws.ID)
	}
	return mon, nil
}

// focusSelected focuses the selected window of ws, if it has one.
func (c *Controller) focusSelected(ws windows.WorkspaceID) {
	if h, ok := c.engine.Selected(ws); ok {
		c.focusWindow(h)
	}
}
