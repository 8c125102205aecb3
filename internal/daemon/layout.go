package daemon

import (
	"sort"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
	"github.com/1broseidon/dwindle/internal/workspace"
)

// pushTolerance is the distance below which a frame is not re-sent.
const pushTolerance = 0.5

// relayout lays out the visible workspace of every monitor, parks the
// windows of hidden workspaces and pushes whatever changed.
func (c *Controller) relayout() {
	settled := make(map[windows.Handle]platform.Rect)
	shown := make(map[windows.WorkspaceID]workspace.Monitor)

	for _, mon := range c.spaces.Monitors() {
		ws, ok := c.spaces.ActiveWorkspaceOrFirst(mon.ID)
		if !ok {
			continue
		}
		shown[ws.ID] = mon
		c.engine.SetSettings(ws.ID, c.cfg.ResolvedFor(mon.Name).TilingSettings())
		c.engine.SyncWindows(ws.ID, c.model.TilingWindows(ws.ID), c.focused)
		for h, r := range c.engine.CalculateLayout(ws.ID, mon.Visible) {
			settled[h] = r
		}
	}

	for _, e := range c.model.All() {
		if mon, ok := shown[e.Workspace]; ok {
			c.unpark(e, mon, settled)
		} else {
			c.park(e)
		}
	}

	c.settled = settled
	c.flush(c.now())
}

// park moves a window of a hidden workspace into the bottom-right corner of
// its monitor, remembering where it was relative to that monitor.
func (c *Controller) park(e windows.Entry) {
	if e.Exception == windows.ExceptionHidden || e.Workspace == 0 {
		return
	}
	frame, ok := c.pushed[e.Handle]
	if !ok {
		if frame, ok = c.backend.WindowBounds(e.Key.WindowID); !ok {
			return
		}
	}
	mon, ok := c.homeMonitor(e.Workspace, frame)
	if !ok {
		return
	}

	rel := platform.Point{
		X: (frame.X - mon.Frame.X) / mon.Frame.Width,
		Y: (frame.Y - mon.Frame.Y) / mon.Frame.Height,
	}
	c.model.SetHiddenPosition(e.Handle, &rel)
	c.model.SetException(e.Handle, windows.ExceptionHidden)
	delete(c.pushed, e.Handle)

	corner := platform.Point{X: mon.Frame.MaxX() - 1, Y: mon.Frame.MaxY() - 1}
	if !c.backend.MoveWindow(e.Key.WindowID, corner) {
		c.logger.Debug("failed to park window", "window", e.Handle.Short())
	}
}

// unpark brings a parked window back. Windows the layout does not place
// return to their remembered relative position on mon.
func (c *Controller) unpark(e windows.Entry, mon workspace.Monitor, settled map[windows.Handle]platform.Rect) {
	if e.Exception != windows.ExceptionHidden {
		return
	}
	c.model.SetException(e.Handle, windows.ExceptionNone)
	c.model.SetHiddenPosition(e.Handle, nil)
	if _, placed := settled[e.Handle]; placed || e.HiddenPosition == nil {
		return
	}
	origin := platform.Point{
		X: mon.Frame.X + e.HiddenPosition.X*mon.Frame.Width,
		Y: mon.Frame.Y + e.HiddenPosition.Y*mon.Frame.Height,
	}
	c.backend.MoveWindow(e.Key.WindowID, origin)
}

// homeMonitor is the monitor a workspace was last shown on, or the one
// holding frame.
func (c *Controller) homeMonitor(ws windows.WorkspaceID, frame platform.Rect) (workspace.Monitor, bool) {
	if w, ok := c.spaces.Workspace(ws); ok && w.Anchor != nil {
		if mon, ok := c.spaces.MonitorAt(*w.Anchor); ok {
			return mon, true
		}
	}
	return c.spaces.MonitorAt(frame.Center())
}

// flush sends the frames at time now that differ from what was last sent.
// Frames go through the accessibility session of their process; processes
// without one fall back to the window server's batch move.
func (c *Controller) flush(now time.Time) {
	frames := c.engine.CalculateAnimatedFrames(c.settled, now)

	byPID := make(map[int][]platform.FrameRequest)
	for h, r := range frames {
		r = r.Rounded()
		if prev, ok := c.pushed[h]; ok && prev.ApproxEqual(r, pushTolerance) {
			continue
		}
		e, ok := c.model.Entry(h)
		if !ok {
			continue
		}
		c.pushed[h] = r
		byPID[e.Key.PID] = append(byPID[e.Key.PID], platform.FrameRequest{ID: e.Key.WindowID, Frame: r})
	}

	pids := make([]int, 0, len(byPID))
	for pid := range byPID {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	for _, pid := range pids {
		reqs := byPID[pid]
		sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
		if s := c.sessions[pid]; s != nil && s.Alive() {
			c.registry.SetFrames(s, reqs)
			continue
		}
		if err := c.backend.MoveResizeBatch(reqs); err != nil {
			c.logger.Debug("batch move failed", "pid", pid, "count", len(reqs), "error", err)
		}
	}
}
