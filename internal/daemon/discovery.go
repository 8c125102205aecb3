package daemon

import (
	"context"
	"sort"
	"sync"

	"github.com/1broseidon/dwindle/internal/ax"
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
	"github.com/1broseidon/dwindle/internal/workspace"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLists bounds the per-process enumeration goroutines of one
// discovery pass.
const maxConcurrentLists = 8

type procResult struct {
	session *ax.Session
	windows []ax.WindowRef
	ok      bool
}

// discoveryPass is everything one pass learned, gathered off the
// coordination goroutine.
type discoveryPass struct {
	displays   []platform.Display
	displaysOK bool
	procs      map[int]procResult
	focused    platform.WindowID
	hasFocus   bool
}

func (c *Controller) startDiscovery(ctx context.Context) {
	if c.discovering {
		c.rediscover = true
		return
	}
	c.discovering = true
	known := c.knownPIDs()
	go func() {
		pass := c.discover(ctx, known)
		select {
		case c.results <- pass:
		case <-ctx.Done():
		}
	}()
}

// knownPIDs lists the processes with tracked windows. They are queried
// even when the window server no longer lists them so that their windows
// can be dropped.
func (c *Controller) knownPIDs() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, e := range c.model.All() {
		if _, ok := seen[e.Key.PID]; ok {
			continue
		}
		seen[e.Key.PID] = struct{}{}
		out = append(out, e.Key.PID)
	}
	return out
}

// discover queries the window server and every candidate process. It runs
// off the coordination goroutine and touches no controller state.
func (c *Controller) discover(ctx context.Context, known []int) discoveryPass {
	pass := discoveryPass{procs: make(map[int]procResult)}

	if displays, err := c.backend.Displays(); err != nil {
		c.logger.Warn("failed to read displays", "error", err)
	} else {
		pass.displays, pass.displaysOK = displays, true
	}
	pass.focused, pass.hasFocus = c.backend.FocusedWindow()

	pids := make(map[int]struct{}, len(known))
	for _, pid := range known {
		pids[pid] = struct{}{}
	}
	infos, err := c.backend.EnumerateVisibleWindows()
	if err != nil {
		c.logger.Warn("failed to enumerate windows", "error", err)
	}
	for _, info := range infos {
		if info.PID > 0 {
			pids[info.PID] = struct{}{}
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLists)
	for pid := range pids {
		g.Go(func() error {
			var res procResult
			if s := c.registry.GetOrCreateSession(gctx, pid); s != nil {
				res.session = s
				res.windows, res.ok = c.registry.ListWindows(gctx, s)
			}
			mu.Lock()
			pass.procs[pid] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return pass
}

// applyDiscovery merges a pass into the model and lays everything out.
// Processes whose data was unavailable are left untouched.
func (c *Controller) applyDiscovery(pass discoveryPass) {
	if pass.displaysOK {
		c.setDisplays(pass.displays)
	}

	pids := make([]int, 0, len(pass.procs))
	for pid := range pass.procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	for _, pid := range pids {
		res := pass.procs[pid]
		if !res.ok {
			continue
		}
		c.sessions[pid] = res.session

		seen := make(map[platform.WindowID]struct{}, len(res.windows))
		for _, ref := range res.windows {
			seen[ref.ID] = struct{}{}
			key := windows.Key{PID: pid, WindowID: ref.ID}
			h, known := c.model.Lookup(key)
			if !known {
				ws := c.workspaceForNewWindow(ref.Frame)
				h, _ = c.model.Upsert(key, ws, windows.Tiling)
				c.logger.Debug("window discovered", "window", h.Short(), "pid", pid, "id", ref.ID, "app", ref.BundleID)
			}
			c.model.SetInfo(h, ref.BundleID, ref.Title)
		}
		for _, h := range c.model.SyncProcess(pid, seen) {
			c.forget(h)
		}
		if len(res.windows) == 0 {
			delete(c.sessions, pid)
		}
	}

	if pass.hasFocus {
		c.noteFocus(0, pass.focused)
	}
	c.subscribe()
	c.relayout()
}

// workspaceForNewWindow picks the active workspace of the monitor holding
// the window's centre, or of the focused monitor.
func (c *Controller) workspaceForNewWindow(frame platform.Rect) windows.WorkspaceID {
	mon, ok := c.spaces.MonitorAt(frame.Center())
	if !ok {
		if ws, ok := c.focusedWorkspace(); ok {
			return ws.ID
		}
		return 0
	}
	ws, ok := c.spaces.ActiveWorkspaceOrFirst(mon.ID)
	if !ok {
		return 0
	}
	return ws.ID
}

func (c *Controller) setDisplays(displays []platform.Display) {
	mons := make([]workspace.Monitor, 0, len(displays))
	for _, d := range displays {
		visible := d.Visible
		if visible.IsEmpty() {
			visible = d.Frame
		}
		mons = append(mons, workspace.Monitor{
			ID:      workspace.MonitorID(d.ID),
			Name:    d.Name,
			Frame:   d.Frame,
			Visible: visible,
		})
	}
	if sameMonitors(c.spaces.Monitors(), mons) {
		return
	}
	c.logger.Info("monitor topology changed", "monitors", len(mons))
	c.spaces.SetMonitors(mons)
	if _, ok := c.spaces.Monitor(c.focusedMonitor); !ok && len(mons) > 0 {
		c.focusedMonitor = c.spaces.Monitors()[0].ID
	}
	c.adoptOrphans()
}

func sameMonitors(a, b []workspace.Monitor) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[workspace.MonitorID]workspace.Monitor, len(a))
	for _, m := range a {
		index[m.ID] = m
	}
	for _, m := range b {
		if index[m.ID] != m {
			return false
		}
	}
	return true
}

// adoptOrphans assigns windows discovered while no monitor was connected.
func (c *Controller) adoptOrphans() {
	for _, e := range c.model.All() {
		if e.Workspace != 0 {
			continue
		}
		frame, ok := c.backend.WindowBounds(e.Key.WindowID)
		if !ok {
			continue
		}
		if ws := c.workspaceForNewWindow(frame); ws != 0 {
			c.model.SetWorkspace(e.Handle, ws)
		}
	}
}

// subscribe asks the window server for notifications about every newly
// tracked window.
func (c *Controller) subscribe() {
	tracked := make(map[platform.WindowID]struct{}, c.model.Len())
	var ids []platform.WindowID
	for _, e := range c.model.All() {
		tracked[e.Key.WindowID] = struct{}{}
		if _, ok := c.subscribed[e.Key.WindowID]; ok {
			continue
		}
		ids = append(ids, e.Key.WindowID)
	}
	for id := range c.subscribed {
		if _, ok := tracked[id]; !ok {
			delete(c.subscribed, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := c.backend.SubscribeWindowEvents(ids); err != nil {
		c.logger.Warn("failed to subscribe to window events", "count", len(ids), "error", err)
		return
	}
	for _, id := range ids {
		c.subscribed[id] = struct{}{}
	}
}

// forget drops every trace of a window that left the model.
func (c *Controller) forget(h windows.Handle) {
	c.engine.RemoveWindow(h)
	delete(c.settled, h)
	delete(c.pushed, h)
	if c.focused == h {
		c.focused = windows.NoHandle
	}
}
