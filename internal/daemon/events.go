package daemon

import (
	"context"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

func (c *Controller) handleEvent(ctx context.Context, ev platform.Event) {
	c.logger.Debug("window event", "kind", ev.Kind, "pid", ev.PID, "id", ev.WindowID)

	switch ev.Kind {
	case platform.EventWindowClosed:
		h, ok := c.lookup(ev.PID, ev.WindowID)
		if !ok {
			return
		}
		c.model.Remove(h)
		c.forget(h)
		c.relayout()

	case platform.EventProcessTerminated:
		c.registry.ProcessTerminated(ev.PID)
		delete(c.sessions, ev.PID)
		removed := c.model.RemoveProcess(ev.PID)
		for _, h := range removed {
			c.forget(h)
		}
		if len(removed) > 0 {
			c.logger.Info("process terminated", "pid", ev.PID, "windows", len(removed))
			c.relayout()
		}

	case platform.EventFocusChanged:
		c.noteFocus(ev.PID, ev.WindowID)

	case platform.EventWindowMoved:
		c.reassert(ev)

	case platform.EventTitleChanged:
		// Titles only matter to status output; the next pass refreshes them.

	case platform.EventDisplaysChanged:
		c.startDiscovery(ctx)
	}
}

// lookup finds a tracked window by native identity. A zero pid matches any
// process.
func (c *Controller) lookup(pid int, id platform.WindowID) (windows.Handle, bool) {
	if pid > 0 {
		return c.model.Lookup(windows.Key{PID: pid, WindowID: id})
	}
	for _, e := range c.model.All() {
		if e.Key.WindowID == id {
			return e.Handle, true
		}
	}
	return windows.NoHandle, false
}

// noteFocus records the focused window, selects it in its tree and makes
// its monitor the focused one.
func (c *Controller) noteFocus(pid int, id platform.WindowID) {
	h, ok := c.lookup(pid, id)
	if !ok || h == c.focused {
		return
	}
	c.focused = h
	c.engine.Select(h)
	if r, ok := c.settled[h]; ok {
		c.engine.SetActiveReference(r)
	}
	e, _ := c.model.Entry(h)
	if mon, ok := c.spaces.MonitorForWorkspace(e.Workspace); ok {
		c.focusedMonitor = mon.ID
	}
}

// reassert puts a tiled window back when something else moved it. Moves
// that match the pushed frame are echoes of our own requests.
func (c *Controller) reassert(ev platform.Event) {
	if c.engine.HasAnimations() {
		return
	}
	h, ok := c.lookup(ev.PID, ev.WindowID)
	if !ok {
		return
	}
	want, ok := c.settled[h]
	if !ok || ev.Frame.IsEmpty() || ev.Frame.ApproxEqual(want.Rounded(), 1) {
		return
	}
	delete(c.pushed, h)
	c.flush(c.now())
}
