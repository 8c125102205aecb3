package daemon

import (
	"context"
	"sort"

	"github.com/1broseidon/dwindle/internal/windows"
)

// Maintain drops the windows of processes that no longer exist, forgets
// dead sessions and collects unused workspaces.
func (c *Controller) Maintain(ctx context.Context) (MaintenanceReport, error) {
	return call(ctx, c, func() (MaintenanceReport, error) {
		var report MaintenanceReport

		pids := make([]int, 0, len(c.sessions))
		for pid, s := range c.sessions {
			if !s.Alive() {
				pids = append(pids, pid)
			}
		}
		sort.Ints(pids)
		for _, pid := range pids {
			delete(c.sessions, pid)
			report.Sessions++
		}

		for _, pid := range c.knownPIDs() {
			if c.exists(pid) {
				continue
			}
			c.registry.ProcessTerminated(pid)
			delete(c.sessions, pid)
			for _, h := range c.model.RemoveProcess(pid) {
				c.forget(h)
				report.Windows++
			}
		}

		var focused windows.WorkspaceID
		if ws, ok := c.focusedWorkspace(); ok {
			focused = ws.ID
		}
		ids := make(map[string]windows.WorkspaceID)
		for _, ws := range c.spaces.Workspaces() {
			ids[ws.Name] = ws.ID
		}
		report.Workspaces = c.spaces.GarbageCollectUnusedWorkspaces(focused)
		for _, name := range report.Workspaces {
			c.engine.RemoveWorkspace(ids[name])
		}

		if report.Windows > 0 {
			c.relayout()
		}
		return report, nil
	})
}
