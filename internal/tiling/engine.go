// Package tiling implements the dwindle layout: one binary split tree per
// workspace, turned into gapped window rectangles, with directional
// navigation, tree mutations and animated transitions.
package tiling

import (
	"math"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

// Engine owns the split trees of all workspaces. It is not safe for
// concurrent use.
type Engine struct {
	trees    map[windows.WorkspaceID]*tree
	where    map[windows.Handle]windows.WorkspaceID
	defaults Settings
	settings map[windows.WorkspaceID]Settings

	activeRef    platform.Rect
	hasActiveRef bool

	now func() time.Time
}

func NewEngine(defaults Settings) *Engine {
	return &Engine{
		trees:    make(map[windows.WorkspaceID]*tree),
		where:    make(map[windows.Handle]windows.WorkspaceID),
		defaults: defaults.normalized(),
		settings: make(map[windows.WorkspaceID]Settings),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for animations started by
// CalculateLayout.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetDefaultSettings changes the settings of workspaces without their own.
func (e *Engine) SetDefaultSettings(s Settings) {
	e.defaults = s.normalized()
	for ws, t := range e.trees {
		if _, own := e.settings[ws]; !own {
			t.settings = e.defaults
		}
	}
}

// SetSettings overrides the settings of one workspace.
func (e *Engine) SetSettings(ws windows.WorkspaceID, s Settings) {
	s = s.normalized()
	e.settings[ws] = s
	if t, ok := e.trees[ws]; ok {
		t.settings = s
	}
}

// Settings returns the effective settings of ws.
func (e *Engine) Settings(ws windows.WorkspaceID) Settings {
	if s, ok := e.settings[ws]; ok {
		return s
	}
	return e.defaults
}

// SetActiveReference records the frame of the active window, used by the
// smart split heuristic.
func (e *Engine) SetActiveReference(r platform.Rect) {
	e.activeRef = r
	e.hasActiveRef = !r.IsEmpty()
}

func (e *Engine) tree(ws windows.WorkspaceID) *tree {
	t, ok := e.trees[ws]
	if !ok {
		t = newTree(e.Settings(ws))
		e.trees[ws] = t
	}
	return t
}

// Contains reports whether h is in any tree.
func (e *Engine) Contains(h windows.Handle) bool {
	_, ok := e.where[h]
	return ok
}

// WorkspaceOf returns the workspace whose tree holds h.
func (e *Engine) WorkspaceOf(h windows.Handle) (windows.WorkspaceID, bool) {
	ws, ok := e.where[h]
	return ws, ok
}

// Windows lists the windows of ws in depth-first order.
func (e *Engine) Windows(ws windows.WorkspaceID) []windows.Handle {
	t, ok := e.trees[ws]
	if !ok {
		return nil
	}
	return t.windows()
}

// AddWindow inserts h into the tree of ws. A window already tiled in
// another workspace is moved. It returns false if h is already in ws.
func (e *Engine) AddWindow(ws windows.WorkspaceID, h windows.Handle) bool {
	if h.IsZero() {
		return false
	}
	if cur, ok := e.where[h]; ok {
		if cur == ws {
			return false
		}
		e.RemoveWindow(h)
	}

	t := e.tree(ws)
	e.where[h] = ws
	if t.empty() {
		t.n(t.root).window = h
		t.selected = t.root
		return true
	}

	target := t.selected
	if target == noNode || !t.nodes[target].live || !t.isLeaf(target) {
		target = t.firstLeaf(t.root)
	}

	o, newFirst := e.placement(t, target)
	t.selected = t.split(target, h, o, newFirst)
	return true
}

// placement picks the split orientation for inserting next to target and
// whether the new window goes first.
func (e *Engine) placement(t *tree, target NodeID) (platform.Orientation, bool) {
	if t.preselect != nil {
		dir := *t.preselect
		t.preselect = nil
		return dir.Axis(), !dir.IsPositive()
	}

	area, known := t.nodes[target].frame, t.nodes[target].hasFrame
	if !known {
		area, known = t.screen, t.hasScreen
	}
	known = known && !area.IsEmpty()

	if t.settings.SmartSplit && known && e.hasActiveRef {
		from, to := area.Center(), e.activeRef.Center()
		dx, dy := to.X-from.X, to.Y-from.Y
		if dx != 0 || dy != 0 {
			slope := math.Inf(1)
			if dx != 0 {
				slope = math.Abs(dy / dx)
			}
			// Compare against the target's own diagonal; a tie goes side by side.
			if slope <= area.Height/area.Width {
				return platform.Horizontal, dx < 0
			}
			return platform.Vertical, dy < 0
		}
	}

	if !known {
		return platform.Horizontal, false
	}
	if area.Height*t.settings.SplitWidthMultiplier >= area.Width {
		return platform.Vertical, false
	}
	return platform.Horizontal, false
}

// RemoveWindow detaches h from its tree. The sibling subtree takes the
// parent's place.
func (e *Engine) RemoveWindow(h windows.Handle) bool {
	ws, ok := e.where[h]
	if !ok {
		return false
	}
	delete(e.where, h)

	t := e.trees[ws]
	leaf := t.find(h)
	delete(t.settled, h)
	delete(t.anims, h)
	if leaf == noNode {
		return true
	}

	sib := t.sibling(leaf)
	wasSelected := t.selected == leaf || t.selected == sib
	at := t.detach(leaf)
	switch {
	case t.empty():
		t.selected = noNode
	case wasSelected:
		t.selected = t.firstLeaf(at)
	}
	return true
}

// SyncWindows makes the tree of ws hold exactly handles. focused, when
// tiled in ws, is selected before new windows are inserted so they split
// it. It returns the windows that were removed.
func (e *Engine) SyncWindows(ws windows.WorkspaceID, handles []windows.Handle, focused windows.Handle) map[windows.Handle]struct{} {
	want := make(map[windows.Handle]struct{}, len(handles))
	for _, h := range handles {
		want[h] = struct{}{}
	}

	removed := make(map[windows.Handle]struct{})
	if t, ok := e.trees[ws]; ok {
		for _, h := range t.windows() {
			if _, keep := want[h]; !keep {
				e.RemoveWindow(h)
				removed[h] = struct{}{}
			}
		}
	}

	if cur, ok := e.where[focused]; ok && cur == ws {
		if _, keep := want[focused]; keep {
			e.Select(focused)
		}
	}
	for _, h := range handles {
		if cur, ok := e.where[h]; !ok || cur != ws {
			e.AddWindow(ws, h)
		}
	}
	return removed
}

// Select makes h the selected window of its workspace.
func (e *Engine) Select(h windows.Handle) bool {
	ws, ok := e.where[h]
	if !ok {
		return false
	}
	t := e.trees[ws]
	leaf := t.find(h)
	if leaf == noNode {
		return false
	}
	t.selected = leaf
	return true
}

// Selected returns the selected window of ws.
func (e *Engine) Selected(ws windows.WorkspaceID) (windows.Handle, bool) {
	t, ok := e.trees[ws]
	if !ok {
		return windows.NoHandle, false
	}
	leaf, ok := t.selectedLeaf()
	if !ok {
		return windows.NoHandle, false
	}
	return t.nodes[leaf].window, true
}

// selectedLeaf returns the selected leaf if it holds a window.
func (t *tree) selectedLeaf() (NodeID, bool) {
	id := t.selected
	if id == noNode || !t.nodes[id].live || !t.isLeaf(id) || t.nodes[id].window.IsZero() {
		return noNode, false
	}
	return id, true
}

// Preselect fixes the side the next inserted window of ws goes to.
func (e *Engine) Preselect(ws windows.WorkspaceID, dir platform.Direction) {
	d := dir
	e.tree(ws).preselect = &d
}

func (e *Engine) ClearPreselection(ws windows.WorkspaceID) {
	if t, ok := e.trees[ws]; ok {
		t.preselect = nil
	}
}

// Preselection returns the pending preselection of ws.
func (e *Engine) Preselection(ws windows.WorkspaceID) (platform.Direction, bool) {
	t, ok := e.trees[ws]
	if !ok || t.preselect == nil {
		return 0, false
	}
	return *t.preselect, true
}

// RemoveWorkspace drops the tree of ws and forgets its windows.
func (e *Engine) RemoveWorkspace(ws windows.WorkspaceID) {
	t, ok := e.trees[ws]
	if !ok {
		return
	}
	for _, h := range t.windows() {
		delete(e.where, h)
	}
	delete(e.trees, ws)
	delete(e.settings, ws)
}
