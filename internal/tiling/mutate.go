package tiling

import (
	"math"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

// ratioPresets are the first-child shares CycleSplitRatio steps through.
var ratioPresets = []float64{0.3, 0.5, 0.7}

func (e *Engine) selectedIn(ws windows.WorkspaceID) (*tree, NodeID, bool) {
	t, ok := e.trees[ws]
	if !ok {
		return nil, noNode, false
	}
	leaf, ok := t.selectedLeaf()
	return t, leaf, ok
}

// ToggleOrientation flips the split holding the selected window.
func (e *Engine) ToggleOrientation(ws windows.WorkspaceID) bool {
	t, leaf, ok := e.selectedIn(ws)
	if !ok {
		return false
	}
	p := t.nodes[leaf].parent
	if p == noNode {
		return false
	}
	t.nodes[p].orientation = t.nodes[p].orientation.Flip()
	return true
}

// ToggleFullscreen switches the selected window between its tiled
// rectangle and the whole tiling area.
func (e *Engine) ToggleFullscreen(ws windows.WorkspaceID) bool {
	t, leaf, ok := e.selectedIn(ws)
	if !ok {
		return false
	}
	n := t.n(leaf)
	n.fullscreen = !n.fullscreen
	return true
}

// IsFullscreen reports whether h is marked fullscreen.
func (e *Engine) IsFullscreen(h windows.Handle) bool {
	ws, ok := e.where[h]
	if !ok {
		return false
	}
	t := e.trees[ws]
	leaf := t.find(h)
	return leaf != noNode && t.nodes[leaf].fullscreen
}

// ResizeSelected moves the nearest boundary of the selected window on the
// axis of dir by delta (in ratio units), growing the window towards dir.
func (e *Engine) ResizeSelected(ws windows.WorkspaceID, dir platform.Direction, delta float64) bool {
	t, leaf, ok := e.selectedIn(ws)
	if !ok || delta == 0 {
		return false
	}

	child := leaf
	for p := t.nodes[leaf].parent; p != noNode; child, p = p, t.nodes[p].parent {
		split := t.n(p)
		if split.orientation != dir.Axis() {
			continue
		}
		inFirst := split.children[0] == child
		// grow: the boundary moves away from the selected side.
		grow := inFirst == dir.IsPositive()
		var change float64
		switch {
		case inFirst && grow:
			change = delta
		case inFirst:
			change = -delta
		case grow:
			change = -delta
		default:
			change = delta
		}
		split.ratio = clampRatio(split.ratio + change)
		return true
	}
	return false
}

// BalanceSizes resets every split ratio of ws to even halves.
func (e *Engine) BalanceSizes(ws windows.WorkspaceID) bool {
	t, ok := e.trees[ws]
	if !ok || t.isLeaf(t.root) {
		return false
	}
	for _, id := range t.splits(t.root) {
		t.nodes[id].ratio = 1.0
	}
	return true
}

// CycleSplitRatio steps the split holding the selected window to the next
// (or previous) preset share, wrapping around.
func (e *Engine) CycleSplitRatio(ws windows.WorkspaceID, forward bool) bool {
	t, leaf, ok := e.selectedIn(ws)
	if !ok {
		return false
	}
	p := t.nodes[leaf].parent
	if p == noNode {
		return false
	}

	fraction := splitFraction(t.nodes[p].ratio)
	nearest := 0
	for i, preset := range ratioPresets {
		if math.Abs(preset-fraction) < math.Abs(ratioPresets[nearest]-fraction) {
			nearest = i
		}
	}
	step := 1
	if !forward {
		step = len(ratioPresets) - 1
	}
	next := (nearest + step) % len(ratioPresets)
	t.nodes[p].ratio = 2 * ratioPresets[next]
	return true
}

// MoveSelectionToRoot makes the selected window a direct child of the root
// by swapping it with the root child that does not contain it. In stable
// mode the window ends up as the root's first child.
func (e *Engine) MoveSelectionToRoot(ws windows.WorkspaceID, stable bool) bool {
	t, leaf, ok := e.selectedIn(ws)
	if !ok || t.isLeaf(t.root) {
		return false
	}
	root := t.n(t.root)

	if t.nodes[leaf].parent != t.root {
		other := root.children[0]
		if t.contains(other, leaf) {
			other = root.children[1]
		}
		// Swap the slots of leaf and other.
		lp, li := t.nodes[leaf].parent, t.childIndex(leaf)
		oi := t.childIndex(other)
		t.nodes[lp].children[li] = other
		t.nodes[other].parent = lp
		root.children[oi] = leaf
		t.nodes[leaf].parent = t.root
	}

	if stable && root.children[0] != leaf {
		root.children[0], root.children[1] = root.children[1], root.children[0]
	}
	return true
}
