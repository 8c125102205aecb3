package tiling

import (
	"math"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

const (
	// neighborSlack is added to the inner gap when matching touching edges.
	neighborSlack = 5.0
	// minOverlapShare is the orthogonal overlap a neighbor needs, as a
	// share of the smaller extent.
	minOverlapShare = 0.1
)

// neighbor finds the leaf adjacent to src in dir, using the frames cached
// by the last layout pass.
func (t *tree) neighbor(src NodeID, dir platform.Direction) NodeID {
	s := t.n(src)
	if !s.hasFrame {
		return noNode
	}
	a := s.frame
	reach := t.settings.InnerGap + neighborSlack

	best := noNode
	bestOverlap := 0.0
	for _, id := range t.leaves(t.root) {
		if id == src {
			continue
		}
		c := t.n(id)
		if c.window.IsZero() || !c.hasFrame {
			continue
		}
		b := c.frame

		var dist, overlap, extent float64
		switch dir {
		case platform.Left:
			dist = a.MinX() - b.MaxX()
		case platform.Right:
			dist = b.MinX() - a.MaxX()
		case platform.Up:
			dist = a.MinY() - b.MaxY()
		case platform.Down:
			dist = b.MinY() - a.MaxY()
		}
		if math.Abs(dist) > reach {
			continue
		}
		if dir.Axis() == platform.Horizontal {
			overlap = min(a.MaxY(), b.MaxY()) - max(a.MinY(), b.MinY())
			extent = min(a.Height, b.Height)
		} else {
			overlap = min(a.MaxX(), b.MaxX()) - max(a.MinX(), b.MinX())
			extent = min(a.Width, b.Width)
		}
		if overlap <= 0 || overlap < minOverlapShare*extent {
			continue
		}
		if overlap > bestOverlap {
			best, bestOverlap = id, overlap
		}
	}
	return best
}

// FindGeometricNeighbor returns the window next to the selected window of
// ws in dir.
func (e *Engine) FindGeometricNeighbor(ws windows.WorkspaceID, dir platform.Direction) (windows.Handle, bool) {
	t, ok := e.trees[ws]
	if !ok {
		return windows.NoHandle, false
	}
	src, ok := t.selectedLeaf()
	if !ok {
		return windows.NoHandle, false
	}
	id := t.neighbor(src, dir)
	if id == noNode {
		return windows.NoHandle, false
	}
	return t.nodes[id].window, true
}

// MoveFocus selects the neighbor of the selected window.
func (e *Engine) MoveFocus(ws windows.WorkspaceID, dir platform.Direction) (windows.Handle, bool) {
	h, ok := e.FindGeometricNeighbor(ws, dir)
	if !ok {
		return windows.NoHandle, false
	}
	e.Select(h)
	return h, true
}

// SwapWindows exchanges the selected window with its neighbor in dir. The
// tree shape is unchanged and the selection follows the window.
func (e *Engine) SwapWindows(ws windows.WorkspaceID, dir platform.Direction) bool {
	t, ok := e.trees[ws]
	if !ok {
		return false
	}
	src, ok := t.selectedLeaf()
	if !ok {
		return false
	}
	dst := t.neighbor(src, dir)
	if dst == noNode {
		return false
	}
	a, b := t.n(src), t.n(dst)
	a.window, b.window = b.window, a.window
	a.frame, b.frame = b.frame, a.frame
	a.hasFrame, b.hasFrame = b.hasFrame, a.hasFrame
	t.selected = dst
	return true
}

// MoveWindow takes the selected window out of the tree and re-inserts it
// beside its neighbor in dir, on the side dir points to.
func (e *Engine) MoveWindow(ws windows.WorkspaceID, dir platform.Direction) bool {
	t, ok := e.trees[ws]
	if !ok {
		return false
	}
	src, ok := t.selectedLeaf()
	if !ok {
		return false
	}
	dst := t.neighbor(src, dir)
	if dst == noNode {
		return false
	}

	moved := t.nodes[src].window
	target := t.nodes[dst].window
	t.detach(src)

	// Detaching may have promoted the target into its parent's slot.
	leaf := t.find(target)
	if leaf == noNode {
		return false
	}
	t.selected = t.split(leaf, moved, dir.Axis(), !dir.IsPositive())
	return true
}
