package tiling

import (
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

// NodeInfo is a serialisable view of a tree node.
type NodeInfo struct {
	Orientation string          `json:"orientation,omitempty"`
	Ratio       float64         `json:"ratio,omitempty"`
	Window      *windows.Handle `json:"window,omitempty"`
	Fullscreen  bool            `json:"fullscreen,omitempty"`
	Selected    bool            `json:"selected,omitempty"`
	Frame       *platform.Rect  `json:"frame,omitempty"`
	Children    []NodeInfo      `json:"children,omitempty"`
}

// Describe returns the tree of ws.
func (e *Engine) Describe(ws windows.WorkspaceID) (NodeInfo, bool) {
	t, ok := e.trees[ws]
	if !ok {
		return NodeInfo{}, false
	}
	return t.describe(t.root), true
}

func (t *tree) describe(id NodeID) NodeInfo {
	n := t.n(id)
	info := NodeInfo{Selected: id == t.selected}
	if n.hasFrame {
		f := n.frame
		info.Frame = &f
	}
	if n.kind == splitNode {
		info.Orientation = n.orientation.String()
		info.Ratio = n.ratio
		info.Children = []NodeInfo{t.describe(n.children[0]), t.describe(n.children[1])}
		return info
	}
	if !n.window.IsZero() {
		h := n.window
		info.Window = &h
	}
	info.Fullscreen = n.fullscreen
	return info
}
