package tiling

import (
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

// NodeID indexes a node in its tree's arena.
type NodeID int32

const noNode NodeID = -1

type nodeKind uint8

const (
	leafNode nodeKind = iota
	splitNode
)

// node is either a split with exactly two children or a leaf holding at
// most one window. parent is a plain index; detaching clears it.
type node struct {
	kind   nodeKind
	parent NodeID
	live   bool

	// split
	children    [2]NodeID
	orientation platform.Orientation
	ratio       float64

	// leaf
	window     windows.Handle
	fullscreen bool

	// frame is the last computed rectangle: the gapped window rectangle for
	// leaves, the undivided area for splits.
	frame    platform.Rect
	hasFrame bool
}

// tree is the split tree of one workspace.
type tree struct {
	nodes []node
	free  []NodeID
	root  NodeID

	selected  NodeID
	preselect *platform.Direction

	screen    platform.Rect
	hasScreen bool

	settings Settings

	// settled is the last layout result per window; anims are the running
	// animations on top of it.
	settled map[windows.Handle]platform.Rect
	anims   map[windows.Handle]*animation
}

func newTree(s Settings) *tree {
	t := &tree{
		selected: noNode,
		settings: s,
		settled:  make(map[windows.Handle]platform.Rect),
		anims:    make(map[windows.Handle]*animation),
	}
	t.root = t.alloc(node{kind: leafNode})
	return t
}

func (t *tree) alloc(n node) NodeID {
	n.live = true
	if n.kind == leafNode {
		n.children = [2]NodeID{noNode, noNode}
	}
	n.parent = noNode
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *tree) release(id NodeID) {
	t.nodes[id] = node{parent: noNode, children: [2]NodeID{noNode, noNode}}
	t.free = append(t.free, id)
}

func (t *tree) n(id NodeID) *node {
	return &t.nodes[id]
}

func (t *tree) isLeaf(id NodeID) bool {
	return t.nodes[id].kind == leafNode
}

// empty reports whether the tree holds no window.
func (t *tree) empty() bool {
	r := t.n(t.root)
	return r.kind == leafNode && r.window.IsZero()
}

// firstLeaf descends along first children.
func (t *tree) firstLeaf(id NodeID) NodeID {
	for t.nodes[id].kind == splitNode {
		id = t.nodes[id].children[0]
	}
	return id
}

// leaves lists the leaves under id in depth-first order.
func (t *tree) leaves(id NodeID) []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(cur NodeID) {
		n := t.n(cur)
		if n.kind == leafNode {
			out = append(out, cur)
			return
		}
		walk(n.children[0])
		walk(n.children[1])
	}
	walk(id)
	return out
}

// splits lists the split nodes under id.
func (t *tree) splits(id NodeID) []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(cur NodeID) {
		n := t.n(cur)
		if n.kind == leafNode {
			return
		}
		out = append(out, cur)
		walk(n.children[0])
		walk(n.children[1])
	}
	walk(id)
	return out
}

func (t *tree) find(h windows.Handle) NodeID {
	for _, id := range t.leaves(t.root) {
		if t.nodes[id].window == h {
			return id
		}
	}
	return noNode
}

func (t *tree) windows() []windows.Handle {
	var out []windows.Handle
	for _, id := range t.leaves(t.root) {
		if w := t.nodes[id].window; !w.IsZero() {
			out = append(out, w)
		}
	}
	return out
}

// contains reports whether id lies in the subtree rooted at ancestor.
func (t *tree) contains(ancestor, id NodeID) bool {
	for cur := id; cur != noNode; cur = t.nodes[cur].parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// childIndex returns the slot of child under its parent.
func (t *tree) childIndex(child NodeID) int {
	p := t.nodes[child].parent
	if t.nodes[p].children[0] == child {
		return 0
	}
	return 1
}

func (t *tree) sibling(id NodeID) NodeID {
	p := t.nodes[id].parent
	if p == noNode {
		return noNode
	}
	return t.nodes[p].children[1-t.childIndex(id)]
}

// replace puts with into the slot occupied by old.
func (t *tree) replace(old, with NodeID) {
	p := t.nodes[old].parent
	t.nodes[with].parent = p
	if p == noNode {
		t.root = with
		return
	}
	t.nodes[p].children[t.childIndex(old)] = with
}

// split turns leaf target into a split holding target and a new leaf for h.
// It returns the new leaf.
func (t *tree) split(target NodeID, h windows.Handle, o platform.Orientation, newFirst bool) NodeID {
	leaf := t.alloc(node{kind: leafNode, window: h})
	s := t.alloc(node{kind: splitNode, orientation: o, ratio: t.settings.DefaultSplitRatio})
	if t.nodes[target].hasFrame {
		t.nodes[s].frame = t.nodes[target].frame
		t.nodes[s].hasFrame = true
	}
	t.replace(target, s)

	first, second := target, leaf
	if newFirst {
		first, second = leaf, target
	}
	t.nodes[s].children = [2]NodeID{first, second}
	t.nodes[first].parent = s
	t.nodes[second].parent = s
	return leaf
}

// detach removes leaf from the tree, promoting its sibling into the
// parent's slot. The root leaf is cleared instead. It returns the node now
// occupying the parent's position, or the root.
func (t *tree) detach(leaf NodeID) NodeID {
	n := t.n(leaf)
	n.window = windows.NoHandle
	n.fullscreen = false
	p := n.parent
	if p == noNode {
		n.hasFrame = false
		return leaf
	}

	sib := t.sibling(leaf)
	// Copy the sibling up so the parent keeps its position and identity.
	promoted := t.nodes[sib]
	promoted.parent = t.nodes[p].parent
	t.nodes[p] = promoted
	if promoted.kind == splitNode {
		for _, c := range promoted.children {
			t.nodes[c].parent = p
		}
	}
	t.release(sib)
	t.release(leaf)
	return p
}
