// Package workspace maps named workspaces onto monitors.
//
// Each monitor shows exactly one workspace; a workspace is shown on at most
// one monitor. Monitors are keyed by their anchor point (top-left corner) so
// that assignments survive reconnects that renumber outputs.
package workspace

import (
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
	"github.com/google/uuid"
)

// maxStubSearch bounds the integer name search for stub workspaces.
const maxStubSearch = 1000

// Content reports whether a workspace holds windows.
type Content interface {
	HasWindows(ws windows.WorkspaceID) bool
}

// Workspace is a snapshot of one workspace.
type Workspace struct {
	ID   windows.WorkspaceID `json:"id"`
	Name string              `json:"name"`
	// Anchor is the last monitor anchor the workspace was shown on.
	Anchor     *platform.Point `json:"anchor,omitempty"`
	Visible    bool            `json:"visible"`
	Persistent bool            `json:"persistent"`
}

type workspace struct {
	id     windows.WorkspaceID
	name   string
	anchor *platform.Point
}

// Manager owns the workspace namespace and the visibility bijection. It is
// not safe for concurrent use.
type Manager struct {
	logger   *slog.Logger
	content  Content
	settings Settings

	nextID     windows.WorkspaceID
	workspaces map[windows.WorkspaceID]*workspace
	byName     map[string]windows.WorkspaceID

	monitors []Monitor // sorted by x, then y

	visible     map[platform.Point]windows.WorkspaceID
	visibleInv  map[windows.WorkspaceID]platform.Point
	prevVisible map[platform.Point]windows.WorkspaceID
}

func NewManager(content Content, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		logger:      logger,
		content:     content,
		workspaces:  make(map[windows.WorkspaceID]*workspace),
		byName:      make(map[string]windows.WorkspaceID),
		visible:     make(map[platform.Point]windows.WorkspaceID),
		visibleInv:  make(map[windows.WorkspaceID]platform.Point),
		prevVisible: make(map[platform.Point]windows.WorkspaceID),
	}
}

// WorkspaceID looks a workspace up by exact name, creating it when create
// is set. Invalid names yield false.
func (m *Manager) WorkspaceID(name string, create bool) (windows.WorkspaceID, bool) {
	parsed, err := ParseName(name)
	if err != nil {
		return 0, false
	}
	if id, ok := m.byName[parsed]; ok {
		return id, true
	}
	if !create {
		return 0, false
	}
	return m.create(parsed), true
}

func (m *Manager) create(name string) windows.WorkspaceID {
	m.nextID++
	id := m.nextID
	m.workspaces[id] = &workspace{id: id, name: name}
	m.byName[name] = id
	m.logger.Debug("workspace created", "workspace", name, "id", id)
	return id
}

// Workspace returns a snapshot of id.
func (m *Manager) Workspace(id windows.WorkspaceID) (Workspace, bool) {
	ws, ok := m.workspaces[id]
	if !ok {
		return Workspace{}, false
	}
	return m.snapshot(ws), true
}

func (m *Manager) snapshot(ws *workspace) Workspace {
	out := Workspace{
		ID:         ws.id,
		Name:       ws.name,
		Persistent: m.settings.isPersistent(ws.name),
	}
	if ws.anchor != nil {
		a := *ws.anchor
		out.Anchor = &a
	}
	_, out.Visible = m.visibleInv[ws.id]
	return out
}

// Workspaces lists all workspaces in logical name order.
func (m *Manager) Workspaces() []Workspace {
	out := make([]Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		out = append(out, m.snapshot(ws))
	}
	sort.Slice(out, func(i, j int) bool { return CompareNames(out[i].Name, out[j].Name) < 0 })
	return out
}

// Monitors returns the connected monitors ordered left to right.
func (m *Manager) Monitors() []Monitor {
	return append([]Monitor(nil), m.monitors...)
}

func (m *Manager) Monitor(id MonitorID) (Monitor, bool) {
	for _, mon := range m.monitors {
		if mon.ID == id {
			return mon, true
		}
	}
	return Monitor{}, false
}

func (m *Manager) monitorAt(anchor platform.Point) (Monitor, bool) {
	for _, mon := range m.monitors {
		if mon.Anchor() == anchor {
			return mon, true
		}
	}
	return Monitor{}, false
}

// MonitorAt returns the monitor containing p, or the one whose centre is
// nearest.
func (m *Manager) MonitorAt(p platform.Point) (Monitor, bool) {
	var (
		best  Monitor
		dist  float64
		found bool
	)
	for _, mon := range m.monitors {
		if mon.Frame.Contains(p) {
			return mon, true
		}
		d := mon.Frame.Center().DistanceSquared(p)
		if !found || d < dist {
			best, dist, found = mon, d, true
		}
	}
	return best, found
}

// FindMonitor resolves a monitor by exact name, falling back to a monitor
// pattern ("main", "secondary", a 1-based position or a name regex).
func (m *Manager) FindMonitor(pattern string) (Monitor, bool) {
	for _, mon := range m.monitors {
		if strings.EqualFold(mon.Name, strings.TrimSpace(pattern)) {
			return mon, true
		}
	}
	p, err := ParseMonitorPattern(pattern)
	if err != nil {
		return Monitor{}, false
	}
	return p.match(m.monitors)
}

// MonitorForWorkspace returns the monitor currently showing id.
func (m *Manager) MonitorForWorkspace(id windows.WorkspaceID) (Monitor, bool) {
	anchor, ok := m.visibleInv[id]
	if !ok {
		return Monitor{}, false
	}
	return m.monitorAt(anchor)
}

func (m *Manager) IsVisible(id windows.WorkspaceID) bool {
	_, ok := m.visibleInv[id]
	return ok
}

// ForceAssignedMonitor resolves the monitor a workspace name is pinned to.
func (m *Manager) ForceAssignedMonitor(name string) (Monitor, bool) {
	for _, p := range m.settings.patterns(name) {
		if mon, ok := p.match(m.monitors); ok {
			return mon, true
		}
	}
	return Monitor{}, false
}

// forcedElsewhere reports whether ws is pinned to a monitor other than mon.
func (m *Manager) forcedElsewhere(ws *workspace, mon Monitor) bool {
	forced, ok := m.ForceAssignedMonitor(ws.name)
	return ok && forced.ID != mon.ID
}

// ActiveWorkspace returns the workspace shown on mon.
func (m *Manager) ActiveWorkspace(mon MonitorID) (Workspace, bool) {
	monitor, ok := m.Monitor(mon)
	if !ok {
		return Workspace{}, false
	}
	id, ok := m.visible[monitor.Anchor()]
	if !ok {
		return Workspace{}, false
	}
	return m.snapshot(m.workspaces[id]), true
}

// ActiveWorkspaceOrFirst is ActiveWorkspace, but materialises a workspace
// when the monitor shows none. It only fails for unknown monitors.
func (m *Manager) ActiveWorkspaceOrFirst(mon MonitorID) (Workspace, bool) {
	if ws, ok := m.ActiveWorkspace(mon); ok {
		return ws, true
	}
	monitor, ok := m.Monitor(mon)
	if !ok {
		return Workspace{}, false
	}
	id := m.stubFor(monitor)
	m.show(monitor.Anchor(), id)
	return m.snapshot(m.workspaces[id]), true
}

// stubFor picks the workspace to fill an empty monitor.
func (m *Manager) stubFor(mon Monitor) windows.WorkspaceID {
	anchor := mon.Anchor()
	usable := func(ws *workspace) bool {
		return !m.IsVisible(ws.id) && !m.forcedElsewhere(ws, mon)
	}

	// Workspaces pinned to this monitor always win.
	for _, fa := range m.settings.Forced {
		id, ok := m.byName[fa.Workspace]
		if !ok || m.IsVisible(id) {
			continue
		}
		if forced, ok := m.ForceAssignedMonitor(fa.Workspace); ok && forced.ID == mon.ID {
			return id
		}
	}

	if id, ok := m.prevVisible[anchor]; ok {
		if ws, ok := m.workspaces[id]; ok && usable(ws) {
			return id
		}
	}

	for _, ws := range m.orderedWorkspaces() {
		if ws.anchor != nil && *ws.anchor == anchor && usable(ws) {
			return ws.id
		}
	}

	for i := 1; i <= maxStubSearch; i++ {
		name := strconv.Itoa(i)
		if _, taken := m.byName[name]; taken {
			continue
		}
		if _, forced := m.ForceAssignedMonitor(name); forced {
			// Would land on its pinned monitor instead.
			continue
		}
		return m.create(name)
	}

	for {
		name := "ws-" + uuid.NewString()[:8]
		if _, taken := m.byName[name]; !taken {
			m.logger.Warn("workspace name search exhausted", "fallback", name)
			return m.create(name)
		}
	}
}

func (m *Manager) orderedWorkspaces() []*workspace {
	list := make([]*workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		list = append(list, ws)
	}
	sort.Slice(list, func(i, j int) bool { return CompareNames(list[i].name, list[j].name) < 0 })
	return list
}

// show makes id the visible workspace at anchor. A workspace it displaces
// becomes the previously visible one for that anchor.
func (m *Manager) show(anchor platform.Point, id windows.WorkspaceID) {
	if old, ok := m.visibleInv[id]; ok {
		if old == anchor {
			return
		}
		delete(m.visible, old)
	}
	if cur, ok := m.visible[anchor]; ok && cur != id {
		delete(m.visibleInv, cur)
		m.prevVisible[anchor] = cur
	}
	m.visible[anchor] = id
	m.visibleInv[id] = anchor
	a := anchor
	m.workspaces[id].anchor = &a
}

func (m *Manager) hide(id windows.WorkspaceID) {
	anchor, ok := m.visibleInv[id]
	if !ok {
		return
	}
	delete(m.visibleInv, id)
	delete(m.visible, anchor)
	m.prevVisible[anchor] = id
}

// MoveWorkspaceToMonitor shows id on target. If target already shows a
// workspace and id is visible elsewhere, the two swap places. Forced
// assignments of either workspace are never violated; such calls fail
// without side effects.
func (m *Manager) MoveWorkspaceToMonitor(id windows.WorkspaceID, target MonitorID) bool {
	ws, ok := m.workspaces[id]
	if !ok {
		return false
	}
	dst, ok := m.Monitor(target)
	if !ok || m.forcedElsewhere(ws, dst) {
		return false
	}
	dstAnchor := dst.Anchor()
	srcAnchor, wasVisible := m.visibleInv[id]
	if wasVisible && srcAnchor == dstAnchor {
		return true
	}

	other, occupied := m.visible[dstAnchor]
	if occupied {
		ows := m.workspaces[other]
		if wasVisible {
			src, ok := m.monitorAt(srcAnchor)
			if !ok || m.forcedElsewhere(ows, src) {
				return false
			}
		} else if forced, ok := m.ForceAssignedMonitor(ows.name); ok && forced.ID == dst.ID {
			return false
		}
	}

	if wasVisible && occupied {
		m.visible[srcAnchor] = other
		m.visibleInv[other] = srcAnchor
		sa := srcAnchor
		m.workspaces[other].anchor = &sa
		m.visible[dstAnchor] = id
		m.visibleInv[id] = dstAnchor
		da := dstAnchor
		ws.anchor = &da
		return true
	}

	m.show(dstAnchor, id)
	if wasVisible {
		// The source monitor lost its workspace.
		if src, ok := m.monitorAt(srcAnchor); ok {
			m.ActiveWorkspaceOrFirst(src.ID)
		}
	}
	return true
}

// SummonWorkspace brings the named workspace onto the focused monitor,
// creating it if needed. A workspace visible on another monitor swaps
// places with the focused monitor's workspace.
func (m *Manager) SummonWorkspace(name string, focused MonitorID) (Workspace, bool) {
	mon, ok := m.Monitor(focused)
	if !ok {
		return Workspace{}, false
	}
	id, ok := m.WorkspaceID(name, true)
	if !ok {
		return Workspace{}, false
	}
	if !m.MoveWorkspaceToMonitor(id, mon.ID) {
		return Workspace{}, false
	}
	return m.snapshot(m.workspaces[id]), true
}

// AdjacentMonitor finds the monitor next to from in dir, wrapping around to
// the far side when wrap is set.
func (m *Manager) AdjacentMonitor(from MonitorID, dir platform.Direction, wrap bool) (Monitor, bool) {
	src, ok := m.Monitor(from)
	if !ok {
		return Monitor{}, false
	}
	return adjacent(m.monitors, src, dir, wrap)
}

// SetMonitors installs a new monitor topology. Visible workspaces follow
// their monitor: every new anchor is paired with the nearest unused old
// anchor. Workspaces on unpaired anchors become hidden.
func (m *Manager) SetMonitors(monitors []Monitor) {
	sorted := append([]Monitor(nil), monitors...)
	sortMonitors(sorted)

	oldAnchors := make([]platform.Point, 0, len(m.visible))
	for a := range m.visible {
		oldAnchors = append(oldAnchors, a)
	}
	sort.Slice(oldAnchors, func(i, j int) bool {
		if oldAnchors[i].X != oldAnchors[j].X {
			return oldAnchors[i].X < oldAnchors[j].X
		}
		return oldAnchors[i].Y < oldAnchors[j].Y
	})

	used := make([]bool, len(oldAnchors))
	visible := make(map[platform.Point]windows.WorkspaceID, len(sorted))
	prev := make(map[platform.Point]windows.WorkspaceID, len(sorted))
	for _, mon := range sorted {
		anchor := mon.Anchor()
		best := -1
		var bestDist float64
		for i, old := range oldAnchors {
			if used[i] {
				continue
			}
			if d := anchor.DistanceSquared(old); best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			if id, ok := m.prevVisible[anchor]; ok {
				prev[anchor] = id
			}
			continue
		}
		used[best] = true
		old := oldAnchors[best]
		visible[anchor] = m.visible[old]
		if id, ok := m.prevVisible[old]; ok {
			prev[anchor] = id
		}
	}

	for i, old := range oldAnchors {
		if !used[i] {
			m.logger.Debug("monitor anchor dropped", "x", old.X, "y", old.Y, "workspace", m.visible[old])
		}
	}

	m.monitors = sorted
	m.visible = visible
	m.prevVisible = prev
	m.visibleInv = make(map[windows.WorkspaceID]platform.Point, len(visible))
	for anchor, id := range visible {
		m.visibleInv[id] = anchor
		a := anchor
		m.workspaces[id].anchor = &a
	}

	m.reconcile()
}

// ApplySettings installs a settings snapshot and reconciles. Idempotent.
func (m *Manager) ApplySettings(s Settings) {
	m.settings = s
	m.reconcile()
}

func (m *Manager) reconcile() {
	for _, name := range m.settings.Persistent {
		m.WorkspaceID(name, true)
	}
	for _, fa := range m.settings.Forced {
		m.WorkspaceID(fa.Workspace, true)
	}

	// Pull pinned workspaces off monitors they do not belong to.
	for _, fa := range m.settings.Forced {
		id := m.byName[fa.Workspace]
		mon, ok := m.MonitorForWorkspace(id)
		if ok && m.forcedElsewhere(m.workspaces[id], mon) {
			m.logger.Debug("unpinning workspace from monitor", "workspace", fa.Workspace, "monitor", mon.Name)
			m.hide(id)
		}
	}

	for _, mon := range m.monitors {
		m.ActiveWorkspaceOrFirst(mon.ID)
	}
}

// GarbageCollectUnusedWorkspaces deletes every workspace that is not
// persistent, not visible, not focused and holds no windows. It returns the
// deleted names.
func (m *Manager) GarbageCollectUnusedWorkspaces(focused windows.WorkspaceID) []string {
	var removed []string
	for _, ws := range m.orderedWorkspaces() {
		if ws.id == focused || m.IsVisible(ws.id) || m.settings.isPersistent(ws.name) {
			continue
		}
		if m.content != nil && m.content.HasWindows(ws.id) {
			continue
		}
		delete(m.workspaces, ws.id)
		delete(m.byName, ws.name)
		for anchor, id := range m.prevVisible {
			if id == ws.id {
				delete(m.prevVisible, anchor)
			}
		}
		removed = append(removed, ws.name)
	}
	if len(removed) > 0 {
		m.logger.Debug("workspaces collected", "names", removed)
	}
	return removed
}
