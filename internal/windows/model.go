// Package windows is the table of tracked windows: one entry per
// (process, native window id) pair, each assigned to exactly one workspace.
package windows

import (
	"sort"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/google/uuid"
)

// Handle identifies a tracked window for as long as its native window
// lives.
type Handle uuid.UUID

// NoHandle is the zero handle.
var NoHandle Handle

func NewHandle() Handle {
	return Handle(uuid.New())
}

func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// Short is the first eight hex digits, for logs and status output.
func (h Handle) Short() string {
	return h.String()[:8]
}

func (h Handle) IsZero() bool {
	return h == NoHandle
}

// ParseHandle accepts the String form of a handle.
func ParseHandle(s string) (Handle, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoHandle, err
	}
	return Handle(u), nil
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(b []byte) error {
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// WorkspaceID identifies a workspace. Zero means unassigned.
type WorkspaceID uint32

// Key is the native identity of a window.
type Key struct {
	PID      int
	WindowID platform.WindowID
}

// LayoutException marks windows that are tracked but not laid out normally.
type LayoutException int

const (
	ExceptionNone LayoutException = iota
	// ExceptionHidden windows are parked off-screen because their
	// workspace is not visible.
	ExceptionHidden
	ExceptionMinimized
)

func (e LayoutException) String() string {
	switch e {
	case ExceptionHidden:
		return "hidden"
	case ExceptionMinimized:
		return "minimized"
	default:
		return "none"
	}
}

// ContainerKind is the kind of container holding a window.
type ContainerKind int

const (
	Tiling ContainerKind = iota
	Floating
)

func (k ContainerKind) String() string {
	if k == Floating {
		return "floating"
	}
	return "tiling"
}

// Entry is one tracked window.
type Entry struct {
	Handle    Handle
	Key       Key
	Workspace WorkspaceID
	BundleID  string
	Title     string
	// HiddenPosition is the window's origin relative to its monitor,
	// as fractions of the monitor size, recorded when it is parked.
	HiddenPosition *platform.Point
	Exception      LayoutException
	Parent         ContainerKind
	PrevParent     ContainerKind

	seq uint64
}

// Model is not safe for concurrent use; it belongs to the coordination
// goroutine.
type Model struct {
	entries map[Handle]*Entry
	byKey   map[Key]Handle
	seq     uint64
}

func NewModel() *Model {
	return &Model{
		entries: make(map[Handle]*Entry),
		byKey:   make(map[Key]Handle),
	}
}

// Upsert returns the handle for key, creating an entry in ws with the given
// container kind on first sighting. Existing entries keep their workspace
// and container.
func (m *Model) Upsert(key Key, ws WorkspaceID, kind ContainerKind) (Handle, bool) {
	if h, ok := m.byKey[key]; ok {
		return h, false
	}
	m.seq++
	h := NewHandle()
	m.entries[h] = &Entry{
		Handle:     h,
		Key:        key,
		Workspace:  ws,
		Parent:     kind,
		PrevParent: kind,
		seq:        m.seq,
	}
	m.byKey[key] = h
	return h, true
}

// SetInfo updates descriptive attributes.
func (m *Model) SetInfo(h Handle, bundleID, title string) bool {
	e, ok := m.entries[h]
	if !ok {
		return false
	}
	e.BundleID = bundleID
	e.Title = title
	return true
}

func (m *Model) Remove(h Handle) bool {
	e, ok := m.entries[h]
	if !ok {
		return false
	}
	delete(m.byKey, e.Key)
	delete(m.entries, h)
	return true
}

func (m *Model) RemoveKey(key Key) (Handle, bool) {
	h, ok := m.byKey[key]
	if !ok {
		return NoHandle, false
	}
	m.Remove(h)
	return h, true
}

// SyncProcess applies a full rescan of pid: entries of pid whose native id
// is not in seen are removed and returned.
func (m *Model) SyncProcess(pid int, seen map[platform.WindowID]struct{}) []Handle {
	var removed []*Entry
	for _, e := range m.entries {
		if e.Key.PID != pid {
			continue
		}
		if _, ok := seen[e.Key.WindowID]; !ok {
			removed = append(removed, e)
		}
	}
	return m.drop(removed)
}

// RemoveProcess drops every entry of pid.
func (m *Model) RemoveProcess(pid int) []Handle {
	var removed []*Entry
	for _, e := range m.entries {
		if e.Key.PID == pid {
			removed = append(removed, e)
		}
	}
	return m.drop(removed)
}

func (m *Model) drop(entries []*Entry) []Handle {
	sortEntries(entries)
	out := make([]Handle, 0, len(entries))
	for _, e := range entries {
		m.Remove(e.Handle)
		out = append(out, e.Handle)
	}
	return out
}

// Entry returns a copy of the entry for h.
func (m *Model) Entry(h Handle) (Entry, bool) {
	e, ok := m.entries[h]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (m *Model) Lookup(key Key) (Handle, bool) {
	h, ok := m.byKey[key]
	return h, ok
}

func (m *Model) SetWorkspace(h Handle, ws WorkspaceID) bool {
	e, ok := m.entries[h]
	if !ok {
		return false
	}
	e.Workspace = ws
	return true
}

// SetContainer moves h into a container of the given kind, remembering the
// previous one.
func (m *Model) SetContainer(h Handle, kind ContainerKind) bool {
	e, ok := m.entries[h]
	if !ok {
		return false
	}
	e.PrevParent = e.Parent
	e.Parent = kind
	return true
}

// SetHiddenPosition records (or clears, with nil) the parked position.
func (m *Model) SetHiddenPosition(h Handle, p *platform.Point) bool {
	e, ok := m.entries[h]
	if !ok {
		return false
	}
	if p != nil {
		cp := *p
		p = &cp
	}
	e.HiddenPosition = p
	return true
}

func (m *Model) SetException(h Handle, ex LayoutException) bool {
	e, ok := m.entries[h]
	if !ok {
		return false
	}
	e.Exception = ex
	return true
}

// Windows returns the entries of ws in creation order.
func (m *Model) Windows(ws WorkspaceID) []Entry {
	var list []*Entry
	for _, e := range m.entries {
		if e.Workspace == ws {
			list = append(list, e)
		}
	}
	sortEntries(list)
	out := make([]Entry, len(list))
	for i, e := range list {
		out[i] = *e
	}
	return out
}

// TilingWindows returns the handles of ws that the layout engine should
// place: tiling container and no minimized exception.
func (m *Model) TilingWindows(ws WorkspaceID) []Handle {
	var out []Handle
	for _, e := range m.Windows(ws) {
		if e.Parent == Tiling && e.Exception != ExceptionMinimized {
			out = append(out, e.Handle)
		}
	}
	return out
}

func (m *Model) HasWindows(ws WorkspaceID) bool {
	for _, e := range m.entries {
		if e.Workspace == ws {
			return true
		}
	}
	return false
}

// All returns every entry in creation order.
func (m *Model) All() []Entry {
	list := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		list = append(list, e)
	}
	sortEntries(list)
	out := make([]Entry, len(list))
	for i, e := range list {
		out[i] = *e
	}
	return out
}

func (m *Model) Len() int {
	return len(m.entries)
}

func sortEntries(list []*Entry) {
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
}
