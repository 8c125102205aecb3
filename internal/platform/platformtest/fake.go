// Package platformtest provides in-memory Backend and AccessibilityProvider
// implementations for tests.
package platformtest

import (
	"errors"
	"sync"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
)

// Backend is a scriptable window server.
type Backend struct {
	mu       sync.Mutex
	displays []platform.Display
	windows  map[platform.WindowID]platform.WindowInfo
	order    []platform.WindowID
	focused  platform.WindowID
	batches  [][]platform.FrameRequest
	events   chan platform.Event
	closed   bool
}

var _ platform.Backend = (*Backend)(nil)

func NewBackend(displays ...platform.Display) *Backend {
	return &Backend{
		displays: displays,
		windows:  make(map[platform.WindowID]platform.WindowInfo),
		events:   make(chan platform.Event, 64),
	}
}

// SetDisplays replaces the display list.
func (b *Backend) SetDisplays(displays ...platform.Display) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.displays = displays
}

// AddWindow adds or replaces a native window.
func (b *Backend) AddWindow(info platform.WindowInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.windows[info.ID]; !ok {
		b.order = append(b.order, info.ID)
	}
	b.windows[info.ID] = info
}

// RemoveWindow deletes a native window without emitting an event.
func (b *Backend) RemoveWindow(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.windows, id)
	for i, other := range b.order {
		if other == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Emit queues an event for Events().
func (b *Backend) Emit(ev platform.Event) {
	b.events <- ev
}

// SetFocused changes the reported focused window.
func (b *Backend) SetFocused(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.focused = id
}

// Batches returns every MoveResizeBatch call so far.
func (b *Backend) Batches() [][]platform.FrameRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]platform.FrameRequest(nil), b.batches...)
}

func (b *Backend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Display(nil), b.displays...), nil
}

func (b *Backend) EnumerateVisibleWindows() ([]platform.WindowInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]platform.WindowInfo, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.windows[id])
	}
	return out, nil
}

func (b *Backend) MoveWindow(id platform.WindowID, origin platform.Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.windows[id]
	if !ok {
		return false
	}
	info.Frame.X, info.Frame.Y = origin.X, origin.Y
	b.windows[id] = info
	return true
}

func (b *Backend) WindowBounds(id platform.WindowID) (platform.Rect, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.windows[id]
	return info.Frame, ok
}

func (b *Backend) MoveResizeBatch(reqs []platform.FrameRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, append([]platform.FrameRequest(nil), reqs...))
	var missing bool
	for _, req := range reqs {
		info, ok := b.windows[req.ID]
		if !ok {
			missing = true
			continue
		}
		info.Frame = req.Frame
		b.windows[req.ID] = info
	}
	if missing {
		return errors.New("unknown window")
	}
	return nil
}

func (b *Backend) SubscribeWindowEvents([]platform.WindowID) error { return nil }

func (b *Backend) Events() <-chan platform.Event { return b.events }

func (b *Backend) FocusedWindow() (platform.WindowID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focused, b.focused != 0
}

func (b *Backend) FocusWindow(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.windows[id]; !ok {
		return errors.New("unknown window")
	}
	b.focused = id
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Accessibility serves App elements keyed by pid.
type Accessibility struct {
	mu   sync.Mutex
	apps map[int]*App
	openDelay time.Duration
	opens     int
}

// SetOpenDelay slows OpenApplication down.
func (a *Accessibility) SetOpenDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.openDelay = d
}

var _ platform.AccessibilityProvider = (*Accessibility)(nil)

func NewAccessibility() *Accessibility {
	return &Accessibility{apps: make(map[int]*App)}
}

// App returns the app for pid, creating it on first use.
func (a *Accessibility) App(pid int) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	app, ok := a.apps[pid]
	if !ok {
		app = &App{frames: make(map[platform.WindowID]platform.Rect)}
		a.apps[pid] = app
	}
	return app
}

// Opens counts OpenApplication calls.
func (a *Accessibility) Opens() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opens
}

func (a *Accessibility) OpenApplication(pid int) (platform.AppElement, error) {
	a.mu.Lock()
	a.opens++
	delay := a.openDelay
	a.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return a.App(pid), nil
}

// App is a fake application element. Its methods are safe for concurrent
// use so tests can inspect it while a worker drives it.
type App struct {
	mu          sync.Mutex
	windows     []platform.AXWindow
	frames      map[platform.WindowID]platform.Rect
	setLog      []platform.WindowID
	enhanced    bool
	enhancedLog []bool
	closed      bool
	listDelay   time.Duration
	setDelay    time.Duration
	listErr     error
}

// SetListDelay slows down Windows.
func (a *App) SetListDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listDelay = d
}

// SetFrameDelay slows down SetFrame.
func (a *App) SetFrameDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setDelay = d
}

// SetListError makes Windows fail with err.
func (a *App) SetListError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listErr = err
}

func (a *App) SetWindows(ws ...platform.AXWindow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.windows = ws
}

func (a *App) SetEnhanced(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enhanced = on
}

// Frame returns the last frame applied to id.
func (a *App) Frame(id platform.WindowID) (platform.Rect, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.frames[id]
	return f, ok
}

// SetCalls lists the windows SetFrame was called for, in order.
func (a *App) SetCalls() []platform.WindowID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]platform.WindowID(nil), a.setLog...)
}

// EnhancedLog lists every SetEnhancedUserInterface argument.
func (a *App) EnhancedLog() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]bool(nil), a.enhancedLog...)
}

func (a *App) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *App) Windows() ([]platform.AXWindow, error) {
	a.mu.Lock()
	delay, err := a.listDelay, a.listErr
	a.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]platform.AXWindow(nil), a.windows...), nil
}

func (a *App) SetFrame(id platform.WindowID, frame platform.Rect) error {
	a.mu.Lock()
	delay := a.setDelay
	a.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames[id] = frame
	a.setLog = append(a.setLog, id)
	return nil
}

func (a *App) EnhancedUserInterface() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enhanced
}

func (a *App) SetEnhancedUserInterface(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enhanced = on
	a.enhancedLog = append(a.enhancedLog, on)
	return nil
}

func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
