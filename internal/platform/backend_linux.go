//go:build linux

package platform

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/1broseidon/dwindle/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/sys/unix"
)

// LinuxBackend implements Backend on top of an X11 connection.
type LinuxBackend struct {
	conn   *x11.Connection
	events chan Event

	mu      sync.Mutex
	watched map[WindowID]int // window -> pid
	closed  bool
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend connects to the X server, subscribes to root window
// notifications and starts the X event loop on its own goroutine.
func NewLinuxBackend() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, err
	}

	b := &LinuxBackend{
		conn:    conn,
		events:  make(chan Event, 256),
		watched: make(map[WindowID]int),
	}
	if err := conn.WatchRoot(b.handle); err != nil {
		conn.Close()
		return nil, fmt.Errorf("watch root window: %w", err)
	}
	go conn.EventLoop()
	return b, nil
}

// Displays returns all active monitors ordered by id.
func (b *LinuxBackend) Displays() ([]Display, error) {
	monitors, err := b.conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}
	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})
	return displays, nil
}

// EnumerateVisibleWindows lists managed client windows. Hidden windows are
// still reported; their state is exposed through Tags.
func (b *LinuxBackend) EnumerateVisibleWindows() ([]WindowInfo, error) {
	clients, err := b.conn.ClientWindows()
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	infos := make([]WindowInfo, 0, len(clients))
	for _, c := range clients {
		if !x11.IsNormalType(c.Types) {
			continue
		}
		infos = append(infos, WindowInfo{
			ID:    WindowID(c.ID),
			PID:   c.PID,
			Frame: Rect{X: float64(c.X), Y: float64(c.Y), Width: float64(c.Width), Height: float64(c.Height)},
			Tags:  c.States,
			Attributes: map[string]string{
				"class": c.Class,
				"title": c.Title,
			},
		})
	}
	return infos, nil
}

func (b *LinuxBackend) MoveWindow(id WindowID, origin Point) bool {
	err := b.conn.MoveWindow(xproto.Window(id), int(math.Round(origin.X)), int(math.Round(origin.Y)))
	return err == nil
}

func (b *LinuxBackend) WindowBounds(id WindowID) (Rect, bool) {
	x, y, w, h, ok := b.conn.WindowGeometry(xproto.Window(id))
	if !ok {
		return Rect{}, false
	}
	return Rect{X: float64(x), Y: float64(y), Width: float64(w), Height: float64(h)}, true
}

// MoveResizeBatch applies every request and reports the failures together.
func (b *LinuxBackend) MoveResizeBatch(reqs []FrameRequest) error {
	var errs []error
	for _, req := range reqs {
		f := req.Frame.Rounded()
		if err := b.conn.MoveResizeWindow(xproto.Window(req.ID), int(f.X), int(f.Y), int(f.Width), int(f.Height)); err != nil {
			errs = append(errs, fmt.Errorf("window %d: %w", req.ID, err))
		}
	}
	return errors.Join(errs...)
}

// SubscribeWindowEvents starts watching windows not already watched.
func (b *LinuxBackend) SubscribeWindowEvents(ids []WindowID) error {
	var errs []error
	for _, id := range ids {
		b.mu.Lock()
		_, seen := b.watched[id]
		b.mu.Unlock()
		if seen {
			continue
		}

		pid := 0
		if clients, err := b.conn.ClientWindows(); err == nil {
			for _, c := range clients {
				if WindowID(c.ID) == id {
					pid = c.PID
					break
				}
			}
		}
		if err := b.conn.WatchWindow(xproto.Window(id), b.handle); err != nil {
			errs = append(errs, fmt.Errorf("watch window %d: %w", id, err))
			continue
		}
		b.mu.Lock()
		b.watched[id] = pid
		b.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (b *LinuxBackend) Events() <-chan Event {
	return b.events
}

func (b *LinuxBackend) FocusedWindow() (WindowID, bool) {
	id, err := b.conn.GetActiveWindow()
	if err != nil || id == 0 {
		return 0, false
	}
	return WindowID(id), true
}

func (b *LinuxBackend) FocusWindow(id WindowID) error {
	return b.conn.FocusWindow(xproto.Window(id))
}

// Close stops the event loop and disconnects. The event channel is left
// open; receivers stop on their own context.
func (b *LinuxBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.conn.Quit()
	b.conn.Close()
	return nil
}

// handle runs on the X event loop goroutine.
func (b *LinuxBackend) handle(ev x11.WindowEvent) {
	id := WindowID(ev.Window)

	switch ev.Kind {
	case x11.WindowDestroyed:
		b.mu.Lock()
		pid := b.watched[id]
		delete(b.watched, id)
		lastForPID := true
		for _, other := range b.watched {
			if other == pid {
				lastForPID = false
				break
			}
		}
		b.mu.Unlock()

		b.emit(Event{Kind: EventWindowClosed, PID: pid, WindowID: id})
		if pid > 0 && lastForPID && !processAlive(pid) {
			b.emit(Event{Kind: EventProcessTerminated, PID: pid})
		}
	case x11.WindowConfigured:
		b.emit(Event{
			Kind:     EventWindowMoved,
			PID:      b.pidOf(id),
			WindowID: id,
			Frame:    Rect{X: float64(ev.X), Y: float64(ev.Y), Width: float64(ev.Width), Height: float64(ev.Height)},
		})
	case x11.WindowRetitled:
		b.emit(Event{Kind: EventTitleChanged, PID: b.pidOf(id), WindowID: id})
	case x11.ActiveWindowChanged:
		b.emit(Event{Kind: EventFocusChanged, PID: b.pidOf(id), WindowID: id})
	case x11.ScreenChanged:
		b.emit(Event{Kind: EventDisplaysChanged})
	}
}

func (b *LinuxBackend) pidOf(id WindowID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.watched[id]
}

// emit never blocks the X event loop; when the consumer lags the event is
// dropped and the next discovery pass catches up.
func (b *LinuxBackend) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:      m.ID,
		Name:    m.Name,
		Frame:   rectFromArea(m.Frame),
		Visible: rectFromArea(m.Work),
	}
}

func rectFromArea(a x11.Area) Rect {
	return Rect{X: float64(a.X), Y: float64(a.Y), Width: float64(a.Width), Height: float64(a.Height)}
}
