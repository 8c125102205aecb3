//go:build linux

package platform

import (
	"fmt"
	"slices"

	"github.com/1broseidon/dwindle/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// X11Accessibility approximates per-application accessibility handles with
// EWMH properties. Each handle owns a private X connection.
type X11Accessibility struct{}

var _ AccessibilityProvider = X11Accessibility{}

func (X11Accessibility) OpenApplication(pid int) (AppElement, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("open application %d: %w", pid, err)
	}
	return &x11AppElement{pid: pid, conn: conn}, nil
}

type x11AppElement struct {
	pid  int
	conn *x11.Connection
}

func (a *x11AppElement) Windows() ([]AXWindow, error) {
	clients, err := a.conn.ClientWindows()
	if err != nil {
		return nil, fmt.Errorf("list clients of %d: %w", a.pid, err)
	}

	var out []AXWindow
	for _, c := range clients {
		if c.PID != a.pid {
			continue
		}
		out = append(out, a.describe(c))
	}
	return out, nil
}

func (a *x11AppElement) describe(c x11.ClientWindow) AXWindow {
	w := AXWindow{
		ID:       WindowID(c.ID),
		BundleID: c.Class,
		Title:    c.Title,
		Subrole:  SubroleDialog,
		Frame:    Rect{X: float64(c.X), Y: float64(c.Y), Width: float64(c.Width), Height: float64(c.Height)},
	}

	switch {
	case len(c.Types) == 0 || slices.Contains(c.Types, "_NET_WM_WINDOW_TYPE_NORMAL"):
		w.Subrole = SubroleStandard
	case !x11.IsNormalType(c.Types):
		w.Subrole = SubroleUnknown
	}

	actions, ok := a.conn.AllowedActions(c.ID)
	if ok {
		w.HasCloseButton = slices.Contains(actions, "_NET_WM_ACTION_CLOSE")
		w.FullscreenButtonEnabled = slices.Contains(actions, "_NET_WM_ACTION_FULLSCREEN")
	} else {
		w.HasCloseButton = true
		w.FullscreenButtonEnabled = true
	}
	w.AccessoryApp = slices.Contains(c.States, "_NET_WM_STATE_SKIP_TASKBAR")
	return w
}

func (a *x11AppElement) SetFrame(id WindowID, frame Rect) error {
	f := frame.Rounded()
	return a.conn.MoveResizeWindow(xproto.Window(id), int(f.X), int(f.Y), int(f.Width), int(f.Height))
}

// EnhancedUserInterface has no X11 counterpart.
func (a *x11AppElement) EnhancedUserInterface() bool { return false }

func (a *x11AppElement) SetEnhancedUserInterface(bool) error { return nil }

func (a *x11AppElement) Close() {
	a.conn.Close()
}
