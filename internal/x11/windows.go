package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ClientWindow is one managed top-level window from _NET_CLIENT_LIST.
type ClientWindow struct {
	ID     xproto.Window
	PID    int
	Class  string
	Title  string
	Types  []string
	States []string
	X      int
	Y      int
	Width  int
	Height int
}

// ClientWindows lists every window in _NET_CLIENT_LIST with its geometry.
// Windows whose geometry cannot be read (already destroyed) are skipped.
func (c *Connection) ClientWindows() ([]ClientWindow, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, err
	}

	out := make([]ClientWindow, 0, len(clients))
	for _, id := range clients {
		x, y, w, h, ok := c.WindowGeometry(id)
		if !ok {
			continue
		}
		win := ClientWindow{
			ID:     id,
			Class:  c.WindowClass(id),
			Title:  c.WindowTitle(id),
			X:      x,
			Y:      y,
			Width:  w,
			Height: h,
		}
		if pid, err := ewmh.WmPidGet(c.XUtil, id); err == nil {
			win.PID = int(pid)
		}
		win.Types, _ = ewmh.WmWindowTypeGet(c.XUtil, id)
		win.States, _ = ewmh.WmStateGet(c.XUtil, id)
		out = append(out, win)
	}
	return out, nil
}

// WindowGeometry returns the root-relative position and size of a window.
func (c *Connection) WindowGeometry(windowID xproto.Window) (x, y, width, height int, ok bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), true
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Maximized windows ignore configure requests on most window managers.
	_ = c.unmaximizeWindow(windowID)

	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// MoveWindow changes only the position of a window.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	if err := ewmh.MoveWindow(c.XUtil, windowID, x, y); err != nil {
		xwindow.New(c.XUtil, windowID).Move(x, y)
	}
	return nil
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" || state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			if err := ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}
	return IsNormalType(types)
}

// IsNormalType classifies a _NET_WM_WINDOW_TYPE list.
func IsNormalType(types []string) bool {
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// AllowedActions returns _NET_WM_ALLOWED_ACTIONS. ok is false when the
// window manager does not publish the property.
func (c *Connection) AllowedActions(windowID xproto.Window) (actions []string, ok bool) {
	actions, err := ewmh.WmAllowedActionsGet(c.XUtil, windowID)
	if err != nil {
		return nil, false
	}
	return actions, true
}

// WindowClass returns the WM_CLASS class part.
func (c *Connection) WindowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}
