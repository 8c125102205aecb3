package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EventKind classifies the X events the backend cares about.
type EventKind int

const (
	WindowDestroyed EventKind = iota
	WindowConfigured
	WindowRetitled
	ActiveWindowChanged
	ScreenChanged
)

// WindowEvent is a decoded X event. Geometry is only set for
// WindowConfigured and is root-relative.
type WindowEvent struct {
	Kind   EventKind
	Window xproto.Window
	X      int
	Y      int
	Width  int
	Height int
}

// WatchRoot reports active-window changes and root reconfiguration
// (monitor layout changes) to handler. Handlers run on the event loop
// goroutine.
func (c *Connection) WatchRoot(handler func(WindowEvent)) error {
	root := xwindow.New(c.XUtil, c.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		return err
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil || name != "_NET_ACTIVE_WINDOW" {
			return
		}
		active, err := ewmh.ActiveWindowGet(xu)
		if err != nil {
			return
		}
		handler(WindowEvent{Kind: ActiveWindowChanged, Window: active})
	}).Connect(c.XUtil, c.Root)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		handler(WindowEvent{Kind: ScreenChanged, Window: c.Root})
	}).Connect(c.XUtil, c.Root)

	return nil
}

// WatchWindow subscribes to destroy, configure and title notifications of a
// client window.
func (c *Connection) WatchWindow(windowID xproto.Window, handler func(WindowEvent)) error {
	win := xwindow.New(c.XUtil, windowID)
	if err := win.Listen(xproto.EventMaskStructureNotify, xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		xevent.Detach(xu, ev.Window)
		handler(WindowEvent{Kind: WindowDestroyed, Window: ev.Window})
	}).Connect(c.XUtil, windowID)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		// Event coordinates are parent-relative under reparenting window
		// managers, so ask for root-relative geometry.
		x, y, w, h, ok := c.WindowGeometry(ev.Window)
		if !ok {
			return
		}
		handler(WindowEvent{Kind: WindowConfigured, Window: ev.Window, X: x, Y: y, Width: w, Height: h})
	}).Connect(c.XUtil, windowID)

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil {
			return
		}
		if name == "_NET_WM_NAME" || name == "WM_NAME" {
			handler(WindowEvent{Kind: WindowRetitled, Window: ev.Window})
		}
	}).Connect(c.XUtil, windowID)

	return nil
}

// UnwatchWindow drops every callback registered for windowID.
func (c *Connection) UnwatchWindow(windowID xproto.Window) {
	xevent.Detach(c.XUtil, windowID)
}
