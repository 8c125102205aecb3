package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Area is an integer rectangle in root window coordinates.
type Area struct {
	X, Y          int
	Width, Height int
}

func (a Area) right() int  { return a.X + a.Width }
func (a Area) bottom() int { return a.Y + a.Height }

// overlap returns the intersection of a and b; it is empty when they
// do not intersect.
func (a Area) overlap(b Area) Area {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.right(), b.right()), min(a.bottom(), b.bottom())
	if x1 <= x0 || y1 <= y0 {
		return Area{}
	}
	return Area{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Monitor is one active RandR CRTC. Work is Frame minus the space reserved
// by dock struts.
type Monitor struct {
	ID    int
	Name  string
	Frame Area
	Work  Area
}

// reserved holds the strut thickness claimed on each edge of a monitor.
type reserved struct {
	left, right, top, bottom int
}

// GetMonitors lists the active monitors in CRTC order.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	conn := c.XUtil.Conn()
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr init: %w", err)
	}
	res, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("screen resources: %w", err)
	}

	docks := c.dockStruts()
	var monitors []Monitor
	for i, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, res.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}
		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(conn, info.Outputs[0], res.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}
		frame := Area{X: int(info.X), Y: int(info.Y), Width: int(info.Width), Height: int(info.Height)}
		monitors = append(monitors, Monitor{
			ID:    i,
			Name:  name,
			Frame: frame,
			Work:  workArea(frame, docks),
		})
	}
	return monitors, nil
}

// dockStruts returns the struts of every dock window. Failures yield none.
func (c *Connection) dockStruts() []strut {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil
	}
	rootW, rootH := int(geom.Width), int(geom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil
	}

	var struts []strut
	for _, id := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, id)
		if err != nil || !hasType(types, "_NET_WM_WINDOW_TYPE_DOCK") {
			continue
		}
		sp, err := ewmh.WmStrutPartialGet(c.XUtil, id)
		if err != nil {
			// Docks that only set _NET_WM_STRUT span the whole edge.
			s, err := ewmh.WmStrutGet(c.XUtil, id)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftEndY: uint(rootH - 1), RightEndY: uint(rootH - 1),
				TopEndX: uint(rootW - 1), BottomEndX: uint(rootW - 1),
			}
		}
		struts = append(struts, strutSlabs(sp, rootW, rootH)...)
	}
	return struts
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

type edge int

const (
	edgeTop edge = iota
	edgeBottom
	edgeLeft
	edgeRight
)

// strut is the root-window rectangle a dock reserves along one edge.
type strut struct {
	edge edge
	area Area
}

// strutSlabs converts a partial strut into one rectangle per non-zero edge.
func strutSlabs(sp *ewmh.WmStrutPartial, rootW, rootH int) []strut {
	var out []strut
	if sp.Top > 0 {
		out = append(out, strut{edgeTop, Area{X: int(sp.TopStartX), Y: 0, Width: int(sp.TopEndX) - int(sp.TopStartX) + 1, Height: int(sp.Top)}})
	}
	if sp.Bottom > 0 {
		out = append(out, strut{edgeBottom, Area{X: int(sp.BottomStartX), Y: rootH - int(sp.Bottom), Width: int(sp.BottomEndX) - int(sp.BottomStartX) + 1, Height: int(sp.Bottom)}})
	}
	if sp.Left > 0 {
		out = append(out, strut{edgeLeft, Area{X: 0, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1}})
	}
	if sp.Right > 0 {
		out = append(out, strut{edgeRight, Area{X: rootW - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY) - int(sp.RightStartY) + 1}})
	}
	return out
}

// workArea shrinks frame by the part of each strut that overlaps it.
func workArea(frame Area, struts []strut) Area {
	var r reserved
	for _, s := range struts {
		o := frame.overlap(s.area)
		if o.Width == 0 {
			continue
		}
		switch s.edge {
		case edgeTop:
			r.top = max(r.top, o.Height)
		case edgeBottom:
			r.bottom = max(r.bottom, o.Height)
		case edgeLeft:
			r.left = max(r.left, o.Width)
		case edgeRight:
			r.right = max(r.right, o.Width)
		}
	}
	return Area{
		X:      frame.X + r.left,
		Y:      frame.Y + r.top,
		Width:  max(frame.Width-r.left-r.right, 1),
		Height: max(frame.Height-r.top-r.bottom, 1),
	}
}
