package platform

import (
	"fmt"
	"math"
	"strings"
)

// Point is a position in global screen coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceSquared returns the squared euclidean distance between two points.
func (p Point) DistanceSquared(o Point) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return dx*dx + dy*dy
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Origin returns the top-left corner.
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside r (half-open on the max edges).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX() && p.X < r.MaxX() && p.Y >= r.MinY() && p.Y < r.MaxY()
}

// Intersects reports whether the two rectangles share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX() < o.MaxX() && o.MinX() < r.MaxX() &&
		r.MinY() < o.MaxY() && o.MinY() < r.MaxY()
}

// Inset shrinks the rectangle by the given per-edge amounts.
func (r Rect) Inset(left, right, top, bottom float64) Rect {
	out := Rect{
		X:      r.X + left,
		Y:      r.Y + top,
		Width:  r.Width - left - right,
		Height: r.Height - top - bottom,
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

// ApproxEqual compares all four components within tol.
func (r Rect) ApproxEqual(o Rect, tol float64) bool {
	return math.Abs(r.X-o.X) <= tol &&
		math.Abs(r.Y-o.Y) <= tol &&
		math.Abs(r.Width-o.Width) <= tol &&
		math.Abs(r.Height-o.Height) <= tol
}

// Rounded snaps all components to whole pixels.
func (r Rect) Rounded() Rect {
	return Rect{
		X:      math.Round(r.X),
		Y:      math.Round(r.Y),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}

// Orientation is the axis along which a split divides its rectangle.
type Orientation int

const (
	// Horizontal places children side by side.
	Horizontal Orientation = iota
	// Vertical stacks children top to bottom.
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Flip returns the other orientation.
func (o Orientation) Flip() Orientation {
	if o == Vertical {
		return Horizontal
	}
	return Vertical
}

// Direction is a cardinal direction used for navigation.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Axis returns the split orientation that separates neighbors in this direction.
func (d Direction) Axis() Orientation {
	if d == Left || d == Right {
		return Horizontal
	}
	return Vertical
}

// IsPositive is true for directions pointing towards larger coordinates.
func (d Direction) IsPositive() bool {
	return d == Right || d == Down
}

// Opposite returns the inverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	default:
		return Up
	}
}

// ParseDirection parses left/right/up/down (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "west":
		return Left, nil
	case "right", "r", "east":
		return Right, nil
	case "up", "u", "north":
		return Up, nil
	case "down", "d", "south":
		return Down, nil
	}
	return 0, fmt.Errorf("invalid direction %q (want left, right, up or down)", s)
}
