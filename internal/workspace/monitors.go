package workspace

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/dwindle/internal/platform"
)

// MonitorID identifies a connected monitor for the lifetime of a topology.
type MonitorID int

// Monitor is a connected display. Its anchor point (the top-left corner of
// Frame) stands in for a stable identity across topology changes.
type Monitor struct {
	ID      MonitorID     `json:"id"`
	Name    string        `json:"name"`
	Frame   platform.Rect `json:"frame"`
	Visible platform.Rect `json:"visible"`
}

func (m Monitor) Anchor() platform.Point {
	return m.Frame.Origin()
}

// IsMain reports whether the monitor sits at the global origin.
func (m Monitor) IsMain() bool {
	return m.Frame.X == 0 && m.Frame.Y == 0
}

func sortMonitors(mons []Monitor) {
	sort.SliceStable(mons, func(i, j int) bool {
		if mons[i].Frame.X != mons[j].Frame.X {
			return mons[i].Frame.X < mons[j].Frame.X
		}
		return mons[i].Frame.Y < mons[j].Frame.Y
	})
}

type patternKind int

const (
	patternMain patternKind = iota
	patternSecondary
	patternIndex
	patternName
)

// MonitorPattern selects a monitor for forced workspace assignment: "main",
// "secondary", a 1-based position (monitors ordered left to right, then top
// to bottom) or a case-insensitive regular expression on the monitor name.
type MonitorPattern struct {
	raw   string
	kind  patternKind
	index int
	re    *regexp.Regexp
}

func ParseMonitorPattern(s string) (MonitorPattern, error) {
	raw := strings.TrimSpace(s)
	switch strings.ToLower(raw) {
	case "":
		return MonitorPattern{}, fmt.Errorf("empty monitor pattern")
	case "main":
		return MonitorPattern{raw: raw, kind: patternMain}, nil
	case "secondary":
		return MonitorPattern{raw: raw, kind: patternSecondary}, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 {
			return MonitorPattern{}, fmt.Errorf("monitor index %d out of range (1-based)", n)
		}
		return MonitorPattern{raw: raw, kind: patternIndex, index: n}, nil
	}
	re, err := regexp.Compile("(?i)" + raw)
	if err != nil {
		return MonitorPattern{}, fmt.Errorf("monitor pattern %q: %w", raw, err)
	}
	return MonitorPattern{raw: raw, kind: patternName, re: re}, nil
}

func (p MonitorPattern) String() string {
	return p.raw
}

// match picks a monitor from sorted, which must be ordered by sortMonitors.
func (p MonitorPattern) match(sorted []Monitor) (Monitor, bool) {
	if len(sorted) == 0 {
		return Monitor{}, false
	}
	main := mainMonitor(sorted)
	switch p.kind {
	case patternMain:
		return main, true
	case patternSecondary:
		for _, m := range sorted {
			if m.ID != main.ID {
				return m, true
			}
		}
	case patternIndex:
		if p.index <= len(sorted) {
			return sorted[p.index-1], true
		}
	case patternName:
		for _, m := range sorted {
			if p.re.MatchString(m.Name) {
				return m, true
			}
		}
	}
	return Monitor{}, false
}

func mainMonitor(sorted []Monitor) Monitor {
	for _, m := range sorted {
		if m.IsMain() {
			return m
		}
	}
	return sorted[0]
}

// adjacent finds the monitor next to from in dir. Candidates must overlap
// from on the orthogonal axis and lie in dir; the nearest centre wins.
func adjacent(mons []Monitor, from Monitor, dir platform.Direction, wrap bool) (Monitor, bool) {
	src := from.Frame
	srcCenter := src.Center()

	var (
		best     Monitor
		bestDist = math.Inf(1)
		found    bool
		overlap  []Monitor
	)
	for _, m := range mons {
		if m.ID == from.ID || !orthogonalOverlap(src, m.Frame, dir) {
			continue
		}
		overlap = append(overlap, m)
		c := m.Frame.Center()
		if !inDirection(srcCenter, c, dir) {
			continue
		}
		if d := srcCenter.DistanceSquared(c); d < bestDist {
			best, bestDist, found = m, d, true
		}
	}
	if found || !wrap || len(overlap) == 0 {
		return best, found
	}

	// Wrap to the monitor furthest away on the opposite side.
	best = overlap[0]
	for _, m := range overlap[1:] {
		if inDirection(m.Frame.Center(), best.Frame.Center(), dir) {
			best = m
		}
	}
	return best, true
}

func orthogonalOverlap(a, b platform.Rect, dir platform.Direction) bool {
	if dir.Axis() == platform.Horizontal {
		return a.MinY() < b.MaxY() && b.MinY() < a.MaxY()
	}
	return a.MinX() < b.MaxX() && b.MinX() < a.MaxX()
}

// inDirection reports whether to lies strictly in dir as seen from from.
func inDirection(from, to platform.Point, dir platform.Direction) bool {
	switch dir {
	case platform.Left:
		return to.X < from.X
	case platform.Right:
		return to.X > from.X
	case platform.Up:
		return to.Y < from.Y
	default:
		return to.Y > from.Y
	}
}
