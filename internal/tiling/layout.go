package tiling

import (
	"math"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

const (
	edgeTolerance   = 2.0
	aspectTolerance = 0.01
)

// CalculateLayout computes the settled rectangle of every window of ws on
// screen. Leaves cache their rectangle for navigation; windows whose
// rectangle moved start an animation.
func (e *Engine) CalculateLayout(ws windows.WorkspaceID, screen platform.Rect) map[windows.Handle]platform.Rect {
	t, ok := e.trees[ws]
	if !ok {
		return nil
	}
	t.screen, t.hasScreen = screen, true
	if t.empty() {
		return nil
	}

	out := make(map[windows.Handle]platform.Rect)
	if t.isLeaf(t.root) {
		n := t.n(t.root)
		r := screen
		if !n.fullscreen {
			g := t.settings.OuterGaps
			r = fitAspect(screen.Inset(g.Left, g.Right, g.Top, g.Bottom), t.settings.SingleWindowAspectRatio)
		}
		n.frame, n.hasFrame = r, true
		out[n.window] = r
	} else {
		t.layout(t.root, screen, screen, out)
	}

	e.animate(t, out)
	return out
}

func (t *tree) layout(id NodeID, r, screen platform.Rect, out map[windows.Handle]platform.Rect) {
	n := t.n(id)
	if n.kind == splitNode {
		n.frame, n.hasFrame = r, true
		a, b := divide(r, n.orientation, splitFraction(n.ratio))
		children := n.children
		t.layout(children[0], a, screen, out)
		t.layout(children[1], b, screen, out)
		return
	}

	frame := screen
	if !n.fullscreen {
		frame = t.gapped(r, screen)
	}
	n.frame, n.hasFrame = frame, true
	if !n.window.IsZero() {
		out[n.window] = frame
	}
}

func divide(r platform.Rect, o platform.Orientation, fraction float64) (platform.Rect, platform.Rect) {
	if o == platform.Horizontal {
		w := r.Width * fraction
		return platform.Rect{X: r.X, Y: r.Y, Width: w, Height: r.Height},
			platform.Rect{X: r.X + w, Y: r.Y, Width: r.Width - w, Height: r.Height}
	}
	h := r.Height * fraction
	return platform.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: h},
		platform.Rect{X: r.X, Y: r.Y + h, Width: r.Width, Height: r.Height - h}
}

// gapped insets a leaf: outer gaps on edges lying on the screen boundary,
// half the inner gap elsewhere.
func (t *tree) gapped(r, screen platform.Rect) platform.Rect {
	half := t.settings.InnerGap / 2
	g := t.settings.OuterGaps
	edge := func(a, b, outer float64) float64 {
		if math.Abs(a-b) <= edgeTolerance {
			return outer
		}
		return half
	}
	return r.Inset(
		edge(r.MinX(), screen.MinX(), g.Left),
		edge(r.MaxX(), screen.MaxX(), g.Right),
		edge(r.MinY(), screen.MinY(), g.Top),
		edge(r.MaxY(), screen.MaxY(), g.Bottom),
	)
}

// fitAspect shrinks one axis of r so that width/height matches ratio,
// keeping it centred. A ratio of zero leaves r unchanged.
func fitAspect(r platform.Rect, ratio float64) platform.Rect {
	if ratio <= 0 || r.IsEmpty() {
		return r
	}
	cur := r.Width / r.Height
	if math.Abs(cur-ratio) <= aspectTolerance {
		return r
	}
	if cur > ratio {
		w := r.Height * ratio
		return platform.Rect{X: r.X + (r.Width-w)/2, Y: r.Y, Width: w, Height: r.Height}
	}
	h := r.Width / ratio
	return platform.Rect{X: r.X, Y: r.Y + (r.Height-h)/2, Width: r.Width, Height: h}
}

// animate diffs a layout result against the previous one and starts
// animations for windows that moved.
func (e *Engine) animate(t *tree, frames map[windows.Handle]platform.Rect) {
	now := e.now()
	for h := range t.settled {
		if _, ok := frames[h]; !ok {
			delete(t.settled, h)
			delete(t.anims, h)
		}
	}
	for h, r := range frames {
		prev, seen := t.settled[h]
		t.settled[h] = r
		if !seen || !changed(prev, r) {
			continue
		}
		if !t.settings.Animation.Enabled {
			delete(t.anims, h)
			continue
		}
		visual := prev
		if a, ok := t.anims[h]; ok {
			visual = a.apply(prev, now)
		}
		t.anims[h] = newAnimation(visual, r, now, t.settings.Animation)
	}
}

// TickAnimations drops finished animations and reports whether any remain.
func (e *Engine) TickAnimations(now time.Time) bool {
	running := false
	for _, t := range e.trees {
		for h, a := range t.anims {
			if a.done(now) {
				delete(t.anims, h)
				continue
			}
			running = true
		}
	}
	return running
}

// HasAnimations reports whether any animation is running.
func (e *Engine) HasAnimations() bool {
	for _, t := range e.trees {
		if len(t.anims) > 0 {
			return true
		}
	}
	return false
}

// CalculateAnimatedFrames adds the current animation offsets to base.
// Windows without an animation keep their base rectangle.
func (e *Engine) CalculateAnimatedFrames(base map[windows.Handle]platform.Rect, now time.Time) map[windows.Handle]platform.Rect {
	out := make(map[windows.Handle]platform.Rect, len(base))
	for h, r := range base {
		out[h] = r
		ws, ok := e.where[h]
		if !ok {
			continue
		}
		if a, ok := e.trees[ws].anims[h]; ok {
			out[h] = a.apply(r, now)
		}
	}
	return out
}
