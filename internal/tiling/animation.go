package tiling

import (
	"math"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
)

const (
	// settleThreshold is the offset below which an animation is done, and
	// the change below which a new layout does not animate.
	settleThreshold = 0.5
	maxAnimation    = 3 * time.Second
)

// animation is an additive offset on x, y, width and height that decays
// to zero along the configured curve.
type animation struct {
	displacement [4]float64
	start        time.Time
	settings     AnimationSettings
}

func newAnimation(from, to platform.Rect, now time.Time, s AnimationSettings) *animation {
	return &animation{
		displacement: [4]float64{from.X - to.X, from.Y - to.Y, from.Width - to.Width, from.Height - to.Height},
		start:        now,
		settings:     s,
	}
}

// curve returns the remaining share of the displacement and an upper bound
// on its future magnitude.
func (a *animation) curve(now time.Time) (value, envelope float64) {
	t := now.Sub(a.start).Seconds()
	if t <= 0 {
		return 1, 1
	}
	if a.settings.Curve == CurveCubic {
		p := t / a.settings.Duration.Seconds()
		if p >= 1 {
			return 0, 0
		}
		rest := 1 - p
		value = rest * rest * rest
		return value, value
	}
	return spring(t, a.settings.Stiffness, a.settings.DampingRatio)
}

// spring is a unit-mass damped oscillator released from displacement 1 at
// rest.
func spring(t, stiffness, zeta float64) (value, envelope float64) {
	w0 := math.Sqrt(stiffness)
	switch {
	case math.Abs(zeta-1) < 1e-6:
		decay := math.Exp(-w0 * t)
		value = decay * (1 + w0*t)
		return value, math.Abs(value)
	case zeta < 1:
		wd := w0 * math.Sqrt(1-zeta*zeta)
		k := zeta * w0 / wd
		decay := math.Exp(-zeta * w0 * t)
		value = decay * (math.Cos(wd*t) + k*math.Sin(wd*t))
		return value, decay * math.Sqrt(1+k*k)
	default:
		root := math.Sqrt(zeta*zeta - 1)
		r1 := -w0 * (zeta - root)
		r2 := -w0 * (zeta + root)
		a := r2 / (r2 - r1)
		b := -r1 / (r2 - r1)
		e1, e2 := math.Exp(r1*t), math.Exp(r2*t)
		value = a*e1 + b*e2
		return value, math.Abs(a)*e1 + math.Abs(b)*e2
	}
}

func (a *animation) offset(now time.Time) [4]float64 {
	v, _ := a.curve(now)
	var out [4]float64
	for i, d := range a.displacement {
		out[i] = d * v
	}
	return out
}

func (a *animation) done(now time.Time) bool {
	if now.Sub(a.start) >= maxAnimation {
		return true
	}
	v, env := a.curve(now)
	var peak float64
	for _, d := range a.displacement {
		peak = max(peak, math.Abs(d))
	}
	return peak*math.Abs(v) < settleThreshold && peak*env < settleThreshold
}

func (a *animation) apply(r platform.Rect, now time.Time) platform.Rect {
	o := a.offset(now)
	return platform.Rect{X: r.X + o[0], Y: r.Y + o[1], Width: r.Width + o[2], Height: r.Height + o[3]}
}

// changed reports whether any component moved by more than the settle
// threshold.
func changed(a, b platform.Rect) bool {
	return !a.ApproxEqual(b, settleThreshold)
}
