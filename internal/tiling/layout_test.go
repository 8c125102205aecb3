package tiling

import (
	"math/rand"
	"testing"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/windows"
)

func TestTwoWindowScenario(t *testing.T) {
	e := NewEngine(testSettings())
	screen := platform.Rect{Width: 1000, Height: 1000}
	w1, w2 := windows.NewHandle(), windows.NewHandle()

	e.AddWindow(ws1, w1)
	frames := e.CalculateLayout(ws1, screen)
	if got := frames[w1]; !got.ApproxEqual(screen, 1e-9) {
		t.Fatalf("single window frame = %v, want %v", got, screen)
	}

	e.AddWindow(ws1, w2)
	frames = e.CalculateLayout(ws1, screen)
	tests := []struct {
		name string
		h    windows.Handle
		want platform.Rect
	}{
		{"first", w1, platform.Rect{X: 0, Y: 0, Width: 1000, Height: 495}},
		{"second", w2, platform.Rect{X: 0, Y: 505, Width: 1000, Height: 495}},
	}
	for _, tt := range tests {
		if got := frames[tt.h]; !got.ApproxEqual(tt.want, 1e-9) {
			t.Fatalf("%s frame = %v, want %v", tt.name, got, tt.want)
		}
	}
	if sel, _ := e.Selected(ws1); sel != w2 {
		t.Fatalf("new window is not selected")
	}
}

func TestLayoutIsIdempotentAndNonOverlapping(t *testing.T) {
	s := testSettings()
	s.OuterGaps = Gaps{Left: 12, Right: 8, Top: 30, Bottom: 4}
	e := NewEngine(s)
	screen := platform.Rect{X: 100, Y: 50, Width: 2560, Height: 1440}
	rng := rand.New(rand.NewSource(3))

	hs := newHandles(9)
	for _, h := range hs {
		e.Select(hs[rng.Intn(len(hs))])
		e.AddWindow(ws1, h)
		e.CalculateLayout(ws1, screen)
	}
	e.Select(hs[4])
	e.ResizeSelected(ws1, platform.Right, 0.3)

	first := e.CalculateLayout(ws1, screen)
	second := e.CalculateLayout(ws1, screen)
	if len(first) != len(hs) {
		t.Fatalf("layout has %d frames, want %d", len(first), len(hs))
	}
	for h, r := range first {
		if second[h] != r {
			t.Fatalf("layout not idempotent: %v then %v", r, second[h])
		}
	}

	for i, a := range hs {
		ra := first[a]
		if ra.MinX() < screen.MinX()-1e-9 || ra.MaxX() > screen.MaxX()+1e-9 ||
			ra.MinY() < screen.MinY()-1e-9 || ra.MaxY() > screen.MaxY()+1e-9 {
			t.Fatalf("frame %v escapes screen %v", ra, screen)
		}
		for _, b := range hs[i+1:] {
			if ra.Intersects(first[b]) {
				t.Fatalf("frames overlap: %v and %v", ra, first[b])
			}
		}
	}
}

func TestOuterGapsOnlyOnScreenEdges(t *testing.T) {
	s := testSettings()
	s.InnerGap = 20
	s.OuterGaps = Gaps{Left: 5, Right: 6, Top: 7, Bottom: 8}
	e := NewEngine(s)
	screen := platform.Rect{Width: 2000, Height: 1000}
	w1, w2 := windows.NewHandle(), windows.NewHandle()
	e.AddWindow(ws1, w1)
	e.CalculateLayout(ws1, screen)
	e.AddWindow(ws1, w2)
	frames := e.CalculateLayout(ws1, screen)

	want1 := platform.Rect{X: 5, Y: 7, Width: 1000 - 5 - 10, Height: 1000 - 7 - 8}
	want2 := platform.Rect{X: 1010, Y: 7, Width: 1000 - 10 - 6, Height: 1000 - 7 - 8}
	if !frames[w1].ApproxEqual(want1, 1e-9) {
		t.Fatalf("left frame = %v, want %v", frames[w1], want1)
	}
	if !frames[w2].ApproxEqual(want2, 1e-9) {
		t.Fatalf("right frame = %v, want %v", frames[w2], want2)
	}
}

func TestSplitOrientation(t *testing.T) {
	tests := []struct {
		name       string
		screen     platform.Rect
		multiplier float64
		wantRight  bool
	}{
		{"wide screen splits side by side", platform.Rect{Width: 2000, Height: 1000}, 1, true},
		{"square screen stacks", platform.Rect{Width: 1000, Height: 1000}, 1, false},
		{"multiplier favours stacking", platform.Rect{Width: 2000, Height: 1000}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			s.SplitWidthMultiplier = tt.multiplier
			e := NewEngine(s)
			a, b := windows.NewHandle(), windows.NewHandle()
			e.AddWindow(ws1, a)
			e.CalculateLayout(ws1, tt.screen)
			e.AddWindow(ws1, b)
			frames := e.CalculateLayout(ws1, tt.screen)
			right := frames[b].MinX() > frames[a].MaxX()
			if right != tt.wantRight {
				t.Fatalf("a=%v b=%v, want side by side=%v", frames[a], frames[b], tt.wantRight)
			}
		})
	}
}

func TestSmartSplit(t *testing.T) {
	square := platform.Rect{Width: 1000, Height: 1000}
	wide := platform.Rect{Width: 2000, Height: 500}
	tall := platform.Rect{Width: 500, Height: 2000}
	ref := func(cx, cy float64) platform.Rect {
		return platform.Rect{X: cx - 5, Y: cy - 5, Width: 10, Height: 10}
	}
	left := func(a, b platform.Rect) bool { return b.MaxX() < a.MinX() }
	right := func(a, b platform.Rect) bool { return b.MinX() > a.MaxX() }
	above := func(a, b platform.Rect) bool { return b.MaxY() < a.MinY() }
	below := func(a, b platform.Rect) bool { return b.MinY() > a.MaxY() }

	tests := []struct {
		name   string
		screen platform.Rect
		ref    platform.Rect
		// where the new window should land relative to the old one
		check func(a, b platform.Rect) bool
	}{
		{"active window to the left", square, ref(-495, 405), left},
		{"active window below", square, ref(500, 2000), below},
		{"diagonal tie goes side by side", square, ref(1500, 1500), right},
		{"centred reference falls back to aspect", square, ref(500, 500), below},
		{"wide target, reference above", wide, ref(900, 50), above},
		{"wide target, reference below", wide, ref(1100, 480), below},
		{"wide target, reference right", wide, ref(1900, 300), right},
		{"wide target, diagonal tie", wide, ref(2000, 500), right},
		{"tall target, reference left", tall, ref(50, 900), left},
		{"tall target, reference right", tall, ref(480, 1100), right},
		{"tall target, reference below", tall, ref(300, 1900), below},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			s.SmartSplit = true
			e := NewEngine(s)
			a, b := windows.NewHandle(), windows.NewHandle()
			e.AddWindow(ws1, a)
			e.CalculateLayout(ws1, tt.screen)
			e.SetActiveReference(tt.ref)
			e.AddWindow(ws1, b)
			frames := e.CalculateLayout(ws1, tt.screen)
			if !tt.check(frames[a], frames[b]) {
				t.Fatalf("unexpected placement: a=%v b=%v", frames[a], frames[b])
			}
		})
	}
}

func TestPreselectionIsConsumed(t *testing.T) {
	e := NewEngine(testSettings())
	screen := platform.Rect{Width: 1000, Height: 1000}
	a, b, c := windows.NewHandle(), windows.NewHandle(), windows.NewHandle()
	e.AddWindow(ws1, a)
	e.CalculateLayout(ws1, screen)

	e.Preselect(ws1, platform.Left)
	if dir, ok := e.Preselection(ws1); !ok || dir != platform.Left {
		t.Fatalf("Preselection = %v, %v", dir, ok)
	}
	e.AddWindow(ws1, b)
	frames := e.CalculateLayout(ws1, screen)
	if frames[b].MaxX() >= frames[a].MinX() {
		t.Fatalf("preselected window not placed left: a=%v b=%v", frames[a], frames[b])
	}
	if _, ok := e.Preselection(ws1); ok {
		t.Fatalf("preselection survived an insertion")
	}

	e.Preselect(ws1, platform.Down)
	e.ClearPreselection(ws1)
	e.AddWindow(ws1, c)
	if _, ok := e.Preselection(ws1); ok {
		t.Fatalf("cleared preselection reported")
	}
}

func TestSingleWindowAspectAndFullscreen(t *testing.T) {
	s := testSettings()
	s.SingleWindowAspectRatio = 1.0
	e := NewEngine(s)
	screen := platform.Rect{Width: 2000, Height: 1000}
	h := windows.NewHandle()
	e.AddWindow(ws1, h)

	frames := e.CalculateLayout(ws1, screen)
	want := platform.Rect{X: 500, Y: 0, Width: 1000, Height: 1000}
	if !frames[h].ApproxEqual(want, 1e-9) {
		t.Fatalf("aspect fitted frame = %v, want %v", frames[h], want)
	}

	e.ToggleFullscreen(ws1)
	if !e.IsFullscreen(h) {
		t.Fatalf("window not marked fullscreen")
	}
	frames = e.CalculateLayout(ws1, screen)
	if !frames[h].ApproxEqual(screen, 1e-9) {
		t.Fatalf("fullscreen frame = %v, want %v", frames[h], screen)
	}
}

func TestFullscreenInSplitCoversScreen(t *testing.T) {
	e := NewEngine(testSettings())
	screen := platform.Rect{Width: 1000, Height: 1000}
	a, b := windows.NewHandle(), windows.NewHandle()
	e.AddWindow(ws1, a)
	e.AddWindow(ws1, b)
	e.Select(a)
	e.ToggleFullscreen(ws1)
	frames := e.CalculateLayout(ws1, screen)
	if !frames[a].ApproxEqual(screen, 1e-9) {
		t.Fatalf("fullscreen frame = %v", frames[a])
	}
	if frames[b].ApproxEqual(screen, 1e-9) {
		t.Fatalf("other window also fullscreen")
	}
}

func TestFitAspect(t *testing.T) {
	tests := []struct {
		name  string
		in    platform.Rect
		ratio float64
		want  platform.Rect
	}{
		{"zero ratio", platform.Rect{Width: 100, Height: 50}, 0, platform.Rect{Width: 100, Height: 50}},
		{"too wide", platform.Rect{Width: 300, Height: 100}, 2, platform.Rect{X: 50, Width: 200, Height: 100}},
		{"too tall", platform.Rect{Width: 100, Height: 300}, 1, platform.Rect{Y: 100, Width: 100, Height: 100}},
		{"within tolerance", platform.Rect{Width: 1000, Height: 999}, 1, platform.Rect{Width: 1000, Height: 999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fitAspect(tt.in, tt.ratio); !got.ApproxEqual(tt.want, 1e-9) {
				t.Fatalf("fitAspect(%v, %g) = %v, want %v", tt.in, tt.ratio, got, tt.want)
			}
		})
	}
}

func animatedEngine(t *testing.T, curve Curve) (*Engine, *time.Time) {
	t.Helper()
	s := testSettings()
	s.Animation = AnimationSettings{
		Enabled:      true,
		Curve:        curve,
		Stiffness:    800,
		DampingRatio: 1,
		Duration:     200 * time.Millisecond,
	}
	e := NewEngine(s)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return now })
	return e, &now
}

func TestAnimationStartsAtPreviousFrameAndSettles(t *testing.T) {
	e, now := animatedEngine(t, CurveSpring)
	h := windows.NewHandle()
	e.AddWindow(ws1, h)

	from := platform.Rect{Width: 1000, Height: 1000}
	to := platform.Rect{X: 200, Width: 1000, Height: 1000}
	e.CalculateLayout(ws1, from)
	if e.HasAnimations() {
		t.Fatalf("first layout should not animate")
	}

	base := e.CalculateLayout(ws1, to)
	if !e.HasAnimations() {
		t.Fatalf("moved window did not animate")
	}
	start := *now
	if got := e.CalculateAnimatedFrames(base, start)[h]; !got.ApproxEqual(from, 1e-9) {
		t.Fatalf("animation starts at %v, want %v", got, from)
	}

	mid := e.CalculateAnimatedFrames(base, start.Add(20*time.Millisecond))[h]
	if mid.X <= 0 || mid.X >= 200 {
		t.Fatalf("mid-animation x = %g, want strictly between 0 and 200", mid.X)
	}

	if !e.TickAnimations(start.Add(20 * time.Millisecond)) {
		t.Fatalf("animation finished too early")
	}
	if e.TickAnimations(start.Add(3 * time.Second)) {
		t.Fatalf("animation still running after the cap")
	}
	if got := e.CalculateAnimatedFrames(base, start.Add(3*time.Second))[h]; got != base[h] {
		t.Fatalf("settled frame = %v, want %v", got, base[h])
	}
}

func TestAnimationRetargetsFromVisualPosition(t *testing.T) {
	e, now := animatedEngine(t, CurveCubic)
	h := windows.NewHandle()
	e.AddWindow(ws1, h)

	a := platform.Rect{Width: 1000, Height: 1000}
	b := platform.Rect{X: 400, Width: 1000, Height: 1000}
	e.CalculateLayout(ws1, a)
	base := e.CalculateLayout(ws1, b)

	*now = now.Add(100 * time.Millisecond)
	visual := e.CalculateAnimatedFrames(base, *now)[h]

	base = e.CalculateLayout(ws1, a)
	if got := e.CalculateAnimatedFrames(base, *now)[h]; !got.ApproxEqual(visual, 1e-9) {
		t.Fatalf("retargeted animation jumps: %v, want %v", got, visual)
	}
}

func TestSmallOrDisabledChangesDoNotAnimate(t *testing.T) {
	e, _ := animatedEngine(t, CurveSpring)
	h := windows.NewHandle()
	e.AddWindow(ws1, h)
	e.CalculateLayout(ws1, platform.Rect{Width: 1000, Height: 1000})
	e.CalculateLayout(ws1, platform.Rect{X: 0.4, Width: 1000, Height: 1000})
	if e.HasAnimations() {
		t.Fatalf("sub-pixel change animated")
	}

	s := e.Settings(ws1)
	s.Animation.Enabled = false
	e.SetSettings(ws1, s)
	e.CalculateLayout(ws1, platform.Rect{X: 300, Width: 1000, Height: 1000})
	if e.HasAnimations() {
		t.Fatalf("disabled animation ran")
	}
}

func TestSpringEnvelopeBoundsValue(t *testing.T) {
	for _, zeta := range []float64{0.3, 1, 2.5} {
		v0, _ := spring(1e-9, 800, zeta)
		if v0 < 0.99 {
			t.Fatalf("zeta %g: spring starts at %g, want 1", zeta, v0)
		}
		for ms := 1; ms <= 2000; ms += 7 {
			v, env := spring(float64(ms)/1000, 800, zeta)
			if abs(v) > env+1e-9 {
				t.Fatalf("zeta %g t=%dms: |value| %g exceeds envelope %g", zeta, ms, v, env)
			}
		}
		if _, env := spring(2, 800, zeta); env > 1e-3 {
			t.Fatalf("zeta %g: envelope after 2s = %g", zeta, env)
		}
	}
}

func TestCubicCurve(t *testing.T) {
	a := &animation{
		displacement: [4]float64{100},
		start:        time.Unix(0, 0),
		settings:     AnimationSettings{Curve: CurveCubic, Duration: time.Second},
	}
	if v, _ := a.curve(time.Unix(0, 0).Add(500 * time.Millisecond)); abs(v-0.125) > 1e-9 {
		t.Fatalf("cubic at half time = %g, want 0.125", v)
	}
	if !a.done(time.Unix(1, 0)) {
		t.Fatalf("cubic animation not done at its duration")
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
