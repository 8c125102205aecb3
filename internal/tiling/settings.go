package tiling

import "time"

const (
	minSplitRatio = 0.1
	maxSplitRatio = 1.9
	minFraction   = 0.05
	maxFraction   = 0.95
)

// Gaps are per-edge outer gaps between tiled windows and the tiling area
// boundary.
type Gaps struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Curve selects the animation easing.
type Curve int

const (
	CurveSpring Curve = iota
	CurveCubic
)

func (c Curve) String() string {
	if c == CurveCubic {
		return "cubic"
	}
	return "spring"
}

// AnimationSettings controls layout change animations.
type AnimationSettings struct {
	Enabled bool
	Curve   Curve
	// Stiffness and DampingRatio parameterise the spring (unit mass).
	Stiffness    float64
	DampingRatio float64
	// Duration is the length of the cubic curve.
	Duration time.Duration
}

// Settings are the layout parameters of one workspace.
type Settings struct {
	InnerGap  float64
	OuterGaps Gaps
	// SmartSplit chooses the split axis from the position of the active
	// window relative to the split target.
	SmartSplit bool
	// DefaultSplitRatio is the ratio of new splits; 1.0 means halves.
	DefaultSplitRatio float64
	// SplitWidthMultiplier biases the aspect heuristic towards vertical
	// splits when above 1.
	SplitWidthMultiplier float64
	// SingleWindowAspectRatio is width/height for a lone window. Zero
	// fills the area.
	SingleWindowAspectRatio float64
	Animation               AnimationSettings
}

func DefaultSettings() Settings {
	return Settings{
		InnerGap:             10,
		OuterGaps:            Gaps{Left: 10, Right: 10, Top: 10, Bottom: 10},
		SmartSplit:           false,
		DefaultSplitRatio:    1.0,
		SplitWidthMultiplier: 1.0,
		Animation: AnimationSettings{
			Enabled:      true,
			Curve:        CurveSpring,
			Stiffness:    800,
			DampingRatio: 1.0,
			Duration:     250 * time.Millisecond,
		},
	}
}

func (s Settings) normalized() Settings {
	s.InnerGap = max(s.InnerGap, 0)
	s.OuterGaps.Left = max(s.OuterGaps.Left, 0)
	s.OuterGaps.Right = max(s.OuterGaps.Right, 0)
	s.OuterGaps.Top = max(s.OuterGaps.Top, 0)
	s.OuterGaps.Bottom = max(s.OuterGaps.Bottom, 0)
	if s.DefaultSplitRatio <= 0 {
		s.DefaultSplitRatio = 1.0
	}
	s.DefaultSplitRatio = clampRatio(s.DefaultSplitRatio)
	if s.SplitWidthMultiplier <= 0 {
		s.SplitWidthMultiplier = 1.0
	}
	s.SingleWindowAspectRatio = max(s.SingleWindowAspectRatio, 0)
	if s.Animation.Stiffness <= 0 {
		s.Animation.Stiffness = 800
	}
	if s.Animation.DampingRatio <= 0 {
		s.Animation.DampingRatio = 1.0
	}
	if s.Animation.Duration <= 0 {
		s.Animation.Duration = 250 * time.Millisecond
	}
	return s
}

func clampRatio(r float64) float64 {
	return min(max(r, minSplitRatio), maxSplitRatio)
}

// splitFraction turns a split ratio into the share of the first child.
func splitFraction(ratio float64) float64 {
	return min(max(clampRatio(ratio)/2, minFraction), maxFraction)
}
