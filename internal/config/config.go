package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/dwindle/internal/tiling"
	"github.com/1broseidon/dwindle/internal/workspace"
	"gopkg.in/yaml.v3"
)

// Gaps are per-edge outer gaps in points.
type Gaps struct {
	Left   float64 `yaml:"left"`
	Right  float64 `yaml:"right"`
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
}

// GapSettings configures spacing between tiled windows.
type GapSettings struct {
	Inner float64 `yaml:"inner"`
	Outer Gaps    `yaml:"outer"`
}

// DwindleSettings configures the split behaviour.
type DwindleSettings struct {
	SmartSplit           bool    `yaml:"smart_split"`
	DefaultSplitRatio    float64 `yaml:"default_split_ratio"`
	SplitWidthMultiplier float64 `yaml:"split_width_multiplier"`
	// SingleWindowAspectRatio is "W:H", a decimal, or empty for none.
	SingleWindowAspectRatio AspectRatio `yaml:"single_window_aspect_ratio"`
}

// AnimationConfig configures layout animations.
type AnimationConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Curve        string        `yaml:"curve"`
	Stiffness    float64       `yaml:"stiffness"`
	DampingRatio float64       `yaml:"damping_ratio"`
	Duration     time.Duration `yaml:"duration"`
}

// MonitorOverride replaces layout settings on one monitor. Unset fields
// inherit the global value.
type MonitorOverride struct {
	Gaps    *GapOverride     `yaml:"gaps,omitempty"`
	Dwindle *DwindleOverride `yaml:"dwindle,omitempty"`
}

type GapOverride struct {
	Inner *float64          `yaml:"inner,omitempty"`
	Outer *OuterGapOverride `yaml:"outer,omitempty"`
}

type OuterGapOverride struct {
	Left   *float64 `yaml:"left,omitempty"`
	Right  *float64 `yaml:"right,omitempty"`
	Top    *float64 `yaml:"top,omitempty"`
	Bottom *float64 `yaml:"bottom,omitempty"`
}

type DwindleOverride struct {
	SmartSplit              *bool        `yaml:"smart_split,omitempty"`
	DefaultSplitRatio       *float64     `yaml:"default_split_ratio,omitempty"`
	SplitWidthMultiplier    *float64     `yaml:"split_width_multiplier,omitempty"`
	SingleWindowAspectRatio *AspectRatio `yaml:"single_window_aspect_ratio,omitempty"`
}

// Discovery configures the window discovery loop and session timeouts.
type Discovery struct {
	Interval       time.Duration `yaml:"interval"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	ListTimeout    time.Duration `yaml:"list_timeout"`
	GCInterval     time.Duration `yaml:"gc_interval"`
}

// Config holds the application configuration.
type Config struct {
	LogLevel                          string                     `yaml:"log_level"`
	Gaps                              GapSettings                `yaml:"gaps"`
	Dwindle                           DwindleSettings            `yaml:"dwindle"`
	Animation                         AnimationConfig            `yaml:"animation"`
	Monitors                          map[string]MonitorOverride `yaml:"monitors,omitempty"`
	PersistentWorkspaces              []string                   `yaml:"persistent_workspaces"`
	WorkspaceToMonitorForceAssignment map[string]StringList      `yaml:"workspace_to_monitor_force_assignment,omitempty"`
	FloatingApps                      []string                   `yaml:"floating_apps"`
	Discovery                         Discovery                  `yaml:"discovery"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Gaps: GapSettings{
			Inner: 10,
			Outer: Gaps{Left: 10, Right: 10, Top: 10, Bottom: 10},
		},
		Dwindle: DwindleSettings{
			SmartSplit:           false,
			DefaultSplitRatio:    1.0,
			SplitWidthMultiplier: 1.0,
		},
		Animation: AnimationConfig{
			Enabled:      true,
			Curve:        "spring",
			Stiffness:    800,
			DampingRatio: 1.0,
			Duration:     250 * time.Millisecond,
		},
		Monitors:                          map[string]MonitorOverride{},
		PersistentWorkspaces:              []string{"1", "2", "3"},
		WorkspaceToMonitorForceAssignment: map[string]StringList{},
		FloatingApps:                      []string{},
		Discovery: Discovery{
			Interval:       time.Second,
			SessionTimeout: 2 * time.Second,
			ListTimeout:    500 * time.Millisecond,
			GCInterval:     10 * time.Second,
		},
	}
}

// Resolved is the layout configuration in effect on one monitor.
type Resolved struct {
	Gaps      GapSettings
	Dwindle   DwindleSettings
	Animation AnimationConfig
}

// ResolvedFor merges the overrides for monitorName over the global values.
func (c *Config) ResolvedFor(monitorName string) Resolved {
	r := Resolved{Gaps: c.Gaps, Dwindle: c.Dwindle, Animation: c.Animation}
	o, ok := c.Monitors[monitorName]
	if !ok {
		return r
	}
	if g := o.Gaps; g != nil {
		setFloat(&r.Gaps.Inner, g.Inner)
		if o := g.Outer; o != nil {
			setFloat(&r.Gaps.Outer.Left, o.Left)
			setFloat(&r.Gaps.Outer.Right, o.Right)
			setFloat(&r.Gaps.Outer.Top, o.Top)
			setFloat(&r.Gaps.Outer.Bottom, o.Bottom)
		}
	}
	if d := o.Dwindle; d != nil {
		if d.SmartSplit != nil {
			r.Dwindle.SmartSplit = *d.SmartSplit
		}
		setFloat(&r.Dwindle.DefaultSplitRatio, d.DefaultSplitRatio)
		setFloat(&r.Dwindle.SplitWidthMultiplier, d.SplitWidthMultiplier)
		if d.SingleWindowAspectRatio != nil {
			r.Dwindle.SingleWindowAspectRatio = *d.SingleWindowAspectRatio
		}
	}
	return r
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// TilingSettings converts resolved values into layout engine settings.
func (r Resolved) TilingSettings() tiling.Settings {
	curve := tiling.CurveSpring
	if r.Animation.Curve == "cubic" {
		curve = tiling.CurveCubic
	}
	return tiling.Settings{
		InnerGap: r.Gaps.Inner,
		OuterGaps: tiling.Gaps{
			Left:   r.Gaps.Outer.Left,
			Right:  r.Gaps.Outer.Right,
			Top:    r.Gaps.Outer.Top,
			Bottom: r.Gaps.Outer.Bottom,
		},
		SmartSplit:              r.Dwindle.SmartSplit,
		DefaultSplitRatio:       r.Dwindle.DefaultSplitRatio,
		SplitWidthMultiplier:    r.Dwindle.SplitWidthMultiplier,
		SingleWindowAspectRatio: float64(r.Dwindle.SingleWindowAspectRatio),
		Animation: tiling.AnimationSettings{
			Enabled:      r.Animation.Enabled,
			Curve:        curve,
			Stiffness:    r.Animation.Stiffness,
			DampingRatio: r.Animation.DampingRatio,
			Duration:     r.Animation.Duration,
		},
	}
}

// WorkspaceSettings builds the workspace manager snapshot.
func (c *Config) WorkspaceSettings() (workspace.Settings, error) {
	forced := make(map[string][]string, len(c.WorkspaceToMonitorForceAssignment))
	for name, monitors := range c.WorkspaceToMonitorForceAssignment {
		forced[name] = monitors
	}
	return workspace.NewSettings(c.PersistentWorkspaces, forced)
}

// SlogLevel maps log_level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel accepts debug, info, warning (or warn) and error. Unknown
// values map to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if err := validateGaps("gaps", c.Gaps); err != nil {
		return err
	}
	if err := validateDwindle("dwindle", c.Dwindle); err != nil {
		return err
	}

	switch c.Animation.Curve {
	case "spring", "cubic":
	default:
		return &ValidationError{Path: "animation.curve", Err: fmt.Errorf("curve must be one of: spring, cubic")}
	}
	if c.Animation.Stiffness <= 0 {
		return &ValidationError{Path: "animation.stiffness", Err: fmt.Errorf("stiffness must be > 0")}
	}
	if c.Animation.DampingRatio <= 0 {
		return &ValidationError{Path: "animation.damping_ratio", Err: fmt.Errorf("damping_ratio must be > 0")}
	}
	if c.Animation.Duration <= 0 {
		return &ValidationError{Path: "animation.duration", Err: fmt.Errorf("duration must be > 0")}
	}

	for _, name := range sortedKeys(c.Monitors) {
		r := c.ResolvedFor(name)
		prefix := "monitors." + name
		if err := validateGaps(prefix+".gaps", r.Gaps); err != nil {
			return err
		}
		if err := validateDwindle(prefix+".dwindle", r.Dwindle); err != nil {
			return err
		}
	}

	for i, name := range c.PersistentWorkspaces {
		if _, err := workspace.ParseName(name); err != nil {
			return &ValidationError{Path: "persistent_workspaces", Err: fmt.Errorf("entry %d: %w", i, err)}
		}
	}
	for _, name := range sortedKeys(c.WorkspaceToMonitorForceAssignment) {
		path := "workspace_to_monitor_force_assignment." + name
		if _, err := workspace.ParseName(name); err != nil {
			return &ValidationError{Path: path, Err: err}
		}
		if len(c.WorkspaceToMonitorForceAssignment[name]) == 0 {
			return &ValidationError{Path: path, Err: fmt.Errorf("at least one monitor pattern is required")}
		}
		for _, p := range c.WorkspaceToMonitorForceAssignment[name] {
			if _, err := workspace.ParseMonitorPattern(p); err != nil {
				return &ValidationError{Path: path, Err: err}
			}
		}
	}
	for _, app := range c.FloatingApps {
		if strings.TrimSpace(app) == "" {
			return &ValidationError{Path: "floating_apps", Err: fmt.Errorf("floating_apps contains an empty entry")}
		}
	}

	d := c.Discovery
	if d.Interval < 100*time.Millisecond {
		return &ValidationError{Path: "discovery.interval", Err: fmt.Errorf("interval must be >= 100ms")}
	}
	if d.SessionTimeout <= 0 {
		return &ValidationError{Path: "discovery.session_timeout", Err: fmt.Errorf("session_timeout must be > 0")}
	}
	if d.ListTimeout <= 0 {
		return &ValidationError{Path: "discovery.list_timeout", Err: fmt.Errorf("list_timeout must be > 0")}
	}
	if d.GCInterval <= 0 {
		return &ValidationError{Path: "discovery.gc_interval", Err: fmt.Errorf("gc_interval must be > 0")}
	}
	return nil
}

func validateGaps(path string, g GapSettings) error {
	if g.Inner < 0 {
		return &ValidationError{Path: path + ".inner", Err: fmt.Errorf("inner gap must be >= 0")}
	}
	if g.Outer.Left < 0 || g.Outer.Right < 0 || g.Outer.Top < 0 || g.Outer.Bottom < 0 {
		return &ValidationError{Path: path + ".outer", Err: fmt.Errorf("outer gaps must be >= 0")}
	}
	return nil
}

func validateDwindle(path string, d DwindleSettings) error {
	if d.DefaultSplitRatio < 0.1 || d.DefaultSplitRatio > 1.9 {
		return &ValidationError{Path: path + ".default_split_ratio", Err: fmt.Errorf("default_split_ratio must be between 0.1 and 1.9")}
	}
	if d.SplitWidthMultiplier <= 0 {
		return &ValidationError{Path: path + ".split_width_multiplier", Err: fmt.Errorf("split_width_multiplier must be > 0")}
	}
	if d.SingleWindowAspectRatio < 0 {
		return &ValidationError{Path: path + ".single_window_aspect_ratio", Err: fmt.Errorf("single_window_aspect_ratio must be >= 0")}
	}
	return nil
}

// AspectRatio is width divided by height. It decodes from "16:9" or a
// plain number; zero means unset.
type AspectRatio float64

var aspectPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*:\s*(\d+(?:\.\d+)?)\s*$`)

func (a *AspectRatio) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("aspect ratio must be a scalar")
	}
	s := strings.TrimSpace(value.Value)
	if s == "" || s == "0" || strings.EqualFold(s, "none") {
		*a = 0
		return nil
	}
	if m := aspectPattern.FindStringSubmatch(s); m != nil {
		w, _ := strconv.ParseFloat(m[1], 64)
		h, _ := strconv.ParseFloat(m[2], 64)
		if w <= 0 || h <= 0 {
			return fmt.Errorf("aspect ratio %q must have positive terms", s)
		}
		*a = AspectRatio(w / h)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return fmt.Errorf("invalid aspect ratio %q (want W:H or a positive number)", s)
	}
	*a = AspectRatio(f)
	return nil
}

func (a AspectRatio) MarshalYAML() (any, error) {
	if a == 0 {
		return "", nil
	}
	return float64(a), nil
}

// StringList supports either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" && value.Tag != "!!int" {
			return fmt.Errorf("must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("must be a string or list of strings")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
