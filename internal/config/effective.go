package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.Gaps != nil {
		applyGaps(&cfg.Gaps, *raw.Gaps)
	}
	if raw.Dwindle != nil {
		applyDwindle(&cfg.Dwindle, *raw.Dwindle)
	}
	if a := raw.Animation; a != nil {
		if a.Enabled != nil {
			cfg.Animation.Enabled = *a.Enabled
		}
		if a.Curve != nil {
			cfg.Animation.Curve = strings.ToLower(strings.TrimSpace(*a.Curve))
		}
		if a.Stiffness != nil {
			cfg.Animation.Stiffness = *a.Stiffness
		}
		if a.DampingRatio != nil {
			cfg.Animation.DampingRatio = *a.DampingRatio
		}
		if a.Duration != nil {
			cfg.Animation.Duration = *a.Duration
		}
	}

	for name, m := range raw.Monitors {
		if strings.TrimSpace(name) == "" {
			return nil, &ValidationError{Path: "monitors", Err: fmt.Errorf("monitor name must not be empty")}
		}
		var o MonitorOverride
		if m.Gaps != nil {
			o.Gaps = &GapOverride{Inner: m.Gaps.Inner}
			if outer := m.Gaps.Outer; outer != nil {
				o.Gaps.Outer = &OuterGapOverride{
					Left:   outer.Left,
					Right:  outer.Right,
					Top:    outer.Top,
					Bottom: outer.Bottom,
				}
			}
		}
		if d := m.Dwindle; d != nil {
			o.Dwindle = &DwindleOverride{
				SmartSplit:              d.SmartSplit,
				DefaultSplitRatio:       d.DefaultSplitRatio,
				SplitWidthMultiplier:    d.SplitWidthMultiplier,
				SingleWindowAspectRatio: d.SingleWindowAspectRatio,
			}
		}
		cfg.Monitors[name] = o
	}

	if raw.PersistentWorkspaces != nil {
		cfg.PersistentWorkspaces = trimAll(raw.PersistentWorkspaces)
	}
	for name, monitors := range raw.WorkspaceToMonitorForceAssignment {
		cfg.WorkspaceToMonitorForceAssignment[strings.TrimSpace(name)] = StringList(trimAll(monitors))
	}
	if raw.FloatingApps != nil {
		cfg.FloatingApps = trimAll(raw.FloatingApps)
	}

	if d := raw.Discovery; d != nil {
		if d.Interval != nil {
			cfg.Discovery.Interval = *d.Interval
		}
		if d.SessionTimeout != nil {
			cfg.Discovery.SessionTimeout = *d.SessionTimeout
		}
		if d.ListTimeout != nil {
			cfg.Discovery.ListTimeout = *d.ListTimeout
		}
		if d.GCInterval != nil {
			cfg.Discovery.GCInterval = *d.GCInterval
		}
	}

	return cfg, nil
}

func applyGaps(dst *GapSettings, raw RawGaps) {
	setFloat(&dst.Inner, raw.Inner)
	if o := raw.Outer; o != nil {
		setFloat(&dst.Outer.Left, o.Left)
		setFloat(&dst.Outer.Right, o.Right)
		setFloat(&dst.Outer.Top, o.Top)
		setFloat(&dst.Outer.Bottom, o.Bottom)
	}
}

func applyDwindle(dst *DwindleSettings, raw RawDwindle) {
	if raw.SmartSplit != nil {
		dst.SmartSplit = *raw.SmartSplit
	}
	setFloat(&dst.DefaultSplitRatio, raw.DefaultSplitRatio)
	setFloat(&dst.SplitWidthMultiplier, raw.SplitWidthMultiplier)
	if raw.SingleWindowAspectRatio != nil {
		dst.SingleWindowAspectRatio = *raw.SingleWindowAspectRatio
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
