package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawOuterGaps struct {
	Left   *float64 `yaml:"left"`
	Right  *float64 `yaml:"right"`
	Top    *float64 `yaml:"top"`
	Bottom *float64 `yaml:"bottom"`
}

type RawGaps struct {
	Inner *float64      `yaml:"inner"`
	Outer *RawOuterGaps `yaml:"outer"`
}

type RawDwindle struct {
	SmartSplit              *bool        `yaml:"smart_split"`
	DefaultSplitRatio       *float64     `yaml:"default_split_ratio"`
	SplitWidthMultiplier    *float64     `yaml:"split_width_multiplier"`
	SingleWindowAspectRatio *AspectRatio `yaml:"single_window_aspect_ratio"`
}

type RawAnimation struct {
	Enabled      *bool          `yaml:"enabled"`
	Curve        *string        `yaml:"curve"`
	Stiffness    *float64       `yaml:"stiffness"`
	DampingRatio *float64       `yaml:"damping_ratio"`
	Duration     *time.Duration `yaml:"duration"`
}

type RawDiscovery struct {
	Interval       *time.Duration `yaml:"interval"`
	SessionTimeout *time.Duration `yaml:"session_timeout"`
	ListTimeout    *time.Duration `yaml:"list_timeout"`
	GCInterval     *time.Duration `yaml:"gc_interval"`
}

// RawMonitor is a per-monitor override.
type RawMonitor struct {
	Gaps    *RawGaps    `yaml:"gaps"`
	Dwindle *RawDwindle `yaml:"dwindle"`
}

type RawConfig struct {
	Include                           IncludeList           `yaml:"include"`
	LogLevel                          *string               `yaml:"log_level"`
	Gaps                              *RawGaps              `yaml:"gaps"`
	Dwindle                           *RawDwindle           `yaml:"dwindle"`
	Animation                         *RawAnimation         `yaml:"animation"`
	Monitors                          map[string]RawMonitor `yaml:"monitors"`
	PersistentWorkspaces              []string              `yaml:"persistent_workspaces"`
	WorkspaceToMonitorForceAssignment map[string]StringList `yaml:"workspace_to_monitor_force_assignment"`
	FloatingApps                      []string              `yaml:"floating_apps"`
	Discovery                         *RawDiscovery         `yaml:"discovery"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Gaps != nil {
		base := RawGaps{}
		if out.Gaps != nil {
			base = *out.Gaps
		}
		merged := mergeRawGaps(base, *overlay.Gaps)
		out.Gaps = &merged
	}
	if overlay.Dwindle != nil {
		base := RawDwindle{}
		if out.Dwindle != nil {
			base = *out.Dwindle
		}
		merged := mergeRawDwindle(base, *overlay.Dwindle)
		out.Dwindle = &merged
	}
	if overlay.Animation != nil {
		if out.Animation == nil {
			out.Animation = &RawAnimation{}
		} else {
			cp := *out.Animation
			out.Animation = &cp
		}
		if overlay.Animation.Enabled != nil {
			out.Animation.Enabled = overlay.Animation.Enabled
		}
		if overlay.Animation.Curve != nil {
			out.Animation.Curve = overlay.Animation.Curve
		}
		if overlay.Animation.Stiffness != nil {
			out.Animation.Stiffness = overlay.Animation.Stiffness
		}
		if overlay.Animation.DampingRatio != nil {
			out.Animation.DampingRatio = overlay.Animation.DampingRatio
		}
		if overlay.Animation.Duration != nil {
			out.Animation.Duration = overlay.Animation.Duration
		}
	}

	if overlay.Monitors != nil {
		monitors := make(map[string]RawMonitor, len(out.Monitors)+len(overlay.Monitors))
		for name, m := range out.Monitors {
			monitors[name] = m
		}
		for name, m := range overlay.Monitors {
			base, ok := monitors[name]
			if !ok {
				monitors[name] = m
				continue
			}
			monitors[name] = mergeRawMonitor(base, m)
		}
		out.Monitors = monitors
	}

	if overlay.PersistentWorkspaces != nil {
		out.PersistentWorkspaces = overlay.PersistentWorkspaces
	}
	if overlay.WorkspaceToMonitorForceAssignment != nil {
		forced := make(map[string]StringList, len(out.WorkspaceToMonitorForceAssignment)+len(overlay.WorkspaceToMonitorForceAssignment))
		for name, list := range out.WorkspaceToMonitorForceAssignment {
			forced[name] = list
		}
		for name, list := range overlay.WorkspaceToMonitorForceAssignment {
			forced[name] = list
		}
		out.WorkspaceToMonitorForceAssignment = forced
	}
	if overlay.FloatingApps != nil {
		out.FloatingApps = overlay.FloatingApps
	}

	if overlay.Discovery != nil {
		if out.Discovery == nil {
			out.Discovery = &RawDiscovery{}
		} else {
			cp := *out.Discovery
			out.Discovery = &cp
		}
		if overlay.Discovery.Interval != nil {
			out.Discovery.Interval = overlay.Discovery.Interval
		}
		if overlay.Discovery.SessionTimeout != nil {
			out.Discovery.SessionTimeout = overlay.Discovery.SessionTimeout
		}
		if overlay.Discovery.ListTimeout != nil {
			out.Discovery.ListTimeout = overlay.Discovery.ListTimeout
		}
		if overlay.Discovery.GCInterval != nil {
			out.Discovery.GCInterval = overlay.Discovery.GCInterval
		}
	}

	return out
}

func mergeRawOuterGaps(base RawOuterGaps, overlay RawOuterGaps) RawOuterGaps {
	out := base
	if overlay.Left != nil {
		out.Left = overlay.Left
	}
	if overlay.Right != nil {
		out.Right = overlay.Right
	}
	if overlay.Top != nil {
		out.Top = overlay.Top
	}
	if overlay.Bottom != nil {
		out.Bottom = overlay.Bottom
	}
	return out
}

func mergeRawGaps(base RawGaps, overlay RawGaps) RawGaps {
	out := base
	if overlay.Inner != nil {
		out.Inner = overlay.Inner
	}
	if overlay.Outer != nil {
		outer := RawOuterGaps{}
		if out.Outer != nil {
			outer = *out.Outer
		}
		merged := mergeRawOuterGaps(outer, *overlay.Outer)
		out.Outer = &merged
	}
	return out
}

func mergeRawDwindle(base RawDwindle, overlay RawDwindle) RawDwindle {
	out := base
	if overlay.SmartSplit != nil {
		out.SmartSplit = overlay.SmartSplit
	}
	if overlay.DefaultSplitRatio != nil {
		out.DefaultSplitRatio = overlay.DefaultSplitRatio
	}
	if overlay.SplitWidthMultiplier != nil {
		out.SplitWidthMultiplier = overlay.SplitWidthMultiplier
	}
	if overlay.SingleWindowAspectRatio != nil {
		out.SingleWindowAspectRatio = overlay.SingleWindowAspectRatio
	}
	return out
}

func mergeRawMonitor(base RawMonitor, overlay RawMonitor) RawMonitor {
	out := base
	if overlay.Gaps != nil {
		gaps := RawGaps{}
		if out.Gaps != nil {
			gaps = *out.Gaps
		}
		merged := mergeRawGaps(gaps, *overlay.Gaps)
		out.Gaps = &merged
	}
	if overlay.Dwindle != nil {
		d := RawDwindle{}
		if out.Dwindle != nil {
			d = *out.Dwindle
		}
		merged := mergeRawDwindle(d, *overlay.Dwindle)
		out.Dwindle = &merged
	}
	return out
}
