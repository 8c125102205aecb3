package workspace

import (
	"fmt"
	"sort"
)

// ForceAssignment pins a workspace to the first connected monitor matched by
// one of its patterns.
type ForceAssignment struct {
	Workspace string
	Monitors  []MonitorPattern
}

// Settings is the read-only snapshot the manager reconciles against.
type Settings struct {
	Persistent []string
	Forced     []ForceAssignment
}

// NewSettings validates names and compiles monitor patterns. forced maps a
// workspace name to its ordered pattern list.
func NewSettings(persistent []string, forced map[string][]string) (Settings, error) {
	var s Settings
	for _, raw := range persistent {
		name, err := ParseName(raw)
		if err != nil {
			return Settings{}, fmt.Errorf("persistent workspace: %w", err)
		}
		s.Persistent = append(s.Persistent, name)
	}
	for rawName, patterns := range forced {
		name, err := ParseName(rawName)
		if err != nil {
			return Settings{}, fmt.Errorf("forced assignment: %w", err)
		}
		fa := ForceAssignment{Workspace: name}
		for _, raw := range patterns {
			p, err := ParseMonitorPattern(raw)
			if err != nil {
				return Settings{}, fmt.Errorf("forced assignment for %q: %w", name, err)
			}
			fa.Monitors = append(fa.Monitors, p)
		}
		s.Forced = append(s.Forced, fa)
	}
	sortForced(s.Forced)
	return s, nil
}

func sortForced(list []ForceAssignment) {
	sort.Slice(list, func(i, j int) bool {
		return CompareNames(list[i].Workspace, list[j].Workspace) < 0
	})
}

func (s Settings) isPersistent(name string) bool {
	for _, p := range s.Persistent {
		if p == name {
			return true
		}
	}
	return false
}

func (s Settings) patterns(name string) []MonitorPattern {
	for _, fa := range s.Forced {
		if fa.Workspace == name {
			return fa.Monitors
		}
	}
	return nil
}
