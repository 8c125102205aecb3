package workspace

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "1", false},
		{"  web  ", "web", false},
		{"dev-2", "dev-2", false},
		{"", "", true},
		{"   ", "", true},
		{"two words", "", true},
		{"tab\tname", "", true},
		{"bell\a", "", true},
		{"next", "", true},
		{"Focused", "", true},
		{strings.Repeat("x", MaxNameLength), strings.Repeat("x", MaxNameLength), false},
		{strings.Repeat("x", MaxNameLength+1), "", true},
	}
	for _, tt := range tests {
		got, err := ParseName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseName(%q) = %q, expected error", tt.in, got)
			}
			if !errors.Is(err, ErrInvalidName) {
				t.Fatalf("ParseName(%q) error %v does not wrap ErrInvalidName", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCompareNamesLogicalOrder(t *testing.T) {
	names := []string{"web", "10", "2", "Chat", "1", "dev10", "dev2", "007", "b", "A"}
	sort.Slice(names, func(i, j int) bool { return CompareNames(names[i], names[j]) < 0 })

	want := []string{"1", "2", "007", "10", "A", "b", "Chat", "dev2", "dev10", "web"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", names, want)
		}
	}
}

func TestCompareNamesIsAntisymmetric(t *testing.T) {
	pairs := [][2]string{{"1", "2"}, {"a", "B"}, {"x1", "x01"}, {"9", "a"}, {"same", "same"}}
	for _, p := range pairs {
		if CompareNames(p[0], p[1]) != -CompareNames(p[1], p[0]) {
			t.Fatalf("CompareNames not antisymmetric for %q, %q", p[0], p[1])
		}
	}
}

func TestParseMonitorPattern(t *testing.T) {
	mons := []Monitor{
		{ID: 1, Name: "DP-1", Frame: rect(-1920, 0, 1920, 1080)},
		{ID: 2, Name: "eDP-1", Frame: rect(0, 0, 1920, 1080)},
		{ID: 3, Name: "HDMI-A-1", Frame: rect(1920, 0, 2560, 1440)},
	}
	sortMonitors(mons)

	tests := []struct {
		pattern string
		want    MonitorID
		ok      bool
	}{
		{"main", 2, true},
		{"secondary", 1, true},
		{"1", 1, true},
		{"3", 3, true},
		{"4", 0, false},
		{"hdmi", 3, true},
		{"^edp", 2, true},
		{"vga", 0, false},
	}
	for _, tt := range tests {
		p, err := ParseMonitorPattern(tt.pattern)
		if err != nil {
			t.Fatalf("ParseMonitorPattern(%q): %v", tt.pattern, err)
		}
		got, ok := p.match(mons)
		if ok != tt.ok || got.ID != tt.want {
			t.Fatalf("pattern %q matched %d (%v), want %d (%v)", tt.pattern, got.ID, ok, tt.want, tt.ok)
		}
	}

	for _, bad := range []string{"", "0", "(unclosed"} {
		if _, err := ParseMonitorPattern(bad); err == nil {
			t.Fatalf("expected error for pattern %q", bad)
		}
	}
}
