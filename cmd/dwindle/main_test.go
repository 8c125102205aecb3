package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/1broseidon/dwindle/internal/config"
	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/tiling"
	"github.com/1broseidon/dwindle/internal/workspace"
)

func init() {
	color.NoColor = true
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceFile}, "file"},
		{config.Source{Kind: config.SourceDefault, Name: "defaults"}, "default:defaults"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Errorf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestWriteWorkspaces(t *testing.T) {
	var buf bytes.Buffer
	writeWorkspaces(&buf, []ipc.WorkspaceInfo{
		{Workspace: workspace.Workspace{Name: "1", Visible: true, Persistent: true}, Monitor: "DP-1", Windows: 3},
		{Workspace: workspace.Workspace{Name: "web"}},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if f := strings.Fields(lines[1]); len(f) != 4 || f[0] != "1" || f[1] != "DP-1" || f[2] != "3" || f[3] != "persistent" {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if f := strings.Fields(lines[2]); len(f) != 3 || f[0] != "web" || f[1] != "-" || f[2] != "0" {
		t.Fatalf("row 2 = %q", lines[2])
	}
}

func TestWriteTree(t *testing.T) {
	frame := platform.Rect{Width: 995, Height: 1000}
	root := tiling.NodeInfo{
		Orientation: "horizontal",
		Ratio:       1,
		Children: []tiling.NodeInfo{
			{Frame: &frame},
			{Selected: true, Fullscreen: true},
		},
	}
	var buf bytes.Buffer
	writeTree(&buf, root, 0)
	want := "horizontal 1.00\n  (empty) 995x1000+0+0\n  (empty) [fullscreen] *\n"
	if buf.String() != want {
		t.Fatalf("tree =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"daemon"},
		{"focus"}, {"move"}, {"swap"}, {"resize"}, {"balance"}, {"orientation"},
		{"fullscreen"}, {"ratio"}, {"root"}, {"preselect"},
		{"workspace"}, {"workspace", "list"}, {"workspace", "move-to-monitor"},
		{"monitor", "focus"}, {"monitor", "list"},
		{"status"}, {"tree"}, {"reload"},
		{"config", "validate"}, {"config", "print"}, {"config", "explain"},
		{"mcp", "serve"},
	} {
		cmd, rest, err := rootCmd.Find(path)
		if err != nil || len(rest) != 0 || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found (got %v, rest %v, err %v)", path, cmd.Name(), rest, err)
		}
	}
}
