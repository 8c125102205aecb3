package ipc

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/workspace"
)

type layoutCall struct {
	cmd CommandType
	p   LayoutPayload
}

type fakeController struct {
	mu      sync.Mutex
	layouts []layoutCall
	moved   [][2]string
	reloads int
}

func (f *fakeController) Status(context.Context) (StatusData, error) {
	return StatusData{Windows: 3, Workspaces: 2, Monitors: 1, ActiveWorkspace: "1"}, nil
}

func (f *fakeController) Workspaces(context.Context) ([]WorkspaceInfo, error) {
	return []WorkspaceInfo{
		{Workspace: workspace.Workspace{ID: 1, Name: "1", Visible: true}, Monitor: "DP-1", Windows: 2},
		{Workspace: workspace.Workspace{ID: 2, Name: "web"}, Windows: 1},
	}, nil
}

func (f *fakeController) Monitors(context.Context) ([]MonitorInfo, error) {
	return []MonitorInfo{{
		Monitor:   workspace.Monitor{ID: 1, Name: "DP-1", Frame: platform.Rect{Width: 1920, Height: 1080}},
		Workspace: "1",
		Focused:   true,
	}}, nil
}

func (f *fakeController) Tree(_ context.Context, ws string) (TreeData, error) {
	if ws == "missing" {
		return TreeData{}, errors.New("unknown workspace \"missing\"")
	}
	return TreeData{Workspace: "1"}, nil
}

func (f *fakeController) Layout(_ context.Context, cmd CommandType, p LayoutPayload) error {
	if cmd == CommandFocus {
		if _, err := p.ParseDirection(); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.layouts = append(f.layouts, layoutCall{cmd: cmd, p: p})
	return nil
}

func (f *fakeController) SummonWorkspace(_ context.Context, name string) (workspace.Workspace, error) {
	return workspace.Workspace{ID: 7, Name: name, Visible: true}, nil
}

func (f *fakeController) MoveWorkspaceToMonitor(_ context.Context, name, monitor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = append(f.moved, [2]string{name, monitor})
	return nil
}

func (f *fakeController) FocusMonitor(_ context.Context, p MonitorPayload) (workspace.Monitor, error) {
	return workspace.Monitor{ID: 2, Name: "HDMI-1"}, nil
}

func (f *fakeController) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func (f *fakeController) snapshot() ([]layoutCall, [][2]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]layoutCall(nil), f.layouts...), append([][2]string(nil), f.moved...), f.reloads
}

func startServer(t *testing.T) (*fakeController, *Client, string) {
	t.Helper()
	// Unix socket paths are length limited; keep it short.
	dir, err := os.MkdirTemp("", "dwipc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ctl := &fakeController{}
	srv, err := NewServer(path, ctl, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return ctl, NewClientAt(path), path
}

func TestServer_RoundTrip(t *testing.T) {
	ctl, client, _ := startServer(t)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Windows != 3 || status.ActiveWorkspace != "1" {
		t.Fatalf("status = %+v", status)
	}

	list, err := client.ListWorkspaces()
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(list) != 2 || list[0].Name != "1" || list[0].Monitor != "DP-1" || list[1].Name != "web" {
		t.Fatalf("workspaces = %+v", list)
	}

	mons, err := client.ListMonitors()
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	if len(mons) != 1 || mons[0].Frame.Width != 1920 || !mons[0].Focused {
		t.Fatalf("monitors = %+v", mons)
	}

	if err := client.Focus("left"); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if err := client.Layout(CommandResize, LayoutPayload{Direction: "right", Delta: 0.1}); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if layouts, _, _ := ctl.snapshot(); len(layouts) != 2 || layouts[1].cmd != CommandResize || layouts[1].p.Delta != 0.1 {
		t.Fatalf("layout calls = %+v", layouts)
	}

	ws, err := client.SummonWorkspace("web")
	if err != nil {
		t.Fatalf("SummonWorkspace: %v", err)
	}
	if ws.Name != "web" || !ws.Visible {
		t.Fatalf("summoned = %+v", ws)
	}

	if err := client.MoveWorkspaceToMonitor("web", "HDMI-1"); err != nil {
		t.Fatalf("MoveWorkspaceToMonitor: %v", err)
	}
	if _, moved, _ := ctl.snapshot(); len(moved) != 1 || moved[0] != [2]string{"web", "HDMI-1"} {
		t.Fatalf("moved = %v", moved)
	}

	mon, err := client.FocusMonitor("right", true)
	if err != nil {
		t.Fatalf("FocusMonitor: %v", err)
	}
	if mon.Name != "HDMI-1" {
		t.Fatalf("focused monitor = %+v", mon)
	}

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, _, reloads := ctl.snapshot(); reloads != 1 {
		t.Fatalf("reloads = %d, want 1", reloads)
	}
}

func TestServer_Errors(t *testing.T) {
	_, client, path := startServer(t)

	if err := client.Focus("sideways"); err == nil || !strings.Contains(err.Error(), "daemon error") {
		t.Fatalf("expected daemon error for bad direction, got %v", err)
	}
	if _, err := client.GetTree("missing"); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected unknown workspace error, got %v", err)
	}
	if err := client.Layout(CommandReload, LayoutPayload{}); err == nil {
		t.Fatal("expected client-side rejection of a non-layout command")
	}

	raw := func(line string) string {
		t.Helper()
		conn, err := net.Dial("unix", path)
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		defer conn.Close()
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		resp, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		return resp
	}

	cases := []struct {
		line string
		want string
	}{
		{"not json", "invalid request"},
		{`{"payload":{}}`, "missing command"},
		{`{"command":"EXPLODE"}`, "unknown command"},
		{`{"command":"SUMMON_WORKSPACE","payload":"oops"}`, "invalid payload"},
	}
	for _, tc := range cases {
		resp := raw(tc.line)
		if !strings.Contains(resp, `"status":"ERROR"`) || !strings.Contains(resp, tc.want) {
			t.Fatalf("request %q: response %q, want ERROR containing %q", tc.line, resp, tc.want)
		}
	}
}

func TestServer_StopRemovesSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "dwipc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "s.sock")

	srv, err := NewServer(path, &fakeController{}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("socket missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("socket permissions = %o, want 600", perm)
	}

	srv.Stop()
	srv.Stop()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("socket still present after Stop: %v", err)
	}
	if err := NewClientAt(path).Ping(); err == nil {
		t.Fatal("Ping after Stop should fail")
	}
}
