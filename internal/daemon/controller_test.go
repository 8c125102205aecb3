package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/dwindle/internal/ax"
	"github.com/1broseidon/dwindle/internal/config"
	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/platform/platformtest"
)

func rect(x, y, w, h float64) platform.Rect {
	return platform.Rect{X: x, Y: y, Width: w, Height: h}
}

func display(id int, name string, x float64) platform.Display {
	r := rect(x, 0, 2000, 1000)
	return platform.Display{ID: id, Name: name, Frame: r, Visible: r}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Gaps = config.GapSettings{Inner: 10}
	cfg.Animation.Enabled = false
	cfg.PersistentWorkspaces = []string{"1"}
	cfg.Discovery.Interval = time.Hour
	return cfg
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	c        *Controller
	backend  *platformtest.Backend
	access   *platformtest.Accessibility
	registry *ax.Registry

	mu      sync.Mutex
	windows map[int][]platform.AXWindow
	dead    map[int]bool
}

func newHarness(t *testing.T, cfg *config.Config, configPath string, displays ...platform.Display) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		backend: platformtest.NewBackend(displays...),
		access:  platformtest.NewAccessibility(),
		windows: make(map[int][]platform.AXWindow),
		dead:    make(map[int]bool),
	}
	h.registry = ax.NewRegistry(h.access, ax.Options{ProcessExists: h.alive})
	t.Cleanup(h.registry.Close)

	c, err := NewController(Options{
		Backend:       h.backend,
		Registry:      h.registry,
		Config:        cfg,
		ConfigPath:    configPath,
		ProcessExists: h.alive,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	h.c = c
	return h
}

func (h *harness) alive(pid int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.dead[pid]
}

func (h *harness) kill(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dead[pid] = true
}

// start runs the controller and waits for the first discovery pass.
func (h *harness) start() {
	h.t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.c.Run(ctx)
	}()
	h.t.Cleanup(func() {
		cancel()
		<-done
	})
	h.ctx = ctx
	h.refresh()
}

// refresh runs a discovery pass and waits until no other pass is pending.
func (h *harness) refresh() {
	h.t.Helper()
	if err := h.c.Refresh(h.ctx); err != nil {
		h.t.Fatalf("Refresh: %v", err)
	}
	h.eventually("discovery idle", func() bool {
		busy, err := call(h.ctx, h.c, func() (bool, error) { return h.c.discovering, nil })
		return err == nil && !busy
	})
}

func (h *harness) addWindow(pid int, id platform.WindowID, frame platform.Rect) {
	h.backend.AddWindow(platform.WindowInfo{ID: id, PID: pid, Frame: frame})
	h.mu.Lock()
	h.windows[pid] = append(h.windows[pid], platform.AXWindow{
		ID:                      id,
		BundleID:                "org.example.term",
		Title:                   "term",
		Subrole:                 platform.SubroleStandard,
		HasCloseButton:          true,
		FullscreenButtonEnabled: true,
		Frame:                   frame,
	})
	list := append([]platform.AXWindow(nil), h.windows[pid]...)
	h.mu.Unlock()
	h.access.App(pid).SetWindows(list...)
}

func (h *harness) removeWindow(pid int, id platform.WindowID) {
	h.backend.RemoveWindow(id)
	h.mu.Lock()
	var keep []platform.AXWindow
	for _, w := range h.windows[pid] {
		if w.ID != id {
			keep = append(keep, w)
		}
	}
	h.windows[pid] = keep
	h.mu.Unlock()
	h.access.App(pid).SetWindows(keep...)
}

func (h *harness) eventually(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) waitFrame(pid int, id platform.WindowID, want platform.Rect) {
	h.t.Helper()
	app := h.access.App(pid)
	deadline := time.Now().Add(3 * time.Second)
	for {
		got, ok := app.Frame(id)
		if ok && got == want {
			return
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("window %d frame = %v (set %v), want %v", id, got, ok, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestControllerTilesDiscoveredWindows(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(100, 2, rect(200, 200, 400, 300))
	h.start()

	h.waitFrame(100, 1, rect(0, 0, 995, 1000))
	h.waitFrame(100, 2, rect(1005, 0, 995, 1000))

	list, err := h.c.Workspaces(h.ctx)
	if err != nil {
		t.Fatalf("Workspaces: %v", err)
	}
	if len(list) != 1 || list[0].Name != "1" || list[0].Monitor != "DP-1" || list[0].Windows != 2 || !list[0].Visible {
		t.Fatalf("workspaces = %+v", list)
	}

	st, err := h.c.Status(h.ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Windows != 2 || st.Monitors != 1 || st.ActiveWorkspace != "1" || st.FocusedMonitor != "DP-1" {
		t.Fatalf("status = %+v", st)
	}
	if len(st.Sessions) != 1 || st.Sessions[0].PID != 100 {
		t.Fatalf("sessions = %+v", st.Sessions)
	}

	tree, err := h.c.Tree(h.ctx, "")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if tree.Root == nil || tree.Root.Orientation != "horizontal" || len(tree.Root.Children) != 2 {
		t.Fatalf("tree = %+v", tree)
	}
	if _, err := h.c.Tree(h.ctx, "nope"); err == nil {
		t.Fatal("Tree of an unknown workspace should fail")
	}
}

func TestControllerIgnoresIneligibleWindows(t *testing.T) {
	cfg := testConfig()
	cfg.FloatingApps = []string{"org.example.float"}
	h := newHarness(t, cfg, "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.access.App(200).SetWindows(platform.AXWindow{
		ID: 9, BundleID: "org.example.float", Subrole: platform.SubroleStandard,
		HasCloseButton: true, FullscreenButtonEnabled: true,
	})
	h.backend.AddWindow(platform.WindowInfo{ID: 9, PID: 200})
	h.start()

	h.waitFrame(100, 1, rect(0, 0, 2000, 1000))
	if _, ok := h.access.App(200).Frame(9); ok {
		t.Fatal("floating app window was tiled")
	}
}

func TestControllerCloseEventRetiles(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(100, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(100, 2, rect(1005, 0, 995, 1000))

	h.removeWindow(100, 2)
	h.backend.Emit(platform.Event{Kind: platform.EventWindowClosed, PID: 100, WindowID: 2})
	h.waitFrame(100, 1, rect(0, 0, 2000, 1000))

	h.addWindow(100, 3, rect(0, 0, 10, 10))
	h.refresh()
	h.waitFrame(100, 1, rect(0, 0, 995, 1000))
	h.waitFrame(100, 3, rect(1005, 0, 995, 1000))
}

func TestControllerUnavailableProcessIsLeftAlone(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(100, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(100, 2, rect(1005, 0, 995, 1000))

	h.access.App(100).SetListError(errors.New("busy"))
	h.refresh()

	st, err := h.c.Status(h.ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Windows != 2 {
		t.Fatalf("windows = %d after a failed listing, want 2", st.Windows)
	}
}

func TestControllerProcessTerminated(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(200, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(200, 2, rect(1005, 0, 995, 1000))

	h.kill(200)
	h.removeWindow(200, 2)
	h.backend.Emit(platform.Event{Kind: platform.EventProcessTerminated, PID: 200})
	h.waitFrame(100, 1, rect(0, 0, 2000, 1000))

	h.eventually("session of pid 200 destroyed", func() bool {
		for _, s := range h.registry.Sessions() {
			if s.PID == 200 {
				return false
			}
		}
		return true
	})
	if !h.access.App(200).Closed() {
		t.Fatal("application element of the terminated process was not closed")
	}
}

func TestControllerLayoutCommands(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(100, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(100, 2, rect(1005, 0, 995, 1000))

	// The newest window is selected and has nothing to its right.
	if err := h.c.Layout(h.ctx, ipc.CommandSwap, ipc.LayoutPayload{Direction: "right"}); !errors.Is(err, ErrNoNeighbor) {
		t.Fatalf("swap right = %v, want ErrNoNeighbor", err)
	}
	if err := h.c.Layout(h.ctx, ipc.CommandSwap, ipc.LayoutPayload{Direction: "left"}); err != nil {
		t.Fatalf("swap left: %v", err)
	}
	h.waitFrame(100, 2, rect(0, 0, 995, 1000))
	h.waitFrame(100, 1, rect(1005, 0, 995, 1000))

	if err := h.c.Layout(h.ctx, ipc.CommandFocus, ipc.LayoutPayload{Direction: "right"}); err != nil {
		t.Fatalf("focus right: %v", err)
	}
	if id, ok := h.backend.FocusedWindow(); !ok || id != 1 {
		t.Fatalf("focused window = %d, want 1", id)
	}
	st, _ := h.c.Status(h.ctx)
	if st.FocusedWindow == "" {
		t.Fatal("status reports no focused window after focus")
	}

	if err := h.c.Layout(h.ctx, ipc.CommandToggleOrientation, ipc.LayoutPayload{}); err != nil {
		t.Fatalf("toggle orientation: %v", err)
	}
	h.waitFrame(100, 2, rect(0, 0, 2000, 495))
	h.waitFrame(100, 1, rect(0, 505, 2000, 495))

	if err := h.c.Layout(h.ctx, ipc.CommandToggleFullscreen, ipc.LayoutPayload{}); err != nil {
		t.Fatalf("toggle fullscreen: %v", err)
	}
	h.waitFrame(100, 1, rect(0, 0, 2000, 1000))

	if err := h.c.Layout(h.ctx, ipc.CommandFocus, ipc.LayoutPayload{Direction: "diagonal"}); err == nil {
		t.Fatal("invalid direction accepted")
	}
	if err := h.c.Layout(h.ctx, ipc.CommandBalance, ipc.LayoutPayload{Workspace: "missing"}); err == nil {
		t.Fatal("layout command on an unknown workspace accepted")
	}
}

func TestControllerPreselectPlacesNextWindow(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.start()
	h.waitFrame(100, 1, rect(0, 0, 2000, 1000))

	if err := h.c.Layout(h.ctx, ipc.CommandPreselect, ipc.LayoutPayload{Direction: "up"}); err != nil {
		t.Fatalf("preselect: %v", err)
	}
	h.addWindow(100, 2, rect(0, 0, 10, 10))
	h.refresh()
	h.waitFrame(100, 2, rect(0, 0, 2000, 495))
	h.waitFrame(100, 1, rect(0, 505, 2000, 495))
}

func TestControllerSummonParksHiddenWorkspace(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(100, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(100, 2, rect(1005, 0, 995, 1000))
	calls := len(h.access.App(100).SetCalls())

	ws, err := h.c.SummonWorkspace(h.ctx, "web")
	if err != nil {
		t.Fatalf("SummonWorkspace: %v", err)
	}
	if ws.Name != "web" || !ws.Visible {
		t.Fatalf("summoned = %+v", ws)
	}
	for _, id := range []platform.WindowID{1, 2} {
		got, _ := h.backend.WindowBounds(id)
		if got.X != 1999 || got.Y != 999 {
			t.Fatalf("window %d at %v, want parked at (1999, 999)", id, got)
		}
	}

	if _, err := h.c.SummonWorkspace(h.ctx, "1"); err != nil {
		t.Fatalf("SummonWorkspace(1): %v", err)
	}
	h.eventually("windows pushed back", func() bool {
		return len(h.access.App(100).SetCalls()) >= calls+2
	})
	h.waitFrame(100, 1, rect(0, 0, 995, 1000))

	report, err := h.c.Maintain(h.ctx)
	if err != nil {
		t.Fatalf("Maintain: %v", err)
	}
	if len(report.Workspaces) != 1 || report.Workspaces[0] != "web" {
		t.Fatalf("collected workspaces = %v, want [web]", report.Workspaces)
	}

	if _, err := h.c.SummonWorkspace(h.ctx, "bad name!"); err == nil {
		t.Fatal("invalid workspace name accepted")
	}
}

func TestControllerMultiMonitor(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0), display(2, "DP-2", 2000))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(200, 2, rect(2100, 100, 400, 300))
	h.start()
	h.waitFrame(100, 1, rect(0, 0, 2000, 1000))
	h.waitFrame(200, 2, rect(2000, 0, 2000, 1000))

	mons, err := h.c.Monitors(h.ctx)
	if err != nil {
		t.Fatalf("Monitors: %v", err)
	}
	if len(mons) != 2 || mons[0].Name != "DP-1" || !mons[0].Focused || mons[1].Workspace == "" {
		t.Fatalf("monitors = %+v", mons)
	}
	left, right := mons[0].Workspace, mons[1].Workspace

	mon, err := h.c.FocusMonitor(h.ctx, ipc.MonitorPayload{Direction: "right"})
	if err != nil || mon.Name != "DP-2" {
		t.Fatalf("FocusMonitor(right) = %+v, %v", mon, err)
	}
	if id, _ := h.backend.FocusedWindow(); id != 2 {
		t.Fatalf("focused window = %d, want 2", id)
	}
	if _, err := h.c.FocusMonitor(h.ctx, ipc.MonitorPayload{Direction: "right"}); err == nil {
		t.Fatal("focus past the last monitor without wrap should fail")
	}
	if mon, err := h.c.FocusMonitor(h.ctx, ipc.MonitorPayload{Direction: "right", Wrap: true}); err != nil || mon.Name != "DP-1" {
		t.Fatalf("wrapped FocusMonitor = %+v, %v", mon, err)
	}

	// Moving the left workspace onto the right monitor swaps the two.
	if err := h.c.MoveWorkspaceToMonitor(h.ctx, left, "DP-2"); err != nil {
		t.Fatalf("MoveWorkspaceToMonitor: %v", err)
	}
	h.waitFrame(100, 1, rect(2000, 0, 2000, 1000))
	h.waitFrame(200, 2, rect(0, 0, 2000, 1000))

	mons, _ = h.c.Monitors(h.ctx)
	if mons[0].Workspace != right || mons[1].Workspace != left {
		t.Fatalf("after move: monitors = %+v", mons)
	}
	if err := h.c.MoveWorkspaceToMonitor(h.ctx, left, "HDMI-9"); err == nil {
		t.Fatal("unknown monitor accepted")
	}
}

func TestControllerReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	write(`gaps:
  inner: 10
  outer: {left: 0, right: 0, top: 0, bottom: 0}
animation:
  enabled: false
persistent_workspaces: ["1"]
discovery:
  interval: 1h
`)
	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	h := newHarness(t, res.Config, path, display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(100, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(100, 2, rect(1005, 0, 995, 1000))

	write(`gaps:
  inner: 0
  outer: {left: 0, right: 0, top: 0, bottom: 0}
animation:
  enabled: false
persistent_workspaces: ["1"]
monitors:
  DP-1:
    gaps:
      outer: {top: 20}
discovery:
  interval: 1h
`)
	if err := h.c.Reload(h.ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	h.waitFrame(100, 1, rect(0, 20, 1000, 980))
	h.waitFrame(100, 2, rect(1000, 20, 1000, 980))

	write("gaps: [broken\n")
	if err := h.c.Reload(h.ctx); err == nil {
		t.Fatal("Reload accepted a broken file")
	}
	st, _ := h.c.Status(h.ctx)
	if st.ConfigPath != path {
		t.Fatalf("config path = %q, want %q", st.ConfigPath, path)
	}
}

func TestControllerAnimatesToTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Animation = config.AnimationConfig{Enabled: true, Curve: "cubic", Stiffness: 800, DampingRatio: 1, Duration: 80 * time.Millisecond}
	h := newHarness(t, cfg, "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(100, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(100, 2, rect(1005, 0, 995, 1000))
	before := len(h.access.App(100).SetCalls())

	if err := h.c.Layout(h.ctx, ipc.CommandSwap, ipc.LayoutPayload{Direction: "left"}); err != nil {
		t.Fatalf("swap: %v", err)
	}
	h.waitFrame(100, 2, rect(0, 0, 995, 1000))
	h.waitFrame(100, 1, rect(1005, 0, 995, 1000))
	h.eventually("animations finished", func() bool {
		st, err := h.c.Status(h.ctx)
		return err == nil && !st.Animating
	})
	if after := len(h.access.App(100).SetCalls()); after < before+4 {
		t.Fatalf("expected intermediate frames, got %d set calls after %d", after, before)
	}
}

func TestControllerMaintainDropsDeadProcesses(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	h.addWindow(100, 1, rect(100, 100, 400, 300))
	h.addWindow(200, 2, rect(200, 200, 400, 300))
	h.start()
	h.waitFrame(200, 2, rect(1005, 0, 995, 1000))

	h.kill(200)
	r := NewReconciler(ReconcilerConfig{Interval: time.Hour}, h.registry, h.c)
	report := r.ReconcileNow(h.ctx)
	if report.Windows != 1 {
		t.Fatalf("report = %+v, want one window dropped", report)
	}
	h.waitFrame(100, 1, rect(0, 0, 2000, 1000))
}

func TestControllerUsesRegistryLivenessProbe(t *testing.T) {
	registry := ax.NewRegistry(platformtest.NewAccessibility(), ax.Options{
		ProcessExists: func(pid int) bool { return pid != 200 },
	})
	t.Cleanup(registry.Close)

	c, err := NewController(Options{
		Backend:  platformtest.NewBackend(display(1, "DP-1", 0)),
		Registry: registry,
		Config:   testConfig(),
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if c.exists(200) || !c.exists(100) {
		t.Fatalf("controller and registry disagree on process liveness")
	}
}

func TestControllerCallsFailAfterStop(t *testing.T) {
	h := newHarness(t, testConfig(), "", display(1, "DP-1", 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.c.Run(ctx)
	}()
	cancel()
	<-done

	if _, err := h.c.Status(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Status after stop = %v, want ErrStopped", err)
	}
}
