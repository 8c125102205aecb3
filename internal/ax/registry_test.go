package ax

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/platform/platformtest"
)

const selfPID = 999_999

func tilingWindow(id platform.WindowID) platform.AXWindow {
	return platform.AXWindow{
		ID:                      id,
		BundleID:                "term",
		Subrole:                 platform.SubroleStandard,
		HasCloseButton:          true,
		FullscreenButtonEnabled: true,
	}
}

func newTestRegistry(provider platform.AccessibilityProvider, opts Options) *Registry {
	opts.SelfPID = selfPID
	if opts.ProcessExists == nil {
		opts.ProcessExists = func(int) bool { return true }
	}
	return NewRegistry(provider, opts)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestProcessExists(t *testing.T) {
	if !ProcessExists(os.Getpid()) {
		t.Fatalf("own process reported as gone")
	}

	r := NewRegistry(platformtest.NewAccessibility(), Options{})
	defer r.Close()
	if !r.ProcessExists(os.Getpid()) {
		t.Fatalf("default registry probe reported own process as gone")
	}

	r2 := newTestRegistry(platformtest.NewAccessibility(), Options{ProcessExists: func(pid int) bool { return pid != 200 }})
	defer r2.Close()
	if r2.ProcessExists(200) || !r2.ProcessExists(100) {
		t.Fatalf("registry ignored its configured probe")
	}
}

func TestGetOrCreateSessionRejectsSelfAndDeadProcesses(t *testing.T) {
	fake := platformtest.NewAccessibility()
	r := newTestRegistry(fake, Options{ProcessExists: func(pid int) bool { return pid != 200 }})
	defer r.Close()

	if s := r.GetOrCreateSession(context.Background(), selfPID); s != nil {
		t.Fatalf("expected no session for own pid")
	}
	if s := r.GetOrCreateSession(context.Background(), 200); s != nil {
		t.Fatalf("expected no session for dead pid")
	}
	if fake.Opens() != 0 {
		t.Fatalf("expected no application handles opened, got %d", fake.Opens())
	}
}

func TestGetOrCreateSessionCoalescesConcurrentCallers(t *testing.T) {
	fake := platformtest.NewAccessibility()
	fake.SetOpenDelay(50 * time.Millisecond)
	r := newTestRegistry(fake, Options{})
	defer r.Close()

	const callers = 8
	sessions := make([]*Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = r.GetOrCreateSession(context.Background(), 100)
		}(i)
	}
	wg.Wait()

	for i, s := range sessions {
		if s == nil {
			t.Fatalf("caller %d got no session", i)
		}
		if s != sessions[0] {
			t.Fatalf("caller %d got a different session", i)
		}
	}
	if fake.Opens() != 1 {
		t.Fatalf("expected one creation, got %d", fake.Opens())
	}
}

func TestGetOrCreateSessionTimesOut(t *testing.T) {
	fake := platformtest.NewAccessibility()
	fake.SetOpenDelay(150 * time.Millisecond)
	r := newTestRegistry(fake, Options{CreateTimeout: 20 * time.Millisecond})
	defer r.Close()

	start := time.Now()
	if s := r.GetOrCreateSession(context.Background(), 100); s != nil {
		t.Fatalf("expected creation timeout to yield no session")
	}
	if elapsed := time.Since(start); elapsed > 120*time.Millisecond {
		t.Fatalf("caller blocked for %v", elapsed)
	}

	// The slow creation still completes and is reused afterwards.
	eventually(t, "late session registration", func() bool { return len(r.Sessions()) == 1 })
	fake.SetOpenDelay(0)
	if s := r.GetOrCreateSession(context.Background(), 100); s == nil {
		t.Fatalf("expected late session to be returned")
	}
}

func TestListWindowsFiltersByPolicy(t *testing.T) {
	fake := platformtest.NewAccessibility()
	dialog := tilingWindow(3)
	dialog.Subrole = platform.SubroleDialog
	fake.App(100).SetWindows(tilingWindow(1), tilingWindow(2), dialog)

	r := newTestRegistry(fake, Options{})
	defer r.Close()

	s := r.GetOrCreateSession(context.Background(), 100)
	refs, ok := r.ListWindows(context.Background(), s)
	if !ok {
		t.Fatalf("expected windows to be available")
	}
	if len(refs) != 2 || refs[0].ID != 1 || refs[1].ID != 2 {
		t.Fatalf("unexpected refs: %+v", refs)
	}
	if refs[0].PID != 100 {
		t.Fatalf("expected pid 100, got %d", refs[0].PID)
	}
}

func TestListWindowsTimeoutDoesNotBlockLaterCalls(t *testing.T) {
	fake := platformtest.NewAccessibility()
	app := fake.App(100)
	app.SetWindows(tilingWindow(1))
	app.SetListDelay(150 * time.Millisecond)

	r := newTestRegistry(fake, Options{ListTimeout: 30 * time.Millisecond})
	defer r.Close()
	s := r.GetOrCreateSession(context.Background(), 100)

	if refs, ok := r.ListWindows(context.Background(), s); ok {
		t.Fatalf("expected unavailable result, got %+v", refs)
	}

	// Let the hung call finish, then the next call must succeed on its own.
	app.SetListDelay(0)
	time.Sleep(200 * time.Millisecond)

	refs, ok := r.ListWindows(context.Background(), s)
	if !ok {
		t.Fatalf("expected second call to succeed")
	}
	if len(refs) != 1 || refs[0].ID != 1 {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}

func TestListWindowsNativeErrorIsUnavailable(t *testing.T) {
	fake := platformtest.NewAccessibility()
	fake.App(100).SetListError(errors.New("cannot complete"))
	r := newTestRegistry(fake, Options{})
	defer r.Close()

	s := r.GetOrCreateSession(context.Background(), 100)
	if _, ok := r.ListWindows(context.Background(), s); ok {
		t.Fatalf("expected native error to be reported as unavailable")
	}
}

func TestSetFramesSupersedesInFlightJob(t *testing.T) {
	fake := platformtest.NewAccessibility()
	app := fake.App(100)
	app.SetFrameDelay(20 * time.Millisecond)
	r := newTestRegistry(fake, Options{})
	defer r.Close()
	s := r.GetOrCreateSession(context.Background(), 100)

	stale := platform.Rect{X: 1, Y: 1, Width: 10, Height: 10}
	fresh := platform.Rect{X: 50, Y: 50, Width: 20, Height: 20}

	first := r.SetFrames(s, []platform.FrameRequest{{ID: 1, Frame: stale}, {ID: 2, Frame: stale}})
	second := r.SetFrames(s, []platform.FrameRequest{{ID: 2, Frame: fresh}})

	if !first.Cancelled() {
		t.Fatalf("expected first job to be cancelled by the second")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := first.Wait(ctx); err != nil {
		t.Fatalf("first job: %v", err)
	}
	if err := second.Wait(ctx); err != nil {
		t.Fatalf("second job: %v", err)
	}
	if second.Cancelled() {
		t.Fatalf("second job should not be cancelled")
	}

	got, ok := app.Frame(2)
	if !ok || got != fresh {
		t.Fatalf("window 2 frame = %v (%v), want %v", got, ok, fresh)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no pending jobs, got %d", s.Pending())
	}
}

func TestSetFramesCancelledJobAppliesNothingFurther(t *testing.T) {
	fake := platformtest.NewAccessibility()
	app := fake.App(100)
	app.SetFrameDelay(30 * time.Millisecond)
	r := newTestRegistry(fake, Options{})
	defer r.Close()
	s := r.GetOrCreateSession(context.Background(), 100)

	reqs := make([]platform.FrameRequest, 10)
	for i := range reqs {
		reqs[i] = platform.FrameRequest{ID: platform.WindowID(i + 1), Frame: platform.Rect{Width: 10, Height: 10}}
	}
	job := r.SetFrames(s, reqs)
	eventually(t, "first frame", func() bool { return job.Applied() >= 1 })
	job.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := job.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if n := len(app.SetCalls()); n >= len(reqs) {
		t.Fatalf("cancelled job applied all %d frames", n)
	}
}

func TestSetFramesRestoresEnhancedUserInterface(t *testing.T) {
	fake := platformtest.NewAccessibility()
	app := fake.App(100)
	app.SetEnhanced(true)
	r := newTestRegistry(fake, Options{})
	defer r.Close()
	s := r.GetOrCreateSession(context.Background(), 100)

	job := r.SetFrames(s, []platform.FrameRequest{{ID: 1, Frame: platform.Rect{Width: 5, Height: 5}}})
	<-job.Done()

	log := app.EnhancedLog()
	if len(log) != 2 || log[0] || !log[1] {
		t.Fatalf("enhanced UI toggles = %v, want [false true]", log)
	}
	if !app.EnhancedUserInterface() {
		t.Fatalf("enhanced UI not restored")
	}
}

func TestDestroyIsIdempotentAndStopsWork(t *testing.T) {
	fake := platformtest.NewAccessibility()
	app := fake.App(100)
	r := newTestRegistry(fake, Options{})
	defer r.Close()
	s := r.GetOrCreateSession(context.Background(), 100)

	r.Destroy(s)
	r.Destroy(s)

	eventually(t, "app close", app.Closed)
	if s.Alive() {
		t.Fatalf("session still alive after destroy")
	}
	if _, ok := r.ListWindows(context.Background(), s); ok {
		t.Fatalf("expected destroyed session to be unavailable")
	}
	job := r.SetFrames(s, []platform.FrameRequest{{ID: 1}})
	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatalf("job on destroyed session never finished")
	}
	if !job.Cancelled() {
		t.Fatalf("job on destroyed session should be cancelled")
	}
	if len(r.Sessions()) != 0 {
		t.Fatalf("destroyed session still registered")
	}
}

func TestGarbageCollectRemovesDeadProcesses(t *testing.T) {
	fake := platformtest.NewAccessibility()
	var dead atomic.Bool
	r := newTestRegistry(fake, Options{ProcessExists: func(pid int) bool {
		return pid != 101 || !dead.Load()
	}})
	defer r.Close()

	a := r.GetOrCreateSession(context.Background(), 100)
	b := r.GetOrCreateSession(context.Background(), 101)
	if a == nil || b == nil {
		t.Fatalf("expected both sessions")
	}

	if n := r.GarbageCollect(); n != 0 {
		t.Fatalf("expected nothing collected, got %d", n)
	}
	dead.Store(true)
	if n := r.GarbageCollect(); n != 1 {
		t.Fatalf("expected one session collected, got %d", n)
	}
	if b.Alive() || !a.Alive() {
		t.Fatalf("wrong session collected")
	}
}

func TestProcessTerminatedDestroysSession(t *testing.T) {
	fake := platformtest.NewAccessibility()
	r := newTestRegistry(fake, Options{})
	defer r.Close()

	s := r.GetOrCreateSession(context.Background(), 100)
	r.ProcessTerminated(100)
	if s.Alive() {
		t.Fatalf("session survived termination notice")
	}
	r.ProcessTerminated(100)

	again := r.GetOrCreateSession(context.Background(), 100)
	if again == nil || again == s {
		t.Fatalf("expected a fresh session after termination")
	}
}
