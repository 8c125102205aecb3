// Package ax keeps one accessibility session per tracked process and runs
// window enumeration and frame batches on the session's own thread.
package ax

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCreateTimeout = 2 * time.Second
	DefaultListTimeout   = 500 * time.Millisecond
)

// Options configures a Registry. Zero values select the defaults.
type Options struct {
	CreateTimeout time.Duration
	ListTimeout   time.Duration
	Policy        *Policy
	Logger        *slog.Logger
	// SelfPID is never given a session. Defaults to os.Getpid().
	SelfPID int
	// ProcessExists overrides the liveness probe.
	ProcessExists func(pid int) bool
}

// WindowRef is a tiling-eligible window reported by ListWindows.
type WindowRef struct {
	PID      int
	ID       platform.WindowID
	BundleID string
	Title    string
	Frame    platform.Rect
}

// SessionInfo is a status snapshot of one session.
type SessionInfo struct {
	PID         int       `json:"pid"`
	Created     time.Time `json:"created"`
	PendingJobs int       `json:"pending_jobs"`
}

// Registry maps process ids to sessions.
type Registry struct {
	provider      platform.AccessibilityProvider
	createTimeout time.Duration
	listTimeout   time.Duration
	policy        *Policy
	logger        *slog.Logger
	selfPID       int
	exists        func(pid int) bool

	group singleflight.Group

	mu       sync.Mutex
	sessions map[int]*Session
}

func NewRegistry(provider platform.AccessibilityProvider, opts Options) *Registry {
	r := &Registry{
		provider:      provider,
		createTimeout: opts.CreateTimeout,
		listTimeout:   opts.ListTimeout,
		policy:        opts.Policy,
		logger:        opts.Logger,
		selfPID:       opts.SelfPID,
		exists:        opts.ProcessExists,
		sessions:      make(map[int]*Session),
	}
	if r.createTimeout <= 0 {
		r.createTimeout = DefaultCreateTimeout
	}
	if r.listTimeout <= 0 {
		r.listTimeout = DefaultListTimeout
	}
	if r.policy == nil {
		r.policy = NewPolicy(nil)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.selfPID == 0 {
		r.selfPID = os.Getpid()
	}
	if r.exists == nil {
		r.exists = ProcessExists
	}
	return r
}

// ProcessExists reports whether pid is running. A failed probe counts as
// running so that a transient error never tears down live sessions.
func ProcessExists(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err != nil || ok
}

// ProcessExists reports whether pid is running, using the registry's probe.
func (r *Registry) ProcessExists(pid int) bool {
	return r.exists(pid)
}

// Policy returns the eligibility policy used by ListWindows.
func (r *Registry) Policy() *Policy {
	return r.policy
}

// GetOrCreateSession returns the live session for pid, creating it if
// needed. Concurrent callers for one pid share a single creation attempt.
// It returns nil for the manager's own pid, for dead processes and when
// creation does not finish within the creation timeout.
func (r *Registry) GetOrCreateSession(ctx context.Context, pid int) *Session {
	if pid <= 0 || pid == r.selfPID {
		return nil
	}
	if s := r.lookup(pid); s != nil {
		return s
	}
	if !r.exists(pid) {
		return nil
	}

	key := strconv.Itoa(pid)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.create(pid)
	})

	timer := time.NewTimer(r.createTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			r.logger.Debug("session creation failed", "pid", pid, "error", res.Err)
			return nil
		}
		return res.Val.(*Session)
	case <-timer.C:
		// Let the next caller start over; a creation that finishes late
		// still registers its session.
		r.group.Forget(key)
		r.logger.Warn("session creation timed out", "pid", pid, "timeout", r.createTimeout)
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (r *Registry) lookup(pid int) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[pid]
	if !ok || !s.Alive() {
		return nil
	}
	return s
}

func (r *Registry) create(pid int) (*Session, error) {
	if s := r.lookup(pid); s != nil {
		return s, nil
	}

	s := newSession(pid, r.logger)
	ready := make(chan error, 1)
	go s.run(r.provider, ready)
	if err := <-ready; err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[pid]; ok && existing.Alive() {
		// A forgotten, timed-out creation lost the race.
		s.stop()
		return existing, nil
	}
	r.sessions[pid] = s
	r.logger.Debug("session created", "pid", pid, "thread", s.owner)
	return s, nil
}

type listResult struct {
	windows []platform.AXWindow
	err     error
}

// ListWindows enumerates the tiling-eligible windows of s on its worker.
// ok is false when the data is temporarily unavailable (timeout, native
// failure, destroyed session); callers must not read that as "no windows".
func (r *Registry) ListWindows(ctx context.Context, s *Session) (refs []WindowRef, ok bool) {
	if s == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, r.listTimeout)
	defer cancel()

	// Each call owns its result channel, so a late answer to an earlier
	// timed-out call can never be mistaken for this one.
	results := make(chan listResult, 1)
	queued := s.submit(task{
		run: func(app platform.AppElement) {
			if ctx.Err() != nil {
				return
			}
			ws, err := app.Windows()
			results <- listResult{windows: ws, err: err}
		},
		abort: func() {},
	})
	if !queued {
		return nil, false
	}

	select {
	case res := <-results:
		if res.err != nil {
			r.logger.Debug("list windows failed", "pid", s.PID, "error", res.err)
			return nil, false
		}
		refs = make([]WindowRef, 0, len(res.windows))
		for _, w := range res.windows {
			if !r.policy.Tiling(w) {
				continue
			}
			refs = append(refs, WindowRef{
				PID:      s.PID,
				ID:       w.ID,
				BundleID: w.BundleID,
				Title:    w.Title,
				Frame:    w.Frame,
			})
		}
		return refs, true
	case <-ctx.Done():
		r.logger.Debug("list windows unavailable", "pid", s.PID, "error", ctx.Err())
		return nil, false
	}
}

// SetFrames queues one frame batch on the worker of s. Any in-flight job
// that targets one of the same windows is cancelled. Enhanced user interface
// support is switched off for the duration of the batch.
func (r *Registry) SetFrames(s *Session, reqs []platform.FrameRequest) *Job {
	job := newJob(reqs)
	if s == nil || len(reqs) == 0 || !s.register(job) {
		job.Cancel()
		job.finish()
		return job
	}

	queued := s.submit(task{
		run: func(app platform.AppElement) {
			defer s.release(job)
			if job.Cancelled() {
				return
			}
			if app.EnhancedUserInterface() {
				if err := app.SetEnhancedUserInterface(false); err == nil {
					defer func() { _ = app.SetEnhancedUserInterface(true) }()
				}
			}
			for _, req := range reqs {
				if job.Cancelled() {
					return
				}
				if err := app.SetFrame(req.ID, req.Frame); err != nil {
					r.logger.Debug("set frame failed", "pid", s.PID, "window", req.ID, "error", err)
					continue
				}
				job.applied.Add(1)
			}
		},
		abort: func() {
			job.Cancel()
			s.release(job)
		},
	})
	if !queued {
		job.Cancel()
		s.release(job)
	}
	return job
}

// Destroy stops s and forgets it. Safe to call more than once.
func (r *Registry) Destroy(s *Session) {
	if s == nil {
		return
	}
	s.stop()
	r.mu.Lock()
	if r.sessions[s.PID] == s {
		delete(r.sessions, s.PID)
	}
	r.mu.Unlock()
}

// ProcessTerminated tears down the session of a process that exited.
func (r *Registry) ProcessTerminated(pid int) {
	r.mu.Lock()
	s := r.sessions[pid]
	r.mu.Unlock()
	if s != nil {
		r.logger.Debug("process terminated", "pid", pid)
		r.Destroy(s)
	}
}

// GarbageCollect destroys sessions whose process no longer exists and
// returns how many were removed.
func (r *Registry) GarbageCollect() int {
	r.mu.Lock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.Unlock()

	removed := 0
	for _, s := range candidates {
		if s.Alive() && r.exists(s.PID) {
			continue
		}
		r.Destroy(s)
		removed++
	}
	if removed > 0 {
		r.logger.Info("sessions collected", "count", removed)
	}
	return removed
}

// Sessions returns a snapshot ordered by pid.
func (r *Registry) Sessions() []SessionInfo {
	r.mu.Lock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, SessionInfo{PID: s.PID, Created: s.Created, PendingJobs: s.Pending()})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Close destroys every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()
	for _, s := range all {
		r.Destroy(s)
	}
}
