package ax

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/1broseidon/dwindle/internal/platform"
)

const queueSize = 64

type task struct {
	run   func(app platform.AppElement)
	abort func()
}

// Session owns the accessibility handle of one process. The handle lives on
// a dedicated goroutine locked to its OS thread; everything else talks to it
// through the task queue.
type Session struct {
	PID     int
	Created time.Time

	logger *slog.Logger
	tasks  chan task
	done   chan struct{}
	once   sync.Once

	// owner is the worker thread id, set before ready is signalled.
	owner int

	mu       sync.Mutex
	stopped  bool
	jobs     map[*Job]struct{}
	inflight map[platform.WindowID]*Job
}

func newSession(pid int, logger *slog.Logger) *Session {
	return &Session{
		PID:      pid,
		Created:  time.Now(),
		logger:   logger,
		tasks:    make(chan task, queueSize),
		done:     make(chan struct{}),
		jobs:     make(map[*Job]struct{}),
		inflight: make(map[platform.WindowID]*Job),
	}
}

// run is the worker loop. ready receives the open error, or nil once the
// handle is owned by this thread.
func (s *Session) run(provider platform.AccessibilityProvider, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	native, err := provider.OpenApplication(s.PID)
	if err != nil {
		ready <- err
		return
	}
	app := NewOwned(native)
	s.owner = app.Owner()
	ready <- nil

	defer func() {
		app.Get().Close()
		s.drain()
		s.logger.Debug("session worker stopped", "pid", s.PID)
	}()

	for {
		select {
		case <-s.done:
			return
		case t := <-s.tasks:
			select {
			case <-s.done:
				t.abort()
				return
			default:
			}
			s.exec(t, app)
		}
	}
}

func (s *Session) exec(t task, app *Owned[platform.AppElement]) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session task panicked", "pid", s.PID, "panic", r)
			t.abort()
		}
	}()
	t.run(app.Get())
}

func (s *Session) drain() {
	for {
		select {
		case t := <-s.tasks:
			t.abort()
		default:
			return
		}
	}
}

// submit queues t. It fails when the session is stopped or the queue is
// full.
func (s *Session) submit(t task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.tasks <- t:
		return true
	default:
		return false
	}
}

// register tracks job and cancels older jobs touching the same windows.
func (s *Session) register(job *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	for _, id := range job.windows {
		if prev, ok := s.inflight[id]; ok && prev != job {
			prev.Cancel()
		}
		s.inflight[id] = job
	}
	s.jobs[job] = struct{}{}
	return true
}

func (s *Session) release(job *Job) {
	s.mu.Lock()
	for _, id := range job.windows {
		if s.inflight[id] == job {
			delete(s.inflight, id)
		}
	}
	delete(s.jobs, job)
	s.mu.Unlock()
	job.finish()
}

// stop cancels outstanding jobs and ends the worker loop. Idempotent.
func (s *Session) stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		for job := range s.jobs {
			job.Cancel()
		}
		close(s.done)
		s.mu.Unlock()
	})
}

// Alive reports whether the session still accepts work.
func (s *Session) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Pending is the number of frame jobs not yet finished.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
