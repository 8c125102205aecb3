package ax

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/dwindle/internal/platform"
)

// Job is a frame batch queued on a session worker. Cancellation is
// cooperative: the worker checks the flag before every frame.
type Job struct {
	windows   []platform.WindowID
	cancelled atomic.Bool
	applied   atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

func newJob(reqs []platform.FrameRequest) *Job {
	ids := make([]platform.WindowID, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	return &Job{windows: ids, done: make(chan struct{})}
}

// Cancel marks the job cancelled without waiting for the worker.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// Applied is the number of frames written so far.
func (j *Job) Applied() int {
	return int(j.applied.Load())
}

// Done is closed once the job ran to completion, stopped after cancellation
// or was discarded by a destroyed session.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job is done or ctx expires.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) finish() {
	j.closeOnce.Do(func() { close(j.done) })
}
