package staking

import (
	"sync"
	"time"

	"github.com/screwyprof/stakecart/pkg/clock"
)

// Scheduler runs deferred work on a Clock
type Scheduler struct {
	clock Clock
}

// NewScheduler creates a Scheduler. A nil clock means the system clock.
func NewScheduler(c Clock) *Scheduler {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Scheduler{clock: c}
}

// Task is a pending deferred call
type Task struct {
	once sync.Once
	done chan struct{}
	stop func() bool
	mu   sync.Mutex
}

// Schedule runs fn once d has elapsed on the scheduler's clock
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Task {
	t := &Task{done: make(chan struct{})}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop = s.clock.AfterFunc(d, func() {
		defer t.finish()
		fn()
	})
	return t
}

// Cancel prevents the task from running. It reports whether the call stopped
// the task; false means it already ran or was cancelled.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	stop := t.stop
	t.mu.Unlock()

	if stop == nil || !stop() {
		return false
	}
	t.finish()
	return true
}

// Done is closed once the task has run or been cancelled
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish() {
	t.once.Do(func() { close(t.done) })
}
