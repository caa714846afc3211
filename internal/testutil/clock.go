// Package testutil provides deterministic time and identifiers for tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/roach88/liftfop/internal/timer"
)

// Epoch is the default start of virtual time.
var Epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// ManualScheduler is a virtual-time timer.Scheduler. Nothing fires until
// Advance moves time past a callback's deadline.
//
// Callbacks run on the goroutine calling Advance, in deadline order
// (scheduling order for equal deadlines), with Now() equal to their
// deadline. Callbacks may schedule further callbacks; those run within the
// same Advance if they fall due.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   int64
	tasks []*task
}

type task struct {
	at        time.Time
	seq       int64
	f         func()
	cancelled bool
}

// NewManualScheduler creates a scheduler at Epoch.
func NewManualScheduler() *ManualScheduler {
	return NewManualSchedulerAt(Epoch)
}

// NewManualSchedulerAt creates a scheduler at start.
func NewManualSchedulerAt(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now implements timer.Scheduler.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc implements timer.Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) timer.Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &task{at: s.now.Add(d), seq: s.seq, f: f}
	s.tasks = append(s.tasks, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, pending := range s.tasks {
			if pending == t {
				s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
				t.cancelled = true
				return true
			}
		}
		return false
	}
}

// Advance moves virtual time forward by d, running every callback that
// falls due.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	deadline := s.now.Add(d)
	s.mu.Unlock()

	for {
		t := s.popDue(deadline)
		if t == nil {
			break
		}
		t.f()
	}

	s.mu.Lock()
	s.now = deadline
	s.mu.Unlock()
}

func (s *ManualScheduler) popDue(deadline time.Time) *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return nil
	}
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].at.Equal(s.tasks[j].at) {
			return s.tasks[i].seq < s.tasks[j].seq
		}
		return s.tasks[i].at.Before(s.tasks[j].at)
	})
	next := s.tasks[0]
	if next.at.After(deadline) {
		return nil
	}
	s.tasks = s.tasks[1:]
	s.now = next.at
	return next
}

// Pending returns the number of callbacks not yet run or cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
