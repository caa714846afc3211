// Package timer implements the athlete and break clocks of a platform and
// the Scheduler abstraction they, and the engine's delayed tasks, run on.
//
// Callbacks scheduled through a Scheduler run on the scheduler's own
// goroutine (or inline, see InlineScheduler). They must not touch engine
// state; the engine only ever uses them to post input events.
package timer

import (
	"sync"
	"time"
)

// Cancel stops a scheduled callback. It reports whether the call stopped
// the callback before it ran.
type Cancel func() bool

// Scheduler is the source of time and delayed execution.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Cancel
}

// RealScheduler uses the wall clock and time.AfterFunc.
type RealScheduler struct{}

// Now implements Scheduler.
func (RealScheduler) Now() time.Time { return time.Now() }

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	return time.AfterFunc(d, f).Stop
}

// InlineScheduler is the "no-delay" mode: every callback runs
// synchronously inside AfterFunc, whatever the delay.
type InlineScheduler struct{}

// Now implements Scheduler.
func (InlineScheduler) Now() time.Time { return time.Now() }

// AfterFunc implements Scheduler.
func (InlineScheduler) AfterFunc(_ time.Duration, f func()) Cancel {
	f()
	return noCancel
}

// Silent wraps a scheduler so that nothing scheduled through it ever
// fires. Time still comes from the wrapped scheduler. Used for clocks in
// no-delay mode and during journal replay, where every alarm the clocks
// would raise is already present in the input stream.
func Silent(s Scheduler) Scheduler {
	return silent{s}
}

type silent struct{ Scheduler }

func (silent) AfterFunc(time.Duration, func()) Cancel { return noCancel }

func noCancel() bool { return false }

// FixedScheduler is a Silent scheduler whose time never moves.
type FixedScheduler struct {
	mu sync.Mutex
	at time.Time
}

// NewFixedScheduler returns a scheduler frozen at t.
func NewFixedScheduler(t time.Time) *FixedScheduler {
	return &FixedScheduler{at: t}
}

// Now implements Scheduler.
func (s *FixedScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}

// Set moves the frozen time.
func (s *FixedScheduler) Set(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.at = t
}

// AfterFunc implements Scheduler. Callbacks never fire.
func (s *FixedScheduler) AfterFunc(time.Duration, func()) Cancel { return noCancel }
