package timer

import (
	"sync"
	"time"
)

// Alarm names a point in a clock's countdown the owner wants to hear about.
type Alarm string

const (
	AlarmInitialWarning Alarm = "initial_warning"
	AlarmFinalWarning   Alarm = "final_warning"
	AlarmTimeOver       Alarm = "time_over"
	AlarmBreakDone      Alarm = "break_done"
)

// Warning thresholds of the athlete clock.
const (
	InitialWarning = 90 * time.Second
	FinalWarning   = 30 * time.Second
)

// AlarmFunc receives alarms. It runs on the scheduler's goroutine.
type AlarmFunc func(Alarm)

type threshold struct {
	alarm Alarm
	at    time.Duration // remaining time at which the alarm fires
}

// countdown is the part shared by both clocks. All fields are guarded by
// mu; the clocks are read from display goroutines while the engine
// drives them.
type countdown struct {
	mu        sync.Mutex
	sched     Scheduler
	remaining time.Duration // value while stopped, value at startedAt while running
	startedAt time.Time
	running   bool
	onAlarm   AlarmFunc
	armed     []Cancel
}

func (c *countdown) timeRemainingLocked() time.Duration {
	if !c.running {
		return c.remaining
	}
	left := c.remaining - c.sched.Now().Sub(c.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (c *countdown) armLocked(thresholds []threshold) {
	f := c.onAlarm
	if f == nil {
		return
	}
	for _, th := range thresholds {
		if c.remaining < th.at {
			continue
		}
		alarm := th.alarm
		c.armed = append(c.armed, c.sched.AfterFunc(c.remaining-th.at, func() { f(alarm) }))
	}
}

func (c *countdown) disarmLocked() {
	for _, cancel := range c.armed {
		cancel()
	}
	c.armed = nil
}

// stopLocked freezes the countdown and reports the remaining time.
func (c *countdown) stopLocked() time.Duration {
	if c.running {
		c.remaining = c.timeRemainingLocked()
		c.running = false
	}
	c.disarmLocked()
	return c.remaining
}

// SetAlarmHandler replaces the alarm callback. Alarms already armed keep
// the handler that was current when they were armed.
func (c *countdown) SetAlarmHandler(f AlarmFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAlarm = f
}

// TimeRemaining returns the time left, counting down while running.
func (c *countdown) TimeRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeRemainingLocked()
}

// IsRunning reports whether the clock is counting down.
func (c *countdown) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// AthleteClock is the attempt clock. It raises the initial and final
// warnings and time-over while running.
type AthleteClock struct {
	countdown
	atLastStop time.Duration
}

// NewAthleteClock returns a stopped clock with no time on it.
func NewAthleteClock(s Scheduler) *AthleteClock {
	return &AthleteClock{countdown: countdown{sched: s}}
}

var athleteThresholds = []threshold{
	{AlarmInitialWarning, InitialWarning},
	{AlarmFinalWarning, FinalWarning},
	{AlarmTimeOver, 0},
}

// Start starts counting down. Warnings whose threshold is already behind
// the remaining time are not raised. Starting a running clock is a no-op.
func (c *AthleteClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.startedAt = c.sched.Now()
	c.armLocked(athleteThresholds)
}

// Stop freezes the clock and remembers the remaining time.
func (c *AthleteClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.atLastStop = c.stopLocked()
}

// SetTimeRemaining sets the time left. A running clock keeps running from
// the new value. The value remembered by Stop is left alone.
func (c *AthleteClock) SetTimeRemaining(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	running := c.running
	c.stopLocked()
	c.remaining = d
	if running {
		c.running = true
		c.startedAt = c.sched.Now()
		c.armLocked(athleteThresholds)
	}
}

// TimeRemainingAtLastStop is the value frozen by the last Stop.
func (c *AthleteClock) TimeRemainingAtLastStop() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atLastStop
}

// BreakClock times breaks. It runs for a duration, until a target time, or
// indefinitely (counting nothing).
type BreakClock struct {
	countdown
	indefinite bool
	end        time.Time
}

// NewBreakClock returns a stopped break clock.
func NewBreakClock(s Scheduler) *BreakClock {
	return &BreakClock{countdown: countdown{sched: s}}
}

var breakThresholds = []threshold{{AlarmBreakDone, 0}}

// Start starts the break countdown. A target-time break recomputes its
// remaining time from the target.
func (c *BreakClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	if !c.end.IsZero() {
		c.remaining = c.untilEndLocked()
	}
	c.running = true
	c.startedAt = c.sched.Now()
	if !c.indefinite {
		c.armLocked(breakThresholds)
	}
}

// Stop freezes the break clock.
func (c *BreakClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// SetTimeRemaining makes this a duration break.
func (c *BreakClock) SetTimeRemaining(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.indefinite = false
	c.end = time.Time{}
	c.remaining = d
}

// SetEnd makes this a break that ends at target.
func (c *BreakClock) SetEnd(target time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.indefinite = false
	c.end = target
	c.remaining = c.untilEndLocked()
}

// SetIndefinite makes this a break with no countdown.
func (c *BreakClock) SetIndefinite() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.indefinite = true
	c.end = time.Time{}
	c.remaining = 0
}

// IsIndefinite reports whether the break has no countdown.
func (c *BreakClock) IsIndefinite() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indefinite
}

// End returns the target time, zero unless SetEnd was used.
func (c *BreakClock) End() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end
}

func (c *BreakClock) untilEndLocked() time.Duration {
	d := c.end.Sub(c.sched.Now())
	if d < 0 {
		return 0
	}
	return d
}
