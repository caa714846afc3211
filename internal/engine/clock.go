package engine

import "sync/atomic"

// Clock numbers the journal: every input the Field-of-Play processes gets
// a strictly increasing sequence number, so replay reproduces the order in
// which events were consumed rather than the order their wall-clock
// timestamps suggest.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though only the engine's consumer calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start, used when a
// platform reopens an existing journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
