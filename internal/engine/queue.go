package engine

import (
	"sync"

	"github.com/roach88/liftfop/internal/event"
)

// inputQueue is the platform's single input channel: a thread-safe FIFO of
// input events.
//
// The queue is unbounded so that device goroutines, HTTP handlers and
// timer callbacks never block on a busy engine. The Run loop is the only
// consumer.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type inputQueue struct {
	mu     sync.Mutex
	events []event.Input
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

func newInputQueue() *inputQueue {
	return &inputQueue{
		events: make([]event.Input, 0, 32),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine, including timer callbacks.
// Returns false if the queue is closed.
func (q *inputQueue) Enqueue(in event.Input) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || in == nil {
		return false
	}

	q.events = append(q.events, in)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (nil, false) if the queue is empty.
func (q *inputQueue) TryDequeue() (event.Input, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil, false
	}

	in := q.events[0]

	// Nil out the slot so the backing array does not retain the event.
	q.events[0] = nil

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return in, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed once the queue is closed.
func (q *inputQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *inputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *inputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
