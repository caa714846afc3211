// Package engine implements the Field-of-Play: the state machine that
// runs one competition platform.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Each platform has one FieldOfPlay and one consumer goroutine. Devices
// and screens Post inputs from any goroutine; Run takes them off the FIFO
// queue one at a time. This gives:
// - A single owner for every piece of competition state
// - A journal that replays to the same state
// - Simple reasoning about what caused each notification
//
// Input Processing Flow:
//  1. Post enqueues an event.Input
//  2. Run dequeues it and calls Handle
//  3. Handle drops it if it repeats the previous input structurally
//  4. dispatch handles the kinds every state treats alike, then the
//     handler of the current state
//  5. Notifications go out through the Hub; the input is journaled
//
// Delayed work (the reversal window, the decision display, clock warnings,
// break expiry) is scheduled through a timer.Scheduler whose callbacks only
// Post inputs back onto the queue. Each carries the number of the attempt,
// task or break it belongs to, and the engine drops the ones that are
// stale when they arrive.
//
// CRITICAL PATTERNS:
//
// Per-attempt record:
// Votes, the down-signal latch and the warning flags live in one attempt
// record that is replaced whenever a new timed attempt starts. Nothing
// else needs resetting.
//
// Do-not-disturb:
// While an attempt is under way, a weight change by anyone but the clock
// owner reorders the group but never changes the athlete on the attempt
// board or stops the clock.
package engine
