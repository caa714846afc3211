// Package decision aggregates referee votes for one attempt.
//
// The aggregator is transient, single-owner state: the engine keeps one per
// timed attempt and replaces it when a new attempt starts. It does not
// schedule anything itself; it tells the caller when the down signal is due
// and when the reversal window should start, each at most once.
package decision

import (
	"fmt"

	"github.com/roach88/liftfop/internal/event"
)

// Referees is the number of referees on a platform.
const Referees = 3

// Tally counts the votes currently present.
type Tally struct {
	White   int
	Red     int
	Present int
}

// Down reports whether two referees agree, in either colour.
func (t Tally) Down() bool { return t.White >= 2 || t.Red >= 2 }

// Complete reports whether all referees have voted.
func (t Tally) Complete() bool { return t.Present == Referees }

// Good reports whether the majority is white.
func (t Tally) Good() bool { return t.White >= 2 }

// Signal is what the caller must do after a vote update.
type Signal struct {
	// Down: emit the down signal now.
	Down bool
	// Confirm: all votes are in, start the reversal window.
	Confirm bool
}

// Aggregator collects up to three votes and their timestamps.
// Later votes from the same referee replace earlier ones.
type Aggregator struct {
	votes [Referees]event.Vote
	times [Referees]int64

	downEmitted      bool
	confirmScheduled bool
}

// Update records one referee's vote (ref is 0-based).
func (a *Aggregator) Update(ref int, v event.Vote, at int64) (Signal, error) {
	if ref < 0 || ref >= Referees {
		return Signal{}, fmt.Errorf("referee index %d out of range", ref)
	}
	a.votes[ref] = v
	if v == event.VoteNone {
		a.times[ref] = 0
	} else {
		a.times[ref] = at
	}
	return a.evaluate(), nil
}

// Replace overwrites all votes at once.
func (a *Aggregator) Replace(votes [Referees]event.Vote, times [Referees]int64) Signal {
	a.votes = votes
	a.times = times
	return a.evaluate()
}

func (a *Aggregator) evaluate() Signal {
	var s Signal
	t := a.Tally()
	if t.Down() && !a.downEmitted {
		a.downEmitted = true
		s.Down = true
	}
	if t.Complete() && !a.confirmScheduled {
		a.confirmScheduled = true
		s.Confirm = true
	}
	return s
}

// Tally counts the current votes.
func (a *Aggregator) Tally() Tally {
	var t Tally
	for _, v := range a.votes {
		switch v {
		case event.VoteGood:
			t.White++
			t.Present++
		case event.VoteBad:
			t.Red++
			t.Present++
		}
	}
	return t
}

// MarkDown records that the down signal was shown by other means, so a
// later majority does not show it again.
func (a *Aggregator) MarkDown() { a.downEmitted = true }

// DownEmitted reports whether the down signal was shown for this attempt.
func (a *Aggregator) DownEmitted() bool { return a.downEmitted }

// ConfirmScheduled reports whether the reversal window has started.
func (a *Aggregator) ConfirmScheduled() bool { return a.confirmScheduled }

// Empty reports whether no vote is present.
func (a *Aggregator) Empty() bool { return a.Tally().Present == 0 }

// Votes returns a copy of the votes.
func (a *Aggregator) Votes() [Referees]event.Vote { return a.votes }

// Times returns a copy of the vote timestamps (Unix ms, 0 when absent).
func (a *Aggregator) Times() [Referees]int64 { return a.times }

// Reset clears votes and latches.
func (a *Aggregator) Reset() { *a = Aggregator{} }

// Masked returns the votes as displays should show them. Decisions
// entered by an official show only the centre referee.
func Masked(votes [Referees]event.Vote, forced bool) [Referees]event.Vote {
	if !forced {
		return votes
	}
	return [Referees]event.Vote{event.VoteNone, votes[1], event.VoteNone}
}
