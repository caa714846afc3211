// Package athlete defines the competitor snapshot the Field-of-Play engine
// works with.
//
// Athlete records are owned by the store; the engine keeps working copies
// for the active group and only ever mutates them to record the outcome of
// a lift or to clear the "forced as current" flag. Lift slots are numbered
// 0..5: 0..2 are snatch attempts, 3..5 clean & jerk attempts.
package athlete

import (
	"fmt"
	"strings"
)

// MaxAttempts is the number of attempts every athlete gets in a session.
const MaxAttempts = 6

// Ranks holds the category ranks assigned by the ranking collaborator.
// Zero means "not ranked".
type Ranks struct {
	Snatch    int `json:"snatch,omitempty"`
	CleanJerk int `json:"clean_jerk,omitempty"`
	Total     int `json:"total,omitempty"`
}

// Athlete is a snapshot of one competitor.
//
// Lifts holds the recorded value of each attempt: positive for a good
// lift, negative for a failed lift, zero when not attempted.
type Athlete struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Category    string `json:"category,omitempty"`
	Team        string `json:"team,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
	StartNumber int    `json:"start_number,omitempty"`
	LotNumber   int    `json:"lot_number,omitempty"`
	EntryTotal  int    `json:"entry_total,omitempty"`

	// AttemptsDone counts recorded lifts (0..6).
	AttemptsDone int `json:"attempts_done"`

	// Requested is the next requested weight in kg.
	Requested int `json:"requested"`

	// CleanJerkStart is the declared first clean & jerk, used as the
	// automatic request once the third snatch is recorded.
	CleanJerkStart int `json:"clean_jerk_start,omitempty"`

	Lifts [MaxAttempts]int `json:"lifts"`

	// LiftSeq is the platform-wide order in which each lift was recorded,
	// used to break ties between athletes at the same weight and attempt.
	LiftSeq [MaxAttempts]int64 `json:"lift_seq"`

	// ForcedAsCurrent is set by officials to override lifting-order
	// validation for this athlete's next attempt.
	ForcedAsCurrent bool `json:"forced_as_current,omitempty"`

	Ranks Ranks `json:"ranks"`
}

// Same reports whether a and b denote the same competitor.
// Two nil athletes are not the same.
func Same(a, b *Athlete) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID == b.ID
}

// Clone returns a copy that shares nothing with a.
func (a *Athlete) Clone() *Athlete {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// ShortName renders "LASTNAME First" for logs and messages.
func (a *Athlete) ShortName() string {
	if a == nil {
		return ""
	}
	name := strings.TrimSpace(strings.ToUpper(a.LastName) + " " + a.FirstName)
	if name == "" {
		return a.ID
	}
	return name
}

// String implements fmt.Stringer.
func (a *Athlete) String() string {
	if a == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s#%d", a.ShortName(), a.StartNumber)
}

// AttemptNumber is the 1-based attempt number within the current lift
// (1..3).
func (a *Athlete) AttemptNumber() int {
	return a.AttemptsDone%3 + 1
}

// IsDone reports whether all six attempts have been recorded.
func (a *Athlete) IsDone() bool {
	return a.AttemptsDone >= MaxAttempts
}

// InCleanJerk reports whether the athlete has finished the snatch.
func (a *Athlete) InCleanJerk() bool {
	return a.AttemptsDone >= 3
}

// ActualLift returns the recorded value of slot i, or 0 when out of range.
func (a *Athlete) ActualLift(i int) int {
	if i < 0 || i >= MaxAttempts {
		return 0
	}
	return a.Lifts[i]
}

// LastLiftIndex returns the slot of the most recent recorded lift, or -1.
func (a *Athlete) LastLiftIndex() int {
	return a.AttemptsDone - 1
}

// SuccessfulLift records a good lift at the requested weight.
func (a *Athlete) SuccessfulLift() {
	a.recordLift(true)
}

// FailedLift records a failed lift at the requested weight.
func (a *Athlete) FailedLift() {
	a.recordLift(false)
}

func (a *Athlete) recordLift(good bool) {
	if a.IsDone() {
		return
	}
	weight := a.Requested
	if good {
		a.Lifts[a.AttemptsDone] = weight
	} else {
		a.Lifts[a.AttemptsDone] = -weight
	}
	a.AttemptsDone++
	a.Requested = a.automaticProgression(weight, good)
}

// automaticProgression is the request the athlete gets unless they
// declare otherwise: one kilo more after a good lift, the same weight
// after a miss, the declared clean & jerk start after the last snatch.
func (a *Athlete) automaticProgression(weight int, good bool) int {
	switch {
	case a.IsDone():
		return 0
	case a.AttemptsDone == 3:
		if a.CleanJerkStart > 0 {
			return a.CleanJerkStart
		}
		return weight
	case good:
		return weight + 1
	default:
		return weight
	}
}

// AutomaticProgression is the minimum legal request for the next attempt.
func (a *Athlete) AutomaticProgression() int {
	if a.AttemptsDone == 0 || a.AttemptsDone == 3 {
		return 0
	}
	prev := a.Lifts[a.AttemptsDone-1]
	if prev > 0 {
		return prev + 1
	}
	return -prev
}

// StampLift records the order of the most recent lift.
func (a *Athlete) StampLift(seq int64) {
	if i := a.LastLiftIndex(); i >= 0 {
		a.LiftSeq[i] = seq
	}
}

// PreviousLiftSeq is the order of the last lift recorded before the
// current attempt, or 0.
func (a *Athlete) PreviousLiftSeq() int64 {
	if i := a.LastLiftIndex(); i >= 0 {
		return a.LiftSeq[i]
	}
	return 0
}

// Undeclared reports whether the athlete still carries the automatic
// progression for an attempt where a declaration is expected.
func (a *Athlete) Undeclared() bool {
	if a.AttemptsDone%3 == 0 || a.IsDone() {
		return false
	}
	return a.Requested == a.AutomaticProgression()
}

// ReviseLift changes the outcome of an already recorded slot, keeping its
// weight. It reports whether the outcome actually changed.
func (a *Athlete) ReviseLift(i int, good bool) bool {
	v := a.ActualLift(i)
	if v == 0 {
		return false
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	next := -abs
	if good {
		next = abs
	}
	a.Lifts[i] = next
	return next != v
}

// ResetForcedAsCurrent clears the override flag after the attempt.
func (a *Athlete) ResetForcedAsCurrent() {
	a.ForcedAsCurrent = false
}

// BestSnatch is the heaviest good snatch, 0 if none.
func (a *Athlete) BestSnatch() int {
	return best(a.Lifts[0:3])
}

// BestCleanJerk is the heaviest good clean & jerk, 0 if none.
func (a *Athlete) BestCleanJerk() int {
	return best(a.Lifts[3:6])
}

// Total is best snatch plus best clean & jerk, or 0 when either is missing.
func (a *Athlete) Total() int {
	s, cj := a.BestSnatch(), a.BestCleanJerk()
	if s == 0 || cj == 0 {
		return 0
	}
	return s + cj
}

func best(lifts []int) int {
	m := 0
	for _, v := range lifts {
		if v > m {
			m = v
		}
	}
	return m
}
