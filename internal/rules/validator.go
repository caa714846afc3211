package rules

import (
	"fmt"
	"time"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/timer"
)

// Check is everything the validator needs to judge one weight change.
type Check struct {
	// Previous is the athlete as the engine knew it before the change.
	Previous *athlete.Athlete
	// Changed is the athlete carrying the new request.
	Changed *athlete.Athlete
	// Group holds the other athletes of the group (Changed may appear and
	// is skipped).
	Group []*athlete.Athlete

	// Clock state, relevant only when Changed owns the clock.
	ClockOwner           bool
	ClockRunning         bool
	TimeRemaining        time.Duration
	TimeAllowed          time.Duration
	WeightAtLastStart    int
	LiftsDoneAtLastStart int
}

// Validator checks weight changes. The zero value is ready to use.
type Validator struct{}

// Validate returns a *Violation when the change is illegal, nil otherwise.
// Officials bypass validation by setting ForcedAsCurrent on the athlete;
// the caller is expected to skip the call in that case.
func (Validator) Validate(c Check) error {
	prev, next := c.Previous, c.Changed
	if prev == nil || next == nil {
		return nil
	}

	if next.AttemptsDone != prev.AttemptsDone {
		return checkManualLift(prev, next)
	}
	if next.Requested == prev.Requested {
		return nil
	}
	newVal := next.Requested

	if prev.AttemptsDone == 0 && next.EntryTotal > 0 {
		if v := check20kg(next); v != nil {
			return v
		}
	}

	if auto := prev.AutomaticProgression(); newVal < auto {
		if prev.Undeclared() {
			return NewDeclarationValueTooSmall(prev.AttemptsDone, newVal, auto)
		}
		return NewLastChangeTooLow(prev.AttemptsDone, newVal, auto)
	}

	if c.ClockOwner {
		if v := checkClock(c, prev, newVal); v != nil {
			return v
		}
	}

	if v := checkOrder(c, next, newVal); v != nil {
		return v
	}
	return nil
}

// checkManualLift validates a lift outcome entered by hand: the weight
// recorded must be the weight that was requested.
func checkManualLift(prev, next *athlete.Athlete) error {
	if next.AttemptsDone != prev.AttemptsDone+1 {
		return NewLiftValueNotWhatWasRequested(prev.AttemptsDone, fmt.Sprintf("#%d", next.AttemptsDone), prev.Requested, 0)
	}
	lifted := next.Lifts[prev.AttemptsDone]
	abs := lifted
	if abs < 0 {
		abs = -abs
	}
	if abs != prev.Requested {
		return NewLiftValueNotWhatWasRequested(prev.AttemptsDone, fmt.Sprintf("%d", lifted), prev.Requested, abs)
	}
	return nil
}

// check20kg: the first snatch plus the first clean & jerk may be at most
// 20 kg below the entry total.
func check20kg(a *athlete.Athlete) *Violation {
	const margin = 20
	sum := a.Requested + a.CleanJerkStart
	if a.CleanJerkStart == 0 {
		return nil
	}
	if missing := a.EntryTotal - margin - sum; missing > 0 {
		return NewRule15_20Violated(a, a.Requested, a.CleanJerkStart, missing, a.EntryTotal)
	}
	return nil
}

// checkClock applies the rules that only concern the athlete whose clock
// was started.
func checkClock(c Check, prev *athlete.Athlete, newVal int) *Violation {
	if c.WeightAtLastStart > 0 && prev.AttemptsDone == c.LiftsDoneAtLastStart && newVal < c.WeightAtLastStart {
		return NewValueBelowStartedClock(newVal, c.WeightAtLastStart)
	}
	if !c.ClockRunning {
		return nil
	}
	ms := c.TimeRemaining.Milliseconds()
	afterFinal := c.TimeRemaining < timer.FinalWarning
	switch {
	case prev.Undeclared() && afterFinal:
		return NewMustDeclareFirst(ms)
	case prev.Undeclared() && c.TimeAllowed-c.TimeRemaining > 30*time.Second:
		return NewLateDeclaration(ms)
	case afterFinal:
		return NewMustChangeBeforeFinalWarning(ms)
	}
	return nil
}

// checkOrder applies the lifting-order rules: the bar never goes down, and
// an athlete cannot take a weight somebody already lifted if they would
// have been called before that athlete.
func checkOrder(c Check, cur *athlete.Athlete, newVal int) *Violation {
	lo, hi := 0, 3
	if cur.InCleanJerk() {
		lo, hi = 3, 6
	}
	attemptNo := cur.AttemptNumber()
	for _, ref := range c.Group {
		if ref == nil || ref.ID == cur.ID {
			continue
		}
		for i := lo; i < hi && i < ref.AttemptsDone; i++ {
			w := ref.Lifts[i]
			if w < 0 {
				w = -w
			}
			refAttempt := i%3 + 1
			if newVal < w {
				return NewWeightBelowAlreadyLifted(newVal, ref, w, refAttempt)
			}
			if newVal != w {
				continue
			}
			switch {
			case attemptNo < refAttempt:
				return NewAttemptNumberTooLow(newVal, ref, w, refAttempt)
			case attemptNo > refAttempt:
				continue
			case refAttempt > 1:
				mine, theirs := cur.PreviousLiftSeq(), ref.LiftSeq[i-1]
				if mine != 0 && theirs != 0 && mine < theirs {
					return NewLiftedEarlier(newVal, ref, cur)
				}
			case cur.StartNumber > 0 && ref.StartNumber > 0:
				if cur.StartNumber < ref.StartNumber {
					return NewStartNumberTooHigh(newVal, ref, cur)
				}
			case cur.LotNumber < ref.LotNumber:
				return NewLotNumberTooHigh(newVal, ref.LotNumber, cur.LotNumber)
			}
		}
	}
	return nil
}
