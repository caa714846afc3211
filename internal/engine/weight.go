package engine

import (
	"context"
	"fmt"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/rules"
)

// doWeightChange arbitrates a change of request. The tricky part is a
// running clock: only a real change by the clock owner stops it, and a
// change by anybody else must not disturb the attempt board.
func (f *FieldOfPlay) doWeightChange(ctx context.Context, e event.WeightChange) error {
	w, manual, err := f.applyWeightChange(ctx, e)
	if err != nil {
		return err
	}

	if f.owner != nil && f.athleteClock.IsRunning() {
		// A declaration of the weight already on the bar leaves the
		// owner's attempt alone, like a change by anybody else.
		if athlete.Same(f.owner, w) && (manual || w.Requested != f.displayedWeight) {
			f.stopAthleteClock()
			f.weightChangeInner(ctx, w)
			return nil
		}
		f.doNotDisturb(ctx, w)
		return nil
	}

	if f.owner != nil {
		f.weightChangeInner(ctx, w)
		return nil
	}

	if f.recomputeLiftingOrder(ctx, true) {
		f.pushOutDone()
		return nil
	}
	f.setStateUnlessInBreak(StateCurrentAthleteDisplayed)
	f.display(true, w)
	return nil
}

// weightChangeInner handles a change while the clock has an owner and is
// stopped: the new head of the order is called, and the owner comes back
// to a stopped clock.
func (f *FieldOfPlay) weightChangeInner(ctx context.Context, changed *athlete.Athlete) {
	if f.recomputeLiftingOrder(ctx, true) {
		f.pushOutDone()
		return
	}
	next := StateCurrentAthleteDisplayed
	if athlete.Same(f.owner, f.current) {
		next = StateTimeStopped
	}
	f.setStateUnlessInBreak(next)
	f.display(true, changed)
}

// weightChangeDoNotDisturb applies a change while a decision is pending
// or shown.
func (f *FieldOfPlay) weightChangeDoNotDisturb(ctx context.Context, e event.WeightChange) error {
	w, _, err := f.applyWeightChange(ctx, e)
	if err != nil {
		return err
	}
	f.doNotDisturb(ctx, w)
	return nil
}

// doNotDisturb reorders the group without touching the current athlete,
// the clock or the attempt board.
func (f *FieldOfPlay) doNotDisturb(ctx context.Context, changed *athlete.Athlete) {
	f.recomputeOrderAndRanks(ctx)
	f.display(false, changed)
}

// applyWeightChange validates the change and copies it onto the working
// copy of the athlete. It reports whether the change edits the recorded
// lifts by hand.
func (f *FieldOfPlay) applyWeightChange(ctx context.Context, e event.WeightChange) (*athlete.Athlete, bool, error) {
	w := f.find(e.Athlete.ID)
	if w == nil {
		msg := fmt.Sprintf("athlete %s is not in group %s", e.Athlete.ID, f.groupID)
		return nil, false, f.reject(e, ErrCodeUnexpectedEvent, msg, nil)
	}
	changed := e.Athlete

	if !changed.ForcedAsCurrent {
		check := rules.Check{
			Previous:             w.Clone(),
			Changed:              &changed,
			Group:                f.athletes,
			ClockOwner:           athlete.Same(f.owner, w),
			ClockRunning:         f.athleteClock.IsRunning(),
			TimeRemaining:        f.athleteClock.TimeRemaining(),
			TimeAllowed:          f.initialTimeAllowed,
			WeightAtLastStart:    f.weightAtLastStart,
			LiftsDoneAtLastStart: f.liftsDoneAtLastStart,
		}
		if err := f.validator.Validate(check); err != nil {
			msg := err.Error()
			if v, ok := rules.AsViolation(err); ok {
				msg = v.Localize(f.catalog)
			}
			f.logger.Warn("weight change rejected", "athlete", w.ID, "error", err)
			return nil, false, f.reject(e, ErrCodeRuleViolation, msg, err)
		}
	}

	manual := changed.AttemptsDone != w.AttemptsDone
	recorded := changed.AttemptsDone > w.AttemptsDone
	seq, ranks, group := w.LiftSeq, w.Ranks, w.GroupID
	*w = changed
	w.LiftSeq, w.Ranks = seq, ranks
	if w.GroupID == "" {
		w.GroupID = group
	}
	if recorded {
		w.StampLift(f.nextLiftSeq())
	}
	if manual {
		if err := f.repo.SaveLift(ctx, w.Clone()); err != nil {
			f.collaboratorFailure("save lift", err)
		}
	}
	f.logger.Info("weight change", "athlete", w.ID, "requested", w.Requested, "forced", w.ForcedAsCurrent)
	return w, manual, nil
}
