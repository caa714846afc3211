package engine

import (
	"context"
	"time"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/notify"
	"github.com/roach88/liftfop/internal/ranking"
	"github.com/roach88/liftfop/internal/timer"
)

// Time allowed to an athlete who is called.
const (
	TimeAllowed       = 60 * time.Second
	TimeAllowedRested = 120 * time.Second
)

// leaderCount is the number of category leaders shown with the order.
const leaderCount = 3

// switchGroup loads another group, or reloads the current one in place.
func (f *FieldOfPlay) switchGroup(ctx context.Context, e event.SwitchGroup) error {
	inBreak := f.state == StateBreak || f.state == StateInactive
	f.cancelPending()

	if e.GroupID != "" && e.GroupID == f.groupID {
		if _, err := f.loadGroup(ctx, e.GroupID); err != nil {
			return err
		}
		if inBreak {
			f.hub.Publish(notify.SwitchGroup{GroupID: f.groupID, State: string(f.state)})
			return nil
		}
		return f.transitionToLifting(ctx, e, true)
	}

	switch {
	case !inBreak:
		f.stopAthleteClock()
		f.setState(StateInactive)
	case f.state == StateBreak && f.breakType == event.BreakGroupDone:
		f.stopBreakClock()
		f.breakType, f.countdown = "", ""
		f.setState(StateInactive)
	}

	if _, err := f.loadGroup(ctx, e.GroupID); err != nil {
		return err
	}
	f.hub.Publish(notify.SwitchGroup{GroupID: f.groupID, State: string(f.state)})
	if f.current != nil {
		f.display(true, nil)
	}
	return nil
}

// loadGroup (re)initializes the engine for a group: fresh athlete copies,
// no clock owner, no previous athlete. It reports whether the group is
// already done.
func (f *FieldOfPlay) loadGroup(ctx context.Context, groupID string) (bool, error) {
	athletes, err := f.repo.EligibleCompetitors(ctx, groupID)
	if err != nil {
		return false, &Error{
			Code:    ErrCodeCollaboratorFailure,
			Message: "load group " + groupID + " failed",
			State:   f.state,
			Err:     err,
		}
	}

	f.groupID = groupID
	f.athletes = athletes
	f.current, f.owner, f.previous = nil, nil, nil
	f.liftingOrder, f.displayOrder, f.leaders = nil, nil, nil
	f.initialTimeAllowed = 0
	f.displayedWeight = 0
	f.groupDone = false
	f.stopAthleteClock()
	f.newAttempt()

	f.logger.Info("group loaded", "group", groupID, "athletes", len(athletes))
	if len(athletes) == 0 {
		return false, nil
	}
	done := f.recomputeLiftingOrder(ctx, true)
	if done {
		f.pushOutDone()
	}
	return done, nil
}

// transitionToLifting ends a break and shows the athlete to call. When
// the clock owner is still up, lifting resumes with the clock stopped;
// otherwise the group is reloaded. loaded skips the reload.
func (f *FieldOfPlay) transitionToLifting(ctx context.Context, in event.Input, loaded bool) error {
	if f.groupID == "" {
		return f.noCurrentAthlete(in)
	}
	f.weightAtLastStart = 0

	if f.current != nil && athlete.Same(f.current, f.owner) {
		f.stopAthleteClock()
		f.setState(StateTimeStopped)
	} else {
		if !loaded {
			done, err := f.loadGroup(ctx, f.groupID)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		} else if f.groupDone {
			return nil
		}
		f.setState(StateCurrentAthleteDisplayed)
	}

	f.stopBreakClock()
	f.breakType, f.countdown = "", ""
	f.hub.Publish(notify.StartLifting{GroupID: f.groupID})
	f.display(true, nil)
	return nil
}

// transitionToTimeRunning starts the clock for a new timed attempt.
func (f *FieldOfPlay) transitionToTimeRunning(in event.Input) error {
	if f.current == nil {
		return f.noCurrentAthlete(in)
	}
	f.newAttempt()
	return f.startTiming()
}

// resumeTime restarts a stopped clock. Votes and the warnings already
// sounded are kept.
func (f *FieldOfPlay) resumeTime(in event.Input) error {
	if f.current == nil {
		return f.noCurrentAthlete(in)
	}
	return f.startTiming()
}

func (f *FieldOfPlay) startTiming() error {
	if !athlete.Same(f.current, f.owner) {
		f.owner = f.current
		f.initialTimeAllowed = f.athleteClock.TimeRemaining()
	}
	f.startAthleteClock()
	f.weightAtLastStart = f.current.Requested
	f.liftsDoneAtLastStart = f.current.AttemptsDone
	f.setState(StateTimeRunning)
	return nil
}

// timeAllowed computes the clock for the current athlete, starting a new
// attempt record unless the clock owner is resuming.
func (f *FieldOfPlay) timeAllowed() time.Duration {
	switch {
	case f.owner != nil && athlete.Same(f.owner, f.current):
		return f.athleteClock.TimeRemainingAtLastStop()
	case f.previous != nil && athlete.Same(f.previous, f.current):
		f.newAttempt()
		if f.owner != nil || f.current.AttemptNumber() == 1 {
			return TimeAllowed
		}
		return TimeAllowedRested
	default:
		f.newAttempt()
		return TimeAllowed
	}
}

// recomputeOrderAndRanks asks the ranker for both orders and persists the
// ranks. The current athlete does not change.
func (f *FieldOfPlay) recomputeOrderAndRanks(ctx context.Context) {
	f.liftingOrder, f.displayOrder = f.ranker.Rank(f.athletes)

	f.cjStarted = false
	for _, a := range f.athletes {
		if a.AttemptsDone > 3 {
			f.cjStarted = true
			break
		}
	}
	if f.current != nil {
		f.leaders = ranking.Leaders(f.athletes, f.current.Category, f.cjStarted, leaderCount)
	}

	if err := f.repo.SaveRanks(ctx, cloneAll(f.athletes)); err != nil {
		f.collaboratorFailure("save ranks", err)
	}
}

// recomputeLiftingOrder reorders the group and makes the head of the
// lifting order current. When affected, the clock is set to the time the
// new current athlete is allowed. It reports whether the group is done;
// the caller decides when to close it out.
func (f *FieldOfPlay) recomputeLiftingOrder(ctx context.Context, affected bool) bool {
	f.recomputeOrderAndRanks(ctx)
	if len(f.liftingOrder) == 0 {
		f.current = nil
		f.leaders = nil
		return true
	}
	f.current = f.liftingOrder[0]
	f.leaders = ranking.Leaders(f.athletes, f.current.Category, f.cjStarted, leaderCount)

	allowed := f.timeAllowed()
	if affected {
		f.setAthleteTime(allowed)
	}
	return f.current.IsDone()
}

// pushOutDone closes the group: BREAK with the group-done subtype.
func (f *FieldOfPlay) pushOutDone() {
	if f.state == StateBreak && f.breakType == event.BreakGroupDone {
		return
	}
	f.stopAthleteClock()
	f.breakType = event.BreakGroupDone
	f.countdown = event.CountdownIndefinite
	f.groupDone = true
	f.setState(StateBreak)
	f.logger.Info("group done", "group", f.groupID)
	f.hub.Publish(notify.GroupDone{GroupID: f.groupID})
}

// setStateUnlessInBreak moves to s unless an official break is on. A
// group-done break is left when lifting resumes (e.g. after a jury
// reversal on the last lift).
func (f *FieldOfPlay) setStateUnlessInBreak(s State) {
	if s == f.state {
		return
	}
	switch {
	case f.state == StateInactive:
		return
	case f.state == StateBreak && f.breakType == event.BreakGroupDone:
		f.setState(s)
		f.groupDone = false
		f.stopBreakClock()
		f.breakType, f.countdown = "", ""
		if s == StateCurrentAthleteDisplayed {
			f.hub.Publish(notify.StartLifting{GroupID: f.groupID})
		} else {
			f.hub.Publish(notify.GlobalRankingUpdated{})
		}
	case f.state == StateBreak:
		return
	default:
		f.setState(s)
	}
}

// displayOrBreakIfDone calls the next athlete, or closes the group.
func (f *FieldOfPlay) displayOrBreakIfDone() {
	if f.current != nil && !f.current.IsDone() {
		f.setState(StateCurrentAthleteDisplayed)
		f.display(true, nil)
		return
	}
	f.pushOutDone()
}

// display publishes the lifting order. When affected is false the
// attempt board keeps what it shows and only the order changes.
func (f *FieldOfPlay) display(affected bool, changed *athlete.Athlete) {
	if affected && f.current != nil {
		f.displayedWeight = f.current.Requested
	}
	f.toggle = !f.toggle

	f.hub.Publish(notify.LiftingOrderUpdated{
		Current:          f.current.Clone(),
		Next:             f.next().Clone(),
		Previous:         f.previous.Clone(),
		Changed:          changed.Clone(),
		LiftingOrder:     cloneAll(f.liftingOrder),
		DisplayOrder:     cloneAll(f.displayOrder),
		Leaders:          cloneAll(f.leaders),
		ClockRemainingMS: f.athleteClock.TimeRemaining().Milliseconds(),
		DisplayAffected:  affected,
		Toggle:           f.toggle,
		InBreak:          f.state == StateBreak && f.breakClock.IsRunning(),
		CJStarted:        f.cjStarted,
		State:            string(f.state),
	})
}

// next is the athlete after the current one in lifting order.
func (f *FieldOfPlay) next() *athlete.Athlete {
	for _, a := range f.liftingOrder {
		if !athlete.Same(a, f.current) && !a.IsDone() {
			return a
		}
	}
	return nil
}

func (f *FieldOfPlay) publishPlates() {
	out := notify.BarbellOrPlatesChanged{}
	if f.current != nil {
		out.Athlete = f.current.ID
		out.Weight = f.current.Requested
	}
	f.hub.Publish(out)
}

// find returns the working copy of an athlete of the loaded group.
func (f *FieldOfPlay) find(id string) *athlete.Athlete {
	for _, a := range f.athletes {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// nextLiftSeq numbers a newly recorded lift after every lift already
// recorded in the group.
func (f *FieldOfPlay) nextLiftSeq() int64 {
	var last int64
	for _, a := range f.athletes {
		for _, s := range a.LiftSeq {
			if s > last {
				last = s
			}
		}
	}
	return last + 1
}

func (f *FieldOfPlay) newAttempt() {
	f.attempts++
	f.att = attempt{seq: f.attempts}
}

// cancelPending cancels the reversal window and the automatic reset.
func (f *FieldOfPlay) cancelPending() {
	if f.cancelConfirm != nil {
		f.cancelConfirm()
	}
	if f.cancelReset != nil {
		f.cancelReset()
	}
	f.cancelConfirm, f.cancelReset = nil, nil
	f.pendingConfirm, f.pendingReset = 0, 0
}

func (f *FieldOfPlay) internal() event.Meta {
	return event.Meta{Origin: Origin}
}

func (f *FieldOfPlay) startAthleteClock() {
	seq := f.att.seq
	meta := f.internal()
	f.athleteClock.SetAlarmHandler(func(a timer.Alarm) {
		switch a {
		case timer.AlarmInitialWarning:
			f.Post(event.ClockWarning{Meta: meta, Kind: event.WarningInitial, Attempt: seq})
		case timer.AlarmFinalWarning:
			f.Post(event.ClockWarning{Meta: meta, Kind: event.WarningFinal, Attempt: seq})
		case timer.AlarmTimeOver:
			f.Post(event.TimeOver{Meta: meta, Attempt: seq})
		}
	})
	f.athleteClock.Start()
	f.publishTimer(notify.ClockAthlete, notify.TimerStart, f.athleteClock.TimeRemaining())
}

func (f *FieldOfPlay) stopAthleteClock() {
	if !f.athleteClock.IsRunning() {
		return
	}
	f.athleteClock.Stop()
	f.publishTimer(notify.ClockAthlete, notify.TimerStop, f.athleteClock.TimeRemaining())
}

func (f *FieldOfPlay) setAthleteTime(d time.Duration) {
	f.athleteClock.SetTimeRemaining(d)
	f.publishTimer(notify.ClockAthlete, notify.TimerSet, d)
}

func (f *FieldOfPlay) startBreakClock() {
	gen := f.breakGen
	meta := f.internal()
	f.breakClock.SetAlarmHandler(func(a timer.Alarm) {
		if a == timer.AlarmBreakDone {
			f.Post(event.BreakExpired{Meta: meta, Break: gen})
		}
	})
	f.breakClock.Start()
	f.publishTimer(notify.ClockBreak, notify.TimerStart, f.breakClock.TimeRemaining())
}

func (f *FieldOfPlay) stopBreakClock() {
	if !f.breakClock.IsRunning() {
		return
	}
	f.breakClock.Stop()
	f.publishTimer(notify.ClockBreak, notify.TimerStop, f.breakClock.TimeRemaining())
}

func (f *FieldOfPlay) publishTimer(c notify.Clock, action notify.TimerAction, d time.Duration) {
	f.hub.Publish(notify.TimerUpdate{Clock: c, Action: action, RemainingMS: d.Milliseconds()})
}

func cloneAll(as []*athlete.Athlete) []*athlete.Athlete {
	if as == nil {
		return nil
	}
	out := make([]*athlete.Athlete, len(as))
	for i, a := range as {
		out[i] = a.Clone()
	}
	return out
}
