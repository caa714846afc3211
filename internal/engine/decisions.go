package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/liftfop/internal/decision"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/notify"
	"github.com/roach88/liftfop/internal/sound"
)

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (f *FieldOfPlay) nowMS() int64 {
	return f.clockSched.Now().UnixMilli()
}

// updateVote records one referee's vote.
func (f *FieldOfPlay) updateVote(in event.Input, e event.DecisionUpdate) error {
	sig, err := f.att.votes.Update(e.Ref, e.Vote, f.nowMS())
	if err != nil {
		return f.reject(in, ErrCodeUnexpectedEvent, err.Error(), err)
	}
	f.publishVotes()
	f.processSignal(sig)
	return nil
}

// lateVote records a vote while the decision is shown. Displays and the
// jury see it; the recorded lift does not change.
func (f *FieldOfPlay) lateVote(in event.Input, e event.DecisionUpdate) error {
	if _, err := f.att.votes.Update(e.Ref, e.Vote, f.nowMS()); err != nil {
		return f.reject(in, ErrCodeUnexpectedEvent, err.Error(), err)
	}
	f.publishVotes()
	return nil
}

// replaceVotes takes the full state of the referee devices.
func (f *FieldOfPlay) replaceVotes(e event.DecisionFullUpdate) {
	sig := f.att.votes.Replace(e.Votes, e.Times)
	f.publishVotes()
	f.processSignal(sig)
}

func (f *FieldOfPlay) publishVotes() {
	f.hub.Publish(notify.RefereeUpdate{
		Votes: decision.Masked(f.att.votes.Votes(), f.att.forced),
		Times: f.att.votes.Times(),
	})
}

func (f *FieldOfPlay) processSignal(sig decision.Signal) {
	if sig.Down {
		f.emitDown()
	}
	if sig.Confirm {
		f.scheduleConfirm()
	}
}

// emitDown shows the down signal: the lift is over, the clock stops and
// nobody owns it any more.
func (f *FieldOfPlay) emitDown() {
	f.att.votes.MarkDown()
	f.stopAthleteClock()
	f.previous = f.current
	f.owner = nil
	f.initialTimeAllowed = 0

	f.setState(StateDownSignalVisible)
	f.hub.Publish(notify.DownSignal{Athlete: idOf(f.current)})
	f.play(sound.CueDown)
}

// scheduleConfirm opens the reversal window. The latch keeps a second
// window from being scheduled while one is pending.
func (f *FieldOfPlay) scheduleConfirm() {
	if f.pendingConfirm != 0 {
		return
	}
	f.tokens++
	tok := f.tokens
	f.pendingConfirm = tok
	meta := f.internal()
	f.cancelConfirm = f.sched.AfterFunc(f.reversalDelay, func() {
		f.Post(event.DecisionConfirm{Meta: meta, Attempt: tok})
	})
}

func (f *FieldOfPlay) scheduleReset() {
	if f.pendingReset != 0 {
		return
	}
	f.tokens++
	tok := f.tokens
	f.pendingReset = tok
	meta := f.internal()
	f.cancelReset = f.sched.AfterFunc(f.decisionVisible, func() {
		f.Post(event.DecisionReset{Meta: meta, Auto: true, Attempt: tok})
	})
}

// confirmDecision closes the reversal window: the votes as they are now
// decide the lift.
func (f *FieldOfPlay) confirmDecision(ctx context.Context, e event.DecisionConfirm) error {
	if e.Attempt == 0 || e.Attempt != f.pendingConfirm {
		f.logger.Debug("stale decision confirmation dropped", "task", e.Attempt)
		return nil
	}
	f.pendingConfirm, f.cancelConfirm = 0, nil

	lifter := f.current
	if lifter == nil {
		return f.noCurrentAthlete(e)
	}

	good := f.att.votes.Tally().Good()
	votes := decision.Masked(f.att.votes.Votes(), f.att.forced)
	forced := f.att.forced

	if good {
		lifter.SuccessfulLift()
	} else {
		lifter.FailedLift()
	}
	lifter.StampLift(f.nextLiftSeq())
	lifter.ResetForcedAsCurrent()
	if err := f.repo.SaveLift(ctx, lifter.Clone()); err != nil {
		f.collaboratorFailure("save lift", err)
	}
	f.logger.Info("decision", "athlete", lifter.ID, "good", good, "forced", forced, "attempts_done", lifter.AttemptsDone)

	f.hub.Publish(notify.Decision{
		Athlete: lifter.Clone(),
		Good:    good,
		Votes:   votes,
		Forced:  forced,
	})

	// A finished group is closed when the decision comes down.
	f.recomputeLiftingOrder(ctx, true)
	f.setState(StateDecisionVisible)
	f.scheduleReset()
	return nil
}

// decisionReset takes the decision down and calls the next athlete.
func (f *FieldOfPlay) decisionReset(e event.DecisionReset) {
	if !e.Auto && f.cancelReset != nil {
		f.cancelReset()
	}
	f.pendingReset, f.cancelReset = 0, nil

	f.hub.Publish(notify.DecisionReset{})
	f.owner = nil
	f.displayOrBreakIfDone()
}

// simulateDecision applies a decision entered by an official, bypassing
// the referee devices.
func (f *FieldOfPlay) simulateDecision(in event.Input, e event.ExplicitDecision) error {
	if f.current == nil {
		return f.noCurrentAthlete(in)
	}
	if e.AthleteID != "" && e.AthleteID != f.current.ID {
		msg := fmt.Sprintf("decision for %s but %s is lifting", e.AthleteID, f.current.ID)
		return f.reject(in, ErrCodeUnexpectedEvent, msg, nil)
	}
	var probe decision.Aggregator
	probe.Replace(e.Votes, [decision.Referees]int64{})
	if !probe.Tally().Complete() {
		return f.reject(in, ErrCodeUnexpectedEvent, "an explicit decision needs all three votes", nil)
	}

	f.stopAthleteClock()
	f.att.forced = true

	now := f.nowMS()
	var times [decision.Referees]int64
	for i, v := range e.Votes {
		if v != event.VoteNone {
			times[i] = now
		}
	}
	sig := f.att.votes.Replace(e.Votes, times)
	f.publishVotes()
	f.processSignal(sig)

	f.previous = f.current
	f.owner = nil
	f.initialTimeAllowed = 0
	return nil
}

// doJuryDecision confirms or reverses the last recorded lift.
func (f *FieldOfPlay) doJuryDecision(ctx context.Context, e event.JuryDecision) error {
	a := f.find(e.AthleteID)
	if a == nil {
		msg := fmt.Sprintf("athlete %s is not in group %s", e.AthleteID, f.groupID)
		return f.reject(e, ErrCodeUnexpectedEvent, msg, nil)
	}
	idx := a.LastLiftIndex()
	if idx < 0 {
		return f.reject(e, ErrCodeUnexpectedEvent, fmt.Sprintf("athlete %s has no lift to review", a.ID), nil)
	}

	auto := a.AutomaticProgression()
	reversal := a.ReviseLift(idx, e.Good)
	if reversal && !a.IsDone() && a.AttemptsDone%3 != 0 && a.Requested == auto {
		a.Requested = a.AutomaticProgression()
	}
	if err := f.repo.SaveLift(ctx, a.Clone()); err != nil {
		f.collaboratorFailure("save lift", err)
	}
	f.logger.Info("jury decision", "athlete", a.ID, "good", e.Good, "reversal", reversal)
	f.hub.Publish(notify.JuryNotification{Athlete: a.ID, Good: e.Good, Reversal: reversal})

	if f.recomputeLiftingOrder(ctx, true) {
		f.pushOutDone()
		return nil
	}
	f.display(true, a)
	return nil
}

// timeOver stops the clock when it runs out.
func (f *FieldOfPlay) timeOver() {
	f.stopAthleteClock()
	if !f.att.timeOverEmitted {
		f.att.timeOverEmitted = true
		f.play(sound.CueTimeOver)
	}
	f.setState(StateTimeStopped)
}

// clockWarning sounds the 90 s and 30 s warnings, once each per attempt.
func (f *FieldOfPlay) clockWarning(e event.ClockWarning) {
	if e.Attempt != f.att.seq || f.state != StateTimeRunning {
		f.logger.Debug("stale clock warning dropped", "attempt", e.Attempt, "kind", e.Kind)
		return
	}
	switch e.Kind {
	case event.WarningInitial:
		if !f.att.initialWarned {
			f.att.initialWarned = true
			f.play(sound.CueInitialWarning)
		}
	case event.WarningFinal:
		if !f.att.finalWarned {
			f.att.finalWarned = true
			f.play(sound.CueFinalWarning)
		}
	}
}
