package engine

import (
	"context"
	"fmt"

	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/notify"
)

// dispatch routes one input: events every state handles the same way
// first, then the handler of the current state. Each state handler lists
// the kinds it accepts or deliberately ignores; anything else is reported
// as unexpected.
func (f *FieldOfPlay) dispatch(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.BreakStarted:
		return f.transitionToBreak(e)

	case event.StartLifting:
		switch f.state {
		case StateTimeRunning, StateDownSignalVisible, StateDecisionVisible:
			// An attempt is in progress; the lifting flow is already active.
			f.logger.Debug("start lifting ignored during attempt", "state", f.state)
			return nil
		}
		return f.transitionToLifting(ctx, in, false)

	case event.BarbellOrPlatesChanged:
		f.publishPlates()
		return nil

	case event.SwitchGroup:
		return f.switchGroup(ctx, e)

	case event.DecisionConfirm:
		return f.confirmDecision(ctx, e)

	case event.ClockWarning:
		f.clockWarning(e)
		return nil

	case event.BreakExpired:
		return f.breakExpired(ctx, e)

	case event.TimeOver:
		if e.Attempt != 0 && e.Attempt != f.att.seq {
			f.logger.Debug("stale time over dropped", "attempt", e.Attempt)
			return nil
		}

	case event.DecisionReset:
		if e.Auto && (e.Attempt == 0 || e.Attempt != f.pendingReset) {
			f.logger.Debug("stale decision reset dropped", "task", e.Attempt)
			return nil
		}
	}

	switch f.state {
	case StateInactive:
		return f.onInactive(ctx, in)
	case StateBreak:
		return f.onBreak(ctx, in)
	case StateCurrentAthleteDisplayed:
		return f.onCurrentAthleteDisplayed(ctx, in)
	case StateTimeRunning:
		return f.onTimeRunning(ctx, in)
	case StateTimeStopped:
		return f.onTimeStopped(ctx, in)
	case StateDownSignalVisible:
		return f.onDownSignalVisible(ctx, in)
	case StateDecisionVisible:
		return f.onDecisionVisible(ctx, in)
	}
	return fmt.Errorf("unknown state %q", f.state)
}

func (f *FieldOfPlay) onInactive(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.TimeStarted:
		return f.transitionToTimeRunning(in)
	case event.WeightChange:
		return f.doWeightChange(ctx, e)
	}
	return f.unexpected(in)
}

func (f *FieldOfPlay) onBreak(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.BreakPaused:
		f.pauseBreak(e)
		return nil
	case event.WeightChange:
		return f.doWeightChange(ctx, e)
	case event.JuryDecision:
		return f.doJuryDecision(ctx, e)
	}
	return f.unexpected(in)
}

func (f *FieldOfPlay) onCurrentAthleteDisplayed(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.TimeStarted:
		return f.transitionToTimeRunning(in)
	case event.WeightChange:
		return f.doWeightChange(ctx, e)
	case event.ForceTime:
		f.setAthleteTime(e.Remaining())
		return nil
	}
	return f.unexpected(in)
}

func (f *FieldOfPlay) onTimeRunning(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.DownSignal:
		if !f.att.votes.DownEmitted() {
			f.emitDown()
		}
		return nil
	case event.TimeStopped:
		f.stopAthleteClock()
		f.setState(StateTimeStopped)
		return nil
	case event.TimeOver:
		f.timeOver()
		return nil
	case event.DecisionUpdate:
		return f.updateVote(in, e)
	case event.DecisionFullUpdate:
		f.replaceVotes(e)
		return nil
	case event.WeightChange:
		return f.doWeightChange(ctx, e)
	case event.ExplicitDecision:
		return f.simulateDecision(in, e)
	}
	return f.unexpected(in)
}

func (f *FieldOfPlay) onTimeStopped(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.DownSignal, event.TimeStopped, event.TimeOver:
		return nil
	case event.DecisionUpdate:
		return f.updateVote(in, e)
	case event.DecisionFullUpdate:
		f.replaceVotes(e)
		return nil
	case event.TimeStarted:
		return f.resumeTime(in)
	case event.WeightChange:
		return f.doWeightChange(ctx, e)
	case event.ExplicitDecision:
		return f.simulateDecision(in, e)
	case event.ForceTime:
		f.setAthleteTime(e.Remaining())
		f.setState(StateCurrentAthleteDisplayed)
		return nil
	}
	return f.unexpected(in)
}

func (f *FieldOfPlay) onDownSignalVisible(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.DownSignal:
		return nil
	case event.ExplicitDecision:
		return f.simulateDecision(in, e)
	case event.DecisionUpdate:
		return f.updateVote(in, e)
	case event.DecisionFullUpdate:
		f.replaceVotes(e)
		return nil
	case event.WeightChange:
		return f.weightChangeDoNotDisturb(ctx, e)
	}
	return f.unexpected(in)
}

func (f *FieldOfPlay) onDecisionVisible(ctx context.Context, in event.Input) error {
	switch e := in.(type) {
	case event.DecisionUpdate:
		return f.lateVote(in, e)
	case event.DecisionFullUpdate:
		f.att.votes.Replace(e.Votes, e.Times)
		f.publishVotes()
		return nil
	case event.ExplicitDecision:
		// The outcome is already recorded; corrections go through the jury.
		f.logger.Debug("decision after decision ignored", "event", event.Kind(in))
		return nil
	case event.WeightChange:
		return f.weightChangeDoNotDisturb(ctx, e)
	case event.DecisionReset:
		f.decisionReset(e)
		return nil
	}
	return f.unexpected(in)
}

// unexpected reports an input that is not valid in the current state.
// The engine stays where it is.
func (f *FieldOfPlay) unexpected(in event.Input) error {
	switch in.(type) {
	case event.DecisionReset, event.DecisionFullUpdate:
		f.logger.Debug("event ignored", "event", event.Kind(in), "state", f.state)
		return nil
	}
	msg := f.catalog.Render("unexpectedEvent", map[string]any{
		"Event": event.Kind(in),
		"State": string(f.state),
	})
	return f.reject(in, ErrCodeUnexpectedEvent, msg, nil)
}

// noCurrentAthlete reports an input that needs a current athlete.
func (f *FieldOfPlay) noCurrentAthlete(in event.Input) error {
	msg := f.catalog.Render("noCurrentAthlete", map[string]any{"Event": event.Kind(in)})
	return f.reject(in, ErrCodeNoCurrentAthlete, msg, nil)
}

// reject publishes a Notification for the officials and returns the
// matching error.
func (f *FieldOfPlay) reject(in event.Input, code ErrorCode, msg string, cause error) error {
	reason := notify.ReasonUnexpectedEvent
	if code == ErrCodeRuleViolation {
		reason = notify.ReasonRuleViolation
	}
	f.hub.Publish(notify.Notification{
		Reason:  reason,
		Event:   event.Kind(in),
		State:   string(f.state),
		Message: msg,
	})
	return &Error{
		Code:    code,
		Message: msg,
		Event:   event.Kind(in),
		State:   f.state,
		Err:     cause,
	}
}

// collaboratorFailure records a repository or ranking failure. Handling
// goes on with the in-memory state; Handle returns the failure.
func (f *FieldOfPlay) collaboratorFailure(op string, err error) {
	f.logger.Error("collaborator failed", "op", op, "error", err, "state", f.state)
	f.failures = append(f.failures, &Error{
		Code:    ErrCodeCollaboratorFailure,
		Message: op + " failed",
		State:   f.state,
		Err:     err,
	})
}

func (f *FieldOfPlay) setState(s State) {
	if s == f.state {
		return
	}
	f.logger.Debug("state change", "from", f.state, "to", s)
	f.state = s
}
