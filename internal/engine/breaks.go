package engine

import (
	"context"

	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/notify"
)

// countdownOf resolves the countdown kind of a break request.
func countdownOf(e event.BreakStarted) event.CountdownType {
	switch {
	case e.Indefinite:
		return event.CountdownIndefinite
	case e.Countdown != "":
		return e.Countdown
	case !e.Target.IsZero():
		return event.CountdownTarget
	case e.DurationMS > 0:
		return event.CountdownDuration
	default:
		return event.CountdownIndefinite
	}
}

// transitionToBreak enters a break from any state. A break of the same
// type and countdown kind resumes; anything else restarts the break clock
// with the new parameters.
func (f *FieldOfPlay) transitionToBreak(e event.BreakStarted) error {
	f.cancelPending()
	if e.Type == "" {
		e.Type = event.BreakTechnical
	}
	countdown := countdownOf(e)

	if f.state == StateBreak {
		if e.Type != f.breakType || countdown != f.countdown {
			f.stopBreakClock()
			f.setBreakParams(e, countdown)
		}
	} else {
		f.setState(StateBreak)
		f.setBreakParams(e, countdown)
	}
	if !f.breakClock.IsRunning() {
		f.startBreakClock()
	}

	f.hub.Publish(notify.BreakStarted{
		Type:        f.breakType,
		Countdown:   f.countdown,
		RemainingMS: f.breakClock.TimeRemaining().Milliseconds(),
		Target:      f.breakClock.End(),
		Indefinite:  f.breakClock.IsIndefinite(),
	})
	return nil
}

func (f *FieldOfPlay) setBreakParams(e event.BreakStarted, countdown event.CountdownType) {
	f.breakType = e.Type
	f.countdown = countdown
	f.stopAthleteClock()

	switch countdown {
	case event.CountdownDuration:
		f.breakClock.SetTimeRemaining(e.Duration())
	case event.CountdownTarget:
		f.breakClock.SetEnd(e.Target)
	default:
		f.breakClock.SetIndefinite()
	}
	f.breakGen++
}

// pauseBreak freezes the break clock, optionally at an explicit value.
func (f *FieldOfPlay) pauseBreak(e event.BreakPaused) {
	f.stopBreakClock()
	if e.RemainingMS > 0 {
		f.breakClock.SetTimeRemaining(msDuration(e.RemainingMS))
		f.countdown = event.CountdownDuration
	}
	f.hub.Publish(notify.BreakPaused{RemainingMS: f.breakClock.TimeRemaining().Milliseconds()})
}

// breakExpired handles the break clock reaching zero. Breaks before the
// first snatch or clean & jerk hand over to lifting.
func (f *FieldOfPlay) breakExpired(ctx context.Context, e event.BreakExpired) error {
	if f.state != StateBreak || e.Break != f.breakGen {
		f.logger.Debug("stale break expiry dropped", "break", e.Break)
		return nil
	}
	f.stopBreakClock()
	f.hub.Publish(notify.BreakDone{Type: f.breakType})
	if f.breakType.EndsInLifting() {
		return f.transitionToLifting(ctx, e, false)
	}
	return nil
}
