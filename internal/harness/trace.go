package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/notify"
)

// Summarize renders a notification as one trace line. Only what a
// display acts on is shown; free text (messages, names) is left out so
// traces do not depend on the locale.
func Summarize(o notify.Output) string {
	switch n := o.(type) {
	case notify.SwitchGroup:
		return fmt.Sprintf("SwitchGroup group=%s state=%s", n.GroupID, n.State)
	case notify.StartLifting:
		return fmt.Sprintf("StartLifting group=%s", n.GroupID)
	case notify.LiftingOrderUpdated:
		return fmt.Sprintf("LiftingOrderUpdated current=%s next=%s previous=%s changed=%s order=%s clock=%d affected=%t state=%s",
			idOrDash(n.Current), idOrDash(n.Next), idOrDash(n.Previous), idOrDash(n.Changed),
			ids(n.LiftingOrder), n.ClockRemainingMS, n.DisplayAffected, n.State)
	case notify.BreakStarted:
		return fmt.Sprintf("BreakStarted type=%s countdown=%s remaining=%d", n.Type, n.Countdown, n.RemainingMS)
	case notify.BreakPaused:
		return fmt.Sprintf("BreakPaused remaining=%d", n.RemainingMS)
	case notify.BreakDone:
		return fmt.Sprintf("BreakDone type=%s", n.Type)
	case notify.DownSignal:
		return fmt.Sprintf("DownSignal athlete=%s", n.Athlete)
	case notify.Decision:
		line := fmt.Sprintf("Decision athlete=%s good=%t votes=%s", idOrDash(n.Athlete), n.Good, votes(n.Votes))
		if n.Forced {
			line += " forced"
		}
		return line
	case notify.DecisionReset:
		return "DecisionReset"
	case notify.RefereeUpdate:
		return fmt.Sprintf("RefereeUpdate votes=%s", votes(n.Votes))
	case notify.GroupDone:
		return fmt.Sprintf("GroupDone group=%s", n.GroupID)
	case notify.GlobalRankingUpdated:
		return "GlobalRankingUpdated"
	case notify.Notification:
		return fmt.Sprintf("Notification reason=%s event=%s state=%s", n.Reason, n.Event, n.State)
	case notify.BarbellOrPlatesChanged:
		return fmt.Sprintf("BarbellOrPlatesChanged athlete=%s weight=%d", dash(n.Athlete), n.Weight)
	case notify.JuryNotification:
		return fmt.Sprintf("JuryNotification athlete=%s good=%t reversal=%t", n.Athlete, n.Good, n.Reversal)
	case notify.Broadcast:
		return "Broadcast"
	case notify.TimerUpdate:
		return fmt.Sprintf("TimerUpdate %s %s %d", n.Clock, n.Action, n.RemainingMS)
	}
	return notify.Kind(o)
}

func idOrDash(a *athlete.Athlete) string {
	if a == nil {
		return "-"
	}
	return a.ID
}

func ids(as []*athlete.Athlete) string {
	if len(as) == 0 {
		return "-"
	}
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.ID
	}
	return strings.Join(parts, ",")
}

func votes(vs [3]event.Vote) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
		if v == event.VoteNone {
			parts[i] = "-"
		}
	}
	return strings.Join(parts, ",")
}
