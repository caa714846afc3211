package engine

// State is the Field-of-Play state. Exactly one is active per platform.
type State string

const (
	StateInactive                State = "INACTIVE"
	StateBreak                   State = "BREAK"
	StateCurrentAthleteDisplayed State = "CURRENT_ATHLETE_DISPLAYED"
	StateTimeRunning             State = "TIME_RUNNING"
	StateTimeStopped             State = "TIME_STOPPED"
	StateDownSignalVisible       State = "DOWN_SIGNAL_VISIBLE"
	StateDecisionVisible         State = "DECISION_VISIBLE"
)

// States lists every state in declaration order.
var States = []State{
	StateInactive,
	StateBreak,
	StateCurrentAthleteDisplayed,
	StateTimeRunning,
	StateTimeStopped,
	StateDownSignalVisible,
	StateDecisionVisible,
}

// Valid reports whether s is one of States.
func (s State) Valid() bool {
	for _, v := range States {
		if v == s {
			return true
		}
	}
	return false
}
