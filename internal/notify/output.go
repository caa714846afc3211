// Package notify defines the closed set of output notifications a
// Field-of-Play engine broadcasts to displays.
//
// Notifications are immutable snapshots. Athlete values inside them are
// clones taken at publication time; subscribers must not mutate them.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/event"
)

// Output is a state broadcast consumed by displays.
type Output interface {
	kind() string
}

// Kind returns the kind name of an output.
func Kind(o Output) string {
	if o == nil {
		return ""
	}
	return o.kind()
}

// Reason classifies a Notification.
type Reason string

const (
	ReasonUnexpectedEvent Reason = "UnexpectedEvent"
	ReasonRuleViolation   Reason = "RuleViolation"
)

// Clock names the clock a TimerUpdate refers to.
type Clock string

const (
	ClockAthlete Clock = "athlete"
	ClockBreak   Clock = "break"
)

// TimerAction is what happened to a clock.
type TimerAction string

const (
	TimerStart TimerAction = "start"
	TimerStop  TimerAction = "stop"
	TimerSet   TimerAction = "set"
)

// SwitchGroup tells displays a group was (re)loaded.
type SwitchGroup struct {
	GroupID string `json:"group_id"`
	State   string `json:"state"`
}

// StartLifting tells displays lifting (re)started.
type StartLifting struct {
	GroupID string `json:"group_id"`
}

// LiftingOrderUpdated carries everything an attempt board or scoreboard
// needs after a recomputation.
type LiftingOrderUpdated struct {
	Current  *athlete.Athlete `json:"current,omitempty"`
	Next     *athlete.Athlete `json:"next,omitempty"`
	Previous *athlete.Athlete `json:"previous,omitempty"`
	Changed  *athlete.Athlete `json:"changed,omitempty"`

	LiftingOrder []*athlete.Athlete `json:"lifting_order"`
	DisplayOrder []*athlete.Athlete `json:"display_order"`
	Leaders      []*athlete.Athlete `json:"leaders,omitempty"`

	ClockRemainingMS int64  `json:"clock_remaining_ms"`
	DisplayAffected  bool   `json:"display_affected"`
	Toggle           bool   `json:"toggle"`
	InBreak          bool   `json:"in_break"`
	CJStarted        bool   `json:"cj_started"`
	State            string `json:"state"`
}

// BreakStarted is broadcast when a break begins or resumes.
type BreakStarted struct {
	Type        event.BreakType     `json:"type"`
	Countdown   event.CountdownType `json:"countdown"`
	RemainingMS int64               `json:"remaining_ms"`
	Target      time.Time           `json:"target,omitempty"`
	Indefinite  bool                `json:"indefinite,omitempty"`
}

// BreakPaused is broadcast when the break clock is frozen.
type BreakPaused struct {
	RemainingMS int64 `json:"remaining_ms"`
}

// BreakDone is broadcast when a break countdown expires.
type BreakDone struct {
	Type event.BreakType `json:"type"`
}

// DownSignal shows the down signal on referee and attempt displays.
type DownSignal struct {
	Athlete string `json:"athlete"`
}

// Decision reveals the outcome of an attempt. When the decision was
// entered by an official only the centre referee's light is shown.
type Decision struct {
	Athlete *athlete.Athlete `json:"athlete"`
	Good    bool             `json:"good"`
	Votes   [3]event.Vote    `json:"votes"`
	Forced  bool             `json:"forced,omitempty"`
}

// DecisionReset clears decision lights on all displays.
type DecisionReset struct{}

// RefereeUpdate is the jury screen's live feed of partial votes.
type RefereeUpdate struct {
	Votes [3]event.Vote `json:"votes"`
	Times [3]int64      `json:"times"`
}

// GroupDone is broadcast when no athlete of the group has attempts left.
type GroupDone struct {
	GroupID string `json:"group_id"`
}

// GlobalRankingUpdated asks result displays to refresh.
type GlobalRankingUpdated struct{}

// Notification reports an event that could not be applied.
type Notification struct {
	Reason  Reason `json:"reason"`
	Event   string `json:"event"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// BarbellOrPlatesChanged asks displays to redraw the loading chart.
type BarbellOrPlatesChanged struct {
	Athlete string `json:"athlete,omitempty"`
	Weight  int    `json:"weight"`
}

// JuryNotification reports a jury ruling.
type JuryNotification struct {
	Athlete  string `json:"athlete"`
	Good     bool   `json:"good"`
	Reversal bool   `json:"reversal"`
}

// Broadcast is free text for all displays.
type Broadcast struct {
	Message string `json:"message"`
}

// TimerUpdate mirrors clock operations so displays can animate them.
type TimerUpdate struct {
	Clock       Clock       `json:"clock"`
	Action      TimerAction `json:"action"`
	RemainingMS int64       `json:"remaining_ms"`
}

func (SwitchGroup) kind() string            { return "SwitchGroup" }
func (StartLifting) kind() string           { return "StartLifting" }
func (LiftingOrderUpdated) kind() string    { return "LiftingOrderUpdated" }
func (BreakStarted) kind() string           { return "BreakStarted" }
func (BreakPaused) kind() string            { return "BreakPaused" }
func (BreakDone) kind() string              { return "BreakDone" }
func (DownSignal) kind() string             { return "DownSignal" }
func (Decision) kind() string               { return "Decision" }
func (DecisionReset) kind() string          { return "DecisionReset" }
func (RefereeUpdate) kind() string          { return "RefereeUpdate" }
func (GroupDone) kind() string              { return "GroupDone" }
func (GlobalRankingUpdated) kind() string   { return "GlobalRankingUpdated" }
func (Notification) kind() string           { return "Notification" }
func (BarbellOrPlatesChanged) kind() string { return "BarbellOrPlatesChanged" }
func (JuryNotification) kind() string       { return "JuryNotification" }
func (Broadcast) kind() string              { return "Broadcast" }
func (TimerUpdate) kind() string            { return "TimerUpdate" }

// Envelope is the JSON form of a notification.
type Envelope struct {
	Platform string          `json:"platform,omitempty"`
	Kind     string          `json:"kind"`
	Data     json.RawMessage `json:"data"`
}

// Marshal encodes a notification as a one-line JSON envelope. HTML
// escaping is disabled so athlete names survive unchanged.
func Marshal(platform string, o Output) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("marshal: nil output")
	}
	data, err := encode(o)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", o.kind(), err)
	}
	return encode(Envelope{Platform: platform, Kind: o.kind(), Data: data})
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
