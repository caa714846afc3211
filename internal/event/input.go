// Package event defines the closed set of input events a Field-of-Play
// engine consumes.
//
// Inputs are immutable values. The set is sealed: every input implements
// unexported methods, so only this package can add kinds, and each kind
// names itself and exposes the fields that make up its structural hash.
// The engine dispatches on the concrete type; kinds a state does not
// accept are rejected explicitly, never silently.
//
// Some kinds are posted by the engine's own scheduled tasks (DecisionConfirm,
// ClockWarning, BreakExpired, and the automatic DecisionReset and TimeOver).
// They carry the attempt or break generation they were scheduled for so a
// late delivery can be recognised and dropped.
package event

import (
	"fmt"
	"time"

	"github.com/roach88/liftfop/internal/athlete"
)

// Kind names, used in logs, the journal and JSON envelopes.
const (
	KindBreakStarted           = "BreakStarted"
	KindBreakPaused            = "BreakPaused"
	KindStartLifting           = "StartLifting"
	KindWeightChange           = "WeightChange"
	KindBarbellOrPlatesChanged = "BarbellOrPlatesChanged"
	KindSwitchGroup            = "SwitchGroup"
	KindTimeStarted            = "TimeStarted"
	KindTimeStopped            = "TimeStopped"
	KindTimeOver               = "TimeOver"
	KindForceTime              = "ForceTime"
	KindDecisionUpdate         = "DecisionUpdate"
	KindDecisionFullUpdate     = "DecisionFullUpdate"
	KindExplicitDecision       = "ExplicitDecision"
	KindDownSignal             = "DownSignal"
	KindDecisionReset          = "DecisionReset"
	KindJuryDecision           = "JuryDecision"
	KindDecisionConfirm        = "DecisionConfirm"
	KindClockWarning           = "ClockWarning"
	KindBreakExpired           = "BreakExpired"
)

// Input is an explicit action delivered to a platform's engine.
type Input interface {
	// Source identifies the device or screen that emitted the event.
	Source() string

	kind() string
	fields() map[string]any
}

// Kind returns the kind name of an input.
func Kind(in Input) string {
	if in == nil {
		return ""
	}
	return in.kind()
}

// Meta carries the metadata shared by all inputs. Origin is not part of
// the structural hash: the same action arriving from two redundant
// sources is the same event.
type Meta struct {
	Origin string `json:"origin,omitempty"`
}

// Source implements Input.
func (m Meta) Source() string { return m.Origin }

// BreakType classifies breaks.
type BreakType string

const (
	BreakIntroduction   BreakType = "INTRODUCTION"
	BreakFirstSnatch    BreakType = "FIRST_SNATCH"
	BreakFirstCleanJerk BreakType = "FIRST_CJ"
	BreakTechnical      BreakType = "TECHNICAL"
	BreakJury           BreakType = "JURY"
	BreakMarshal        BreakType = "MARSHAL"
	BreakGroupDone      BreakType = "GROUP_DONE"
)

// EndsInLifting reports whether lifting resumes automatically when a
// countdown of this type expires.
func (b BreakType) EndsInLifting() bool {
	return b == BreakFirstSnatch || b == BreakFirstCleanJerk
}

// CountdownType selects how the break clock runs.
type CountdownType string

const (
	CountdownIndefinite CountdownType = "INDEFINITE"
	CountdownDuration   CountdownType = "DURATION"
	CountdownTarget     CountdownType = "TARGET"
)

// WarningKind names the clock warnings.
type WarningKind string

const (
	WarningInitial WarningKind = "INITIAL"
	WarningFinal   WarningKind = "FINAL"
)

// Vote is one referee's decision. The zero value means "no vote yet".
type Vote int8

const (
	VoteNone Vote = iota
	VoteGood
	VoteBad
)

// VoteOf converts a white/red light into a Vote.
func VoteOf(good bool) Vote {
	if good {
		return VoteGood
	}
	return VoteBad
}

// String implements fmt.Stringer.
func (v Vote) String() string {
	switch v {
	case VoteGood:
		return "good"
	case VoteBad:
		return "bad"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Vote) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Vote) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*v = VoteNone
	case "good", "white":
		*v = VoteGood
	case "bad", "red":
		*v = VoteBad
	default:
		return fmt.Errorf("invalid vote %q", string(b))
	}
	return nil
}

// Unanimous returns three identical votes.
func Unanimous(good bool) [3]Vote {
	v := VoteOf(good)
	return [3]Vote{v, v, v}
}

// BreakStarted interrupts the competition. Officials may always send it.
type BreakStarted struct {
	Meta
	Type       BreakType     `json:"type"`
	Countdown  CountdownType `json:"countdown"`
	DurationMS int64         `json:"duration_ms,omitempty"`
	Target     time.Time     `json:"target,omitempty"`
	Indefinite bool          `json:"indefinite,omitempty"`
}

// Duration returns the requested break length.
func (e BreakStarted) Duration() time.Duration {
	return time.Duration(e.DurationMS) * time.Millisecond
}

// BreakPaused freezes the break clock.
type BreakPaused struct {
	Meta
	RemainingMS int64 `json:"remaining_ms"`
}

// StartLifting (re-)enters the lifting flow for the active group.
type StartLifting struct{ Meta }

// WeightChange carries the changing athlete with the new request.
type WeightChange struct {
	Meta
	Athlete athlete.Athlete `json:"athlete"`
}

// BarbellOrPlatesChanged asks displays to refresh the loading chart.
type BarbellOrPlatesChanged struct{ Meta }

// SwitchGroup loads another group (or reloads the current one).
type SwitchGroup struct {
	Meta
	GroupID string `json:"group_id"`
}

// TimeStarted is the timekeeper starting the athlete clock.
type TimeStarted struct{ Meta }

// TimeStopped is the timekeeper stopping the athlete clock.
type TimeStopped struct{ Meta }

// TimeOver reports the athlete clock reaching zero. Attempt is set when
// the clock itself posted it.
type TimeOver struct {
	Meta
	Attempt uint64 `json:"attempt,omitempty"`
}

// ForceTime sets the athlete clock explicitly.
type ForceTime struct {
	Meta
	RemainingMS int64 `json:"remaining_ms"`
}

// Remaining returns the forced time.
func (e ForceTime) Remaining() time.Duration {
	return time.Duration(e.RemainingMS) * time.Millisecond
}

// DecisionUpdate is a single referee vote (Ref is 0-based).
type DecisionUpdate struct {
	Meta
	Ref  int  `json:"ref"`
	Vote Vote `json:"vote"`
}

// DecisionFullUpdate replaces all three votes and their timestamps.
type DecisionFullUpdate struct {
	Meta
	Votes [3]Vote  `json:"votes"`
	Times [3]int64 `json:"times"`
}

// ExplicitDecision is a decision entered by an official, bypassing the
// referee devices.
type ExplicitDecision struct {
	Meta
	AthleteID string  `json:"athlete_id,omitempty"`
	Votes     [3]Vote `json:"votes"`
}

// DownSignal is an explicit down signal (e.g. from a referee box).
type DownSignal struct{ Meta }

// DecisionReset clears the visible decision. Auto resets are posted by the
// engine after the decision-visible duration.
type DecisionReset struct {
	Meta
	Auto    bool   `json:"auto,omitempty"`
	Attempt uint64 `json:"attempt,omitempty"`
}

// JuryDecision confirms or reverses the last recorded lift of an athlete.
type JuryDecision struct {
	Meta
	AthleteID string `json:"athlete_id"`
	Good      bool   `json:"good"`
}

// DecisionConfirm fires when the reversal window of an attempt closes.
type DecisionConfirm struct {
	Meta
	Attempt uint64 `json:"attempt"`
}

// ClockWarning fires when the running athlete clock crosses a warning
// threshold.
type ClockWarning struct {
	Meta
	Kind    WarningKind `json:"kind"`
	Attempt uint64      `json:"attempt"`
}

// BreakExpired fires when a break countdown reaches zero.
type BreakExpired struct {
	Meta
	Break uint64 `json:"break"`
}

func (BreakStarted) kind() string           { return KindBreakStarted }
func (BreakPaused) kind() string            { return KindBreakPaused }
func (StartLifting) kind() string           { return KindStartLifting }
func (WeightChange) kind() string           { return KindWeightChange }
func (BarbellOrPlatesChanged) kind() string { return KindBarbellOrPlatesChanged }
func (SwitchGroup) kind() string            { return KindSwitchGroup }
func (TimeStarted) kind() string            { return KindTimeStarted }
func (TimeStopped) kind() string            { return KindTimeStopped }
func (TimeOver) kind() string               { return KindTimeOver }
func (ForceTime) kind() string              { return KindForceTime }
func (DecisionUpdate) kind() string         { return KindDecisionUpdate }
func (DecisionFullUpdate) kind() string     { return KindDecisionFullUpdate }
func (ExplicitDecision) kind() string       { return KindExplicitDecision }
func (DownSignal) kind() string             { return KindDownSignal }
func (DecisionReset) kind() string          { return KindDecisionReset }
func (JuryDecision) kind() string           { return KindJuryDecision }
func (DecisionConfirm) kind() string        { return KindDecisionConfirm }
func (ClockWarning) kind() string           { return KindClockWarning }
func (BreakExpired) kind() string           { return KindBreakExpired }

func (e BreakStarted) fields() map[string]any {
	var target int64
	if !e.Target.IsZero() {
		target = e.Target.UnixMilli()
	}
	return map[string]any{
		"type":        string(e.Type),
		"countdown":   string(e.Countdown),
		"duration_ms": e.DurationMS,
		"target":      target,
		"indefinite":  e.Indefinite,
	}
}

func (e BreakPaused) fields() map[string]any {
	return map[string]any{"remaining_ms": e.RemainingMS}
}

func (StartLifting) fields() map[string]any           { return map[string]any{} }
func (BarbellOrPlatesChanged) fields() map[string]any { return map[string]any{} }
func (TimeStarted) fields() map[string]any            { return map[string]any{} }
func (TimeStopped) fields() map[string]any            { return map[string]any{} }
func (DownSignal) fields() map[string]any             { return map[string]any{} }

func (e WeightChange) fields() map[string]any {
	a := e.Athlete
	lifts := make([]any, len(a.Lifts))
	for i, v := range a.Lifts {
		lifts[i] = v
	}
	return map[string]any{
		"athlete":          a.ID,
		"requested":        a.Requested,
		"attempts_done":    a.AttemptsDone,
		"clean_jerk_start": a.CleanJerkStart,
		"forced":           a.ForcedAsCurrent,
		"lifts":            lifts,
	}
}

func (e SwitchGroup) fields() map[string]any {
	return map[string]any{"group": e.GroupID}
}

func (e TimeOver) fields() map[string]any {
	return map[string]any{"attempt": e.Attempt}
}

func (e ForceTime) fields() map[string]any {
	return map[string]any{"remaining_ms": e.RemainingMS}
}

func (e DecisionUpdate) fields() map[string]any {
	return map[string]any{"ref": e.Ref, "vote": e.Vote.String()}
}

func (e DecisionFullUpdate) fields() map[string]any {
	return map[string]any{
		"votes": votesField(e.Votes),
		"times": []any{e.Times[0], e.Times[1], e.Times[2]},
	}
}

func (e ExplicitDecision) fields() map[string]any {
	return map[string]any{"athlete": e.AthleteID, "votes": votesField(e.Votes)}
}

func (e DecisionReset) fields() map[string]any {
	return map[string]any{"auto": e.Auto, "attempt": e.Attempt}
}

func (e JuryDecision) fields() map[string]any {
	return map[string]any{"athlete": e.AthleteID, "good": e.Good}
}

func (e DecisionConfirm) fields() map[string]any {
	return map[string]any{"attempt": e.Attempt}
}

func (e ClockWarning) fields() map[string]any {
	return map[string]any{"kind": string(e.Kind), "attempt": e.Attempt}
}

func (e BreakExpired) fields() map[string]any {
	return map[string]any{"break": e.Break}
}

func votesField(v [3]Vote) []any {
	return []any{v[0].String(), v[1].String(), v[2].String()}
}
