// Package rules holds the closed taxonomy of weightlifting rule
// violations and the validator that raises them for weight changes.
//
// Violations are advisory: they block the requested change and are
// reported to the official who made it, but they never stop the engine.
package rules

import (
	"errors"
	"fmt"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/messages"
)

// Kind identifies a violation. Its value is the message id.
type Kind string

const (
	AttemptNumberTooLow          Kind = "attemptNumberTooLow"
	DeclarationValueTooSmall     Kind = "declarationValueTooSmall"
	LastChangeTooLow             Kind = "declaredChangesNotOk"
	LateDeclaration              Kind = "LateDeclaration"
	LiftedEarlier                Kind = "liftedEarlier"
	LiftValueNotWhatWasRequested Kind = "liftValueNotWhatWasRequested"
	LotNumberTooHigh             Kind = "lotNumberTooHigh"
	MustChangeBeforeFinalWarning Kind = "MustChangeBeforeFinalWarning"
	MustDeclareFirst             Kind = "MustDeclareFirst"
	Rule15_20Violated            Kind = "rule15_20Violated"
	StartNumberTooHigh           Kind = "startNumberTooHigh"
	ValueBelowStartedClock       Kind = "valueBelowStartedClock"
	WeightBelowAlreadyLifted     Kind = "weightBelowAlreadyLifted"
)

// Kinds lists every violation kind.
var Kinds = []Kind{
	AttemptNumberTooLow, DeclarationValueTooSmall, LastChangeTooLow,
	LateDeclaration, LiftedEarlier, LiftValueNotWhatWasRequested,
	LotNumberTooHigh, MustChangeBeforeFinalWarning, MustDeclareFirst,
	Rule15_20Violated, StartNumberTooHigh, ValueBelowStartedClock,
	WeightBelowAlreadyLifted,
}

// Violation is a rule violation with the values needed to render it.
type Violation struct {
	Kind Kind
	Args map[string]any
}

// Error implements error with the English rendering.
func (v *Violation) Error() string {
	return v.Localize(messages.English())
}

// Localize renders the violation with a catalog.
func (v *Violation) Localize(c *messages.Catalog) string {
	return c.Render(string(v.Kind), v.Args)
}

// IsViolation reports whether err is (or wraps) a rule violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// AsViolation extracts the violation from err.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if !errors.As(err, &v) || v == nil {
		return nil, false
	}
	return v, true
}

func seconds(ms int64) string {
	return fmt.Sprintf("%.1f", float64(ms)/1000)
}

// NewAttemptNumberTooLow: the requested weight was already taken by ref
// on a higher attempt number.
func NewAttemptNumberTooLow(requested int, ref *athlete.Athlete, refWeight, attemptNo int) *Violation {
	return &Violation{Kind: AttemptNumberTooLow, Args: map[string]any{
		"Requested": requested, "Athlete": ref.ShortName(), "ReferenceWeight": refWeight, "AttemptNo": attemptNo,
	}}
}

// NewDeclarationValueTooSmall: a declaration below automatic progression.
func NewDeclarationValueTooSmall(attemptsDone, value, autoProgression int) *Violation {
	return &Violation{Kind: DeclarationValueTooSmall, Args: map[string]any{
		"Attempt": attemptsDone%3 + 1, "Value": value, "AutomaticProgression": autoProgression,
	}}
}

// NewLastChangeTooLow: a change below automatic progression.
func NewLastChangeTooLow(attemptsDone, value, autoProgression int) *Violation {
	return &Violation{Kind: LastChangeTooLow, Args: map[string]any{
		"Attempt": attemptsDone%3 + 1, "Value": value, "AutomaticProgression": autoProgression,
	}}
}

// NewLateDeclaration: declaration after the first 30 s of a running clock.
func NewLateDeclaration(clockMS int64) *Violation {
	return &Violation{Kind: LateDeclaration, Args: map[string]any{"Clock": seconds(clockMS)}}
}

// NewLiftedEarlier: current lifted before ref on the previous attempt, so
// cannot take a weight ref has already lifted.
func NewLiftedEarlier(requested int, ref, current *athlete.Athlete) *Violation {
	return &Violation{Kind: LiftedEarlier, Args: map[string]any{
		"Requested": requested, "Reference": ref.ShortName(), "Current": current.ShortName(),
	}}
}

// NewLiftValueNotWhatWasRequested: a manually entered lift does not match
// the last request.
func NewLiftValueNotWhatWasRequested(attemptsDone int, actual string, requested, lifted int) *Violation {
	return &Violation{Kind: LiftValueNotWhatWasRequested, Args: map[string]any{
		"Attempt": attemptsDone%3 + 1, "Actual": actual, "Requested": requested, "Lifted": lifted,
	}}
}

// NewLotNumberTooHigh: tie on start numbers resolved by lot number.
func NewLotNumberTooHigh(requested, refLot, curLot int) *Violation {
	return &Violation{Kind: LotNumberTooHigh, Args: map[string]any{
		"Requested": requested, "ReferenceLot": refLot, "CurrentLot": curLot,
	}}
}

// NewMustChangeBeforeFinalWarning: change attempted after the final warning.
func NewMustChangeBeforeFinalWarning(clockMS int64) *Violation {
	return &Violation{Kind: MustChangeBeforeFinalWarning, Args: map[string]any{"Clock": seconds(clockMS)}}
}

// NewMustDeclareFirst: change attempted without a prior declaration.
func NewMustDeclareFirst(clockMS int64) *Violation {
	return &Violation{Kind: MustDeclareFirst, Args: map[string]any{"Clock": seconds(clockMS)}}
}

// NewRule15_20Violated: first snatch plus first clean & jerk too far below
// the entry total.
func NewRule15_20Violated(a *athlete.Athlete, snatch1, cleanJerk1, missing, qualTotal int) *Violation {
	return &Violation{Kind: Rule15_20Violated, Args: map[string]any{
		"LastName": a.LastName, "FirstName": a.FirstName, "StartNumber": a.StartNumber,
		"Snatch1": snatch1, "CleanJerk1": cleanJerk1, "Missing": missing, "QualTotal": qualTotal,
	}}
}

// NewStartNumberTooHigh: tie on attempt number resolved by start number.
func NewStartNumberTooHigh(requested int, ref, current *athlete.Athlete) *Violation {
	return &Violation{Kind: StartNumberTooHigh, Args: map[string]any{
		"Requested": requested, "Reference": ref.ShortName(), "Current": current.ShortName(),
	}}
}

// NewValueBelowStartedClock: request below the weight on the bar when the
// clock was started.
func NewValueBelowStartedClock(value, weightAtLastStart int) *Violation {
	return &Violation{Kind: ValueBelowStartedClock, Args: map[string]any{
		"Value": value, "WeightAtLastStart": weightAtLastStart,
	}}
}

// NewWeightBelowAlreadyLifted: the bar cannot go down.
func NewWeightBelowAlreadyLifted(requested int, ref *athlete.Athlete, refWeight, attemptNo int) *Violation {
	return &Violation{Kind: WeightBelowAlreadyLifted, Args: map[string]any{
		"Requested": requested, "Athlete": ref.ShortName(), "ReferenceWeight": refWeight, "AttemptNo": attemptNo,
	}}
}
