package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/liftfop/internal/notify"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, line := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", line)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the messages of
// the failing ones.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertOutputContains:
		return assertOutputContains(result, a)
	case AssertOutputCount:
		return assertOutputCount(result, a)
	case AssertOutputOrder:
		return assertOutputOrder(result, a)
	case AssertAthlete:
		return assertAthlete(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertOutputContains checks that some notification of the kind matches
// the fields (subset match on its JSON form).
func assertOutputContains(result *Result, a Assertion) error {
	want, err := normalize(a.Fields)
	if err != nil {
		return err
	}
	seen := 0
	for _, o := range result.Outputs {
		if notify.Kind(o) != a.Kind {
			continue
		}
		seen++
		got, err := normalize(o)
		if err != nil {
			return err
		}
		if subset(want, got) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertOutputContains,
		Expected: fmt.Sprintf("%s with %v", a.Kind, a.Fields),
		Actual:   fmt.Sprintf("no match among %d %s notification(s)", seen, a.Kind),
		Trace:    result.Trace,
	}
}

// assertOutputCount checks the exact number of notifications of a kind.
func assertOutputCount(result *Result, a Assertion) error {
	n := 0
	for _, o := range result.Outputs {
		if notify.Kind(o) == a.Kind {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputCount,
		Expected: fmt.Sprintf("%d %s notification(s)", a.Count, a.Kind),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    result.Trace,
	}
}

// assertOutputOrder checks that the kinds appear in order. Kinds don't
// need to be consecutive (intervening notifications are allowed).
func assertOutputOrder(result *Result, a Assertion) error {
	next := 0
	for _, o := range result.Outputs {
		if next < len(a.Kinds) && notify.Kind(o) == a.Kinds[next] {
			next++
		}
	}
	if next == len(a.Kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputOrder,
		Expected: strings.Join(a.Kinds, " -> "),
		Actual:   fmt.Sprintf("%s not found after %s", a.Kinds[next], strings.Join(a.Kinds[:next], " -> ")),
		Trace:    result.Trace,
	}
}

// assertAthlete checks the engine's copy of an athlete at the end of the
// run (subset match on its JSON form).
func assertAthlete(result *Result, a Assertion) error {
	w, ok := result.Athletes[a.Athlete]
	if !ok {
		return &AssertionError{
			Type:     AssertAthlete,
			Expected: fmt.Sprintf("athlete %s in the group", a.Athlete),
			Actual:   "not found",
			Trace:    result.Trace,
		}
	}
	want, err := normalize(a.Fields)
	if err != nil {
		return err
	}
	got, err := normalize(w)
	if err != nil {
		return err
	}
	if subset(want, got) {
		return nil
	}

	var diffs []string
	wm, _ := want.(map[string]any)
	gm, _ := got.(map[string]any)
	for k, v := range wm {
		if !subset(v, gm[k]) {
			diffs = append(diffs, fmt.Sprintf("%s=%v", k, gm[k]))
		}
	}
	sort.Strings(diffs)
	return &AssertionError{
		Type:     AssertAthlete,
		Expected: fmt.Sprintf("athlete %s with %v", a.Athlete, a.Fields),
		Actual:   strings.Join(diffs, ", "),
		Trace:    result.Trace,
	}
}

// normalize round-trips v through JSON so YAML ints and JSON numbers
// compare equal.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// subset reports whether every key of want is present in got with a
// matching value. Nested objects match by subset; everything else must be
// equal.
func subset(want, got any) bool {
	wm, ok := want.(map[string]any)
	if !ok {
		return reflect.DeepEqual(want, got)
	}
	gm, ok := got.(map[string]any)
	if !ok {
		return false
	}
	for k, wv := range wm {
		gv, present := gm[k]
		if !present || !subset(wv, gv) {
			return false
		}
	}
	return true
}
