package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/engine"
	"github.com/roach88/liftfop/internal/event"
)

// Scenario is one scripted session on a platform.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Platform defaults to "A".
	Platform string `yaml:"platform,omitempty"`

	// Group is the group id the athletes belong to.
	Group string `yaml:"group"`

	Athletes []AthleteSpec `yaml:"athletes"`

	Options Options `yaml:"options,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// AthleteSpec seeds one athlete. Lifts are results already recorded.
type AthleteSpec struct {
	ID             string `yaml:"id"`
	LastName       string `yaml:"last_name,omitempty"`
	Category       string `yaml:"category,omitempty"`
	Team           string `yaml:"team,omitempty"`
	StartNumber    int    `yaml:"start_number"`
	Requested      int    `yaml:"requested"`
	CleanJerkStart int    `yaml:"clean_jerk_start,omitempty"`
	Lifts          []int  `yaml:"lifts,omitempty"`
}

// Options tunes the engine. Zero values keep the engine defaults.
type Options struct {
	ReversalDelay   time.Duration `yaml:"reversal_delay,omitempty"`
	DecisionVisible time.Duration `yaml:"decision_visible,omitempty"`
	Locale          string        `yaml:"locale,omitempty"`
}

// Step is exactly one of: an input (Input with optional Data), a weight
// change (Change), a time advance (Advance) or a state check (Expect).
type Step struct {
	Input string         `yaml:"input,omitempty"`
	Data  map[string]any `yaml:"data,omitempty"`

	Change *Change `yaml:"change,omitempty"`

	Advance time.Duration `yaml:"advance,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`

	// Error is the engine error code the input must fail with.
	Error string `yaml:"error,omitempty"`
}

// Change builds a WeightChange from the engine's copy of the athlete.
type Change struct {
	Athlete   string `yaml:"athlete"`
	Requested int    `yaml:"requested"`
	Forced    bool   `yaml:"forced,omitempty"`
}

// Expect checks the engine status. Unset fields are not checked; "-"
// means "no athlete".
type Expect struct {
	State        string   `yaml:"state,omitempty"`
	Current      string   `yaml:"current,omitempty"`
	Owner        string   `yaml:"owner,omitempty"`
	Previous     string   `yaml:"previous,omitempty"`
	Order        []string `yaml:"order,omitempty"`
	ClockMS      *int64   `yaml:"clock_ms,omitempty"`
	ClockRunning *bool    `yaml:"clock_running,omitempty"`
	BreakType    string   `yaml:"break_type,omitempty"`
	GroupDone    *bool    `yaml:"group_done,omitempty"`
}

// Assertion checks the notifications of the whole run.
type Assertion struct {
	// Type is one of output_contains, output_count, output_order, athlete.
	Type string `yaml:"type"`

	// Kind is the notification kind (output_contains, output_count).
	Kind string `yaml:"kind,omitempty"`

	// Fields are matched against the notification's JSON form
	// (output_contains) or the athlete's (athlete). Subset match.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Count is the expected number of notifications (output_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected order, gaps allowed (output_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Athlete is the athlete id (athlete).
	Athlete string `yaml:"athlete,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains = "output_contains"
	AssertOutputCount    = "output_count"
	AssertOutputOrder    = "output_order"
	AssertAthlete        = "athlete"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and checks scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files directly in dir, sorted.
// A filter, when set, is a glob matched against the file name without
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Group == "" {
		return fmt.Errorf("group is required")
	}
	if len(s.Athletes) == 0 {
		return fmt.Errorf("athletes list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := map[string]bool{}
	for i, a := range s.Athletes {
		if a.ID == "" {
			return fmt.Errorf("athletes[%d]: id is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("athletes[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		if len(a.Lifts) > athlete.MaxAttempts {
			return fmt.Errorf("athletes[%d]: at most %d lifts", i, athlete.MaxAttempts)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	if st.Input != "" {
		set++
	}
	if st.Change != nil {
		set++
	}
	if st.Advance != 0 {
		set++
	}
	if st.Expect != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of input, change, advance, expect is required", index)
	}

	if st.Input != "" {
		if _, err := event.Zero(st.Input); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	} else if st.Data != nil {
		return fmt.Errorf("steps[%d]: data needs an input", index)
	}
	if st.Advance < 0 {
		return fmt.Errorf("steps[%d]: advance must not be negative", index)
	}
	if st.Change != nil && st.Change.Athlete == "" {
		return fmt.Errorf("steps[%d].change: athlete is required", index)
	}
	if st.Error != "" {
		if st.Input == "" && st.Change == nil {
			return fmt.Errorf("steps[%d]: error needs an input or a change", index)
		}
		switch engine.ErrorCode(st.Error) {
		case engine.ErrCodeUnexpectedEvent, engine.ErrCodeRuleViolation,
			engine.ErrCodeCollaboratorFailure, engine.ErrCodeNoCurrentAthlete:
		default:
			return fmt.Errorf("steps[%d]: unknown error code %q", index, st.Error)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOutputContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for output_contains", index)
		}
	case AssertOutputCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for output_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for output_count", index)
		}
	case AssertOutputOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for output_order", index)
		}
	case AssertAthlete:
		if a.Athlete == "" {
			return fmt.Errorf("assertions[%d]: athlete is required for athlete", index)
		}
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields are required for athlete", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
