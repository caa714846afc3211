package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/good_lift.yaml")
	require.NoError(t, err)

	assert.Equal(t, "good_lift", s.Name)
	assert.Equal(t, "A", s.Group)
	require.Len(t, s.Athletes, 2)
	assert.Equal(t, "a", s.Athletes[0].ID)
	assert.Equal(t, 100, s.Athletes[0].Requested)
	assert.Equal(t, "good", s.Steps[6].Data["vote"])
	assert.Equal(t, 3500*time.Millisecond, s.Steps[12].Advance)
	require.NotNil(t, s.Steps[13].Expect.ClockMS)
	assert.Equal(t, int64(120000), *s.Steps[13].Expect.ClockMS)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: x
description: y
group: A
athletes: [{id: a, start_number: 1, requested: 100}]
steps: [{input: StartLifting}]
flow_token: nope
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	const head = `
name: x
description: y
group: A
athletes: [{id: a, start_number: 1, requested: 100}]
`
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", `
description: y
group: A
athletes: [{id: a}]
steps: [{input: StartLifting}]
`, "name is required"},
		{"no group", `
name: x
description: y
athletes: [{id: a}]
steps: [{input: StartLifting}]
`, "group is required"},
		{"no athletes", `
name: x
description: y
group: A
steps: [{input: StartLifting}]
`, "athletes list is required"},
		{"no steps", head, "steps list is required"},
		{"duplicate athlete", `
name: x
description: y
group: A
athletes: [{id: a}, {id: a}]
steps: [{input: StartLifting}]
`, `duplicate id "a"`},
		{"unknown input", head + `steps: [{input: Jump}]`, "steps[0]"},
		{"two actions", head + `steps: [{input: StartLifting, advance: 1s}]`, "exactly one of"},
		{"empty step", head + `steps: [{}]`, "exactly one of"},
		{"data without input", head + `steps: [{advance: 1s, data: {a: 1}}]`, "data needs an input"},
		{"change without athlete", head + `steps: [{change: {requested: 101}}]`, "athlete is required"},
		{"error without input", head + `steps: [{advance: 1s, error: UNEXPECTED_EVENT}]`, "error needs an input"},
		{"unknown error code", head + `steps: [{input: StartLifting, error: OOPS}]`, `unknown error code "OOPS"`},
		{"unknown assertion", head + `
steps: [{input: StartLifting}]
assertions: [{type: final_state}]
`, `unknown assertion type "final_state"`},
		{"count without kind", head + `
steps: [{input: StartLifting}]
assertions: [{type: output_count, count: 1}]
`, "kind is required"},
		{"order without kinds", head + `
steps: [{input: StartLifting}]
assertions: [{type: output_order}]
`, "kinds list is required"},
		{"athlete without fields", head + `
steps: [{input: StartLifting}]
assertions: [{type: athlete, athlete: a}]
`, "fields are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "c_break.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "golden"), 0o755))

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "c_break.yaml"),
	}, files)

	files, err = FindScenarios(dir, "*break*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "c_break.yaml")}, files)

	_, err = FindScenarios(dir, "[")
	assert.Error(t, err)
}
