package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftfop/internal/athlete"
)

func TestLoadCompetition(t *testing.T) {
	comp, errs := LoadCompetition(filepath.Join("testdata", "competition.cue"))
	require.Empty(t, errs)

	assert.Equal(t, "Club Championship", comp.Name)
	require.Len(t, comp.Platforms, 2)
	assert.Equal(t, "A", comp.Platforms[0].Name)
	assert.Equal(t, "B", comp.Platforms[1].Name)

	g := comp.Platforms[0].Groups[0]
	assert.Equal(t, "M89-A", g.ID)
	assert.Equal(t, "Men 89 kg A", g.Name)
	require.Len(t, g.Athletes, 2)
	assert.Equal(t, &athlete.Athlete{
		ID:             "m1",
		FirstName:      "Karl",
		LastName:       "Berg",
		Gender:         "M",
		Category:       "M89",
		Team:           "NOR",
		GroupID:        "M89-A",
		StartNumber:    1,
		LotNumber:      12,
		Requested:      140,
		CleanJerkStart: 170,
	}, g.Athletes[0])

	w := comp.Platforms[1].Groups[0]
	assert.Equal(t, "W71-A", w.Name, "name defaults to the id")
	assert.Zero(t, w.Athletes[0].CleanJerkStart)

	assert.Len(t, comp.Athletes(), 3)
	p, ok := comp.Platform("B")
	assert.True(t, ok)
	assert.Equal(t, "B", p.Name)
	_, ok = comp.Platform("Z")
	assert.False(t, ok)
}

func TestLoadCompetition_MissingFile(t *testing.T) {
	_, errs := LoadCompetition(filepath.Join("testdata", "nope.cue"))
	require.Len(t, errs, 1)
	assertCode(t, ErrCodeRead, errs[0])
}

func TestParseCompetition_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{
			name: "syntax",
			src:  `platforms: {`,
			code: ErrCodeSyntax,
		},
		{
			name: "unknown field",
			src:  `platforms: A: groups: G: athletes: []` + "\n" + `venue: "x"`,
			code: ErrCodeSchema,
		},
		{
			name: "bad start weight",
			src: `platforms: A: groups: G: athletes: [{
				id: "a", last_name: "X", category: "M89", start_number: 1, snatch_start: 0
			}]`,
			code: ErrCodeSchema,
		},
		{
			name: "missing category",
			src: `platforms: A: groups: G: athletes: [{
				id: "a", last_name: "X", start_number: 1, snatch_start: 100
			}]`,
			code: ErrCodeSchema,
		},
		{
			name: "bad gender",
			src: `platforms: A: groups: G: athletes: [{
				id: "a", last_name: "X", gender: "X", category: "M89", start_number: 1, snatch_start: 100
			}]`,
			code: ErrCodeSchema,
		},
		{
			name: "no platform",
			src:  `platforms: {}`,
			code: ErrCodeEmpty,
		},
		{
			name: "empty group",
			src:  `platforms: A: groups: G: athletes: []`,
			code: ErrCodeEmpty,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ParseCompetition("test.cue", []byte(tt.src))
			require.NotEmpty(t, errs)
			assertCode(t, tt.code, errs[0])
		})
	}
}

func TestParseCompetition_ReportsEveryDuplicate(t *testing.T) {
	src := `platforms: {
		A: groups: G1: athletes: [
			{id: "a", last_name: "X", category: "M89", start_number: 1, snatch_start: 100},
			{id: "b", last_name: "Y", category: "M89", start_number: 1, snatch_start: 100},
		]
		B: groups: G1: athletes: [
			{id: "a", last_name: "X", category: "M89", start_number: 1, snatch_start: 100},
		]
	}`
	_, errs := ParseCompetition("test.cue", []byte(src))
	require.Len(t, errs, 3)
	for _, err := range errs {
		assertCode(t, ErrCodeDuplicate, err)
	}
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeEmpty, Field: "platforms", Message: "no platform defined"}
	assert.Equal(t, "[C005] platforms: no platform defined", err.Error())

	err = &LoadError{Code: ErrCodeRead, Message: "boom"}
	assert.Equal(t, "[C001] boom", err.Error())
}

func assertCode(t *testing.T, code string, err error) {
	t.Helper()
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, code, le.Code, le.Error())
}
