package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/liftfop/internal/athlete"
)

//go:embed competition.cue
var schemaCUE string

// Error codes reported by LoadCompetition.
const (
	ErrCodeRead      = "C001" // file unreadable
	ErrCodeSyntax    = "C002" // not valid CUE
	ErrCodeSchema    = "C003" // does not match #Competition
	ErrCodeDuplicate = "C004" // id or start number used twice
	ErrCodeEmpty     = "C005" // no platform, group or athlete
)

// LoadError is one problem found in a competition file.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: [%s] %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Competition is a decoded competition file, with platforms and groups in
// lexical order.
type Competition struct {
	Name      string
	Platforms []Platform
}

// Platform is one competition platform.
type Platform struct {
	Name   string
	Groups []Group
}

// Group is a session on a platform. Group ids are unique across the
// competition.
type Group struct {
	ID       string
	Name     string
	Athletes []*athlete.Athlete
}

// Athletes returns every athlete of the competition.
func (c *Competition) Athletes() []*athlete.Athlete {
	var out []*athlete.Athlete
	for _, p := range c.Platforms {
		for _, g := range p.Groups {
			out = append(out, g.Athletes...)
		}
	}
	return out
}

// Platform looks a platform up by name.
func (c *Competition) Platform(name string) (Platform, bool) {
	for _, p := range c.Platforms {
		if p.Name == name {
			return p, true
		}
	}
	return Platform{}, false
}

// File shapes, decoded from CUE.
type competitionFile struct {
	Name      string                  `json:"name"`
	Platforms map[string]platformFile `json:"platforms"`
}

type platformFile struct {
	Groups map[string]groupFile `json:"groups"`
}

type groupFile struct {
	Name     string        `json:"name"`
	Athletes []athleteFile `json:"athletes"`
}

type athleteFile struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Gender         string `json:"gender"`
	Category       string `json:"category"`
	Team           string `json:"team"`
	StartNumber    int    `json:"start_number"`
	LotNumber      int    `json:"lot_number"`
	EntryTotal     int    `json:"entry_total"`
	SnatchStart    int    `json:"snatch_start"`
	CleanJerkStart int    `json:"clean_jerk_start"`
}

// LoadCompetition reads and checks a competition file. On failure it
// returns every problem found.
func LoadCompetition(path string) (*Competition, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeRead, Message: err.Error()}}
	}
	return ParseCompetition(path, data)
}

// ParseCompetition checks data against the #Competition schema, then
// checks what the schema cannot express: unique ids and start numbers.
func ParseCompetition(filename string, data []byte) (*Competition, []error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("competition.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{fmt.Errorf("competition schema: %w", err)}
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueErrors(ErrCodeSyntax, err)
	}

	v = schema.LookupPath(cue.ParsePath("#Competition")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueErrors(ErrCodeSchema, err)
	}

	var file competitionFile
	if err := v.Decode(&file); err != nil {
		return nil, cueErrors(ErrCodeSchema, err)
	}

	comp := build(file)
	if errs := check(comp); len(errs) > 0 {
		return nil, errs
	}
	return comp, nil
}

func build(file competitionFile) *Competition {
	comp := &Competition{Name: file.Name}
	for _, pname := range sortedKeys(file.Platforms) {
		p := Platform{Name: pname}
		groups := file.Platforms[pname].Groups
		for _, gid := range sortedKeys(groups) {
			gf := groups[gid]
			g := Group{ID: gid, Name: gf.Name}
			if g.Name == "" {
				g.Name = gid
			}
			for _, af := range gf.Athletes {
				g.Athletes = append(g.Athletes, af.athlete(gid))
			}
			p.Groups = append(p.Groups, g)
		}
		comp.Platforms = append(comp.Platforms, p)
	}
	return comp
}

func (af athleteFile) athlete(groupID string) *athlete.Athlete {
	return &athlete.Athlete{
		ID:             af.ID,
		FirstName:      af.FirstName,
		LastName:       af.LastName,
		Gender:         af.Gender,
		Category:       af.Category,
		Team:           af.Team,
		GroupID:        groupID,
		StartNumber:    af.StartNumber,
		LotNumber:      af.LotNumber,
		EntryTotal:     af.EntryTotal,
		Requested:      af.SnatchStart,
		CleanJerkStart: af.CleanJerkStart,
	}
}

// check reports every duplicate and empty section, not just the first.
func check(c *Competition) []error {
	var errs []error
	if len(c.Platforms) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeEmpty, Field: "platforms", Message: "no platform defined"})
	}

	groups := map[string]string{}
	athletes := map[string]string{}
	for _, p := range c.Platforms {
		if len(p.Groups) == 0 {
			errs = append(errs, &LoadError{Code: ErrCodeEmpty, Field: "platforms." + p.Name, Message: "no group defined"})
		}
		for _, g := range p.Groups {
			field := "platforms." + p.Name + ".groups." + g.ID
			if other, ok := groups[g.ID]; ok {
				errs = append(errs, &LoadError{Code: ErrCodeDuplicate, Field: field, Message: "group id also used on platform " + other})
			}
			groups[g.ID] = p.Name

			if len(g.Athletes) == 0 {
				errs = append(errs, &LoadError{Code: ErrCodeEmpty, Field: field, Message: "no athlete in group"})
			}
			starts := map[int]string{}
			for _, a := range g.Athletes {
				if other, ok := athletes[a.ID]; ok {
					errs = append(errs, &LoadError{Code: ErrCodeDuplicate, Field: field, Message: fmt.Sprintf("athlete %s also in group %s", a.ID, other)})
				}
				athletes[a.ID] = g.ID
				if other, ok := starts[a.StartNumber]; ok {
					errs = append(errs, &LoadError{Code: ErrCodeDuplicate, Field: field, Message: fmt.Sprintf("start number %d used by %s and %s", a.StartNumber, other, a.ID)})
				}
				starts[a.StartNumber] = a.ID
			}
		}
	}
	return errs
}

// cueErrors splits a CUE error into one LoadError per problem, keeping
// the first position of each.
func cueErrors(code string, err error) []error {
	var out []error
	for _, e := range cueerrors.Errors(err) {
		le := &LoadError{Code: code, Message: e.Error()}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			le.Pos = pos[0]
		}
		out = append(out, le)
	}
	if len(out) == 0 {
		out = append(out, &LoadError{Code: code, Message: err.Error()})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
