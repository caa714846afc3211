package engine

import (
	"context"
	"time"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/rules"
)

// Repository is the persistence collaborator. Implemented by store.Store
// and MemoryRepository.
//
// EligibleCompetitors returns fresh copies the engine may keep and mutate.
// SaveLift persists an athlete after a lift outcome was recorded or
// revised (lifts, requested weight, forced flag). SaveRanks persists the
// ranks assigned by the Ranker.
type Repository interface {
	EligibleCompetitors(ctx context.Context, groupID string) ([]*athlete.Athlete, error)
	SaveLift(ctx context.Context, a *athlete.Athlete) error
	SaveRanks(ctx context.Context, athletes []*athlete.Athlete) error
}

// Ranker orders a group. Rank may assign ranks on the athletes it is
// given; it must not keep them. ranking.Default is the standard ranker.
type Ranker interface {
	Rank(athletes []*athlete.Athlete) (lifting, display []*athlete.Athlete)
}

// Validator judges weight changes. rules.Validator is the standard one.
type Validator interface {
	Validate(c rules.Check) error
}

// Entry is one journaled input.
type Entry struct {
	Platform string
	Seq      int64
	ID       string
	Kind     string
	Hash     string
	Payload  []byte // event.Marshal envelope
	State    State  // state after the event was handled
	At       time.Time
}

// Journal records every processed input, in processing order.
type Journal interface {
	Append(ctx context.Context, e Entry) error
}
