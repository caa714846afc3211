package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/liftfop/internal/athlete"
)

// MemoryRepository is an in-process Repository. It backs journal replay
// and tests; the store package provides the persistent one.
type MemoryRepository struct {
	mu       sync.Mutex
	athletes map[string]*athlete.Athlete
	order    []string
	err      error
}

// NewMemoryRepository holds copies of athletes, keyed by ID. Group
// membership comes from Athlete.GroupID.
func NewMemoryRepository(athletes ...*athlete.Athlete) *MemoryRepository {
	r := &MemoryRepository{athletes: make(map[string]*athlete.Athlete)}
	for _, a := range athletes {
		r.put(a)
	}
	return r
}

func (r *MemoryRepository) put(a *athlete.Athlete) {
	if _, ok := r.athletes[a.ID]; !ok {
		r.order = append(r.order, a.ID)
	}
	r.athletes[a.ID] = a.Clone()
}

// EligibleCompetitors implements Repository.
func (r *MemoryRepository) EligibleCompetitors(_ context.Context, groupID string) ([]*athlete.Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*athlete.Athlete
	for _, id := range r.order {
		if a := r.athletes[id]; a.GroupID == groupID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// SaveLift implements Repository.
func (r *MemoryRepository) SaveLift(_ context.Context, a *athlete.Athlete) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.athletes[a.ID]; !ok {
		return fmt.Errorf("athlete %s not found", a.ID)
	}
	r.put(a)
	return nil
}

// SaveRanks implements Repository.
func (r *MemoryRepository) SaveRanks(_ context.Context, athletes []*athlete.Athlete) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, a := range athletes {
		if stored, ok := r.athletes[a.ID]; ok {
			stored.Ranks = a.Ranks
		}
	}
	return nil
}

// Athlete returns a copy of the stored athlete.
func (r *MemoryRepository) Athlete(id string) (*athlete.Athlete, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.athletes[id]
	return a.Clone(), ok
}

// SetErr makes every following call fail with err (nil restores).
func (r *MemoryRepository) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
