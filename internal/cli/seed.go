package cli

import (
	"context"

	"github.com/roach88/liftfop/internal/config"
	"github.com/roach88/liftfop/internal/engine"
	"github.com/roach88/liftfop/internal/store"
)

// seedStore registers the platforms, groups and competitors of a
// competition. Results already in the store are kept.
func seedStore(ctx context.Context, st *store.Store, comp *config.Competition) error {
	for _, p := range comp.Platforms {
		if err := st.UpsertPlatform(ctx, p.Name); err != nil {
			return err
		}
		for _, g := range p.Groups {
			if err := st.UpsertGroup(ctx, store.Group{ID: g.ID, Platform: p.Name, Name: g.Name}); err != nil {
				return err
			}
			for _, a := range g.Athletes {
				if err := st.UpsertCompetitor(ctx, a); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// seedMemory builds an in-memory repository holding the competition as
// entered, before any lift.
func seedMemory(comp *config.Competition) *engine.MemoryRepository {
	return engine.NewMemoryRepository(comp.Athletes()...)
}
