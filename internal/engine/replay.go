package engine

import (
	"context"
	"fmt"

	"github.com/roach88/liftfop/internal/event"
)

// ReplayResult summarizes a journal replay.
type ReplayResult struct {
	Events   int
	Rejected int
	Final    Status
}

// Replay feeds journaled inputs through f in journal order.
//
// Replay is the same code path as live handling. The engine must be built
// so that nothing fires on its own (timer.Silent or a FixedScheduler, no
// journal): every clock alarm and delayed task of the original session is
// already in the journal, and the engine accepts them because its attempt
// and task numbering advances exactly as it did live.
func Replay(ctx context.Context, f *FieldOfPlay, entries []Entry) (ReplayResult, error) {
	var res ReplayResult
	for _, e := range entries {
		in, err := event.Unmarshal(e.Payload)
		if err != nil {
			return res, fmt.Errorf("journal entry %d (%s): %w", e.Seq, e.Kind, err)
		}
		res.Events++
		if err := f.Handle(ctx, in); err != nil {
			if !expected(err) {
				return res, fmt.Errorf("replay entry %d (%s): %w", e.Seq, e.Kind, err)
			}
			res.Rejected++
		}
	}
	res.Final = f.Status()
	return res, nil
}
