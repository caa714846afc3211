package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/testutil"
	"github.com/roach88/liftfop/internal/timer"
)

func TestReplay_ReachesSameState(t *testing.T) {
	j := &memJournal{}
	r := twoLifters(t, WithJournal(j, 0))
	r.start()
	r.lift(true)
	r.lift(false)
	_ = r.send(event.TimeStopped{}) // rejected, still journaled
	a := r.working("A")
	a.Requested = 110
	r.must(event.WeightChange{Athlete: *a})
	r.must(event.TimeStarted{})
	require.NoError(t, r.vote(2, true))

	live := r.f.Status()
	entries := j.Entries()
	require.NotEmpty(t, entries)

	repo := NewMemoryRepository(lifter("A", 1, 100), lifter("B", 2, 105))
	f := New("P1", repo,
		WithScheduler(timer.Silent(testutil.NewManualScheduler())),
		WithLogger(quietLogger()),
	)
	res, err := Replay(context.Background(), f, entries)
	require.NoError(t, err)

	assert.Equal(t, len(entries), res.Events)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, live.State, res.Final.State)
	assert.Equal(t, live.Current, res.Final.Current)
	assert.Equal(t, live.ClockOwner, res.Final.ClockOwner)
	assert.Equal(t, live.LiftingOrder, res.Final.LiftingOrder)
	assert.Equal(t, live.Votes, res.Final.Votes)

	for _, id := range []string{"A", "B"} {
		want, _ := r.repo.Athlete(id)
		got, _ := repo.Athlete(id)
		assert.Equal(t, want.Lifts, got.Lifts, id)
		assert.Equal(t, want.LiftSeq, got.LiftSeq, id)
		assert.Equal(t, want.AttemptsDone, got.AttemptsDone, id)
	}
}

func TestReplay_BadPayload(t *testing.T) {
	f := New("P1", NewMemoryRepository(), WithLogger(quietLogger()), WithNoDelay())

	_, err := Replay(context.Background(), f, []Entry{{Seq: 7, Kind: "TimeStarted", Payload: []byte("{")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal entry 7")
}

func TestReplay_CollaboratorFailureStops(t *testing.T) {
	repo := NewMemoryRepository(&athlete.Athlete{ID: "A", GroupID: "A", Requested: 100})
	repo.SetErr(assert.AnError)
	f := New("P1", repo, WithLogger(quietLogger()), WithNoDelay())

	payload, err := event.Marshal(event.SwitchGroup{GroupID: "A"})
	require.NoError(t, err)

	res, err := Replay(context.Background(), f, []Entry{{Seq: 1, Kind: event.KindSwitchGroup, Payload: payload}})
	require.Error(t, err)
	assert.True(t, IsCollaboratorFailure(err))
	assert.Equal(t, 1, res.Events)
}
