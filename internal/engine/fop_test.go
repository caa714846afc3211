package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/notify"
	"github.com/roach88/liftfop/internal/sound"
	"github.com/roach88/liftfop/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lifter(id string, start, requested int) *athlete.Athlete {
	return &athlete.Athlete{
		ID:             id,
		LastName:       id,
		Category:       "M89",
		GroupID:        "A",
		StartNumber:    start,
		LotNumber:      start,
		Requested:      requested,
		CleanJerkStart: requested + 20,
	}
}

// memJournal is an in-memory Journal.
type memJournal struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (j *memJournal) Append(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Entry(nil), j.entries...)
}

// rig drives one engine synchronously in virtual time.
type rig struct {
	t      *testing.T
	ctx    context.Context
	f      *FieldOfPlay
	sched  *testutil.ManualScheduler
	repo   *MemoryRepository
	sounds *sound.Recorder
	out    <-chan notify.Output
}

func newRig(t *testing.T, athletes []*athlete.Athlete, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		t:      t,
		ctx:    context.Background(),
		sched:  testutil.NewManualScheduler(),
		repo:   NewMemoryRepository(athletes...),
		sounds: &sound.Recorder{},
	}
	base := []Option{
		WithScheduler(r.sched),
		WithLogger(quietLogger()),
		WithSound(r.sounds),
	}
	r.f = New("P1", r.repo, append(base, opts...)...)
	var unsubscribe func()
	r.out, unsubscribe = r.f.Hub().Subscribe(4096)
	t.Cleanup(unsubscribe)
	return r
}

func twoLifters(t *testing.T, opts ...Option) *rig {
	return newRig(t, []*athlete.Athlete{lifter("A", 1, 100), lifter("B", 2, 105)}, opts...)
}

// send handles in and everything it caused to be posted.
func (r *rig) send(in event.Input) error {
	r.t.Helper()
	err := r.f.Handle(r.ctx, in)
	return errors.Join(err, r.f.Drain(r.ctx))
}

func (r *rig) must(in event.Input) {
	r.t.Helper()
	require.NoError(r.t, r.send(in))
}

// advance moves virtual time and handles what fell due.
func (r *rig) advance(d time.Duration) error {
	r.sched.Advance(d)
	return r.f.Drain(r.ctx)
}

// outputs returns what was published since the last call.
func (r *rig) outputs() []notify.Output {
	var got []notify.Output
	for {
		select {
		case o := <-r.out:
			got = append(got, o)
		default:
			return got
		}
	}
}

// working returns a copy of the engine's working copy of an athlete.
func (r *rig) working(id string) *athlete.Athlete {
	a, _ := r.f.Athlete(id)
	return a
}

// start loads group A and calls the first athlete.
func (r *rig) start() {
	r.t.Helper()
	r.must(event.SwitchGroup{GroupID: "A"})
	r.must(event.StartLifting{})
	require.Equal(r.t, StateCurrentAthleteDisplayed, r.f.State())
	r.outputs()
}

func (r *rig) vote(ref int, good bool) error {
	return r.send(event.DecisionUpdate{Ref: ref, Vote: event.VoteOf(good)})
}

// lift runs a complete attempt for the current athlete.
func (r *rig) lift(good bool) {
	r.t.Helper()
	r.must(event.TimeStarted{})
	for ref := 0; ref < 3; ref++ {
		require.NoError(r.t, r.vote(ref, good))
	}
	require.NoError(r.t, r.advance(DefaultReversalDelay))
	require.NoError(r.t, r.advance(DefaultDecisionVisible))
}

func count(outs []notify.Output, kind string) int {
	n := 0
	for _, o := range outs {
		if notify.Kind(o) == kind {
			n++
		}
	}
	return n
}

func lastOf[T notify.Output](outs []notify.Output) (T, bool) {
	var zero T
	for i := len(outs) - 1; i >= 0; i-- {
		if o, ok := outs[i].(T); ok {
			return o, true
		}
	}
	return zero, false
}

func TestNew_StartsInactive(t *testing.T) {
	r := twoLifters(t)

	st := r.f.Status()
	assert.Equal(t, StateInactive, st.State)
	assert.Equal(t, "P1", st.Platform)
	assert.Empty(t, st.GroupID)
	assert.Empty(t, st.Current)
}

func TestSwitchGroup_LoadsGroupWithoutLeavingInactive(t *testing.T) {
	r := twoLifters(t)

	r.must(event.SwitchGroup{GroupID: "A"})

	st := r.f.Status()
	assert.Equal(t, StateInactive, st.State)
	assert.Equal(t, "A", st.GroupID)
	assert.Equal(t, "A", st.Current)
	assert.Equal(t, []string{"A", "B"}, st.LiftingOrder)
	assert.Equal(t, int64(60000), st.ClockRemainingMS)

	outs := r.outputs()
	sg, ok := lastOf[notify.SwitchGroup](outs)
	require.True(t, ok)
	assert.Equal(t, "A", sg.GroupID)
	assert.Equal(t, 1, count(outs, "LiftingOrderUpdated"))
}

func TestStartLifting_ShowsFirstAthlete(t *testing.T) {
	r := twoLifters(t)
	r.must(event.SwitchGroup{GroupID: "A"})
	r.outputs()

	r.must(event.StartLifting{})

	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())
	outs := r.outputs()
	lo, ok := lastOf[notify.LiftingOrderUpdated](outs)
	require.True(t, ok)
	assert.Equal(t, "A", lo.Current.ID)
	assert.Equal(t, "B", lo.Next.ID)
	assert.True(t, lo.DisplayAffected)
	assert.Equal(t, 1, count(outs, "StartLifting"))
}

func TestStartLifting_WithoutGroup(t *testing.T) {
	r := twoLifters(t)

	err := r.send(event.StartLifting{})
	require.Error(t, err)
	assert.True(t, IsNoCurrentAthlete(err))
	assert.Equal(t, StateInactive, r.f.State())
}

func TestTimeStarted_WithoutCurrentAthlete(t *testing.T) {
	r := twoLifters(t)

	err := r.send(event.TimeStarted{})
	require.Error(t, err)
	assert.True(t, IsNoCurrentAthlete(err))

	n, ok := lastOf[notify.Notification](r.outputs())
	require.True(t, ok)
	assert.Equal(t, notify.ReasonUnexpectedEvent, n.Reason)
	assert.Contains(t, n.Message, "no current athlete")
}

func TestTimeStarted_MakesCurrentAthleteClockOwner(t *testing.T) {
	r := twoLifters(t)
	r.start()

	r.must(event.TimeStarted{})

	st := r.f.Status()
	assert.Equal(t, StateTimeRunning, st.State)
	assert.Equal(t, "A", st.ClockOwner)
	assert.True(t, st.ClockRunning)
	assert.Equal(t, int64(60000), st.TimeAllowedMS)

	tu, ok := lastOf[notify.TimerUpdate](r.outputs())
	require.True(t, ok)
	assert.Equal(t, notify.TimerStart, tu.Action)
	assert.Equal(t, int64(60000), tu.RemainingMS)
}

func TestTimeStopped_StopsClock(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(20*time.Second))

	r.must(event.TimeStopped{})

	st := r.f.Status()
	assert.Equal(t, StateTimeStopped, st.State)
	assert.False(t, st.ClockRunning)
	assert.Equal(t, int64(40000), st.ClockRemainingMS)
	assert.Equal(t, "A", st.ClockOwner)
}

func TestTimeStarted_ResumesStoppedClock(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(20*time.Second))
	r.must(event.TimeStopped{})

	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(5*time.Second))

	st := r.f.Status()
	assert.Equal(t, StateTimeRunning, st.State)
	assert.Equal(t, int64(35000), st.ClockRemainingMS)
	assert.Equal(t, int64(60000), st.TimeAllowedMS, "resuming keeps the time allowed")
}

// Down signal: for every order in which the referees vote and every
// combination of lights, the down signal fires exactly once, on the
// second matching vote.
func TestDownSignal_FiresOnceOnSecondMatchingVote(t *testing.T) {
	orders := [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, order := range orders {
		for lights := 0; lights < 8; lights++ {
			good := [3]bool{lights&1 != 0, lights&2 != 0, lights&4 != 0}

			// Index of the vote that first gives one colour two lights.
			white, red, want := 0, 0, -1
			for i := 0; i < 3; i++ {
				if good[order[i]] {
					white++
				} else {
					red++
				}
				if want < 0 && (white == 2 || red == 2) {
					want = i
				}
			}

			r := twoLifters(t)
			r.start()
			r.must(event.TimeStarted{})
			r.outputs()

			total := 0
			for i, ref := range order {
				require.NoError(t, r.vote(ref, good[ref]))
				downs := count(r.outputs(), "DownSignal")
				total += downs
				if i == want {
					assert.Equal(t, 1, downs, "order %v lights %v vote %d", order, good, i)
				} else {
					assert.Equal(t, 0, downs, "order %v lights %v vote %d", order, good, i)
				}
			}
			assert.Equal(t, 1, total)
			assert.Equal(t, StateDownSignalVisible, r.f.State())
			assert.Equal(t, []sound.Cue{sound.CueDown}, r.waitCues())
		}
	}
}

func (r *rig) waitCues() []sound.Cue {
	r.f.WaitSounds()
	return r.sounds.Cues()
}

func TestDownSignal_StopsClockAndReleasesOwner(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(10*time.Second))

	require.NoError(t, r.vote(0, true))
	assert.Equal(t, StateTimeRunning, r.f.State(), "one vote does not end the attempt")
	require.NoError(t, r.vote(1, true))

	st := r.f.Status()
	assert.Equal(t, StateDownSignalVisible, st.State)
	assert.False(t, st.ClockRunning)
	assert.Empty(t, st.ClockOwner)
	assert.Equal(t, "A", st.Previous)
	assert.Equal(t, int64(50000), st.ClockRemainingMS)
}

func TestDownSignal_ExplicitDownIsLatched(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})

	r.must(event.DownSignal{})
	assert.Equal(t, StateDownSignalVisible, r.f.State())

	// The majority that follows must not show the signal again.
	require.NoError(t, r.vote(0, true))
	require.NoError(t, r.vote(1, true))
	assert.Equal(t, 1, count(r.outputs(), "DownSignal"))
}

func TestDecision_AppliedAfterReversalDelay(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}
	r.outputs()

	require.NoError(t, r.advance(DefaultReversalDelay-time.Millisecond))
	assert.Equal(t, 0, count(r.outputs(), "Decision"))
	stored, _ := r.repo.Athlete("A")
	assert.Equal(t, 0, stored.AttemptsDone)

	require.NoError(t, r.advance(time.Millisecond))
	d, ok := lastOf[notify.Decision](r.outputs())
	require.True(t, ok)
	assert.True(t, d.Good)
	assert.Equal(t, "A", d.Athlete.ID)
	assert.Equal(t, StateDecisionVisible, r.f.State())

	stored, _ = r.repo.Athlete("A")
	assert.Equal(t, 1, stored.AttemptsDone)
	assert.Equal(t, 100, stored.Lifts[0])
	assert.Equal(t, int64(1), stored.LiftSeq[0])
	assert.Equal(t, 101, stored.Requested)
}

// The decision reflects the votes when the reversal window closes.
func TestDecision_VoteFlipWithinReversalWindow(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}

	require.NoError(t, r.advance(time.Second))
	require.NoError(t, r.vote(0, false))
	require.NoError(t, r.vote(1, false))
	assert.Equal(t, StateDownSignalVisible, r.f.State())

	require.NoError(t, r.advance(2*time.Second))

	outs := r.outputs()
	d, ok := lastOf[notify.Decision](outs)
	require.True(t, ok)
	assert.False(t, d.Good)
	assert.Equal(t, [3]event.Vote{event.VoteBad, event.VoteBad, event.VoteGood}, d.Votes)
	assert.Equal(t, 1, count(outs, "DownSignal"))
	assert.Equal(t, 1, count(outs, "Decision"))

	stored, _ := r.repo.Athlete("A")
	assert.Equal(t, -100, stored.Lifts[0])
	assert.Equal(t, 100, stored.Requested)
}

func TestDecision_VotesAfterDecisionRepublished(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}
	require.NoError(t, r.advance(DefaultReversalDelay))
	r.outputs()

	require.NoError(t, r.vote(0, false))
	require.NoError(t, r.send(event.ExplicitDecision{Votes: event.Unanimous(false)}))

	outs := r.outputs()
	assert.Equal(t, 1, count(outs, "RefereeUpdate"), "late vote still reaches the displays")
	assert.Equal(t, 0, count(outs, "Decision"))
	ru, ok := lastOf[notify.RefereeUpdate](outs)
	require.True(t, ok)
	assert.Equal(t, event.VoteBad, ru.Votes[0])

	assert.Equal(t, StateDecisionVisible, r.f.State())
	stored, _ := r.repo.Athlete("A")
	assert.Equal(t, 100, stored.Lifts[0])

	full := event.DecisionFullUpdate{Votes: [3]event.Vote{event.VoteGood, event.VoteGood, event.VoteGood}}
	require.NoError(t, r.send(full))
	assert.Equal(t, 1, count(r.outputs(), "RefereeUpdate"))
	assert.Equal(t, StateDecisionVisible, r.f.State())
}

// Competitor A is called, lifts with 2 white + 1 red, the decision comes
// down after the reversal delay and the board returns to the next call.
func TestScenario_GoodLiftThenNextCall(t *testing.T) {
	r := twoLifters(t)
	r.start()

	r.must(event.TimeStarted{})
	st := r.f.Status()
	assert.Equal(t, StateTimeRunning, st.State)
	assert.Equal(t, "A", st.ClockOwner)
	assert.Equal(t, int64(60000), st.ClockRemainingMS)

	require.NoError(t, r.vote(0, true))
	assert.Equal(t, 0, count(r.outputs(), "DownSignal"))
	require.NoError(t, r.vote(1, true))
	assert.Equal(t, 1, count(r.outputs(), "DownSignal"))
	require.NoError(t, r.vote(2, false))

	require.NoError(t, r.advance(3000*time.Millisecond))
	d, ok := lastOf[notify.Decision](r.outputs())
	require.True(t, ok)
	assert.True(t, d.Good)
	assert.Equal(t, StateDecisionVisible, r.f.State())

	require.NoError(t, r.advance(3500*time.Millisecond))
	outs := r.outputs()
	assert.Equal(t, 1, count(outs, "DecisionReset"))
	st = r.f.Status()
	assert.Equal(t, StateCurrentAthleteDisplayed, st.State)
	assert.Equal(t, "A", st.Current, "101 kg is still the lightest request")
	assert.Equal(t, int64(120000), st.ClockRemainingMS, "consecutive attempt gets two minutes")
}

func TestDecisionReset_ManualCancelsAutomatic(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}
	require.NoError(t, r.advance(DefaultReversalDelay))
	r.outputs()

	r.must(event.DecisionReset{})
	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())
	assert.Equal(t, 0, r.sched.Pending())

	require.NoError(t, r.advance(DefaultDecisionVisible))
	assert.Equal(t, 1, count(r.outputs(), "DecisionReset"))
}

func TestScenario_GroupDoneOnlyWhenLastAthleteFinishes(t *testing.T) {
	a := lifter("A", 1, 120)
	a.AttemptsDone = 5
	a.Lifts = [6]int{90, 95, 100, 110, 115, 0}
	a.LiftSeq = [6]int64{1, 3, 5, 7, 9, 0}
	b := lifter("B", 2, 125)
	b.AttemptsDone = 4
	b.Lifts = [6]int{92, 97, 102, 120, 0, 0}
	b.LiftSeq = [6]int64{2, 4, 6, 8, 0, 0}
	r := newRig(t, []*athlete.Athlete{a, b})
	r.start()
	assert.Equal(t, "A", r.f.Status().Current)

	r.lift(true)
	outs := r.outputs()
	assert.Equal(t, 0, count(outs, "GroupDone"), "B still has attempts")
	st := r.f.Status()
	assert.Equal(t, StateCurrentAthleteDisplayed, st.State)
	assert.Equal(t, "B", st.Current)
	assert.False(t, st.GroupDone)

	stored, _ := r.repo.Athlete("A")
	assert.True(t, stored.IsDone())
	assert.Equal(t, int64(10), stored.LiftSeq[5])

	r.lift(true)
	assert.Equal(t, 0, count(r.outputs(), "GroupDone"))
	assert.Equal(t, "B", r.f.Status().Current)

	r.lift(false)
	outs = r.outputs()
	assert.Equal(t, 1, count(outs, "GroupDone"))
	st = r.f.Status()
	assert.Equal(t, StateBreak, st.State)
	assert.Equal(t, event.BreakGroupDone, st.BreakType)
	assert.True(t, st.GroupDone)
}

func TestSwitchGroup_AlreadyDoneGroupGoesToBreak(t *testing.T) {
	a := lifter("A", 1, 0)
	a.AttemptsDone = 6
	r := newRig(t, []*athlete.Athlete{a})
	r.must(event.SwitchGroup{GroupID: "A"})
	r.outputs()

	err := r.send(event.StartLifting{})
	require.NoError(t, err)

	st := r.f.Status()
	assert.Equal(t, StateBreak, st.State)
	assert.Equal(t, event.BreakGroupDone, st.BreakType)
}

func TestSwitchGroup_OtherGroupStopsLifting(t *testing.T) {
	c := lifter("C", 3, 80)
	c.GroupID = "B"
	r := newRig(t, []*athlete.Athlete{lifter("A", 1, 100), c})
	r.start()
	r.must(event.TimeStarted{})

	r.must(event.SwitchGroup{GroupID: "B"})

	st := r.f.Status()
	assert.Equal(t, StateInactive, st.State)
	assert.Equal(t, "B", st.GroupID)
	assert.Equal(t, "C", st.Current)
	assert.False(t, st.ClockRunning)
	assert.Empty(t, st.ClockOwner)
}

func TestSwitchGroup_RepositoryFailure(t *testing.T) {
	r := twoLifters(t)
	r.repo.SetErr(errors.New("database locked"))

	err := r.send(event.SwitchGroup{GroupID: "A"})
	require.Error(t, err)
	assert.True(t, IsCollaboratorFailure(err))
	assert.Equal(t, StateInactive, r.f.State())
}

// 60 s for an athlete called after someone else had the clock, 120 s for
// consecutive attempts with nobody in between, and the exact remaining
// time for the clock owner.
func TestTimeAllowed(t *testing.T) {
	t.Run("first call", func(t *testing.T) {
		r := twoLifters(t)
		r.start()
		assert.Equal(t, int64(60000), r.f.Status().ClockRemainingMS)
	})

	t.Run("consecutive attempt", func(t *testing.T) {
		r := twoLifters(t)
		r.start()
		r.lift(true)
		st := r.f.Status()
		assert.Equal(t, "A", st.Current)
		assert.Equal(t, int64(120000), st.ClockRemainingMS)
	})

	t.Run("another athlete had the clock", func(t *testing.T) {
		r := twoLifters(t)
		r.start()
		r.lift(true)

		// A declares past B, B starts, then B changes above A.
		a := r.working("A")
		a.Requested = 106
		r.must(event.WeightChange{Athlete: *a})
		require.Equal(t, "B", r.f.Status().Current)
		assert.Equal(t, int64(60000), r.f.Status().ClockRemainingMS)

		r.must(event.TimeStarted{})
		require.NoError(t, r.advance(5*time.Second))
		b := r.working("B")
		b.Requested = 107
		r.must(event.WeightChange{Athlete: *b})

		st := r.f.Status()
		assert.Equal(t, "A", st.Current)
		assert.Equal(t, "B", st.ClockOwner)
		assert.Equal(t, StateCurrentAthleteDisplayed, st.State)
		assert.Equal(t, int64(60000), st.ClockRemainingMS)
		assert.False(t, st.ClockRunning)
	})

	t.Run("clock owner resumes", func(t *testing.T) {
		r := twoLifters(t)
		r.start()
		r.must(event.TimeStarted{})
		require.NoError(t, r.advance(20*time.Second))
		r.must(event.TimeStopped{})

		a := r.working("A")
		a.Requested = 102
		r.must(event.WeightChange{Athlete: *a})

		st := r.f.Status()
		assert.Equal(t, "A", st.Current)
		assert.Equal(t, StateTimeStopped, st.State)
		assert.Equal(t, int64(40000), st.ClockRemainingMS)
	})
}

func TestWeightChange_OwnerChangeStopsClock(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(10*time.Second))

	a := r.working("A")
	a.Requested = 103
	r.must(event.WeightChange{Athlete: *a})

	st := r.f.Status()
	assert.Equal(t, StateTimeStopped, st.State)
	assert.False(t, st.ClockRunning)
	assert.Equal(t, int64(50000), st.ClockRemainingMS)
	assert.Equal(t, 103, r.working("A").Requested)
}

func TestWeightChange_OwnerSameWeightKeepsClock(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})

	a := r.working("A")
	a.Team = "CLUB"
	r.must(event.WeightChange{Athlete: *a})

	assert.Equal(t, StateTimeRunning, r.f.State())
	assert.True(t, r.f.Status().ClockRunning)
}

// A weight change by somebody else while the clock runs neither stops the
// clock nor changes who is on the attempt board.
func TestWeightChange_DoNotDisturb(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	r.outputs()

	b := r.working("B")
	b.Requested = 95
	r.must(event.WeightChange{Athlete: *b})

	st := r.f.Status()
	assert.Equal(t, StateTimeRunning, st.State)
	assert.True(t, st.ClockRunning)
	assert.Equal(t, "A", st.Current)
	assert.Equal(t, "A", st.ClockOwner)
	assert.Equal(t, []string{"B", "A"}, st.LiftingOrder)

	outs := r.outputs()
	lo, ok := lastOf[notify.LiftingOrderUpdated](outs)
	require.True(t, ok)
	assert.False(t, lo.DisplayAffected)
	assert.Equal(t, "A", lo.Current.ID)
	assert.Equal(t, "B", lo.Changed.ID)
	assert.Equal(t, 0, count(outs, "TimerUpdate"))

	// The attempt is still A's.
	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}
	require.NoError(t, r.advance(DefaultReversalDelay))
	d, ok := lastOf[notify.Decision](r.outputs())
	require.True(t, ok)
	assert.Equal(t, "A", d.Athlete.ID)
}

// A declaration of the weight already on the bar by the clock owner keeps
// the attempt with the owner, even when the order has moved somebody else
// to the head.
func TestWeightChange_OwnerSameWeightAfterReorderKeepsAttempt(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})

	b := r.working("B")
	b.Requested = 95
	r.must(event.WeightChange{Athlete: *b})

	a := r.working("A")
	a.Team = "CLUB"
	r.must(event.WeightChange{Athlete: *a})

	st := r.f.Status()
	assert.Equal(t, StateTimeRunning, st.State)
	assert.Equal(t, "A", st.Current)
	assert.Equal(t, "A", st.ClockOwner)
	assert.Equal(t, []string{"B", "A"}, st.LiftingOrder)

	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}
	require.NoError(t, r.advance(DefaultReversalDelay))
	require.NoError(t, r.advance(DefaultDecisionVisible))

	assert.Equal(t, 1, r.working("A").AttemptsDone)
	assert.Equal(t, 0, r.working("B").AttemptsDone)
	assert.Equal(t, "B", r.f.Status().Current)
}

// The clock owner gets back the time left at the last stop even when
// another athlete was called in between.
func TestWeightChange_OwnerResumesAfterInterleavedCall(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(15*time.Second))
	r.must(event.TimeStopped{})

	a := r.working("A")
	a.Requested = 107
	r.must(event.WeightChange{Athlete: *a})
	st := r.f.Status()
	require.Equal(t, "B", st.Current)
	assert.Equal(t, int64(60000), st.ClockRemainingMS)

	b := r.working("B")
	b.Requested = 110
	r.must(event.WeightChange{Athlete: *b})

	st = r.f.Status()
	assert.Equal(t, "A", st.Current)
	assert.Equal(t, "A", st.ClockOwner)
	assert.Equal(t, StateTimeStopped, st.State)
	assert.Equal(t, int64(45000), st.ClockRemainingMS)
}

func TestWeightChange_DuringDownSignalDoesNotDisturb(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.vote(0, true))
	require.NoError(t, r.vote(1, true))
	r.outputs()

	b := r.working("B")
	b.Requested = 98
	r.must(event.WeightChange{Athlete: *b})

	assert.Equal(t, StateDownSignalVisible, r.f.State())
	lo, ok := lastOf[notify.LiftingOrderUpdated](r.outputs())
	require.True(t, ok)
	assert.False(t, lo.DisplayAffected)
	assert.Equal(t, "A", lo.Current.ID)
}

func TestWeightChange_RuleViolation(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.lift(true)
	r.outputs()

	a := r.working("A")
	a.Requested = 99
	err := r.send(event.WeightChange{Athlete: *a})

	require.Error(t, err)
	assert.True(t, IsRuleViolation(err))
	assert.False(t, IsUnexpected(err))
	assert.Equal(t, 101, r.working("A").Requested, "the change is not applied")
	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())

	n, ok := lastOf[notify.Notification](r.outputs())
	require.True(t, ok)
	assert.Equal(t, notify.ReasonRuleViolation, n.Reason)
	assert.Equal(t, event.KindWeightChange, n.Event)
	assert.NotEmpty(t, n.Message)
}

func TestWeightChange_ForcedBypassesValidation(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.lift(true)

	a := r.working("A")
	a.Requested = 99
	a.ForcedAsCurrent = true
	r.must(event.WeightChange{Athlete: *a})

	assert.Equal(t, 99, r.working("A").Requested)
	assert.True(t, r.working("A").ForcedAsCurrent)

	// The flag is cleared once the forced attempt is recorded.
	r.lift(true)
	assert.False(t, r.working("A").ForcedAsCurrent)
}

func TestWeightChange_UnknownAthlete(t *testing.T) {
	r := twoLifters(t)
	r.start()

	err := r.send(event.WeightChange{Athlete: *lifter("Z", 9, 100)})
	require.Error(t, err)
	assert.True(t, IsUnexpected(err))
}

func TestWeightChange_ManualLiftEntry(t *testing.T) {
	r := twoLifters(t)
	r.start()

	a := r.working("A")
	a.Lifts[0] = -100
	a.AttemptsDone = 1
	r.must(event.WeightChange{Athlete: *a})

	stored, _ := r.repo.Athlete("A")
	assert.Equal(t, 1, stored.AttemptsDone)
	assert.Equal(t, -100, stored.Lifts[0])
	assert.Equal(t, int64(1), stored.LiftSeq[0])
}

func TestWeightChange_InGroupDoneBreakResumesLifting(t *testing.T) {
	a := lifter("A", 1, 120)
	a.AttemptsDone = 5
	a.Lifts = [6]int{90, 95, 100, 110, 115, 0}
	r := newRig(t, []*athlete.Athlete{a})
	r.start()
	r.lift(false)
	require.Equal(t, StateBreak, r.f.State())

	// The jury gives the last lift back to be retaken.
	w := r.working("A")
	w.AttemptsDone = 5
	w.Lifts[5] = 0
	w.Requested = 120
	w.ForcedAsCurrent = true
	r.must(event.WeightChange{Athlete: *w})

	st := r.f.Status()
	assert.Equal(t, StateCurrentAthleteDisplayed, st.State)
	assert.Equal(t, "A", st.Current)
	assert.False(t, st.GroupDone)
}

func TestExplicitDecision(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})

	r.must(event.ExplicitDecision{AthleteID: "A", Votes: event.Unanimous(true)})
	assert.Equal(t, StateDownSignalVisible, r.f.State())
	assert.False(t, r.f.Status().ClockRunning)

	require.NoError(t, r.advance(DefaultReversalDelay))
	d, ok := lastOf[notify.Decision](r.outputs())
	require.True(t, ok)
	assert.True(t, d.Good)
	assert.True(t, d.Forced)
	assert.Equal(t, [3]event.Vote{event.VoteNone, event.VoteGood, event.VoteNone}, d.Votes)
}

func TestExplicitDecision_Rejected(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})

	err := r.send(event.ExplicitDecision{AthleteID: "B", Votes: event.Unanimous(true)})
	assert.True(t, IsUnexpected(err))

	err = r.send(event.ExplicitDecision{Votes: [3]event.Vote{event.VoteGood, event.VoteGood}})
	assert.True(t, IsUnexpected(err))
	assert.Equal(t, StateTimeRunning, r.f.State())
}

func TestJuryDecision_ReversesLastLift(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.lift(true)
	r.must(event.BreakStarted{Type: event.BreakJury, Indefinite: true})
	r.outputs()

	r.must(event.JuryDecision{AthleteID: "A", Good: false})

	jn, ok := lastOf[notify.JuryNotification](r.outputs())
	require.True(t, ok)
	assert.True(t, jn.Reversal)
	assert.Equal(t, StateBreak, r.f.State())

	stored, _ := r.repo.Athlete("A")
	assert.Equal(t, -100, stored.Lifts[0])
	assert.Equal(t, 100, stored.Requested, "automatic progression follows the reversal")

	r.must(event.StartLifting{})
	st := r.f.Status()
	assert.Equal(t, StateCurrentAthleteDisplayed, st.State)
	assert.Equal(t, "A", st.Current)
}

func TestJuryDecision_ConfirmationIsNotReversal(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.lift(true)
	r.must(event.BreakStarted{Type: event.BreakJury, Indefinite: true})
	r.outputs()

	r.must(event.JuryDecision{AthleteID: "A", Good: true})

	jn, ok := lastOf[notify.JuryNotification](r.outputs())
	require.True(t, ok)
	assert.False(t, jn.Reversal)
}

func TestJuryDecision_NoLiftToReview(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.BreakStarted{Type: event.BreakJury, Indefinite: true})

	err := r.send(event.JuryDecision{AthleteID: "B", Good: true})
	assert.True(t, IsUnexpected(err))
}

func TestBreak_DurationExpiresIntoLifting(t *testing.T) {
	r := twoLifters(t)
	r.must(event.SwitchGroup{GroupID: "A"})

	r.must(event.BreakStarted{Type: event.BreakFirstSnatch, DurationMS: 600000})
	st := r.f.Status()
	assert.Equal(t, StateBreak, st.State)
	assert.True(t, st.BreakRunning)
	assert.Equal(t, int64(600000), st.BreakRemainingMS)

	require.NoError(t, r.advance(10*time.Minute))
	outs := r.outputs()
	bd, ok := lastOf[notify.BreakDone](outs)
	require.True(t, ok)
	assert.Equal(t, event.BreakFirstSnatch, bd.Type)
	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())
	assert.Equal(t, 1, count(outs, "StartLifting"))
}

func TestBreak_TechnicalExpiryStaysInBreak(t *testing.T) {
	r := twoLifters(t)
	r.start()

	r.must(event.BreakStarted{Type: event.BreakTechnical, DurationMS: 60000})
	require.NoError(t, r.advance(time.Minute))

	assert.Equal(t, 1, count(r.outputs(), "BreakDone"))
	assert.Equal(t, StateBreak, r.f.State())
}

func TestBreak_PauseFreezesCountdown(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.BreakStarted{Type: event.BreakFirstSnatch, DurationMS: 60000})
	require.NoError(t, r.advance(20*time.Second))

	r.must(event.BreakPaused{})
	require.NoError(t, r.advance(time.Hour))

	st := r.f.Status()
	assert.Equal(t, StateBreak, st.State)
	assert.False(t, st.BreakRunning)
	assert.Equal(t, int64(40000), st.BreakRemainingMS)
	assert.Equal(t, 0, count(r.outputs(), "BreakDone"))

	// The same break resumes where it stopped.
	r.must(event.BreakStarted{Type: event.BreakFirstSnatch, DurationMS: 60000})
	assert.Equal(t, int64(40000), r.f.Status().BreakRemainingMS)
	require.NoError(t, r.advance(40*time.Second))
	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())
}

func TestBreak_PauseAtExplicitValue(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.BreakStarted{Type: event.BreakTechnical, Indefinite: true})

	r.must(event.BreakPaused{RemainingMS: 300000})

	bp, ok := lastOf[notify.BreakPaused](r.outputs())
	require.True(t, ok)
	assert.Equal(t, int64(300000), bp.RemainingMS)
}

func TestBreak_OtherTypeRestartsClock(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.BreakStarted{Type: event.BreakTechnical, DurationMS: 60000})
	require.NoError(t, r.advance(50*time.Second))

	r.must(event.BreakStarted{Type: event.BreakMarshal, DurationMS: 120000})

	st := r.f.Status()
	assert.Equal(t, event.BreakMarshal, st.BreakType)
	assert.Equal(t, int64(120000), st.BreakRemainingMS)

	// The first countdown's expiry is stale.
	require.NoError(t, r.advance(10*time.Second))
	assert.Equal(t, 0, count(r.outputs(), "BreakDone"))
}

func TestBreak_IndefiniteThenStartLifting(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.BreakStarted{})

	st := r.f.Status()
	assert.Equal(t, event.BreakTechnical, st.BreakType)
	require.NoError(t, r.advance(time.Hour))
	assert.Equal(t, StateBreak, r.f.State())

	r.must(event.StartLifting{})
	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())
	assert.False(t, r.f.Status().BreakRunning)
}

func TestBreak_CancelsReversalWindow(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}

	r.must(event.BreakStarted{Type: event.BreakJury, Indefinite: true})
	require.NoError(t, r.advance(DefaultReversalDelay))

	assert.Equal(t, 0, count(r.outputs(), "Decision"))
	assert.False(t, r.f.Status().PendingConfirm)
	stored, _ := r.repo.Athlete("A")
	assert.Equal(t, 0, stored.AttemptsDone)
}

func TestBreak_ClockOwnerResumesStopped(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(15*time.Second))

	r.must(event.BreakStarted{Type: event.BreakTechnical, Indefinite: true})
	assert.False(t, r.f.Status().ClockRunning)

	r.must(event.StartLifting{})
	st := r.f.Status()
	assert.Equal(t, StateTimeStopped, st.State)
	assert.Equal(t, int64(45000), st.ClockRemainingMS)
}

func TestClockWarningsAndTimeOver(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.ForceTime{RemainingMS: 120000})
	r.must(event.TimeStarted{})

	require.NoError(t, r.advance(30*time.Second))
	require.NoError(t, r.advance(60*time.Second))
	require.NoError(t, r.advance(30*time.Second))

	assert.Equal(t, StateTimeStopped, r.f.State())
	assert.ElementsMatch(t, []sound.Cue{
		sound.CueInitialWarning,
		sound.CueFinalWarning,
		sound.CueTimeOver,
	}, r.waitCues())
}

func TestClockWarnings_OncePerAttempt(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(35*time.Second))
	require.Equal(t, []sound.Cue{sound.CueFinalWarning}, r.waitCues())

	// A repeated warning for the same attempt stays silent.
	r.must(event.BarbellOrPlatesChanged{})
	r.must(event.ClockWarning{Kind: event.WarningFinal, Attempt: r.f.Status().Attempt})
	assert.Len(t, r.waitCues(), 1)

	// Set back and started again, the clock runs a fresh attempt.
	r.must(event.TimeStopped{})
	r.must(event.ForceTime{RemainingMS: 40000})
	require.Equal(t, StateCurrentAthleteDisplayed, r.f.State())
	r.must(event.TimeStarted{})
	require.NoError(t, r.advance(15*time.Second))
	assert.Len(t, r.waitCues(), 2)
}

func TestTimeOver_StaleAttemptDropped(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})

	r.must(event.TimeOver{Attempt: 9999})
	assert.Equal(t, StateTimeRunning, r.f.State())

	r.must(event.TimeOver{})
	assert.Equal(t, StateTimeStopped, r.f.State())
}

func TestSoundFailureBroadcast(t *testing.T) {
	r := twoLifters(t)
	r.sounds.Err = errors.New("no audio device")
	r.start()
	r.must(event.TimeStarted{})

	require.NoError(t, r.vote(0, true))
	require.NoError(t, r.vote(1, true))
	r.f.WaitSounds()

	b, ok := lastOf[notify.Broadcast](r.outputs())
	require.True(t, ok)
	assert.Contains(t, b.Message, "no audio device")
	assert.Equal(t, StateDownSignalVisible, r.f.State())
}

func TestDuplicateEventsAbsorbed(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	require.NoError(t, r.vote(0, true))
	before := r.f.Status()
	r.outputs()

	require.NoError(t, r.send(event.DecisionUpdate{Meta: event.Meta{Origin: "ref-box-2"}, Ref: 0, Vote: event.VoteGood}))

	assert.Empty(t, r.outputs())
	assert.Equal(t, before, r.f.Status())
}

func TestDuplicateOnlyAdjacent(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})

	r.must(event.TimeStopped{})
	r.must(event.TimeStarted{})
	r.must(event.TimeStopped{})

	assert.Equal(t, StateTimeStopped, r.f.State())
}

func TestUnexpectedEventNotification(t *testing.T) {
	r := twoLifters(t)
	r.start()

	err := r.send(event.TimeStopped{})
	require.Error(t, err)
	assert.True(t, IsUnexpected(err))
	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())

	n, ok := lastOf[notify.Notification](r.outputs())
	require.True(t, ok)
	assert.Equal(t, notify.ReasonUnexpectedEvent, n.Reason)
	assert.Equal(t, event.KindTimeStopped, n.Event)
	assert.Equal(t, string(StateCurrentAthleteDisplayed), n.State)
	assert.Equal(t, "TimeStopped is not expected in state CURRENT_ATHLETE_DISPLAYED.", n.Message)
}

func TestUnexpectedResetsIgnoredSilently(t *testing.T) {
	r := twoLifters(t)
	r.start()

	require.NoError(t, r.send(event.DecisionReset{}))
	require.NoError(t, r.send(event.DecisionFullUpdate{}))
	assert.Empty(t, r.outputs())
}

func TestBarbellOrPlatesChanged(t *testing.T) {
	r := twoLifters(t)
	r.start()

	r.must(event.BarbellOrPlatesChanged{})

	p, ok := lastOf[notify.BarbellOrPlatesChanged](r.outputs())
	require.True(t, ok)
	assert.Equal(t, "A", p.Athlete)
	assert.Equal(t, 100, p.Weight)
}

func TestCollaboratorFailureKeepsGoing(t *testing.T) {
	r := twoLifters(t)
	r.start()
	r.must(event.TimeStarted{})
	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, true))
	}
	r.repo.SetErr(errors.New("disk full"))

	err := r.advance(DefaultReversalDelay)
	require.Error(t, err)
	assert.True(t, IsCollaboratorFailure(err))
	assert.False(t, expected(err))

	// The decision is shown anyway; only persistence failed.
	assert.Equal(t, StateDecisionVisible, r.f.State())
	assert.Equal(t, 1, r.working("A").AttemptsDone)
	d, ok := lastOf[notify.Decision](r.outputs())
	require.True(t, ok)
	assert.True(t, d.Good)
}

func TestNoDelay_RunsDecisionInline(t *testing.T) {
	r := twoLifters(t, WithNoDelay())
	r.start()
	r.must(event.TimeStarted{})

	for ref := 0; ref < 3; ref++ {
		require.NoError(t, r.vote(ref, false))
	}

	assert.Equal(t, StateCurrentAthleteDisplayed, r.f.State())
	stored, _ := r.repo.Athlete("A")
	assert.Equal(t, -100, stored.Lifts[0])
	assert.Equal(t, 0, r.sched.Pending(), "no clock alarms in no-delay mode")
}

func TestJournal_RecordsHandledInputs(t *testing.T) {
	j := &memJournal{}
	r := twoLifters(t, WithJournal(j, 41), WithIDGenerator(testutil.NewSequentialIDGenerator("e")))
	r.start()
	r.must(event.TimeStarted{})
	r.must(event.TimeStarted{}) // duplicate, not journaled
	_ = r.send(event.JuryDecision{AthleteID: "A"})

	entries := j.Entries()
	require.Len(t, entries, 4)
	var kinds []string
	for i, e := range entries {
		kinds = append(kinds, e.Kind)
		assert.Equal(t, int64(42+i), e.Seq)
		assert.Equal(t, "P1", e.Platform)
		assert.NotEmpty(t, e.Hash)
		assert.NotEmpty(t, e.Payload)
	}
	assert.Equal(t, []string{
		event.KindSwitchGroup,
		event.KindStartLifting,
		event.KindTimeStarted,
		event.KindJuryDecision,
	}, kinds)
	assert.Equal(t, "e-1", entries[0].ID)
	assert.Equal(t, StateTimeRunning, entries[2].State)
}

func TestJournal_FailureReported(t *testing.T) {
	j := &memJournal{err: errors.New("read-only database")}
	r := twoLifters(t, WithJournal(j, 0))

	err := r.send(event.SwitchGroup{GroupID: "A"})
	require.Error(t, err)
	assert.True(t, IsCollaboratorFailure(err))
	assert.Equal(t, "A", r.f.Status().GroupID, "handling is not undone")
}

func TestRun_ConsumesPostedInputs(t *testing.T) {
	r := twoLifters(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.f.Run(ctx) }()

	require.True(t, r.f.Post(event.SwitchGroup{GroupID: "A"}))
	require.True(t, r.f.Post(event.StartLifting{}))
	require.True(t, r.f.Post(event.TimeStarted{}))
	r.f.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, StateTimeRunning, r.f.State())
	assert.False(t, r.f.Post(event.TimeStopped{}))
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := twoLifters(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.f.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// allInputs returns one input of every kind.
func allInputs() []event.Input {
	a := lifter("A", 1, 100)
	a.Requested = 104
	return []event.Input{
		event.BreakStarted{Type: event.BreakTechnical, DurationMS: 60000},
		event.BreakPaused{},
		event.StartLifting{},
		event.WeightChange{Athlete: *a},
		event.BarbellOrPlatesChanged{},
		event.SwitchGroup{GroupID: "A"},
		event.TimeStarted{},
		event.TimeStopped{},
		event.TimeOver{},
		event.ForceTime{RemainingMS: 30000},
		event.DecisionUpdate{Ref: 1, Vote: event.VoteGood},
		event.DecisionFullUpdate{Votes: event.Unanimous(true)},
		event.ExplicitDecision{Votes: event.Unanimous(false)},
		event.DownSignal{},
		event.DecisionReset{},
		event.JuryDecision{AthleteID: "A", Good: true},
		event.DecisionConfirm{Attempt: 1},
		event.ClockWarning{Kind: event.WarningFinal, Attempt: 1},
		event.BreakExpired{Break: 1},
	}
}

// Every state accepts or rejects every kind; nothing panics and the
// engine always ends in a valid state.
func TestEveryKindInEveryState(t *testing.T) {
	reach := map[State]func(r *rig){
		StateInactive:                func(r *rig) {},
		StateCurrentAthleteDisplayed: func(r *rig) { r.start() },
		StateTimeRunning: func(r *rig) {
			r.start()
			r.must(event.TimeStarted{})
		},
		StateTimeStopped: func(r *rig) {
			r.start()
			r.must(event.TimeStarted{})
			r.must(event.TimeStopped{})
		},
		StateDownSignalVisible: func(r *rig) {
			r.start()
			r.must(event.TimeStarted{})
			r.must(event.DownSignal{})
		},
		StateDecisionVisible: func(r *rig) {
			r.start()
			r.must(event.TimeStarted{})
			r.must(event.DecisionFullUpdate{Votes: event.Unanimous(true)})
			require.NoError(r.t, r.advance(DefaultReversalDelay))
		},
		StateBreak: func(r *rig) {
			r.start()
			r.must(event.BreakStarted{Type: event.BreakJury, Indefinite: true})
		},
	}
	require.Len(t, reach, len(States))

	for _, s := range States {
		for _, in := range allInputs() {
			t.Run(string(s)+"/"+event.Kind(in), func(t *testing.T) {
				r := twoLifters(t)
				reach[s](r)
				require.Equal(t, s, r.f.State())

				var err error
				require.NotPanics(t, func() { err = r.send(in) })
				assert.True(t, r.f.State().Valid())
				if err != nil {
					var fe *Error
					assert.True(t, errors.As(err, &fe), "errors are *Error: %v", err)
				}
			})
		}
	}
}
