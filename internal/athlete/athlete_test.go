package athlete

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSame(t *testing.T) {
	a := &Athlete{ID: "a"}
	b := &Athlete{ID: "a", Requested: 90}
	c := &Athlete{ID: "c"}

	assert.True(t, Same(a, b))
	assert.False(t, Same(a, c))
	assert.False(t, Same(nil, nil))
	assert.False(t, Same(a, nil))
}

func TestRecordLift_Progression(t *testing.T) {
	a := &Athlete{ID: "a", Requested: 100, CleanJerkStart: 125}

	a.SuccessfulLift()
	assert.Equal(t, 1, a.AttemptsDone)
	assert.Equal(t, 100, a.Lifts[0])
	assert.Equal(t, 101, a.Requested, "good lift progresses by one kilo")

	a.FailedLift()
	assert.Equal(t, -101, a.Lifts[1])
	assert.Equal(t, 101, a.Requested, "miss keeps the weight")

	a.SuccessfulLift()
	assert.Equal(t, 3, a.AttemptsDone)
	assert.Equal(t, 125, a.Requested, "after last snatch the declared C&J applies")
	assert.True(t, a.InCleanJerk())
	assert.Equal(t, 1, a.AttemptNumber())

	a.SuccessfulLift()
	a.SuccessfulLift()
	a.FailedLift()
	assert.True(t, a.IsDone())
	assert.Equal(t, 0, a.Requested)

	assert.Equal(t, 101, a.BestSnatch())
	assert.Equal(t, 126, a.BestCleanJerk())
	assert.Equal(t, 227, a.Total())

	before := a.Lifts
	a.SuccessfulLift()
	assert.Equal(t, before, a.Lifts, "no lift recorded past the sixth attempt")
}

func TestAutomaticProgression(t *testing.T) {
	a := &Athlete{ID: "a", Requested: 80}
	assert.Equal(t, 0, a.AutomaticProgression())

	a.SuccessfulLift()
	assert.Equal(t, 81, a.AutomaticProgression())

	a.FailedLift()
	assert.Equal(t, 81, a.AutomaticProgression())
}

func TestReviseLift(t *testing.T) {
	a := &Athlete{ID: "a", Requested: 90}
	a.FailedLift()

	require.True(t, a.ReviseLift(0, true))
	assert.Equal(t, 90, a.Lifts[0])
	assert.False(t, a.ReviseLift(0, true), "same outcome is not a change")
	assert.False(t, a.ReviseLift(4, true), "unrecorded slot")
}

func TestTotal_NeedsBothLifts(t *testing.T) {
	a := &Athlete{Lifts: [MaxAttempts]int{-90, -90, -90, 110, 0, 0}, AttemptsDone: 4}
	assert.Equal(t, 0, a.Total())
}

func TestClone_IsIndependent(t *testing.T) {
	a := &Athlete{ID: "a", Requested: 70}
	c := a.Clone()
	c.Requested = 75
	c.Lifts[0] = 70

	assert.Equal(t, 70, a.Requested)
	assert.Equal(t, 0, a.Lifts[0])
	assert.Nil(t, (*Athlete)(nil).Clone())
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "DOE Jane", (&Athlete{FirstName: "Jane", LastName: "Doe"}).ShortName())
	assert.Equal(t, "x1", (&Athlete{ID: "x1"}).ShortName())
	assert.Equal(t, "<none>", (*Athlete)(nil).String())
}

func TestStampLift(t *testing.T) {
	a := &Athlete{ID: "a", Requested: 60}
	a.StampLift(9)
	assert.Equal(t, [MaxAttempts]int64{}, a.LiftSeq, "nothing recorded yet")

	a.SuccessfulLift()
	a.StampLift(4)
	assert.Equal(t, int64(4), a.LiftSeq[0])
	assert.Equal(t, int64(4), a.PreviousLiftSeq())
}

func TestUndeclared(t *testing.T) {
	a := &Athlete{ID: "a", Requested: 60}
	assert.False(t, a.Undeclared(), "first attempt is declared at entry")

	a.SuccessfulLift()
	assert.True(t, a.Undeclared())

	a.Requested = 63
	assert.False(t, a.Undeclared())
}
