package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/engine"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/messages"
	"github.com/roach88/liftfop/internal/notify"
	"github.com/roach88/liftfop/internal/sound"
	"github.com/roach88/liftfop/internal/testutil"
)

// DefaultPlatform is used when a scenario names none.
const DefaultPlatform = "A"

// outputBuffer holds every notification of one step.
const outputBuffer = 4096

// Result is the outcome of one scenario run.
type Result struct {
	// Pass is true when every step check and assertion held.
	Pass bool

	// Trace is the golden-comparable record of the run.
	Trace []string

	// Outputs are all notifications, in publication order.
	Outputs []notify.Output

	// Errors describe every failed check.
	Errors []string

	// Athletes are the engine's copies of the group at the end of the run.
	Athletes map[string]*athlete.Athlete
}

// NewResult creates a passing, empty result.
func NewResult() *Result {
	return &Result{Pass: true, Athletes: map[string]*athlete.Athlete{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// runner drives one engine synchronously in virtual time.
type runner struct {
	ctx    context.Context
	f      *engine.FieldOfPlay
	sched  *testutil.ManualScheduler
	repo   *engine.MemoryRepository
	sounds *sound.Recorder
	out    <-chan notify.Output
	heard  int
	result *Result
}

// Run executes a scenario against a fresh engine.
//
// The engine gets an in-memory repository seeded from the scenario, a
// manual scheduler and a sound recorder. Each step is handled to
// completion (including everything it posted) before the next one.
func Run(s *Scenario) (*Result, error) {
	catalog := messages.English()
	if s.Options.Locale != "" {
		c, err := messages.New(s.Options.Locale)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		catalog = c
	}

	platform := s.Platform
	if platform == "" {
		platform = DefaultPlatform
	}

	r := &runner{
		ctx:    context.Background(),
		sched:  testutil.NewManualScheduler(),
		sounds: &sound.Recorder{},
		result: NewResult(),
	}
	opts := []engine.Option{
		engine.WithScheduler(r.sched),
		engine.WithSound(r.sounds),
		engine.WithCatalog(catalog),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator(s.Name)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in scenarios
	}
	if s.Options.ReversalDelay > 0 {
		opts = append(opts, engine.WithReversalDelay(s.Options.ReversalDelay))
	}
	if s.Options.DecisionVisible > 0 {
		opts = append(opts, engine.WithDecisionVisible(s.Options.DecisionVisible))
	}

	r.repo = engine.NewMemoryRepository(seed(s)...)
	r.f = engine.New(platform, r.repo, opts...)
	out, unsubscribe := r.f.Hub().Subscribe(outputBuffer)
	defer unsubscribe()
	r.out = out

	for i := range s.Steps {
		if err := r.step(i, &s.Steps[i]); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, a := range s.Athletes {
		if w, ok := r.f.Athlete(a.ID); ok {
			r.result.Athletes[a.ID] = w
		}
	}
	for _, msg := range EvaluateAssertions(r.result, s.Assertions) {
		r.result.AddError("%s", msg)
	}
	return r.result, nil
}

// seed builds the repository contents of a scenario.
func seed(s *Scenario) []*athlete.Athlete {
	athletes := make([]*athlete.Athlete, 0, len(s.Athletes))
	for _, row := range s.Athletes {
		a := &athlete.Athlete{
			ID:             row.ID,
			LastName:       row.LastName,
			Category:       row.Category,
			Team:           row.Team,
			GroupID:        s.Group,
			StartNumber:    row.StartNumber,
			Requested:      row.Requested,
			CleanJerkStart: row.CleanJerkStart,
		}
		for i, w := range row.Lifts {
			a.Lifts[i] = w
			a.LiftSeq[i] = int64(i + 1)
		}
		a.AttemptsDone = len(row.Lifts)
		athletes = append(athletes, a)
	}
	return athletes
}

// step runs one step. Check failures go to the result; the returned
// error means the scenario itself is broken.
func (r *runner) step(i int, st *Step) error {
	switch {
	case st.Input != "":
		in, err := decodeInput(st.Input, st.Data)
		if err != nil {
			return err
		}
		r.result.Trace = append(r.result.Trace, "> "+st.Input)
		r.handle(i, st.Error, in)

	case st.Change != nil:
		w, ok := r.f.Athlete(st.Change.Athlete)
		if !ok {
			return fmt.Errorf("change: athlete %s is not in the group", st.Change.Athlete)
		}
		w.Requested = st.Change.Requested
		w.ForcedAsCurrent = st.Change.Forced
		line := fmt.Sprintf("> %s %s %d", event.KindWeightChange, w.ID, w.Requested)
		if w.ForcedAsCurrent {
			line += " forced"
		}
		r.result.Trace = append(r.result.Trace, line)
		r.handle(i, st.Error, event.WeightChange{Athlete: *w})

	case st.Advance > 0:
		r.result.Trace = append(r.result.Trace, "+ "+st.Advance.String())
		r.sched.Advance(st.Advance)
		if err := r.f.Drain(r.ctx); err != nil {
			r.traceError(err)
			r.result.AddError("steps[%d]: advance %s: %v", i, st.Advance, err)
		}
		r.collect()

	case st.Expect != nil:
		for _, msg := range checkStatus(r.f.Status(), st.Expect) {
			r.result.AddError("steps[%d]: %s", i, msg)
		}
	}
	return nil
}

// handle processes an input and everything it posted, then records what
// the displays and the speaker received.
func (r *runner) handle(i int, wantCode string, in event.Input) {
	err := r.f.Handle(r.ctx, in)
	if derr := r.f.Drain(r.ctx); derr != nil {
		err = errors.Join(err, derr)
	}
	if err != nil {
		r.traceError(err)
	}

	switch {
	case wantCode == "" && err != nil:
		r.result.AddError("steps[%d]: %s: unexpected error: %v", i, event.Kind(in), err)
	case wantCode != "" && !engine.HasCode(err, engine.ErrorCode(wantCode)):
		r.result.AddError("steps[%d]: %s: expected error %s, got %v", i, event.Kind(in), wantCode, err)
	}
	r.collect()
}

func (r *runner) traceError(err error) {
	var fe *engine.Error
	if errors.As(err, &fe) {
		r.result.Trace = append(r.result.Trace, "  ! "+string(fe.Code))
		return
	}
	r.result.Trace = append(r.result.Trace, "  ! "+err.Error())
}

// collect moves the notifications and sounds of the last step into the
// result. Sounds play in the background, so their order within a step is
// not meaningful and they are sorted.
func (r *runner) collect() {
	r.f.WaitSounds()
drain:
	for {
		select {
		case o := <-r.out:
			r.persist(o)
			r.result.Outputs = append(r.result.Outputs, o)
			r.result.Trace = append(r.result.Trace, "  "+Summarize(o))
		default:
			break drain
		}
	}

	cues := r.sounds.Cues()
	fresh := slices.Clone(cues[r.heard:])
	r.heard = len(cues)
	slices.Sort(fresh)
	for _, c := range fresh {
		r.result.Trace = append(r.result.Trace, "  sound "+string(c))
	}
}

// persist plays the part of the marshal's form: an accepted weight
// change is saved, so a later group reload sees it.
func (r *runner) persist(o notify.Output) {
	if n, ok := o.(notify.LiftingOrderUpdated); ok && n.Changed != nil {
		_ = r.repo.SaveLift(r.ctx, n.Changed)
	}
}

// decodeInput turns a step's kind and data into an input, with the same
// strict decoding the journal and the line transport use.
func decodeInput(kind string, data map[string]any) (event.Input, error) {
	env := event.Envelope{Kind: kind}
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("%s: encode data: %w", kind, err)
		}
		env.Data = raw
	}
	in, err := event.Decode(env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return in, nil
}

// checkStatus compares a status snapshot with an expectation.
func checkStatus(got engine.Status, want *Expect) []string {
	var errs []string
	mismatch := func(field string, expected, actual any) {
		errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", field, expected, actual))
	}

	if want.State != "" && string(got.State) != want.State {
		mismatch("state", want.State, got.State)
	}
	if want.Current != "" && dash(got.Current) != want.Current {
		mismatch("current", want.Current, dash(got.Current))
	}
	if want.Owner != "" && dash(got.ClockOwner) != want.Owner {
		mismatch("owner", want.Owner, dash(got.ClockOwner))
	}
	if want.Previous != "" && dash(got.Previous) != want.Previous {
		mismatch("previous", want.Previous, dash(got.Previous))
	}
	if want.Order != nil && !slices.Equal(got.LiftingOrder, want.Order) {
		mismatch("order", want.Order, got.LiftingOrder)
	}
	if want.ClockMS != nil && got.ClockRemainingMS != *want.ClockMS {
		mismatch("clock_ms", *want.ClockMS, got.ClockRemainingMS)
	}
	if want.ClockRunning != nil && got.ClockRunning != *want.ClockRunning {
		mismatch("clock_running", *want.ClockRunning, got.ClockRunning)
	}
	if want.BreakType != "" && string(got.BreakType) != want.BreakType {
		mismatch("break_type", want.BreakType, got.BreakType)
	}
	if want.GroupDone != nil && got.GroupDone != *want.GroupDone {
		mismatch("group_done", *want.GroupDone, got.GroupDone)
	}
	return errs
}

func dash(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
