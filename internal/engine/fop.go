package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/liftfop/internal/athlete"
	"github.com/roach88/liftfop/internal/decision"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/messages"
	"github.com/roach88/liftfop/internal/notify"
	"github.com/roach88/liftfop/internal/ranking"
	"github.com/roach88/liftfop/internal/rules"
	"github.com/roach88/liftfop/internal/sound"
	"github.com/roach88/liftfop/internal/timer"
)

// Default delays of the decision display.
const (
	DefaultReversalDelay   = 3000 * time.Millisecond
	DefaultDecisionVisible = 3500 * time.Millisecond
)

// Origin marks the events the engine posts to itself.
const Origin = "fop"

const tracerName = "github.com/roach88/liftfop/internal/engine"

// Option configures a FieldOfPlay.
type Option func(*FieldOfPlay)

// WithScheduler sets the time source of the clocks and delayed tasks.
// Default: timer.RealScheduler.
func WithScheduler(s timer.Scheduler) Option {
	return func(f *FieldOfPlay) {
		f.sched = s
		f.clockSched = s
	}
}

// WithNoDelay runs delayed tasks inline and keeps the clocks from raising
// alarms, so time-dependent branches execute without waiting.
func WithNoDelay() Option {
	return func(f *FieldOfPlay) { f.noDelay = true }
}

// WithReversalDelay sets the window between the third vote and the
// decision. Default: DefaultReversalDelay.
func WithReversalDelay(d time.Duration) Option {
	return func(f *FieldOfPlay) { f.reversalDelay = d }
}

// WithDecisionVisible sets how long a decision stays up before the
// automatic reset. Default: DefaultDecisionVisible.
func WithDecisionVisible(d time.Duration) Option {
	return func(f *FieldOfPlay) { f.decisionVisible = d }
}

// WithHub publishes notifications on h instead of a private hub.
func WithHub(h *Hub) Option {
	return func(f *FieldOfPlay) { f.hub = h }
}

// WithJournal records every processed input.
func WithJournal(j Journal, lastSeq int64) Option {
	return func(f *FieldOfPlay) {
		f.journal = j
		f.seq = NewClockAt(lastSeq)
	}
}

// WithSound plays the down signal and clock warnings on p.
func WithSound(p sound.Player) Option {
	return func(f *FieldOfPlay) { f.player = p }
}

// WithCatalog localizes notification messages. Default: English.
func WithCatalog(c *messages.Catalog) Option {
	return func(f *FieldOfPlay) { f.catalog = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *FieldOfPlay) { f.logger = l }
}

// WithTracer sets the tracer. Default: the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(f *FieldOfPlay) { f.tracer = t }
}

// WithIDGenerator names journal entries. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(f *FieldOfPlay) { f.ids = g }
}

// WithRanker replaces ranking.Default.
func WithRanker(r Ranker) Option {
	return func(f *FieldOfPlay) { f.ranker = r }
}

// WithValidator replaces rules.Validator.
func WithValidator(v Validator) Option {
	return func(f *FieldOfPlay) { f.validator = v }
}

// attempt is the transient record of one timed attempt. A fresh record
// (with a new seq) replaces it whenever a new athlete is called or the
// clock is started for a new attempt.
type attempt struct {
	seq   uint64
	votes decision.Aggregator

	initialWarned   bool
	finalWarned     bool
	timeOverEmitted bool

	// forced: the decision was entered by an official.
	forced bool
}

// FieldOfPlay is the state machine of one competition platform.
//
// All state is owned by the consumer of the input queue. Post is safe from
// any goroutine; Run must be called from exactly one goroutine. Handle and
// Drain drive the engine synchronously and serialize with Run through mu,
// which also lets Status read a consistent snapshot.
//
// Scheduled callbacks (clock alarms, reversal window, decision display)
// never touch state: they post input events and the engine checks, when
// it consumes them, that they still belong to the current attempt.
type FieldOfPlay struct {
	mu sync.Mutex

	platform  string
	repo      Repository
	ranker    Ranker
	validator Validator
	hub       *Hub
	journal   Journal
	player    sound.Player
	catalog   *messages.Catalog
	logger    *slog.Logger
	tracer    trace.Tracer
	ids       IDGenerator

	sched      timer.Scheduler // delayed tasks
	clockSched timer.Scheduler // athlete and break clocks
	noDelay    bool

	reversalDelay   time.Duration
	decisionVisible time.Duration

	queue *inputQueue
	seq   *Clock
	bg    sync.WaitGroup

	state    State
	groupID  string
	athletes []*athlete.Athlete

	liftingOrder []*athlete.Athlete
	displayOrder []*athlete.Athlete
	leaders      []*athlete.Athlete
	current      *athlete.Athlete
	previous     *athlete.Athlete
	owner        *athlete.Athlete // clock owner
	cjStarted    bool
	groupDone    bool

	athleteClock *timer.AthleteClock
	breakClock   *timer.BreakClock
	breakType    event.BreakType
	countdown    event.CountdownType
	breakGen     uint64

	att      attempt
	attempts uint64

	tokens         uint64
	pendingConfirm uint64
	pendingReset   uint64
	cancelConfirm  timer.Cancel
	cancelReset    timer.Cancel

	initialTimeAllowed   time.Duration
	weightAtLastStart    int
	liftsDoneAtLastStart int
	displayedWeight      int
	toggle               bool

	prevHash string
	failures []error // collaborator failures of the event being handled
}

// New creates the engine of one platform in state INACTIVE. No group is
// loaded until a SwitchGroup arrives.
func New(platform string, repo Repository, opts ...Option) *FieldOfPlay {
	f := &FieldOfPlay{
		platform:        platform,
		repo:            repo,
		ranker:          ranking.Default{},
		validator:       rules.Validator{},
		sched:           timer.RealScheduler{},
		clockSched:      timer.RealScheduler{},
		reversalDelay:   DefaultReversalDelay,
		decisionVisible: DefaultDecisionVisible,
		ids:             UUIDv7Generator{},
		queue:           newInputQueue(),
		seq:             NewClock(),
		state:           StateInactive,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.logger = f.logger.With("platform", platform)
	if f.hub == nil {
		f.hub = NewHub(f.logger)
	}
	if f.catalog == nil {
		f.catalog = messages.English()
	}
	if f.tracer == nil {
		f.tracer = otel.Tracer(tracerName)
	}
	if f.noDelay {
		f.sched = timer.InlineScheduler{}
		f.clockSched = timer.Silent(f.clockSched)
	}

	f.athleteClock = timer.NewAthleteClock(f.clockSched)
	f.breakClock = timer.NewBreakClock(f.clockSched)
	f.newAttempt()
	return f
}

// Platform returns the platform name.
func (f *FieldOfPlay) Platform() string { return f.platform }

// Hub returns the notification hub displays subscribe to.
func (f *FieldOfPlay) Hub() *Hub { return f.hub }

// Post submits an input for processing by the consumer loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (f *FieldOfPlay) Post(in event.Input) bool {
	return f.queue.Enqueue(in)
}

// Run consumes the input queue until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: a failing event is logged with its context and the loop
// continues. Rule violations and unexpected events are already reported
// to the displays as notifications.
func (f *FieldOfPlay) Run(ctx context.Context) error {
	f.logger.Info("field of play starting")

	for {
		in, ok := f.queue.TryDequeue()
		if ok {
			if err := f.Handle(ctx, in); err != nil {
				f.logEventError(in, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			f.logger.Info("field of play stopping: context cancelled")
			f.queue.Close()
			return ctx.Err()

		case _, open := <-f.queue.Wait():
			// The signal channel closes when the queue is closed.
			if !open && f.queue.Len() == 0 {
				f.logger.Info("field of play stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the input queue; Run returns once it is drained.
func (f *FieldOfPlay) Stop() {
	f.queue.Close()
}

// Drain handles queued inputs until the queue is empty, including inputs
// posted while draining. It returns the errors of the handled inputs.
func (f *FieldOfPlay) Drain(ctx context.Context) error {
	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		in, ok := f.queue.TryDequeue()
		if !ok {
			return errors.Join(errs...)
		}
		if err := f.Handle(ctx, in); err != nil {
			errs = append(errs, err)
		}
	}
}

// WaitSounds blocks until background sound playback has finished.
func (f *FieldOfPlay) WaitSounds() {
	f.bg.Wait()
}

// Handle processes one input. Only the consumer loop and synchronous
// drivers (tests, scenario runner, replay) call it.
func (f *FieldOfPlay) Handle(ctx context.Context, in event.Input) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kind := event.Kind(in)
	ctx, span := f.tracer.Start(ctx, "fop.handle", trace.WithAttributes(
		attribute.String("fop.platform", f.platform),
		attribute.String("fop.event", kind),
		attribute.String("fop.state", string(f.state)),
	))
	defer span.End()

	hash, err := event.Hash(in)
	if err != nil {
		return fmt.Errorf("hash %s: %w", kind, err)
	}
	if hash == f.prevHash {
		f.logger.Debug("duplicate event dropped", "event", kind, "origin", in.Source(), "state", f.state)
		span.SetAttributes(attribute.Bool("fop.duplicate", true))
		return nil
	}
	f.prevHash = hash

	if in.Source() == Origin {
		f.logger.Debug("event received", "event", kind, "state", f.state)
	} else {
		f.logger.Info("event received", "event", kind, "origin", in.Source(), "state", f.state)
	}

	f.failures = nil
	err = f.dispatch(ctx, in)
	err = errors.Join(append([]error{err}, f.failures...)...)
	f.failures = nil

	if jerr := f.record(ctx, in, kind, hash); jerr != nil {
		err = errors.Join(err, jerr)
	}

	span.SetAttributes(attribute.String("fop.next_state", string(f.state)))
	if err != nil {
		span.RecordError(err)
		if !expected(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	return err
}

// record appends the input to the journal.
func (f *FieldOfPlay) record(ctx context.Context, in event.Input, kind, hash string) error {
	if f.journal == nil {
		return nil
	}
	payload, err := event.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	entry := Entry{
		Platform: f.platform,
		Seq:      f.seq.Next(),
		ID:       f.ids.Generate(),
		Kind:     kind,
		Hash:     hash,
		Payload:  payload,
		State:    f.state,
		At:       f.clockSched.Now(),
	}
	if err := f.journal.Append(ctx, entry); err != nil {
		return &Error{
			Code:    ErrCodeCollaboratorFailure,
			Message: "journal append failed",
			Event:   kind,
			State:   f.state,
			Err:     err,
		}
	}
	return nil
}

func (f *FieldOfPlay) logEventError(in event.Input, err error) {
	attrs := []any{
		"error", err,
		"event", event.Kind(in),
		"origin", in.Source(),
		"state", f.State(),
	}
	if expected(err) {
		f.logger.Warn("event rejected", attrs...)
		return
	}
	f.logger.Error("event processing failed", attrs...)
}

// play emits a sound in the background. Failures become a Broadcast and
// never affect competition state.
func (f *FieldOfPlay) play(cue sound.Cue) {
	if f.player == nil {
		return
	}
	f.bg.Add(1)
	go func() {
		defer f.bg.Done()
		if err := f.player.Play(cue); err != nil {
			f.logger.Warn("sound playback failed", "cue", cue, "error", err)
			f.hub.Publish(notify.Broadcast{
				Message: f.catalog.Render("soundSystemProblem", map[string]any{"Detail": err.Error()}),
			})
		}
	}()
}

// State returns the current state.
func (f *FieldOfPlay) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Status is a snapshot for operators and tests.
type Status struct {
	Platform         string          `json:"platform"`
	State            State           `json:"state"`
	GroupID          string          `json:"group_id,omitempty"`
	Current          string          `json:"current,omitempty"`
	Previous         string          `json:"previous,omitempty"`
	ClockOwner       string          `json:"clock_owner,omitempty"`
	LiftingOrder     []string        `json:"lifting_order,omitempty"`
	ClockRemainingMS int64           `json:"clock_remaining_ms"`
	ClockRunning     bool            `json:"clock_running"`
	TimeAllowedMS    int64           `json:"time_allowed_ms,omitempty"`
	BreakType        event.BreakType `json:"break_type,omitempty"`
	BreakRemainingMS int64           `json:"break_remaining_ms,omitempty"`
	BreakRunning     bool            `json:"break_running,omitempty"`
	Votes            [3]event.Vote   `json:"votes"`
	Attempt          uint64          `json:"attempt"`
	PendingConfirm   bool            `json:"pending_confirm,omitempty"`
	PendingReset     bool            `json:"pending_reset,omitempty"`
	GroupDone        bool            `json:"group_done,omitempty"`
	CJStarted        bool            `json:"cj_started,omitempty"`
}

// Status returns a consistent snapshot of the engine.
func (f *FieldOfPlay) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Status{
		Platform:         f.platform,
		State:            f.state,
		GroupID:          f.groupID,
		Current:          idOf(f.current),
		Previous:         idOf(f.previous),
		ClockOwner:       idOf(f.owner),
		ClockRemainingMS: f.athleteClock.TimeRemaining().Milliseconds(),
		ClockRunning:     f.athleteClock.IsRunning(),
		TimeAllowedMS:    f.initialTimeAllowed.Milliseconds(),
		BreakType:        f.breakType,
		BreakRunning:     f.breakClock.IsRunning(),
		Votes:            f.att.votes.Votes(),
		Attempt:          f.att.seq,
		PendingConfirm:   f.pendingConfirm != 0,
		PendingReset:     f.pendingReset != 0,
		GroupDone:        f.groupDone,
		CJStarted:        f.cjStarted,
	}
	if f.state == StateBreak {
		s.BreakRemainingMS = f.breakClock.TimeRemaining().Milliseconds()
	}
	for _, a := range f.liftingOrder {
		s.LiftingOrder = append(s.LiftingOrder, a.ID)
	}
	return s
}

// Athlete returns a copy of the engine's working copy of an athlete of
// the loaded group.
func (f *FieldOfPlay) Athlete(id string) (*athlete.Athlete, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(id)
	return a.Clone(), a != nil
}

func idOf(a *athlete.Athlete) string {
	if a == nil {
		return ""
	}
	return a.ID
}
