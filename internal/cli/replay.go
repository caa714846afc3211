package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/liftfop/internal/engine"
	"github.com/roach88/liftfop/internal/notify"
	"github.com/roach88/liftfop/internal/store"
	"github.com/roach88/liftfop/internal/timer"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Config   string
	Platform string
}

// ReplayMismatch is a journal entry whose recorded state differs from the
// state reached on replay.
type ReplayMismatch struct {
	Seq      int64        `json:"seq"`
	Kind     string       `json:"kind"`
	Recorded engine.State `json:"recorded"`
	Replayed engine.State `json:"replayed"`
}

// ReplaySummary holds the outcome of a replay.
type ReplaySummary struct {
	Platform      string           `json:"platform"`
	Events        int              `json:"events"`
	Rejected      int              `json:"rejected"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
	Final         engine.Status    `json:"final"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal of a platform and verify determinism",
		Long: `Replay the journal of a platform against a fresh field of play.

The competition is loaded as entered, then every journaled input is fed
through the engine in order with the clock set to the time it was
recorded. The state reached after each input is compared with the state
journaled live.

Exit codes:
  0 - Replay reproduced the journal
  1 - Replay failed or diverged from the journal
  2 - Command error (database not found, no journal, etc.)

Examples:
  fop replay --db meet.db --config competition.cue --platform A
  fop replay --db meet.db --config competition.cue --platform A --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $FOP_DB)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "competition file (required)")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "platform to replay (required)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("platform")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	env, err := loadEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if opts.Database == "" {
		opts.Database = env.DB
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	comp, err := loadCompetition(opts.Config)
	if err != nil {
		return err
	}
	if _, ok := comp.Platform(opts.Platform); !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown platform %q", opts.Platform))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	entries, err := st.Entries(ctx, opts.Platform)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if len(entries) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no journal entries for platform %s", opts.Platform))
	}
	formatter.VerboseLog("replaying %d entries of platform %s", len(entries), opts.Platform)

	summary, err := replayJournal(ctx, opts.Platform, seedMemory(comp), entries, env.ReversalDelay, env.DecisionVisible, loadCatalogOption(env.Locale))
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	if opts.Format == "json" {
		if !summary.Deterministic {
			_ = formatter.Error("E_REPLAY_DIVERGED", "replay diverged from the journal", summary)
			return NewExitError(ExitFailure, "replay diverged")
		}
		return formatter.Success(summary)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Platform %s: %d events replayed, %d rejected\n", summary.Platform, summary.Events, summary.Rejected)
	for _, m := range summary.Mismatches {
		fmt.Fprintf(out, "✗ seq %d %s: journaled %s, replayed %s\n", m.Seq, m.Kind, m.Recorded, m.Replayed)
	}
	fmt.Fprintf(out, "Final state: %s", summary.Final.State)
	if summary.Final.GroupID != "" {
		fmt.Fprintf(out, " group=%s", summary.Final.GroupID)
	}
	if summary.Final.Current != "" {
		fmt.Fprintf(out, " current=%s", summary.Final.Current)
	}
	fmt.Fprintln(out)
	if !summary.Deterministic {
		return NewExitError(ExitFailure, "replay diverged")
	}
	fmt.Fprintln(out, "✓ replay matches journal")
	return nil
}

// replayJournal feeds entries one at a time through a fresh engine whose
// clock is pinned to each entry's time. Accepted weight changes are
// written back to repo the way the live run does.
func replayJournal(
	ctx context.Context,
	platform string,
	repo *engine.MemoryRepository,
	entries []engine.Entry,
	reversalDelay, decisionVisible time.Duration,
	extra ...engine.Option,
) (ReplaySummary, error) {
	fixed := timer.NewFixedScheduler(entries[0].At)
	opts := append([]engine.Option{
		engine.WithScheduler(timer.Silent(fixed)),
		engine.WithLogger(slog.Default()),
	}, extra...)
	if reversalDelay > 0 {
		opts = append(opts, engine.WithReversalDelay(reversalDelay))
	}
	if decisionVisible > 0 {
		opts = append(opts, engine.WithDecisionVisible(decisionVisible))
	}
	f := engine.New(platform, repo, opts...)
	defer f.Hub().Close()
	ch, unsubscribe := f.Hub().Subscribe(subscriberBuffer)
	defer unsubscribe()

	summary := ReplaySummary{Platform: platform, Deterministic: true}
	for _, e := range entries {
		fixed.Set(e.At)
		res, err := engine.Replay(ctx, f, []engine.Entry{e})
		summary.Events += res.Events
		summary.Rejected += res.Rejected
		if err != nil {
			return summary, err
		}
		persistChanges(ctx, repo, ch)
		if state := f.State(); e.State != "" && state != e.State {
			summary.Deterministic = false
			summary.Mismatches = append(summary.Mismatches, ReplayMismatch{
				Seq: e.Seq, Kind: e.Kind, Recorded: e.State, Replayed: state,
			})
		}
	}
	summary.Final = f.Status()
	return summary, nil
}

// persistChanges drains pending notifications and saves accepted weight
// changes.
func persistChanges(ctx context.Context, repo engine.Repository, ch <-chan notify.Output) {
	for {
		select {
		case o, ok := <-ch:
			if !ok {
				return
			}
			if n, isLOU := o.(notify.LiftingOrderUpdated); isLOU && n.Changed != nil {
				if err := repo.SaveLift(ctx, n.Changed); err != nil {
					slog.Warn("failed to save weight change", "athlete", n.Changed.ID, "error", err)
				}
			}
		default:
			return
		}
	}
}

func loadCatalogOption(locale string) engine.Option {
	return engine.WithCatalog(loadCatalog(locale))
}
