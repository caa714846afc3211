package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/liftfop/internal/config"
	"github.com/roach88/liftfop/internal/engine"
	"github.com/roach88/liftfop/internal/event"
	"github.com/roach88/liftfop/internal/notify"
	"github.com/roach88/liftfop/internal/sound"
	"github.com/roach88/liftfop/internal/store"
	"github.com/roach88/liftfop/internal/telemetry"
)

const (
	// subscriberBuffer is the hub buffer of the stdout writer.
	subscriberBuffer = 1024
	// maxInputLine bounds one JSON input line.
	maxInputLine = 1 << 20
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Config    string
	Platforms []string
}

// inputLine is one line read by the run command.
type inputLine struct {
	Platform string          `json:"platform"`
	Kind     string          `json:"kind"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the field of play of one or more platforms",
		Long: `Run the field of play of one or more platforms.

The competition file is loaded into the database, then one engine is
started per platform. Inputs are read from stdin, one JSON object per
line, and every notification is written to stdout as a JSON line.

Input line:
  {"platform":"A","kind":"TimeStarted","data":{}}

The platform may be left out when only one platform is running.
Every input is journaled in the database.

Examples:
  fop run --db meet.db --config competition.cue
  fop run --db meet.db --config competition.cue --platform A < inputs.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlatforms(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $FOP_DB)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "competition file (required)")
	cmd.Flags().StringSliceVar(&opts.Platforms, "platform", nil, "platforms to run (default: all)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runPlatforms(opts *RunOptions, cmd *cobra.Command) error {
	env, err := loadEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if opts.Database == "" {
		opts.Database = env.DB
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	shutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingOptions{
		Enabled:  env.OTelEnabled,
		Endpoint: env.OTelEndpoint,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Error("error flushing traces", "error", err)
		}
	}()

	comp, err := loadCompetition(opts.Config)
	if err != nil {
		return err
	}
	platforms, err := selectPlatforms(comp, opts.Platforms)
	if err != nil {
		return err
	}

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := seedStore(ctx, st, comp); err != nil {
		return WrapExitError(ExitCommandError, "failed to load competition into database", err)
	}

	engineOpts := []engine.Option{
		engine.WithCatalog(loadCatalog(env.Locale)),
		engine.WithLogger(slog.Default()),
	}
	if env.ReversalDelay > 0 {
		engineOpts = append(engineOpts, engine.WithReversalDelay(env.ReversalDelay))
	}
	if env.DecisionVisible > 0 {
		engineOpts = append(engineOpts, engine.WithDecisionVisible(env.DecisionVisible))
	}
	if env.Sound {
		engineOpts = append(engineOpts, engine.WithSound(sound.NewSpeaker()))
	}

	reg := engine.NewRegistry(func(platform string) (*engine.FieldOfPlay, error) {
		lastSeq, err := st.LastSeq(ctx, platform)
		if err != nil {
			return nil, err
		}
		return engine.New(platform, st, append(slices.Clone(engineOpts), engine.WithJournal(st, lastSeq))...), nil
	})

	out := &lineWriter{w: cmd.OutOrStdout()}
	var wg sync.WaitGroup
	persistCtx := context.WithoutCancel(ctx)
	for _, name := range platforms {
		f, err := reg.Open(ctx, name)
		if err != nil {
			_ = reg.Close()
			return WrapExitError(ExitCommandError, "failed to start platform", err)
		}
		ch, _ := f.Hub().Subscribe(subscriberBuffer)
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			forward(persistCtx, name, ch, st, out)
		}(name)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("field of play started", "platforms", platforms, "db", opts.Database)
	origin := "cli-" + uuid.NewString()
	readErr := readInputs(ctx, cmd.InOrStdin(), reg, origin)

	closeErr := reg.Close()
	wg.Wait()

	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return WrapExitError(ExitFailure, "failed to read inputs", readErr)
	}
	if closeErr != nil {
		return WrapExitError(ExitFailure, "engine error", closeErr)
	}
	slog.Info("field of play stopped gracefully")
	return nil
}

// selectPlatforms checks the requested platforms against the competition.
// No request means every platform.
func selectPlatforms(comp *config.Competition, requested []string) ([]string, error) {
	if len(requested) == 0 {
		names := make([]string, 0, len(comp.Platforms))
		for _, p := range comp.Platforms {
			names = append(names, p.Name)
		}
		if len(names) == 0 {
			return nil, NewExitError(ExitCommandError, "competition has no platforms")
		}
		return names, nil
	}
	for _, name := range requested {
		if _, ok := comp.Platform(name); !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown platform %q", name))
		}
	}
	return requested, nil
}

// readInputs posts every input line to its platform until EOF or ctx is
// done. Lines that cannot be decoded are logged and skipped.
func readInputs(ctx context.Context, r io.Reader, reg *engine.Registry, origin string) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxInputLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			n++
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			if err := postLine(reg, line, origin); err != nil {
				slog.Warn("input skipped", "line", n, "error", err)
			}
		}
	}
}

func postLine(reg *engine.Registry, line []byte, origin string) error {
	var il inputLine
	if err := json.Unmarshal(line, &il); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if il.Platform == "" {
		open := reg.Platforms()
		if len(open) != 1 {
			return errors.New("platform is required when more than one platform is running")
		}
		il.Platform = open[0]
	}
	f, ok := reg.Get(il.Platform)
	if !ok {
		return fmt.Errorf("platform %q is not running", il.Platform)
	}
	data, err := withOrigin(il.Data, origin)
	if err != nil {
		return err
	}
	in, err := event.Decode(event.Envelope{Kind: il.Kind, Data: data})
	if err != nil {
		return err
	}
	if !f.Post(in) {
		return fmt.Errorf("platform %q is stopped", il.Platform)
	}
	return nil
}

// withOrigin stamps the session origin on input data that has none.
func withOrigin(data json.RawMessage, origin string) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("data must be an object: %w", err)
		}
	}
	if _, ok := fields["origin"]; ok {
		return data, nil
	}
	o, err := json.Marshal(origin)
	if err != nil {
		return nil, err
	}
	fields["origin"] = o
	return json.Marshal(fields)
}

// forward writes the notifications of one platform to stdout and records
// what the marshal form would: changed requests and finished groups.
func forward(ctx context.Context, platform string, ch <-chan notify.Output, st *store.Store, out *lineWriter) {
	for o := range ch {
		switch n := o.(type) {
		case notify.LiftingOrderUpdated:
			if n.Changed != nil {
				if err := st.SaveLift(ctx, n.Changed); err != nil {
					slog.Error("failed to save weight change", "platform", platform, "athlete", n.Changed.ID, "error", err)
				}
			}
		case notify.GroupDone:
			if err := st.MarkGroupDone(ctx, n.GroupID, true); err != nil {
				slog.Error("failed to mark group done", "platform", platform, "group", n.GroupID, "error", err)
			}
		}
		line, err := notify.Marshal(platform, o)
		if err != nil {
			slog.Error("failed to encode notification", "platform", platform, "error", err)
			continue
		}
		out.WriteLine(line)
	}
}

// lineWriter serializes whole lines from several goroutines.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) WriteLine(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(b, '\n'))
}
