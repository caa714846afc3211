package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/liftfop/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Update bool
	Filter string
}

// ScenarioResult holds the outcome of one scenario.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioSummary holds the outcome of a scenario run.
type ScenarioSummary struct {
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <dir>",
		Short: "Run scenario files against the field of play",
		Long: `Run every scenario file in a directory on a deterministic clock.

Each scenario's trace is compared with golden/<name>.golden next to the
scenario files. Use --update to rewrite the golden files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (directory not found, invalid scenario, etc.)

Examples:
  fop scenario ./scenarios
  fop scenario ./scenarios --filter 'break_*'
  fop scenario ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only scenarios whose name matches this glob")

	return cmd
}

func runScenarios(opts *ScenarioOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	files, err := harness.FindScenarios(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenarios found in %s", dir))
	}

	summary := ScenarioSummary{Total: len(files), Scenarios: []ScenarioResult{}}
	for _, file := range files {
		formatter.VerboseLog("running %s", file)
		res, err := runScenario(file, opts.Update)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", filepath.Base(file)), err)
		}
		if res.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Scenarios = append(summary.Scenarios, res)
	}

	if opts.Format == "json" {
		if summary.Failed > 0 {
			_ = formatter.Error("E_SCENARIO_FAILED",
				fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total), summary)
			return NewExitError(ExitFailure, "scenarios failed")
		}
		return formatter.Success(summary)
	}

	out := cmd.OutOrStdout()
	for _, r := range summary.Scenarios {
		if r.Pass {
			fmt.Fprintf(out, "✓ %s\n", r.Name)
			continue
		}
		fmt.Fprintf(out, "✗ %s\n", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(out, "    %s\n", indent(e, "    "))
		}
	}
	fmt.Fprintf(out, "\nScenario Summary: %d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, "scenarios failed")
	}
	return nil
}

// runScenario runs one file and checks or rewrites its golden trace.
func runScenario(file string, update bool) (ScenarioResult, error) {
	s, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{}, err
	}
	res := ScenarioResult{Name: s.Name, File: file}

	r, err := harness.Run(s)
	if err != nil {
		return res, err
	}
	res.Errors = append(res.Errors, r.Errors...)

	golden := harness.GoldenPath(file, s.Name)
	res.Golden = golden
	if update {
		if err := harness.UpdateGolden(golden, r); err != nil {
			return res, err
		}
	} else {
		match, err := harness.CompareGolden(golden, r)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, err.Error())
		case !match:
			res.Errors = append(res.Errors, fmt.Sprintf("trace differs from %s (run with --update to accept)", golden))
		}
	}

	res.Pass = len(res.Errors) == 0
	return res, nil
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+prefix)
}
