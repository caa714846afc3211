package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liftfop/internal/config"
)

// ValidationError is one problem in a competition file.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Name      string            `json:"name,omitempty"`
	Platforms int               `json:"platforms,omitempty"`
	Groups    int               `json:"groups,omitempty"`
	Athletes  int               `json:"athletes,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <competition.cue>",
		Short: "Validate a competition file",
		Long: `Validate a competition file without touching any database.

Checks CUE syntax, the competition schema, and that athlete ids and start
numbers are unique.

Examples:
  fop validate competition.cue
  fop validate competition.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	comp, errs := config.LoadCompetition(path)
	if len(errs) > 0 {
		var le *config.LoadError
		if errors.As(errs[0], &le) && le.Code == config.ErrCodeRead {
			_ = formatter.Error(le.Code, le.Message, nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", le.Code, le.Message))
		}
		return outputValidationErrors(formatter, toValidationErrors(errs))
	}

	result := ValidationResult{Valid: true, Name: comp.Name, Platforms: len(comp.Platforms)}
	for _, p := range comp.Platforms {
		formatter.VerboseLog("platform %s: %d group(s)", p.Name, len(p.Groups))
		result.Groups += len(p.Groups)
		for _, g := range p.Groups {
			result.Athletes += len(g.Athletes)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: %d platform(s), %d group(s), %d athlete(s)\n",
		displayName(result.Name, path), result.Platforms, result.Groups, result.Athletes)
	return nil
}

func toValidationErrors(errs []error) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, err := range errs {
		var le *config.LoadError
		if !errors.As(err, &le) {
			out = append(out, ValidationError{Code: config.ErrCodeSchema, Message: err.Error()})
			continue
		}
		ve := ValidationError{Code: le.Code, Field: le.Field, Message: le.Message}
		if le.Pos.IsValid() {
			ve.Line = le.Pos.Line()
		}
		out = append(out, ve)
	}
	return out
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func displayName(name, path string) string {
	if name != "" {
		return name
	}
	return path
}
