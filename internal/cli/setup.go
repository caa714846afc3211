package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/liftfop/internal/config"
	"github.com/roach88/liftfop/internal/messages"
	"github.com/roach88/liftfop/internal/telemetry"
)

// loadEnv reads the FOP_* settings and installs the default logger on
// the command's stderr.
func loadEnv(opts *RootOptions, cmd *cobra.Command) (config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return env, WrapExitError(ExitCommandError, "invalid environment", err)
	}
	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), env.LogLevel, opts.Verbose)
	if err != nil {
		return env, WrapExitError(ExitCommandError, "invalid FOP_LOG_LEVEL", err)
	}
	slog.SetDefault(logger)
	return env, nil
}

// loadCompetition reads a competition file. All problems are joined into
// one command error.
func loadCompetition(path string) (*config.Competition, error) {
	comp, errs := config.LoadCompetition(path)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), errors.Join(errs...))
	}
	return comp, nil
}

// loadCatalog picks the message catalog for the configured or detected
// locale. An unknown locale falls back to English.
func loadCatalog(configured string) *messages.Catalog {
	lang := config.ResolveLocale(configured)
	catalog, err := messages.New(lang)
	if err != nil {
		slog.Warn("locale not available, using English", "locale", lang, "error", err)
		return messages.English()
	}
	return catalog
}
