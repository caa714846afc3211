package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the runtime configuration read from the environment. Command-line
// flags override it.
type Env struct {
	DB              string        `env:"FOP_DB" envDefault:"liftfop.db"`
	LogLevel        string        `env:"FOP_LOG_LEVEL" envDefault:"info"`
	Locale          string        `env:"FOP_LOCALE"`
	ReversalDelay   time.Duration `env:"FOP_REVERSAL_DELAY" envDefault:"3s"`
	DecisionVisible time.Duration `env:"FOP_DECISION_VISIBLE" envDefault:"3500ms"`
	Sound           bool          `env:"FOP_SOUND" envDefault:"false"`
	OTelEnabled     bool          `env:"FOP_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string        `env:"FOP_OTEL_ENDPOINT" envDefault:"http://localhost:4318"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses and checks Env.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	if err := e.Validate(); err != nil {
		return Env{}, err
	}
	return e, nil
}

// Validate rejects settings the engine cannot run with.
func (e Env) Validate() error {
	if e.ReversalDelay < 0 {
		return fmt.Errorf("FOP_REVERSAL_DELAY must not be negative, got %s", e.ReversalDelay)
	}
	if e.DecisionVisible < 0 {
		return fmt.Errorf("FOP_DECISION_VISIBLE must not be negative, got %s", e.DecisionVisible)
	}
	if e.OTelEnabled && e.OTelEndpoint == "" {
		return fmt.Errorf("FOP_OTEL_ENDPOINT is required when FOP_OTEL_ENABLED is set")
	}
	return nil
}
