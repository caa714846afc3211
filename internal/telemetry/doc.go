// Package telemetry configures process-wide logging and tracing.
//
// Logging is log/slog with a text handler on stderr. Tracing is opt-in:
// without an exporter the engine's spans go to the no-op provider.
package telemetry
