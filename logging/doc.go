// Package logging provides a minimal logging interface and adapters for launchmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the workflow, clients and transport use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a caller-owned *slog.Logger
//   - StructuredLogger with component / request scoping and domain helpers
//   - RedactingHandler masking API keys before records reach the output
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json"})
//	orch, err := workflow.NewOrchestrator(gen, eval, func(o *workflow.Options) { o.Logger = logger })
//
// The interface is kept minimal to avoid vendor lock-in while supporting
// structured key/value logging where available.
package logging
