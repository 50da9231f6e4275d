package bake

import (
	"log/slog"

	"github.com/gogpu/bake/gpu"
)

// SetLogger configures the logger for bake and all its sub-packages.
// By default, bake produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by bake:
//   - [slog.LevelDebug]: internal diagnostics (pool growth, proxy creation, submissions)
//   - [slog.LevelInfo]: batch lifecycle (batch start and completion)
//   - [slog.LevelWarn]: non-fatal issues (failed debug dumps, shader compile errors)
//
// Example:
//
//	bake.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	gpu.SetLogger(l)
}

// Logger returns the current logger used by bake.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return gpu.Logger()
}
