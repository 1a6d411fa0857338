// Package log provides the leveled logging interface used by every insightgraph
// component.
//
// The default logger is backed by github.com/kataras/golog and writes to stderr at
// info level. Components log through the package-level helpers so the CLI can raise
// or lower verbosity in one place:
//
//	log.SetLogLevel(log.LogLevelDebug) // --debug
//	log.Info("ingesting %s", path)
//
// # Log Levels
//
//   - LogLevelDebug: prompts, tool inputs, routing decisions
//   - LogLevelInfo: ingestion results, run start and end
//   - LogLevelWarn: recoverable problems (fail-closed routing, skipped sources)
//   - LogLevelError: failures that abort an ingestion or a run
//   - LogLevelNone: disables all logging output
//
// Tests that want silence can install a NoOpLogger:
//
//	log.SetDefaultLogger(&log.NoOpLogger{})
package log
