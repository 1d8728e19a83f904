// Package logging provides a structured logging system for apiprobe with
// unified log handling and level filtering.
//
// This package implements a thin layer on Go's standard slog package. All
// log entries carry a subsystem tag so output from the loader, runner,
// client, and reporters can be told apart in a single stream.
//
// Initialize once at startup:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//
// then log from anywhere:
//
//	logging.Debug("Runner", "scheduling %d steps", n)
//	logging.Error("Reporter", err, "push failed")
//
// Reporter and watcher failures are logged through this package rather than
// propagated, so a broken sink never fails a test run.
package logging
