// Package report defines the passive sinks that receive per-step results.
// Reporters never fail a run: errors from a sink are logged and swallowed at
// the fan-out boundary.
package report

import (
	"time"

	"apiprobe/pkg/logging"
)

// Result is the outcome of one executed step. It is produced exactly once
// per step regardless of client-internal retries and is immutable once
// recorded.
type Result struct {
	// Name is the step's human-readable label.
	Name string
	// File is the suite document the step came from.
	File string
	// Success is true when every assertion passed.
	Success bool
	// Latency is the request duration, including transparent retries.
	Latency time.Duration
	// Err holds the failure message; empty on success.
	Err string
}

// Reporter is a passive sink for step results. Record is called once per
// completed step, pass or fail; Finalize exactly once after all steps are
// done.
type Reporter interface {
	Record(result Result)
	Finalize() error
}

// Multi fans results out to several reporters. A reporter failure (for
// example an unreachable metrics gateway) is logged and swallowed, never
// allowed to fail the suite.
type Multi struct {
	reporters []Reporter
}

// NewMulti creates a fan-out over the given reporters.
func NewMulti(reporters ...Reporter) *Multi {
	return &Multi{reporters: reporters}
}

// Record forwards the result to every reporter.
func (m *Multi) Record(result Result) {
	for _, reporter := range m.reporters {
		reporter.Record(result)
	}
}

// Finalize finalizes every reporter, logging failures instead of
// propagating them.
func (m *Multi) Finalize() error {
	for _, reporter := range m.reporters {
		if err := reporter.Finalize(); err != nil {
			logging.Error("Reporter", err, "reporter finalization failed")
		}
	}
	return nil
}
