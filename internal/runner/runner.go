// Package runner schedules all steps of a loaded suite onto a bounded pool
// of concurrent tasks and aggregates their outcomes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"apiprobe/internal/assert"
	"apiprobe/internal/httpclient"
	"apiprobe/internal/report"
	"apiprobe/internal/suite"
	"apiprobe/internal/template"
	"apiprobe/pkg/logging"
)

// DefaultMaxInFlight is the default concurrency ceiling for parallel runs.
const DefaultMaxInFlight = 4

// Config controls suite execution.
type Config struct {
	// MaxInFlight bounds how many steps may be mid-flight at once in
	// parallel mode. A concurrency slot is held for a step's full pipeline:
	// render, request, assert, save, report.
	MaxInFlight int
	// Sequential executes steps strictly in declaration order. Suites that
	// chain variables between steps via save need this mode; in parallel
	// mode variable availability follows completion order, not declaration
	// order.
	Sequential bool
	// Client configures the per-step HTTP clients.
	Client httpclient.Config
}

// Summary aggregates a run's outcome.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Duration time.Duration
}

// Runner executes loaded suite documents against their target service.
type Runner struct {
	config   Config
	reporter report.Reporter
}

// New creates a runner that records every step outcome to the given
// reporter (usually a report.Multi fan-out).
func New(config Config, reporter report.Reporter) *Runner {
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = DefaultMaxInFlight
	}
	return &Runner{
		config:   config,
		reporter: reporter,
	}
}

// Run executes every step of every document and waits for all of them to
// finish. One variable context is shared across all documents for the whole
// invocation, so values saved in one file may be referenced from another.
// No step failure aborts sibling steps; only loading problems are fatal,
// and those happen before Run is called.
func (r *Runner) Run(ctx context.Context, docs []suite.Document) Summary {
	start := time.Now()
	vars := suite.NewContext()

	total := suite.CountSteps(docs)
	logging.Info("Runner", "Executing %d steps from %d files (max in-flight: %d, sequential: %t)",
		total, len(docs), r.config.MaxInFlight, r.config.Sequential)

	var results []report.Result
	if r.config.Sequential {
		results = r.runSequential(ctx, docs, vars)
	} else {
		results = r.runParallel(ctx, docs, vars)
	}

	summary := Summary{
		Total:    total,
		Duration: time.Since(start),
	}
	for _, result := range results {
		if result.Success {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	r.reporter.Finalize()

	return summary
}

// runSequential executes steps one after another in declaration order.
func (r *Runner) runSequential(ctx context.Context, docs []suite.Document, vars *suite.Context) []report.Result {
	var results []report.Result
	for _, doc := range docs {
		for _, step := range doc.Steps {
			result := r.runStep(ctx, doc, step, vars)
			r.reporter.Record(result)
			results = append(results, result)
		}
	}
	return results
}

// runParallel schedules every step as its own task, admission-controlled by
// a counting semaphore of MaxInFlight slots. Task creation follows load
// order, but completion order is not guaranteed.
func (r *Runner) runParallel(ctx context.Context, docs []suite.Document, vars *suite.Context) []report.Result {
	sem := semaphore.NewWeighted(int64(r.config.MaxInFlight))

	results := make([]report.Result, suite.CountSteps(docs))
	var wg sync.WaitGroup

	index := 0
	for _, doc := range docs {
		for _, step := range doc.Steps {
			wg.Add(1)
			go func(slot int, doc suite.Document, step suite.Step) {
				defer wg.Done()

				if err := sem.Acquire(ctx, 1); err != nil {
					// Context cancelled while queued; the step still yields
					// exactly one result.
					results[slot] = failedResult(doc, step, 0, fmt.Sprintf("Exception: %v", err))
					r.reporter.Record(results[slot])
					return
				}
				defer sem.Release(1)

				results[slot] = r.runStep(ctx, doc, step, vars)
				r.reporter.Record(results[slot])
			}(index, doc, step)
			index++
		}
	}

	wg.Wait()
	return results
}

// runStep executes one step's full pipeline: render, request, assert, save.
// Every failure mode is converted into a failed result here; nothing
// escapes to abort sibling steps.
func (r *Runner) runStep(ctx context.Context, doc suite.Document, step suite.Step, vars *suite.Context) report.Result {
	rendered, err := suite.RenderRequest(step, vars)
	if err != nil {
		logging.Debug("Runner", "Step '%s' failed to render: %v", step.Name, err)
		return failedResult(doc, step, 0, failureMessage(err))
	}

	client := httpclient.New(r.config.Client)
	resp, err := client.Do(ctx, rendered)
	if err != nil {
		logging.Debug("Runner", "Step '%s' transport failure: %v", step.Name, err)
		return failedResult(doc, step, 0, failureMessage(err))
	}

	if err := assert.Run(resp, step.Expect); err != nil {
		logging.Debug("Runner", "Step '%s' assertion failure: %v", step.Name, err)
		return failedResult(doc, step, resp.Latency, failureMessage(err))
	}

	if err := suite.SaveFromResponse(step, resp.Header, resp.Body, vars); err != nil {
		logging.Debug("Runner", "Step '%s' save failure: %v", step.Name, err)
		return failedResult(doc, step, resp.Latency, failureMessage(err))
	}

	return report.Result{
		Name:    step.Name,
		File:    doc.Path,
		Success: true,
		Latency: resp.Latency,
	}
}

// failureMessage formats an error for the result record. Assertion and
// templating failures carry their own readable messages; anything else is a
// transport-level exception.
func failureMessage(err error) string {
	var failure *assert.Failure
	if errors.As(err, &failure) {
		return failure.Message
	}

	var missing *template.MissingVariableError
	if errors.As(err, &missing) {
		return missing.Error()
	}

	return fmt.Sprintf("Exception: %v", err)
}

func failedResult(doc suite.Document, step suite.Step, latency time.Duration, message string) report.Result {
	return report.Result{
		Name:    step.Name,
		File:    doc.Path,
		Success: false,
		Latency: latency,
		Err:     message,
	}
}
