package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"apiprobe/internal/httpclient"
	"apiprobe/internal/report"
	"apiprobe/internal/runner"
	"apiprobe/internal/suite"
	"apiprobe/internal/watch"
	"apiprobe/pkg/logging"
)

var (
	runMaxInFlight int
	runSequential  bool
	runBaseURL     string
	runBearerToken string
	runTimeout     time.Duration
	runJUnitPath   string
	runPushGateway string
	runWatch       bool
)

// runCmd executes one suite file or a directory of suite files.
var runCmd = &cobra.Command{
	Use:   "run <file-or-directory>",
	Short: "Execute API test suites",
	Long: `The run command loads YAML test suites from a file or directory and
executes every step against the target service.

Each step sends one HTTP request and validates the response: the status
code must match the expectation, and when a JSON schema is given the
response body must validate against it. Steps can save response values
(header fields or JSON paths) into variables that later steps reference
with {variable} placeholders.

Steps run concurrently by default, bounded by --max-in-flight. Suites
that chain variables between steps should run with --sequential so that
saves complete before later steps render.

Example usage:
  apiprobe run suites/                        # Run every suite in a directory
  apiprobe run smoke.yaml --base-url=http://localhost:8080
  apiprobe run suites/ --sequential           # Preserve declaration order
  apiprobe run suites/ --junit=report.xml     # Write a JUnit report for CI
  apiprobe run suites/ --push=http://gw:9091  # Push metrics to a pushgateway
  apiprobe run suites/ --watch                # Re-run on file changes

The BASE_URL and BEARER_TOKEN environment variables seed the target and
credentials; the corresponding flags take precedence. PUSHGATEWAY_URL is
the default for --push.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runMaxInFlight, "max-in-flight", runner.DefaultMaxInFlight,
		"Maximum number of steps executing concurrently")
	runCmd.Flags().BoolVar(&runSequential, "sequential", false,
		"Execute steps strictly in declaration order")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "",
		"Base URL for relative request paths (default: BASE_URL env)")
	runCmd.Flags().StringVar(&runBearerToken, "token", "",
		"Bearer token attached to every request (default: BEARER_TOKEN env)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", httpclient.DefaultTimeout,
		"Per-request timeout")
	runCmd.Flags().StringVar(&runJUnitPath, "junit", "",
		"Write a JUnit XML report to this path")
	runCmd.Flags().StringVar(&runPushGateway, "push", "",
		"Push run metrics to this Prometheus pushgateway (default: PUSHGATEWAY_URL env)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false,
		"Watch the suite path and re-run on changes")

	runCmd.MarkFlagsMutuallyExclusive("sequential", "max-in-flight")

	runCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if runMaxInFlight < 1 || runMaxInFlight > 64 {
			return fmt.Errorf("max-in-flight must be between 1 and 64, got %d", runMaxInFlight)
		}
		return nil
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	path := args[0]
	config := buildRunnerConfig()

	if runWatch {
		return runWatched(ctx, cmd, path, config)
	}

	failed, err := executeOnce(ctx, cmd, path, config)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d step(s) failed", failed)
	}
	return nil
}

// runWatched runs the suites once, then re-runs them whenever a suite file
// changes, until interrupted. Step failures do not terminate watch mode; the
// exit code reflects the last completed run.
func runWatched(ctx context.Context, cmd *cobra.Command, path string, config runner.Config) error {
	var lastFailed atomic.Int64

	failed, err := executeOnce(ctx, cmd, path, config)
	if err != nil {
		return err
	}
	lastFailed.Store(int64(failed))

	watcher := watch.New(watch.Config{
		Path: path,
		OnChange: func() {
			fmt.Fprintln(cmd.OutOrStdout(), "\nSuite files changed, re-running...")
			failed, err := executeOnce(ctx, cmd, path, config)
			if err != nil {
				logging.Error("Run", err, "Re-run failed")
				return
			}
			lastFailed.Store(int64(failed))
		},
	})
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	defer watcher.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes. Press Ctrl+C to stop.")
	<-ctx.Done()

	fmt.Fprintln(cmd.OutOrStdout(), "\nStopping.")
	if failed := lastFailed.Load(); failed > 0 {
		return fmt.Errorf("%d step(s) failed", failed)
	}
	return nil
}

// executeOnce loads the suites at path and runs them with a fresh set of
// reporters. It returns how many steps failed; only loading problems are
// returned as errors.
func executeOnce(ctx context.Context, cmd *cobra.Command, path string, config runner.Config) (int, error) {
	docs, err := suite.Load(path)
	if err != nil {
		return 0, err
	}

	runID := uuid.New().String()
	console := report.NewConsole(cmd.OutOrStdout(), rootVerbose)

	reporters := []report.Reporter{console}
	if runJUnitPath != "" {
		reporters = append(reporters, report.NewJUnit(runJUnitPath, runID))
	}
	if gateway := pushGatewayURL(); gateway != "" {
		reporters = append(reporters, report.NewPrometheus(gateway, runID))
	}

	var spin *spinner.Spinner
	if !rootVerbose && !rootDebug {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond,
			spinner.WithWriter(cmd.ErrOrStderr()))
		spin.Suffix = fmt.Sprintf(" Running %d steps...", suite.CountSteps(docs))
		spin.Start()
	}

	summary := runner.New(config, report.NewMulti(reporters...)).Run(ctx, docs)

	if spin != nil {
		spin.Stop()
	}

	logging.Info("Run", "Run %s finished: %d/%d passed in %s",
		runID, summary.Passed, summary.Total, summary.Duration)

	return console.Failed(), nil
}

// buildRunnerConfig merges flags over environment defaults.
func buildRunnerConfig() runner.Config {
	client := httpclient.ConfigFromEnv()
	if runBaseURL != "" {
		client.BaseURL = runBaseURL
	}
	if runBearerToken != "" {
		client.BearerToken = runBearerToken
	}
	client.Timeout = runTimeout

	return runner.Config{
		MaxInFlight: runMaxInFlight,
		Sequential:  runSequential,
		Client:      client,
	}
}

func pushGatewayURL() string {
	if runPushGateway != "" {
		return runPushGateway
	}
	return os.Getenv("PUSHGATEWAY_URL")
}
