package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"apiprobe/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution with all steps passing.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (failed steps, invalid
	// arguments, unreadable suite files).
	ExitCodeError = 1
)

var (
	rootVerbose bool
	rootDebug   bool
)

// rootCmd represents the base command for the apiprobe application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "apiprobe",
	Short: "Run declarative API test suites against live HTTP services",
	Long: `apiprobe executes YAML-defined test suites against a running HTTP API:
each step sends a request, asserts on the response status and body schema,
and can save response values into variables for later steps to reference.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if rootVerbose {
			level = logging.LevelInfo
		}
		if rootDebug {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles
// subcommands and flags. This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "apiprobe version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootVerbose, "verbose", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
}
