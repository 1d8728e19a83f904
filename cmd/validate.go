package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"apiprobe/internal/suite"
)

// validateCmd loads suites and reports definition problems without sending
// any requests.
var validateCmd = &cobra.Command{
	Use:   "validate <file-or-directory>",
	Short: "Check suite files for definition errors without running them",
	Long: `The validate command parses the given suite file or directory and
reports malformed YAML, unsupported HTTP methods, out-of-range expected
status codes and other definition problems. No requests are sent.

Example usage:
  apiprobe validate suites/
  apiprobe validate smoke.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := suite.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d step(s) in %d file(s)\n",
			suite.CountSteps(docs), len(docs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
