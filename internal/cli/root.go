package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "maestro [manifest]",
	Short: "Maestro - concurrent task orchestrator for specialist agents",
	Long: `Maestro reads work items from a markdown task manifest, assigns each one
to the specialist whose skills fit best, and runs them concurrently against an
LLM backend.

Results are written into a per-run directory under the reports directory:
generated files, progress snapshots and a final execution report. The manifest
itself is rewritten in place so completed tasks are skipped next time.

Running maestro with a manifest path is the same as "maestro run <manifest>";
without arguments it runs the built-in demonstration task.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "maestro %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	// Set here rather than in the literal to avoid an initialization cycle
	// through runCmd.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	}
	rootCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live progress view while tasks run")
	rootCmd.Flags().BoolVar(&runJSON, "json", false, "Print the execution summary as JSON")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
