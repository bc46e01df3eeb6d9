package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/maestro/internal/core"
	"github.com/valter-silva-au/maestro/pkg/models"
)

var (
	runTUI  bool
	runJSON bool

	// demoOutputDir is where the demonstration result file is saved.
	demoOutputDir = "."
)

var runCmd = &cobra.Command{
	Use:   "run [manifest]",
	Short: "Execute the pending tasks of a manifest",
	Long: `Execute every task of a markdown manifest that is not yet completed.

Each task is assigned to the specialist with the best skill match and all tasks
run concurrently. Results, progress snapshots and the execution report are
written to a new directory under the reports directory, and the manifest is
rewritten in place with each task's final status.

Without a manifest, a single built-in demonstration task is executed and its
content is saved to test-result-<unix>.txt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if NewScheduler == nil {
			return fmt.Errorf("scheduler not initialized")
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			return runDemo(ctx, out)
		}
		return runManifest(ctx, out, args[0])
	},
}

func runManifest(ctx context.Context, out io.Writer, path string) error {
	if runTUI {
		return runWithTUI(ctx, out, path)
	}

	sched := NewScheduler()
	pending, err := sched.LoadManifest(path)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	if !runJSON {
		fmt.Fprintf(out, "Running %d pending task(s) from %s\n", pending, path)
		for _, t := range sched.Queue() {
			fmt.Fprintf(out, "  - %s\n", t.Title)
		}
		fmt.Fprintln(out)
	}

	summary, err := sched.Run(ctx)
	if err != nil {
		return fmt.Errorf("running manifest: %w", err)
	}
	return reportSummary(out, summary)
}

func reportSummary(out io.Writer, summary *models.ExecutionSummary) error {
	if runJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting summary as JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	printSummary(out, summary, core.FindReport(summary.OutputDir))
	return nil
}

func runDemo(ctx context.Context, out io.Writer) error {
	task := core.DemoTask()
	fmt.Fprintf(out, "No manifest given, running demonstration task: %s\n\n", task.Title)

	result, outputDir, err := NewScheduler().ExecuteTask(ctx, task)
	if err != nil {
		return fmt.Errorf("running demonstration task: %w", err)
	}

	path := filepath.Join(demoOutputDir, fmt.Sprintf("test-result-%d.txt", time.Now().Unix()))
	if err := os.WriteFile(path, []byte(result.Content), 0o644); err != nil {
		return fmt.Errorf("saving demonstration result: %w", err)
	}

	fmt.Fprintln(out, titleStyle.Render(" Demonstration Complete "))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-12s %s\n", "Handler:", result.Handler)
	fmt.Fprintf(out, "  %-12s %s\n", "Status:", styleForStatus(result.Status).Render(string(result.Status)))
	fmt.Fprintf(out, "  %-12s %s\n", "Output:", outputDir)
	fmt.Fprintf(out, "  %-12s %s\n", "Saved to:", path)
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live progress view while tasks run")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the execution summary as JSON")
	rootCmd.AddCommand(runCmd)
}
