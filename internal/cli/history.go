package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/maestro/internal/storage"
)

var (
	historyLimit  int
	historyFailed bool
	historySince  string
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous runs",
	Long: `List previous runs recorded in the run history index (runs.yaml in the
reports directory), most recent first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if RunHistory == nil {
			return fmt.Errorf("run history not initialized")
		}
		if err := RunHistory.Load(); err != nil {
			return err
		}

		filter := storage.RunFilter{Limit: historyLimit, FailedOnly: historyFailed}
		if historySince != "" {
			since, err := parseSinceDuration(historySince)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			filter.Since = since
		}

		runs, err := RunHistory.ListRuns(filter)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			data, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting runs as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-16s  %5s  %4s  %6s  %9s\n", "RUN", "STARTED", "TASKS", "OK", "FAILED", "DURATION")
		for _, r := range runs {
			failed := fmt.Sprintf("%6d", r.FailureCount)
			if r.FailureCount > 0 {
				failed = statusFailed.Render(failed)
			}
			fmt.Fprintf(out, "%-36s  %-16s  %5d  %4d  %s  %9s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.TotalTasks,
				r.SuccessCount,
				failed,
				(time.Duration(r.DurationMs) * time.Millisecond).Round(time.Second),
			)
			if r.Manifest != "" {
				fmt.Fprintf(out, "  %s\n", helpStyle.Render(r.Manifest))
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "Only show runs with failed tasks")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only show runs started within this window (e.g. 7d, 24h)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output runs as JSON")
	rootCmd.AddCommand(historyCmd)
}
