package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/maestro/internal/storage"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts [run-id]",
	Short: "Show alerts for a run",
	Long: `Evaluate alert conditions against the event log for one run and display
any triggered alerts. Without a run id the most recent run is evaluated.

Alerts check for a run that failed to start, failed tasks, tasks with no
suitable handler, manifest update failures and slow runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}

		var runID string
		if len(args) == 1 {
			runID = args[0]
		} else {
			latest, err := latestRunID()
			if err != nil {
				return err
			}
			runID = latest
		}

		alerts, err := AlertEngine.Evaluate(runID)
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintf(out, "No alerts for run %s.\n", runID)
			return nil
		}

		fmt.Fprintf(out, "%d alert(s) for run %s:\n\n", len(alerts), runID)
		for _, alert := range alerts {
			severity := styleForSeverity(string(alert.Severity)).Render("[" + strings.ToUpper(string(alert.Severity)) + "]")
			fmt.Fprintf(out, "  %s %s\n", severity, alert.Message)
			fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		return nil
	},
}

// latestRunID returns the id of the most recent run in the history.
func latestRunID() (string, error) {
	if RunHistory == nil {
		return "", fmt.Errorf("run history not initialized; pass a run id")
	}
	if err := RunHistory.Load(); err != nil {
		return "", err
	}
	runs, err := RunHistory.ListRuns(storage.RunFilter{Limit: 1})
	if err != nil {
		return "", fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded yet")
	}
	return runs[0].ID, nil
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}
