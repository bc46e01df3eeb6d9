package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display run and task metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include run counts and average duration, task assignment and
completion counts, the success rate, tasks completed per handler, and manifest
or progress write failures.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		// Table format.
		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Runs started:", metrics.RunsStarted)
		fmt.Fprintf(out, "  %-24s %d\n", "Runs completed:", metrics.RunsCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Runs failed:", metrics.RunsFailed)
		fmt.Fprintf(out, "  %-24s %s\n", "Average run duration:", (time.Duration(metrics.AverageRunDurationMs) * time.Millisecond).Round(time.Millisecond))
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks assigned:", metrics.TasksAssigned)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", metrics.TasksCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks failed:", metrics.TasksFailed)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks unassigned:", metrics.TasksUnassigned)
		fmt.Fprintf(out, "  %-24s %.1f%%\n", "Success rate:", metrics.SuccessRate())

		if metrics.ManifestUpdateFailures > 0 || metrics.ProgressWriteFailures > 0 {
			fmt.Fprintf(out, "  %-24s %d\n", "Manifest update failures:", metrics.ManifestUpdateFailures)
			fmt.Fprintf(out, "  %-24s %d\n", "Progress write failures:", metrics.ProgressWriteFailures)
		}

		if len(metrics.TasksByHandler) > 0 {
			fmt.Fprintln(out, "\n  Completed by handler:")
			handlers := make([]string, 0, len(metrics.TasksByHandler))
			for h := range metrics.TasksByHandler {
				handlers = append(handlers, h)
			}
			sort.Strings(handlers)
			for _, h := range handlers {
				fmt.Fprintf(out, "    %-32s %d\n", h+":", metrics.TasksByHandler[h])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
