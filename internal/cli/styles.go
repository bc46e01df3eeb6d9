package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// Style definitions shared by the summary, plan, dashboard and TUI output.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusFailed     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func styleForStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusInProgress:
		return statusInProgress
	case models.StatusCompleted:
		return statusDone
	case models.StatusFailed:
		return statusFailed
	case models.StatusNotStarted:
		return statusPending
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func statusMark(status models.TaskStatus) string {
	switch status {
	case models.StatusCompleted:
		return "✓"
	case models.StatusFailed:
		return "✗"
	case models.StatusInProgress:
		return "↻"
	default:
		return "·"
	}
}

// printSummary writes the end-of-run summary block.
func printSummary(w io.Writer, summary *models.ExecutionSummary, reportPath string) {
	fmt.Fprintln(w, titleStyle.Render(" Maestro Execution Summary "))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-18s %s\n", "Run:", summary.RunID)
	fmt.Fprintf(w, "  %-18s %d\n", "Total tasks:", summary.TotalTasks)
	fmt.Fprintf(w, "  %-18s %s\n", "Successful:", statusDone.Render(fmt.Sprintf("%d", summary.SuccessCount)))
	failed := fmt.Sprintf("%d", summary.FailureCount)
	if summary.FailureCount > 0 {
		failed = statusFailed.Render(failed)
	}
	fmt.Fprintf(w, "  %-18s %s\n", "Failed:", failed)
	fmt.Fprintf(w, "  %-18s %d%%\n", "Success rate:", summary.SuccessRate())
	fmt.Fprintf(w, "  %-18s %s\n", "Duration:", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  %-18s %s\n", "Output:", summary.OutputDir)
	if reportPath != "" {
		fmt.Fprintf(w, "  %-18s %s\n", "Report:", reportPath)
	}

	if len(summary.Results) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, r := range summary.Results {
		line := fmt.Sprintf("  %s %s", statusMark(r.Status), r.TaskTitle)
		if r.Handler != "" {
			line += helpStyle.Render(" (" + r.Handler + ")")
		}
		fmt.Fprintln(w, styleForStatus(r.Status).Render(line))
		if !r.Succeeded() && r.Notes != "" {
			fmt.Fprintf(w, "      %s\n", r.Notes)
		}
		if r.PullRequestURL != "" {
			fmt.Fprintf(w, "      PR: %s\n", r.PullRequestURL)
		}
	}
}
