package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/maestro/internal/storage"
)

// Dashboard panel indices.
const (
	panelRuns = iota
	panelMetrics
	panelAlerts
	panelCount
)

// dashboardRuns is the number of recent runs shown.
const dashboardRuns = 8

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	runs        []runSnapshot
	metricsData *metricsSnapshot
	alertsRun   string
	alerts      []alertSnapshot

	// State.
	loading bool
	err     error
}

type runSnapshot struct {
	id        string
	startedAt string
	total     int
	failed    int
}

type metricsSnapshot struct {
	runsCompleted  int
	tasksCompleted int
	tasksFailed    int
	unassigned     int
	successRate    float64
	avgRun         time.Duration
	eventCount     int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	runs      []runSnapshot
	metrics   *metricsSnapshot
	alertsRun string
	alerts    []alertSnapshot
	err       error
}

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelRuns,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runs = msg.runs
		m.metricsData = msg.metrics
		m.alertsRun = msg.alertsRun
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Maestro Dashboard ")
	help := helpStyle.Render("tab/shift+tab: panels · r: reload · q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	runsPanel := m.renderRunsPanel()
	metricsPanel := m.renderMetricsPanel()
	alertsPanel := m.renderAlertsPanel()

	// Side by side only when each column stays readable.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, runsPanel, metricsPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, runsPanel, metricsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderRunsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent Runs"))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString("  No runs recorded.")
		return b.String()
	}

	for _, r := range m.runs {
		style := statusDone
		if r.failed > 0 {
			style = statusFailed
		}
		label := fmt.Sprintf("  %s  %d/%d ok", r.startedAt, r.total-r.failed, r.total)
		b.WriteString(style.Render(label))
		b.WriteString("\n")
	}

	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No events in the last 7 days.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value string
	}{
		{"Events", fmt.Sprintf("%d", md.eventCount)},
		{"Runs", fmt.Sprintf("%d", md.runsCompleted)},
		{"Completed", fmt.Sprintf("%d", md.tasksCompleted)},
		{"Failed", fmt.Sprintf("%d", md.tasksFailed)},
		{"Unassigned", fmt.Sprintf("%d", md.unassigned)},
		{"Success", fmt.Sprintf("%.1f%%", md.successRate)},
		{"Avg run", md.avgRun.Round(time.Second).String()},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %s\n", l.label, l.value))
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts (latest run)"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No alerts for this run.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func loadData() tea.Msg {
	var result dataLoadedMsg

	if RunHistory != nil {
		if err := RunHistory.Load(); err != nil {
			result.err = fmt.Errorf("loading run history: %w", err)
			return result
		}
		runs, err := RunHistory.ListRuns(storage.RunFilter{Limit: dashboardRuns})
		if err != nil {
			result.err = fmt.Errorf("listing runs: %w", err)
			return result
		}
		for _, r := range runs {
			result.runs = append(result.runs, runSnapshot{
				id:        r.ID,
				startedAt: r.StartedAt.Local().Format("01-02 15:04"),
				total:     r.TotalTasks,
				failed:    r.FailureCount,
			})
		}
		if len(runs) > 0 {
			result.alertsRun = runs[0].ID
		}
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			runsCompleted:  metrics.RunsCompleted,
			tasksCompleted: metrics.TasksCompleted,
			tasksFailed:    metrics.TasksFailed,
			unassigned:     metrics.TasksUnassigned,
			successRate:    metrics.SuccessRate(),
			avgRun:         time.Duration(metrics.AverageRunDurationMs) * time.Millisecond,
			eventCount:     metrics.EventCount,
		}
	}

	if AlertEngine != nil && result.alertsRun != "" {
		alerts, err := AlertEngine.Evaluate(result.alertsRun)
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// Most severe first.
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for runs, metrics and alerts",
	Long: `Launch an interactive terminal dashboard showing recent runs, metrics
for the last seven days, and the alerts of the latest run.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
