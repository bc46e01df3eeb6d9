package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/valter-silva-au/maestro/internal/core"
	"github.com/valter-silva-au/maestro/pkg/models"
)

// Messages sent from the scheduler's observer into the program.
type (
	runStartedMsg struct {
		runID     string
		outputDir string
		total     int
	}
	taskStartedMsg struct {
		title   string
		handler string
	}
	taskFinishedMsg struct {
		result models.TaskResult
	}
	runDoneMsg struct {
		summary *models.ExecutionSummary
		err     error
	}
)

// tuiObserver forwards scheduler callbacks to a bubbletea program.
type tuiObserver struct {
	send func(tea.Msg)
}

func (o *tuiObserver) RunStarted(runID, outputDir string, total int) {
	o.send(runStartedMsg{runID: runID, outputDir: outputDir, total: total})
}

func (o *tuiObserver) TaskStarted(task models.Task, handler string) {
	o.send(taskStartedMsg{title: task.Title, handler: handler})
}

func (o *tuiObserver) TaskFinished(_ models.Task, result models.TaskResult) {
	o.send(taskFinishedMsg{result: result})
}

func (o *tuiObserver) RunFinished(models.ExecutionSummary) {}

var _ core.RunObserver = (*tuiObserver)(nil)

type activeTask struct {
	title   string
	handler string
}

type runModel struct {
	manifest  string
	runID     string
	outputDir string
	total     int

	active   []activeTask
	finished []models.TaskResult

	spinner  spinner.Model
	progress progress.Model
	width    int

	summary  *models.ExecutionSummary
	err      error
	quitting bool
}

func newRunModel(manifest string) runModel {
	return runModel{
		manifest: manifest,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusInProgress)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m runModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 10; w > 10 && w < 80 {
			m.progress.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runStartedMsg:
		m.runID = msg.runID
		m.outputDir = msg.outputDir
		m.total = msg.total
		return m, nil

	case taskStartedMsg:
		m.active = append(m.active, activeTask{title: msg.title, handler: msg.handler})
		return m, nil

	case taskFinishedMsg:
		m.finished = append(m.finished, msg.result)
		for i, a := range m.active {
			if a.title == msg.result.TaskTitle {
				m.active = append(m.active[:i], m.active[i+1:]...)
				break
			}
		}
		return m, nil

	case runDoneMsg:
		m.summary = msg.summary
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m runModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(len(m.finished)) / float64(m.total)
}

func (m runModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" Maestro "))
	b.WriteString(" " + helpStyle.Render(m.manifest))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(statusFailed.Render("  Error: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("  " + m.progress.ViewAs(m.percent()))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", len(m.finished), m.total))

	for _, r := range m.finished {
		line := fmt.Sprintf("  %s %s", statusMark(r.Status), r.TaskTitle)
		b.WriteString(styleForStatus(r.Status).Render(line))
		if r.Handler != "" {
			b.WriteString(helpStyle.Render(" (" + r.Handler + ")"))
		}
		b.WriteString("\n")
	}
	for _, a := range m.active {
		b.WriteString(fmt.Sprintf("  %s %s", m.spinner.View(), a.title))
		if a.handler != "" {
			b.WriteString(helpStyle.Render(" (" + a.handler + ")"))
		}
		b.WriteString("\n")
	}

	if m.summary == nil && !m.quitting {
		b.WriteString("\n" + helpStyle.Render("q: stop and quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// runWithTUI runs the manifest while rendering progress with bubbletea. The
// summary is printed after the program exits.
func runWithTUI(ctx context.Context, out io.Writer, path string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newRunModel(path), tea.WithOutput(out), tea.WithContext(ctx))
	sched := NewScheduler(&tuiObserver{send: program.Send})
	if _, err := sched.LoadManifest(path); err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	done := make(chan runDoneMsg, 1)
	go func() {
		summary, err := sched.Run(ctx)
		msg := runDoneMsg{summary: summary, err: err}
		done <- msg
		program.Send(msg)
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return fmt.Errorf("running progress view: %w", err)
	}
	// A quit key cancels the remaining tasks; wait for the run to wind down.
	cancel()
	result := <-done
	if result.err != nil {
		return fmt.Errorf("running manifest: %w", result.err)
	}
	return reportSummary(out, result.summary)
}
