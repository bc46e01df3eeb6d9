package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/maestro/internal/core"
	"github.com/valter-silva-au/maestro/internal/observability"
	"github.com/valter-silva-au/maestro/internal/storage"
	"github.com/valter-silva-au/maestro/pkg/models"
)

// stubHandler completes every task with fixed content.
type stubHandler struct {
	role   string
	skills []string
	fail   bool
}

func (h *stubHandler) Role() string     { return h.role }
func (h *stubHandler) Skills() []string { return h.skills }
func (h *stubHandler) QualityStandards() map[models.QualityLevel]string {
	return map[models.QualityLevel]string{models.QualityStandard: "good enough"}
}

func (h *stubHandler) Execute(_ context.Context, task models.Task, _ string) (*models.TaskResult, error) {
	if h.fail {
		return models.NewTaskResult(task, models.StatusFailed, ""), nil
	}
	res := models.NewTaskResult(task, models.StatusCompleted, "content for "+task.Title)
	res.Handler = h.role
	return res, nil
}

func testRegistry(t *testing.T) *core.HandlerRegistry {
	t.Helper()
	reg, err := core.NewHandlerRegistry(
		&stubHandler{role: "Swift Developer", skills: []string{"swift", "ios"}},
		&stubHandler{role: "Market Research Specialist", skills: []string{"market research", "competitive analysis"}},
	)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

// withScheduler points the CLI at a scheduler over reg writing into a
// temporary reports directory, and restores the package vars afterwards.
func withScheduler(t *testing.T, reg *core.HandlerRegistry) string {
	t.Helper()
	reportsDir := filepath.Join(t.TempDir(), "reports")

	origRegistry, origNewScheduler := Registry, NewScheduler
	t.Cleanup(func() {
		Registry, NewScheduler = origRegistry, origNewScheduler
	})

	Registry = reg
	NewScheduler = func(extra ...core.RunObserver) *core.Scheduler {
		return core.NewScheduler(core.SchedulerConfig{
			Registry:   reg,
			ReportsDir: reportsDir,
			Observers:  extra,
		})
	}
	return reportsDir
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

const testManifest = `# Sprint

### Task 1: Build login screen
- **Goal**: Ship the login view
- **Skills Needed**: swift, ios
- Status: Not Started

✓ ### Task 2: Already done
- **Goal**: Nothing left
- **Skills Needed**: swift
- Status: Completed

### Task 3: Audit contracts
- **Goal**: Review the token contract
- **Skills Needed**: solidity
- Status: Not Started

### Task 4: Missing goal
- **Skills Needed**: swift
`

type fakeMetrics struct {
	metrics *observability.Metrics
	err     error
	since   time.Time
}

func (f *fakeMetrics) Calculate(since time.Time) (*observability.Metrics, error) {
	f.since = since
	return f.metrics, f.err
}

type fakeAlerts struct {
	alerts  []observability.Alert
	err     error
	lastRun string
}

func (f *fakeAlerts) Evaluate(runID string) ([]observability.Alert, error) {
	f.lastRun = runID
	return f.alerts, f.err
}

// seedHistory points RunHistory at a temporary index holding entries.
func seedHistory(t *testing.T, entries ...storage.RunEntry) {
	t.Helper()
	orig := RunHistory
	t.Cleanup(func() { RunHistory = orig })

	h := storage.NewRunHistoryManager(t.TempDir())
	for _, e := range entries {
		if err := h.AddRun(e); err != nil {
			t.Fatalf("adding run: %v", err)
		}
	}
	if err := h.Save(); err != nil {
		t.Fatalf("saving history: %v", err)
	}
	RunHistory = h
}
