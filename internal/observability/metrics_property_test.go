package observability

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var metricEventTypes = []string{
	"run.started", "run.completed", "run.failed",
	"task.assigned", "task.completed", "task.failed", "task.unassigned",
	"manifest.update_failed", "progress.write_failed", "report.written",
}

// =============================================================================
// Property: counters match the events written
// =============================================================================

// For any sequence of events, every counter equals the number of events of
// its type, and per-handler completions sum to TasksCompleted.
func TestProperty_MetricsCountersMatchEvents(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		el, err := NewJSONLEventLog(filepath.Join(dir, "events.jsonl"))
		if err != nil {
			t.Fatalf("creating event log: %v", err)
		}
		defer el.Close()

		numEvents := rapid.IntRange(0, 40).Draw(rt, "numEvents")
		baseTime := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
		counts := map[string]int{}
		handlers := map[string]int{}

		for i := 0; i < numEvents; i++ {
			eventType := rapid.SampledFrom(metricEventTypes).Draw(rt, fmt.Sprintf("type_%d", i))
			data := map[string]any{"run_id": "run"}
			if eventType == "task.completed" {
				h := rapid.SampledFrom([]string{"Swift Developer", "QA Review Specialist"}).Draw(rt, fmt.Sprintf("handler_%d", i))
				data["handler"] = h
				handlers[h]++
			}
			if eventType == "run.completed" {
				data["duration_ms"] = rapid.IntRange(0, 100000).Draw(rt, fmt.Sprintf("duration_%d", i))
			}
			counts[eventType]++
			if err := el.Write(Event{Time: baseTime.Add(time.Duration(i) * time.Minute), Level: LevelForEvent(eventType), Type: eventType, Data: data}); err != nil {
				t.Fatalf("writing event: %v", err)
			}
		}

		metrics, err := NewMetricsCalculator(el).Calculate(baseTime.Add(-time.Hour))
		if err != nil {
			t.Fatalf("calculating metrics: %v", err)
		}

		checks := map[string]int{
			"run.started":            metrics.RunsStarted,
			"run.completed":          metrics.RunsCompleted,
			"run.failed":             metrics.RunsFailed,
			"task.assigned":          metrics.TasksAssigned,
			"task.completed":         metrics.TasksCompleted,
			"task.failed":            metrics.TasksFailed,
			"task.unassigned":        metrics.TasksUnassigned,
			"manifest.update_failed": metrics.ManifestUpdateFailures,
			"progress.write_failed":  metrics.ProgressWriteFailures,
		}
		for eventType, got := range checks {
			if got != counts[eventType] {
				rt.Errorf("%s count = %d, want %d", eventType, got, counts[eventType])
			}
		}
		if metrics.EventCount != numEvents {
			rt.Errorf("EventCount = %d, want %d", metrics.EventCount, numEvents)
		}
		sum := 0
		for h, n := range metrics.TasksByHandler {
			if n != handlers[h] {
				rt.Errorf("TasksByHandler[%s] = %d, want %d", h, n, handlers[h])
			}
			sum += n
		}
		if sum != metrics.TasksCompleted {
			rt.Errorf("handler completions sum to %d, want %d", sum, metrics.TasksCompleted)
		}
	})
}

// =============================================================================
// Property: success rate is a bounded percentage
// =============================================================================

func TestProperty_SuccessRateBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := Metrics{
			TasksCompleted: rapid.IntRange(0, 1000).Draw(rt, "completed"),
			TasksFailed:    rapid.IntRange(0, 1000).Draw(rt, "failed"),
		}
		rate := m.SuccessRate()
		if rate < 0 || rate > 100 {
			rt.Fatalf("SuccessRate() = %f out of range", rate)
		}
		if m.TasksFailed == 0 && m.TasksCompleted > 0 && rate != 100 {
			rt.Fatalf("SuccessRate() = %f with no failures, want 100", rate)
		}
		if m.TasksCompleted == 0 && rate != 0 {
			rt.Fatalf("SuccessRate() = %f with no completions, want 0", rate)
		}
	})
}
