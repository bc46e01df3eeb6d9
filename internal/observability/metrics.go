package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	RunsStarted            int            `json:"runs_started"`
	RunsCompleted          int            `json:"runs_completed"`
	RunsFailed             int            `json:"runs_failed"`
	TasksAssigned          int            `json:"tasks_assigned"`
	TasksCompleted         int            `json:"tasks_completed"`
	TasksFailed            int            `json:"tasks_failed"`
	TasksUnassigned        int            `json:"tasks_unassigned"`
	TasksByHandler         map[string]int `json:"tasks_by_handler"`
	ManifestUpdateFailures int            `json:"manifest_update_failures"`
	ProgressWriteFailures  int            `json:"progress_write_failures"`
	AverageRunDurationMs   int64          `json:"average_run_duration_ms"`
	EventCount             int            `json:"event_count"`
	OldestEvent            *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent            *time.Time     `json:"newest_event,omitempty"`
}

// SuccessRate returns completed tasks as a percentage of resolved tasks.
func (m *Metrics) SuccessRate() float64 {
	resolved := m.TasksCompleted + m.TasksFailed
	if resolved == 0 {
		return 0
	}
	return float64(m.TasksCompleted) * 100 / float64(resolved)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{TasksByHandler: make(map[string]int)}
	var totalDurationMs, timedRuns int64
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "run.started":
			m.RunsStarted++
		case "run.completed":
			m.RunsCompleted++
			if d, ok := numberField(event.Data, "duration_ms"); ok {
				totalDurationMs += int64(d)
				timedRuns++
			}
		case "run.failed":
			m.RunsFailed++
		case "task.assigned":
			m.TasksAssigned++
		case "task.completed":
			m.TasksCompleted++
			if h, ok := event.Data["handler"].(string); ok && h != "" {
				m.TasksByHandler[h]++
			}
		case "task.failed":
			m.TasksFailed++
		case "task.unassigned":
			m.TasksUnassigned++
		case "manifest.update_failed":
			m.ManifestUpdateFailures++
		case "progress.write_failed":
			m.ProgressWriteFailures++
		}
	}

	if timedRuns > 0 {
		m.AverageRunDurationMs = totalDurationMs / timedRuns
	}
	return m, nil
}

// numberField reads a numeric value decoded from JSON.
func numberField(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
