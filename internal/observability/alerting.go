package observability

import (
	"fmt"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	// FailureRatePercent raises a high alert when a run's failed share of
	// tasks reaches it.
	FailureRatePercent int `yaml:"failure_rate_percent" json:"failure_rate_percent"`
	// SlowRunMinutes raises a low alert for runs that took longer.
	SlowRunMinutes int `yaml:"slow_run_minutes" json:"slow_run_minutes"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		FailureRatePercent: 50,
		SlowRunMinutes:     30,
	}
}

// AlertEngine evaluates alert conditions for a run against the event log.
type AlertEngine interface {
	Evaluate(runID string) ([]Alert, error)
}

// alertEngine implements AlertEngine by reading events and checking thresholds.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate reads the events of one run and returns the triggered alerts.
func (ae *alertEngine) Evaluate(runID string) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{RunID: runID})
	if err != nil {
		return nil, fmt.Errorf("reading events for run %s: %w", runID, err)
	}
	now := ae.now()

	var (
		completed, failed, unassigned int
		manifestFailures              int
		durationMs                    float64
		runFailed                     string
	)
	for _, event := range events {
		switch event.Type {
		case "task.completed":
			completed++
		case "task.failed":
			failed++
		case "task.unassigned":
			unassigned++
		case "manifest.update_failed":
			manifestFailures++
		case "run.completed":
			durationMs, _ = numberField(event.Data, "duration_ms")
		case "run.failed":
			runFailed, _ = event.Data["error"].(string)
		}
	}

	var alerts []Alert
	add := func(condition string, severity AlertSeverity, msg string) {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("%s-%s", condition, runID),
			Condition:   condition,
			Severity:    severity,
			Message:     msg,
			TriggeredAt: now,
		})
	}

	if runFailed != "" {
		add("run_failed", SeverityHigh, fmt.Sprintf("run %s failed before executing tasks: %s", runID, runFailed))
	}
	if total := completed + failed; failed > 0 && total > 0 {
		rate := failed * 100 / total
		severity := SeverityMedium
		if rate >= ae.thresholds.FailureRatePercent {
			severity = SeverityHigh
		}
		add("task_failures", severity, fmt.Sprintf("%d of %d tasks failed (%d%%)", failed, total, rate))
	}
	if unassigned > 0 {
		add("tasks_unassigned", SeverityMedium, fmt.Sprintf("%d tasks had no suitable handler", unassigned))
	}
	if manifestFailures > 0 {
		add("manifest_update_failed", SeverityMedium, fmt.Sprintf("%d manifest status updates failed", manifestFailures))
	}
	if ae.thresholds.SlowRunMinutes > 0 {
		limit := time.Duration(ae.thresholds.SlowRunMinutes) * time.Minute
		if d := time.Duration(durationMs) * time.Millisecond; d > limit {
			add("run_slow", SeverityLow, fmt.Sprintf("run took %s, longer than %d minutes", d.Round(time.Second), ae.thresholds.SlowRunMinutes))
		}
	}
	return alerts, nil
}
