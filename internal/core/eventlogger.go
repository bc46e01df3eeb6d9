package core

import "github.com/valter-silva-au/maestro/pkg/models"

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by the scheduler.
const (
	EventRunStarted          = "run.started"
	EventRunCompleted        = "run.completed"
	EventRunFailed           = "run.failed"
	EventManifestLoaded      = "manifest.loaded"
	EventManifestBlockDrop   = "manifest.block_dropped"
	EventManifestUpdateError = "manifest.update_failed"
	EventTaskAssigned        = "task.assigned"
	EventTaskUnassigned      = "task.unassigned"
	EventTaskCompleted       = "task.completed"
	EventTaskFailed          = "task.failed"
	EventProgressWriteError  = "progress.write_failed"
	EventReportWritten       = "report.written"
	EventReportWriteError    = "report.write_failed"
)

// RunObserver receives scheduler lifecycle callbacks. All calls for one run
// are made from the scheduler's coordinator goroutine, one at a time.
type RunObserver interface {
	RunStarted(runID, outputDir string, total int)
	TaskStarted(task models.Task, handler string)
	TaskFinished(task models.Task, result models.TaskResult)
	RunFinished(summary models.ExecutionSummary)
}
