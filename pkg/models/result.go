package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskResult is the outcome of executing one task. CompletedAt is set when
// the result is created and is never changed afterwards.
type TaskResult struct {
	ID             string     `yaml:"id" json:"id"`
	TaskID         string     `yaml:"task_id" json:"taskId"`
	TaskTitle      string     `yaml:"task_title" json:"taskTitle"`
	Handler        string     `yaml:"handler,omitempty" json:"handler,omitempty"`
	Content        string     `yaml:"content" json:"content"`
	Status         TaskStatus `yaml:"status" json:"status"`
	Notes          string     `yaml:"notes,omitempty" json:"notes,omitempty"`
	GeneratedFiles []string   `yaml:"generated_files,omitempty" json:"generatedFiles,omitempty"`
	PullRequestURL string     `yaml:"pull_request_url,omitempty" json:"pullRequestURL,omitempty"`
	CompletedAt    time.Time  `yaml:"completed_at" json:"completedAt"`
	QualityScore   *float64   `yaml:"quality_score,omitempty" json:"qualityScore,omitempty"`
}

// NewTaskResult creates a result for the given task stamped with the
// current time.
func NewTaskResult(task Task, status TaskStatus, content string) *TaskResult {
	return &TaskResult{
		ID:          uuid.NewString(),
		TaskID:      task.ID,
		TaskTitle:   task.Title,
		Content:     content,
		Status:      status,
		CompletedAt: time.Now(),
	}
}

// Succeeded reports whether the result counts toward the success total.
func (r *TaskResult) Succeeded() bool {
	return r.Status == StatusCompleted
}

// ExecutionSummary aggregates a finished run. It is built once at the end of
// the run and not modified afterwards.
type ExecutionSummary struct {
	RunID        string        `yaml:"run_id" json:"runId"`
	OutputDir    string        `yaml:"output_dir" json:"outputDir"`
	Manifest     string        `yaml:"manifest,omitempty" json:"manifest,omitempty"`
	StartedAt    time.Time     `yaml:"started_at" json:"startedAt"`
	TotalTasks   int           `yaml:"total_tasks" json:"totalTasks"`
	SuccessCount int           `yaml:"success_count" json:"successCount"`
	FailureCount int           `yaml:"failure_count" json:"failureCount"`
	Duration     time.Duration `yaml:"duration" json:"duration"`
	Results      []TaskResult  `yaml:"results" json:"results"`
}

// SuccessRate returns the share of successful tasks as a whole percentage.
func (s *ExecutionSummary) SuccessRate() int {
	if s.TotalTasks == 0 {
		return 0
	}
	return s.SuccessCount * 100 / s.TotalTasks
}

// AverageTaskTime returns the run duration divided evenly across tasks.
func (s *ExecutionSummary) AverageTaskTime() time.Duration {
	if s.TotalTasks == 0 {
		return 0
	}
	return s.Duration / time.Duration(s.TotalTasks)
}

// ExecutionProgress is a point-in-time snapshot written while a run is in
// flight.
type ExecutionProgress struct {
	RunID          string       `json:"runId"`
	WrittenAt      time.Time    `json:"writtenAt"`
	CompletedTasks []TaskResult `json:"completedTasks"`
	ActiveTasks    []Task       `json:"activeTasks"`
	RemainingTasks int          `json:"remainingTasks"`
}
