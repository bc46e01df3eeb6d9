package models

import (
	"strings"

	"github.com/google/uuid"
)

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "Not Started"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusFailed     TaskStatus = "Failed"
)

// IsTerminal reports whether the status is final for a run.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next keeps the lifecycle
// monotonic: not started -> in progress -> completed | failed.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case StatusNotStarted:
		return next == StatusInProgress || next.IsTerminal()
	case StatusInProgress:
		return next.IsTerminal()
	default:
		return false
	}
}

// Complexity is the effort tier declared for a task.
type Complexity string

const (
	ComplexitySimple  Complexity = "Simple"
	ComplexityMedium  Complexity = "Medium"
	ComplexityComplex Complexity = "Complex"
)

// ParseComplexity matches a manifest value case-insensitively. Unknown
// values report false.
func ParseComplexity(s string) (Complexity, bool) {
	for _, c := range []Complexity{ComplexitySimple, ComplexityMedium, ComplexityComplex} {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// QualityLevel is the quality tier a task must be delivered at.
type QualityLevel string

const (
	QualityStandard QualityLevel = "Standard"
	QualityHigh     QualityLevel = "High"
	QualityCritical QualityLevel = "Critical"
)

// ParseQualityLevel matches a manifest value case-insensitively. Unknown
// values report false.
func ParseQualityLevel(s string) (QualityLevel, bool) {
	for _, q := range []QualityLevel{QualityStandard, QualityHigh, QualityCritical} {
		if strings.EqualFold(strings.TrimSpace(s), string(q)) {
			return q, true
		}
	}
	return "", false
}

// Task is one unit of work read from a manifest block. Everything but
// Status is fixed once the parser has built it.
type Task struct {
	ID                        string       `yaml:"id" json:"id"`
	Title                     string       `yaml:"title" json:"title"`
	Goal                      string       `yaml:"goal" json:"goal"`
	AcceptanceCriteria        []string     `yaml:"acceptance_criteria" json:"acceptanceCriteria"`
	Complexity                Complexity   `yaml:"complexity" json:"complexity"`
	QualityLevel              QualityLevel `yaml:"quality_level" json:"qualityLevel"`
	SkillsNeeded              []string     `yaml:"skills_needed" json:"skillsNeeded"`
	Resources                 []string     `yaml:"resources" json:"resources"`
	TestingRequirements       string       `yaml:"testing_requirements" json:"testingRequirements"`
	DocumentationRequirements string       `yaml:"documentation_requirements" json:"documentationRequirements"`
	SuccessIndicators         []string     `yaml:"success_indicators" json:"successIndicators"`
	Status                    TaskStatus   `yaml:"status" json:"status"`
}

// NewTaskID returns a fresh process-unique task identifier.
func NewTaskID() string {
	return uuid.NewString()
}

// IsCompleted reports whether the task has already been completed.
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}
