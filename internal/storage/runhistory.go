package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// RunHistoryFileName is the index file kept in the reports directory.
const RunHistoryFileName = "runs.yaml"

// RunEntry records one finished run in the history index.
type RunEntry struct {
	ID           string    `yaml:"id" json:"id"`
	Manifest     string    `yaml:"manifest,omitempty" json:"manifest,omitempty"`
	OutputDir    string    `yaml:"output_dir" json:"outputDir"`
	StartedAt    time.Time `yaml:"started_at" json:"startedAt"`
	DurationMs   int64     `yaml:"duration_ms" json:"durationMs"`
	TotalTasks   int       `yaml:"total_tasks" json:"totalTasks"`
	SuccessCount int       `yaml:"success_count" json:"successCount"`
	FailureCount int       `yaml:"failure_count" json:"failureCount"`
	Report       string    `yaml:"report,omitempty" json:"report,omitempty"`
}

// RunFilter narrows ListRuns results. Zero values match everything.
type RunFilter struct {
	Since      time.Time
	FailedOnly bool
	Limit      int
}

// RunHistoryFile is the top-level structure of runs.yaml.
type RunHistoryFile struct {
	Version string              `yaml:"version"`
	Runs    map[string]RunEntry `yaml:"runs"`
}

// RunHistoryManager maintains the index of past runs.
type RunHistoryManager interface {
	AddRun(entry RunEntry) error
	GetRun(runID string) (*RunEntry, error)
	ListRuns(filter RunFilter) ([]RunEntry, error)
	Load() error
	Save() error
}

type fileRunHistoryManager struct {
	basePath string

	mu   sync.Mutex
	data RunHistoryFile
}

// NewRunHistoryManager creates a RunHistoryManager backed by runs.yaml in
// the given directory.
func NewRunHistoryManager(basePath string) RunHistoryManager {
	return &fileRunHistoryManager{
		basePath: basePath,
		data: RunHistoryFile{
			Version: "1.0",
			Runs:    make(map[string]RunEntry),
		},
	}
}

// EntryFromSummary converts a run summary into a history entry. report is
// the path of the execution report, if one was written.
func EntryFromSummary(summary models.ExecutionSummary, report string) RunEntry {
	return RunEntry{
		ID:           summary.RunID,
		Manifest:     summary.Manifest,
		Report:       report,
		OutputDir:    summary.OutputDir,
		StartedAt:    summary.StartedAt,
		DurationMs:   summary.Duration.Milliseconds(),
		TotalTasks:   summary.TotalTasks,
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
	}
}

func (m *fileRunHistoryManager) filePath() string {
	return filepath.Join(m.basePath, RunHistoryFileName)
}

func (m *fileRunHistoryManager) AddRun(entry RunEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("adding run: ID must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data.Runs[entry.ID]; exists {
		return fmt.Errorf("adding run: run %s already exists", entry.ID)
	}
	m.data.Runs[entry.ID] = entry
	return nil
}

func (m *fileRunHistoryManager) GetRun(runID string) (*RunEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, exists := m.data.Runs[runID]
	if !exists {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return &entry, nil
}

// ListRuns returns matching runs, most recent first.
func (m *fileRunHistoryManager) ListRuns(filter RunFilter) ([]RunEntry, error) {
	m.mu.Lock()
	entries := make([]RunEntry, 0, len(m.data.Runs))
	for _, entry := range m.data.Runs {
		if !filter.Since.IsZero() && entry.StartedAt.Before(filter.Since) {
			continue
		}
		if filter.FailedOnly && entry.FailureCount == 0 {
			continue
		}
		entries = append(entries, entry)
	}
	m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StartedAt.Equal(entries[j].StartedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (m *fileRunHistoryManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			m.data = RunHistoryFile{
				Version: "1.0",
				Runs:    make(map[string]RunEntry),
			}
			return nil
		}
		return fmt.Errorf("loading run history: %w", err)
	}

	var rf RunHistoryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("loading run history: parsing YAML: %w", err)
	}
	if rf.Runs == nil {
		rf.Runs = make(map[string]RunEntry)
	}
	m.data = rf
	return nil
}

func (m *fileRunHistoryManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(&m.data)
	if err != nil {
		return fmt.Errorf("saving run history: marshalling YAML: %w", err)
	}
	if err := os.MkdirAll(m.basePath, 0o755); err != nil {
		return fmt.Errorf("saving run history: creating directory: %w", err)
	}
	if err := os.WriteFile(m.filePath(), data, 0o644); err != nil {
		return fmt.Errorf("saving run history: writing file: %w", err)
	}
	return nil
}
