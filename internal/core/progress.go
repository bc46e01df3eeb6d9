package core

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// ProgressWriter writes progress snapshots into a run directory. Every call
// creates a new file; nothing is overwritten.
type ProgressWriter struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seq int
}

// NewProgressWriter creates a ProgressWriter rooted at the run directory.
func NewProgressWriter(dir string, now func() time.Time) *ProgressWriter {
	if now == nil {
		now = time.Now
	}
	return &ProgressWriter{dir: dir, now: now}
}

// Write serializes the snapshot as indented JSON and returns the file path.
func (w *ProgressWriter) Write(progress models.ExecutionProgress) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	at := w.now()
	w.seq++
	progress.WrittenAt = at

	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding progress snapshot: %w", err)
	}

	name := fmt.Sprintf("execution-progress-%d-%03d.json", at.Unix(), w.seq)
	path := filepath.Join(w.dir, name)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing progress snapshot: %w", err)
	}
	return path, nil
}
