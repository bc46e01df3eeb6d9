package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/maestro/pkg/models"
)

func TestProgressWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := NewProgressWriter(dir, func() time.Time { return fixedNow })

	snapshot := models.ExecutionProgress{
		RunID:          "run-1",
		CompletedTasks: []models.TaskResult{{TaskTitle: "A", Status: models.StatusCompleted}},
		ActiveTasks:    []models.Task{{Title: "B"}},
		RemainingTasks: 1,
	}
	path, err := w.Write(snapshot)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	wantName := fmt.Sprintf("execution-progress-%d-001.json", fixedNow.Unix())
	if filepath.Base(path) != wantName {
		t.Errorf("file = %s, want %s", filepath.Base(path), wantName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.ExecutionProgress
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.RemainingTasks != 1 || len(decoded.CompletedTasks) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !decoded.WrittenAt.Equal(fixedNow) {
		t.Errorf("WrittenAt = %v, want %v", decoded.WrittenAt, fixedNow)
	}
}

func TestProgressWriter_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewProgressWriter(dir, func() time.Time { return fixedNow })

	for i := 0; i < 3; i++ {
		if _, err := w.Write(models.ExecutionProgress{RunID: "run"}); err != nil {
			t.Fatal(err)
		}
	}
	files, _ := filepath.Glob(filepath.Join(dir, "execution-progress-*.json"))
	if len(files) != 3 {
		t.Errorf("got %d snapshot files, want 3", len(files))
	}
}

func TestProgressWriter_MissingDir(t *testing.T) {
	w := NewProgressWriter(filepath.Join(t.TempDir(), "gone"), nil)
	if _, err := w.Write(models.ExecutionProgress{}); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
