package core

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/valter-silva-au/maestro/pkg/models"
)

const sampleManifest = `# Project Tasks

Intro text that is not part of any task.

### Task 1: Build login screen
- **Goal**: Let users sign in
- **Acceptance Criteria**:
  - [ ] Email and password fields
  - [x] Error message on failure
- **Complexity**: Complex
- **Quality Level**: critical
- **Skills Needed**: swift, ios
- **Resources**: Figma, API docs
- **Testing Requirements**: UI tests
- **Documentation Requirements**: README
- **Success Indicators**: Users can log in
- Status: Not Started

✓ ### Task 2: Write docs *(completed: 10/16/26, 3:04 PM)*
- **Goal**: Document the API
- Status: Completed
- Generated Files:
  - /reports/1/Write_docs.md
- Pull Request: [link](https://github.com/acme/app/pull/7)

**Task 3**: Plan roadmap
**Goal:** Produce a roadmap
**Skills Needed:** strategic planning

### Task 4: No goal here
- **Skills Needed**: swift

✗ ### Task 5: Retry me
- **Goal**: Try again
- Status: Failed
`

func TestParseManifest_Fields(t *testing.T) {
	tasks := ParseManifest(sampleManifest)
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}

	login := tasks[0]
	if login.Title != "Build login screen" {
		t.Errorf("Title = %q", login.Title)
	}
	if login.Goal != "Let users sign in" {
		t.Errorf("Goal = %q", login.Goal)
	}
	if want := []string{"Email and password fields", "Error message on failure"}; !reflect.DeepEqual(login.AcceptanceCriteria, want) {
		t.Errorf("AcceptanceCriteria = %v, want %v", login.AcceptanceCriteria, want)
	}
	if login.Complexity != models.ComplexityComplex {
		t.Errorf("Complexity = %q", login.Complexity)
	}
	if login.QualityLevel != models.QualityCritical {
		t.Errorf("QualityLevel = %q", login.QualityLevel)
	}
	if want := []string{"swift", "ios"}; !reflect.DeepEqual(login.SkillsNeeded, want) {
		t.Errorf("SkillsNeeded = %v", login.SkillsNeeded)
	}
	if want := []string{"Figma", "API docs"}; !reflect.DeepEqual(login.Resources, want) {
		t.Errorf("Resources = %v", login.Resources)
	}
	if login.TestingRequirements != "UI tests" || login.DocumentationRequirements != "README" {
		t.Errorf("requirements = %q / %q", login.TestingRequirements, login.DocumentationRequirements)
	}
	if want := []string{"Users can log in"}; !reflect.DeepEqual(login.SuccessIndicators, want) {
		t.Errorf("SuccessIndicators = %v", login.SuccessIndicators)
	}
	if login.Status != models.StatusNotStarted {
		t.Errorf("Status = %q", login.Status)
	}
	if login.ID == "" {
		t.Error("task should get an ID")
	}
}

func TestParseManifest_StatusFromGlyph(t *testing.T) {
	tasks := ParseManifest(sampleManifest)

	docs := tasks[1]
	if docs.Title != "Write docs" {
		t.Errorf("completion annotation should be stripped, Title = %q", docs.Title)
	}
	if docs.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want Completed", docs.Status)
	}
	if want := []string{defaultCriterion}; !reflect.DeepEqual(docs.AcceptanceCriteria, want) {
		t.Errorf("generated file lines must not become criteria: %v", docs.AcceptanceCriteria)
	}

	retry := tasks[3]
	if retry.Title != "Retry me" || retry.Status != models.StatusFailed {
		t.Errorf("task 5 = %q %q", retry.Title, retry.Status)
	}
}

func TestParseManifest_BoldHeaderAndDefaults(t *testing.T) {
	roadmap := ParseManifest(sampleManifest)[2]

	if roadmap.Title != "Plan roadmap" || roadmap.Goal != "Produce a roadmap" {
		t.Errorf("task 3 = %q / %q", roadmap.Title, roadmap.Goal)
	}
	if want := []string{"strategic planning"}; !reflect.DeepEqual(roadmap.SkillsNeeded, want) {
		t.Errorf("SkillsNeeded = %v", roadmap.SkillsNeeded)
	}
	if roadmap.Complexity != models.ComplexityMedium || roadmap.QualityLevel != models.QualityStandard {
		t.Errorf("defaults = %q / %q", roadmap.Complexity, roadmap.QualityLevel)
	}
	if roadmap.TestingRequirements != defaultTesting || roadmap.DocumentationRequirements != defaultDocumentation {
		t.Errorf("requirement defaults = %q / %q", roadmap.TestingRequirements, roadmap.DocumentationRequirements)
	}
	if !reflect.DeepEqual(roadmap.SuccessIndicators, []string{defaultIndicator}) {
		t.Errorf("SuccessIndicators = %v", roadmap.SuccessIndicators)
	}
}

func TestParseManifest_DefaultSkill(t *testing.T) {
	tasks := ParseManifest("### Task 1: Lonely\n- **Goal**: Do a thing\n")
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if !reflect.DeepEqual(tasks[0].SkillsNeeded, []string{defaultSkill}) {
		t.Errorf("SkillsNeeded = %v, want [general]", tasks[0].SkillsNeeded)
	}
}

func TestParseManifest_UnknownValuesKeepDefaults(t *testing.T) {
	tasks := ParseManifest("### Task 1: X\n- **Goal**: Y\n- **Complexity**: Galactic\n- **Quality Level**: Meh\n")
	if tasks[0].Complexity != models.ComplexityMedium || tasks[0].QualityLevel != models.QualityStandard {
		t.Errorf("unknown values should keep defaults, got %q / %q", tasks[0].Complexity, tasks[0].QualityLevel)
	}
}

func TestParseManifest_PlainCriteriaAfterGoal(t *testing.T) {
	tasks := ParseManifest("### Task 1: X\n- Ignored before goal\n- **Goal**: Y\n- First criterion\n- Second criterion\n")
	if want := []string{"First criterion", "Second criterion"}; !reflect.DeepEqual(tasks[0].AcceptanceCriteria, want) {
		t.Errorf("AcceptanceCriteria = %v, want %v", tasks[0].AcceptanceCriteria, want)
	}
}

func TestParseManifest_EmptyAndHeaderless(t *testing.T) {
	if tasks := ParseManifest(""); len(tasks) != 0 {
		t.Errorf("empty manifest produced %d tasks", len(tasks))
	}
	if tasks := ParseManifest("# Notes\n- **Goal**: orphan\n"); len(tasks) != 0 {
		t.Errorf("fields outside a task block produced %d tasks", len(tasks))
	}
}

func TestParseManifest_EmojiGlyphs(t *testing.T) {
	tasks := ParseManifest("✅ ### Task 1: A\n- **Goal**: a\n\n❌ ### Task 2: B\n- **Goal**: b\n\n🔄 ### Task 3: C\n- **Goal**: c\n")
	want := []models.TaskStatus{models.StatusCompleted, models.StatusFailed, models.StatusInProgress}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(tasks))
	}
	for i, w := range want {
		if tasks[i].Status != w {
			t.Errorf("task %d status = %q, want %q", i+1, tasks[i].Status, w)
		}
	}
}

func TestReadManifest_DroppedAndPending(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tasks.md", sampleManifest)

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(m.Path) {
		t.Errorf("Path should be absolute, got %q", m.Path)
	}
	if len(m.Dropped) != 1 || !errors.Is(m.Dropped[0], ErrMissingGoal) {
		t.Errorf("Dropped = %v, want one ErrMissingGoal", m.Dropped)
	}

	pending := PendingTasks(m.Tasks)
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending tasks, got %d", len(pending))
	}
	for _, p := range pending {
		if p.Title == "Write docs" {
			t.Error("completed task should not be pending")
		}
	}
}

func TestReadManifest_NotFound(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "missing.md"))
	if !errors.Is(err, ErrManifestNotFound) {
		t.Errorf("error = %v, want ErrManifestNotFound", err)
	}
}

func TestExtractTaskTitle(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"### Task 1: Build it", "Build it"},
		{"### Task 12:   Spaced   ", "Spaced"},
		{"**Task 3**: Bold form", "Bold form"},
		{"### Task 2: Done *(completed: 1/2/26, 3:04 PM)*", "Done"},
		{"### Task 7", untitledTask},
	}
	for _, tt := range tests {
		if got := extractTaskTitle(tt.body); got != tt.want {
			t.Errorf("extractTaskTitle(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
