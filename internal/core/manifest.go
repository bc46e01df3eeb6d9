package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// Status glyphs written by the manifest updater.
const (
	GlyphCompleted  = "✓"
	GlyphFailed     = "✗"
	GlyphInProgress = "↻"
)

// untitledTask is used when a header matches but no title can be extracted.
const untitledTask = "Untitled Task"

// completionMarker starts the trailing timestamp annotation on a header.
const completionMarker = " *(completed:"

// statusGlyphs maps leading header glyphs to task status. The emoji forms
// are accepted so older manifests keep parsing.
var statusGlyphs = []struct {
	glyph  string
	status models.TaskStatus
}{
	{GlyphCompleted, models.StatusCompleted},
	{"✅", models.StatusCompleted},
	{GlyphFailed, models.StatusFailed},
	{"❌", models.StatusFailed},
	{GlyphInProgress, models.StatusInProgress},
	{"🔄", models.StatusInProgress},
}

var taskNumberPattern = regexp.MustCompile(`^Task\s*\d+`)

// Default values for fields a block leaves out.
const (
	defaultCriterion     = "Task completed successfully"
	defaultSkill         = "general"
	defaultTesting       = "Basic validation"
	defaultDocumentation = "Update relevant documentation"
	defaultIndicator     = "Task objectives met"
)

type manifestField int

const (
	fieldGoal manifestField = iota
	fieldCriteria
	fieldComplexity
	fieldQuality
	fieldSkills
	fieldResources
	fieldTesting
	fieldDocumentation
	fieldIndicators
	fieldStatus
)

var manifestFields = []struct {
	field manifestField
	names []string
}{
	{fieldGoal, []string{"Goal"}},
	{fieldCriteria, []string{"Acceptance Criteria"}},
	{fieldComplexity, []string{"Complexity"}},
	{fieldQuality, []string{"Quality Level"}},
	{fieldSkills, []string{"Skills Needed", "SkillsNeeded"}},
	{fieldResources, []string{"Resources"}},
	{fieldTesting, []string{"Testing Requirements"}},
	{fieldDocumentation, []string{"Documentation Requirements"}},
	{fieldIndicators, []string{"Success Indicators"}},
	{fieldStatus, []string{"Status"}},
}

// Annotation lines inserted below a status line by the manifest updater.
const (
	generatedFilesLine = "- Generated Files:"
	pullRequestPrefix  = "- Pull Request:"
)

// Manifest is a manifest file read from disk together with its parsed tasks.
type Manifest struct {
	Path    string
	Content string
	Tasks   []*models.Task
	// Dropped holds one ErrMissingGoal-wrapping error per discarded block.
	Dropped []error
}

// ReadManifest resolves path to an absolute location, reads it and parses
// its tasks. A missing file yields ErrManifestNotFound.
func ReadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest path %s: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, abs)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", abs, err)
	}

	tasks, dropped := parseManifest(string(data))
	return &Manifest{
		Path:    abs,
		Content: string(data),
		Tasks:   tasks,
		Dropped: dropped,
	}, nil
}

// ParseManifest converts manifest text into tasks in source order. Blocks
// without a goal are dropped. Tasks are returned regardless of status.
func ParseManifest(content string) []*models.Task {
	tasks, _ := parseManifest(content)
	return tasks
}

// PendingTasks returns the tasks that have not been completed yet.
func PendingTasks(tasks []*models.Task) []*models.Task {
	var pending []*models.Task
	for _, t := range tasks {
		if !t.IsCompleted() {
			pending = append(pending, t)
		}
	}
	return pending
}

func parseManifest(content string) ([]*models.Task, []error) {
	var (
		tasks   []*models.Task
		dropped []error
		current *taskBuilder
		// filesIndent is the indentation of the last "- Generated Files:"
		// line, or -1 when not inside that list.
		filesIndent = -1
	)

	finish := func() {
		if current == nil {
			return
		}
		task, err := current.build()
		if err != nil {
			dropped = append(dropped, err)
			return
		}
		tasks = append(tasks, task)
	}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		if title, status, ok := parseTaskHeader(line); ok {
			finish()
			current = newTaskBuilder(title, status)
			filesIndent = -1
			continue
		}
		if current == nil {
			continue
		}

		if filesIndent >= 0 {
			if indentWidth(raw) > filesIndent && strings.HasPrefix(line, "- ") {
				continue
			}
			filesIndent = -1
		}
		if line == generatedFilesLine {
			filesIndent = indentWidth(raw)
			continue
		}
		if strings.HasPrefix(line, pullRequestPrefix) {
			continue
		}

		current.apply(line)
	}
	finish()

	return tasks, dropped
}

// parseTaskHeader reports whether the trimmed line is a task header and
// returns its title and glyph status.
func parseTaskHeader(line string) (string, models.TaskStatus, bool) {
	body, status := splitStatusGlyph(line)
	if !isTaskHeader(body) {
		return "", "", false
	}
	return extractTaskTitle(body), status, true
}

func isTaskHeader(body string) bool {
	if strings.HasPrefix(body, "**Task") && strings.Contains(body, "**:") {
		return true
	}
	return strings.HasPrefix(body, "### Task") && strings.Contains(body, ":")
}

func splitStatusGlyph(line string) (string, models.TaskStatus) {
	for _, g := range statusGlyphs {
		if strings.HasPrefix(line, g.glyph) {
			return strings.TrimSpace(strings.TrimPrefix(line, g.glyph)), g.status
		}
	}
	return line, models.StatusNotStarted
}

// stripCompletion removes a trailing " *(completed: ...)*" annotation.
func stripCompletion(body string) string {
	if i := strings.Index(body, completionMarker); i >= 0 {
		return strings.TrimSpace(body[:i])
	}
	return body
}

func extractTaskTitle(body string) string {
	body = stripCompletion(body)

	if i := strings.Index(body, "**:"); i >= 0 {
		return strings.TrimSpace(body[i+len("**:"):])
	}
	if i := strings.Index(body, ":"); i >= 0 {
		prefix := strings.TrimSpace(body[:i])
		if strings.HasPrefix(prefix, "### Task") || strings.HasPrefix(prefix, "**Task") ||
			taskNumberPattern.MatchString(prefix) || prefix == "Task" {
			return strings.TrimSpace(body[i+1:])
		}
	}
	return untitledTask
}

// matchField recognizes "**Name:** value" and "- **Name**: value" lines,
// plus the plain "- Status:" form.
func matchField(line string) (manifestField, string, bool) {
	for _, f := range manifestFields {
		for _, name := range f.names {
			prefixes := []string{"**" + name + ":**", "- **" + name + "**:"}
			if f.field == fieldStatus {
				prefixes = append(prefixes, "- "+name+":")
			}
			for _, p := range prefixes {
				if strings.HasPrefix(line, p) {
					return f.field, strings.TrimSpace(line[len(p):]), true
				}
			}
		}
	}
	return 0, "", false
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func indentWidth(raw string) int {
	return len(raw) - len(strings.TrimLeft(raw, " \t"))
}

type taskBuilder struct {
	title         string
	status        models.TaskStatus
	goal          string
	goalSeen      bool
	criteria      []string
	complexity    models.Complexity
	quality       models.QualityLevel
	skills        []string
	resources     []string
	testing       string
	documentation string
	indicators    []string
}

func newTaskBuilder(title string, status models.TaskStatus) *taskBuilder {
	return &taskBuilder{
		title:      title,
		status:     status,
		complexity: models.ComplexityMedium,
		quality:    models.QualityStandard,
	}
}

func (b *taskBuilder) apply(line string) {
	if field, value, ok := matchField(line); ok {
		switch field {
		case fieldGoal:
			b.goal = value
			b.goalSeen = true
		case fieldComplexity:
			if c, ok := models.ParseComplexity(value); ok {
				b.complexity = c
			}
		case fieldQuality:
			if q, ok := models.ParseQualityLevel(value); ok {
				b.quality = q
			}
		case fieldSkills:
			b.skills = splitList(value)
		case fieldResources:
			b.resources = splitList(value)
		case fieldTesting:
			b.testing = value
		case fieldDocumentation:
			b.documentation = value
		case fieldIndicators:
			if value != "" {
				b.indicators = []string{value}
			}
		case fieldCriteria, fieldStatus:
			// Section marker and status line carry nothing the task needs.
		}
		return
	}

	switch {
	case strings.HasPrefix(line, "- [ ]"), strings.HasPrefix(line, "- [x]"), strings.HasPrefix(line, "- [X]"):
		if c := strings.TrimSpace(line[len("- [ ]"):]); c != "" {
			b.criteria = append(b.criteria, c)
		}
	case strings.HasPrefix(line, "- ") && b.goalSeen && !strings.Contains(line, "**"):
		if c := strings.TrimSpace(line[len("- "):]); c != "" {
			b.criteria = append(b.criteria, c)
		}
	}
}

func (b *taskBuilder) build() (*models.Task, error) {
	if b.goal == "" {
		return nil, fmt.Errorf("building task %q: %w", b.title, ErrMissingGoal)
	}

	task := &models.Task{
		ID:                        models.NewTaskID(),
		Title:                     b.title,
		Goal:                      b.goal,
		AcceptanceCriteria:        b.criteria,
		Complexity:                b.complexity,
		QualityLevel:              b.quality,
		SkillsNeeded:              b.skills,
		Resources:                 b.resources,
		TestingRequirements:       b.testing,
		DocumentationRequirements: b.documentation,
		SuccessIndicators:         b.indicators,
		Status:                    b.status,
	}
	if len(task.AcceptanceCriteria) == 0 {
		task.AcceptanceCriteria = []string{defaultCriterion}
	}
	if len(task.SkillsNeeded) == 0 {
		task.SkillsNeeded = []string{defaultSkill}
	}
	if task.TestingRequirements == "" {
		task.TestingRequirements = defaultTesting
	}
	if task.DocumentationRequirements == "" {
		task.DocumentationRequirements = defaultDocumentation
	}
	if len(task.SuccessIndicators) == 0 {
		task.SuccessIndicators = []string{defaultIndicator}
	}
	return task, nil
}
