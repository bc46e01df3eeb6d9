package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// previewLength caps the content excerpt shown per result.
const previewLength = 200

const reportTemplate = `# Agent Orchestrator Execution Report

**Run:** {{.Summary.RunID}}
**Generated:** {{.Generated}}
**Duration:** {{seconds .Summary.Duration}} seconds
**Success Rate:** {{.Summary.SuccessCount}}/{{.Summary.TotalTasks}} ({{.Summary.SuccessRate}}%)

## Summary
- ✓ **Successful Tasks:** {{.Summary.SuccessCount}}
- ✗ **Failed Tasks:** {{.Summary.FailureCount}}
- ⏱ **Average Time per Task:** {{seconds .Summary.AverageTaskTime}} seconds

## Task Results
{{range $i, $r := .Summary.Results}}
### {{inc $i}}. {{glyph $r.Status}} {{$r.TaskTitle}}
**Task ID:** {{$r.TaskID}}
**Status:** {{$r.Status}}
**Handler:** {{or $r.Handler "None"}}
**Completed:** {{$r.CompletedAt.Format "2006-01-02 15:04:05 MST"}}
**Notes:** {{or $r.Notes "None"}}
{{- if $r.GeneratedFiles}}
**Generated Files:**
{{- range $r.GeneratedFiles}}
- {{.}}
{{- end}}
{{- end}}
{{- if $r.PullRequestURL}}
**Pull Request:** [link]({{$r.PullRequestURL}})
{{- end}}

**Content Preview:**
` + "```" + `
{{preview $r.Content}}
` + "```" + `

---
{{end}}
## Next Steps
{{if gt .Summary.FailureCount 0}}
### Failed Tasks Require Attention
- Review failed task logs
- Check handler configurations
- Retry failed tasks if needed
{{else}}
### All Tasks Completed Successfully
- Review generated content and PRs
- Conduct human QA review
- Merge approved changes
{{end}}`

// ReportGenerator renders the execution summary as a markdown report.
type ReportGenerator struct {
	tmpl *template.Template
	now  func() time.Time
}

// NewReportGenerator creates a ReportGenerator using the built-in template.
func NewReportGenerator(now func() time.Time) *ReportGenerator {
	if now == nil {
		now = time.Now
	}
	funcs := template.FuncMap{
		"inc":     func(i int) int { return i + 1 },
		"glyph":   statusGlyph,
		"seconds": func(d time.Duration) string { return fmt.Sprintf("%.2f", d.Seconds()) },
		"preview": contentPreview,
	}
	return &ReportGenerator{
		tmpl: template.Must(template.New("report").Funcs(funcs).Parse(reportTemplate)),
		now:  now,
	}
}

// Render returns the report text for summary.
func (g *ReportGenerator) Render(summary models.ExecutionSummary) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Summary   models.ExecutionSummary
		Generated string
	}{
		Summary:   summary,
		Generated: g.now().Format(time.RFC1123),
	}
	if err := g.tmpl.Execute(&buf, &data); err != nil {
		return "", fmt.Errorf("rendering execution report: %w", err)
	}
	return buf.String(), nil
}

// Write renders the report into dir as execution-report-<unix>.md and
// returns its path.
func (g *ReportGenerator) Write(dir string, summary models.ExecutionSummary) (string, error) {
	report, err := g.Render(summary)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("execution-report-%d.md", g.now().Unix()))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("writing execution report: %w", err)
	}
	return path, nil
}

// FindReport returns the most recent execution report in dir, or "" when
// there is none.
func FindReport(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "execution-report-*.md"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}

func contentPreview(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
