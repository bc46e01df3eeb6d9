package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// completionTimeLayout renders the header timestamp, e.g. "10/17/26, 3:04 PM".
const completionTimeLayout = "1/2/06, 3:04 PM"

var statusLinePrefixes = []string{"- Status:", "**Status:**", "- **Status**:"}

// UpdateManifest returns content with the task's header and status line
// rewritten to reflect result. The header is matched by exact title; only the
// first match is updated. Applying the same update twice yields the same text.
func UpdateManifest(content string, task models.Task, result models.TaskResult) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+len(result.GeneratedFiles)+3)

	var (
		headerDone bool
		inTarget   bool
		statusDone bool
		// annotationIndent >= 0 while old annotation lines below the
		// rewritten status line are being replaced.
		annotationIndent = -1
		inFileList       bool
	)

	for _, raw := range lines {
		body, cr := splitCR(raw)
		trimmed := strings.TrimSpace(body)
		indent := body[:indentWidth(body)]

		if title, _, ok := parseTaskHeader(trimmed); ok {
			inTarget = false
			annotationIndent = -1
			if !headerDone && title == task.Title {
				headerDone, inTarget, statusDone = true, true, false
				out = append(out, indent+renderHeader(trimmed, result)+cr)
				continue
			}
			out = append(out, raw)
			continue
		}

		if annotationIndent >= 0 {
			width := len(indent)
			switch {
			case width == annotationIndent && trimmed == generatedFilesLine:
				inFileList = true
				continue
			case width == annotationIndent && strings.HasPrefix(trimmed, pullRequestPrefix):
				inFileList = false
				continue
			case inFileList && width > annotationIndent && strings.HasPrefix(trimmed, "- "):
				continue
			}
			annotationIndent = -1
			inFileList = false
		}

		if inTarget && !statusDone {
			if prefix, ok := statusLinePrefix(trimmed); ok {
				out = append(out, indent+prefix+" "+string(result.Status)+cr)
				out = append(out, annotationLines(indent, result, cr)...)
				statusDone = true
				annotationIndent = len(indent)
				continue
			}
		}

		out = append(out, raw)
	}

	return strings.Join(out, "\n")
}

// renderHeader rebuilds a header line with a fresh glyph and completion
// annotation, discarding whatever glyph or annotation it had.
func renderHeader(trimmed string, result models.TaskResult) string {
	body, _ := splitStatusGlyph(trimmed)
	body = stripCompletion(body)
	return fmt.Sprintf("%s %s%s %s)*", statusGlyph(result.Status), body, completionMarker,
		result.CompletedAt.Format(completionTimeLayout))
}

func statusGlyph(status models.TaskStatus) string {
	switch status {
	case models.StatusCompleted:
		return GlyphCompleted
	case models.StatusFailed:
		return GlyphFailed
	default:
		return GlyphInProgress
	}
}

func statusLinePrefix(trimmed string) (string, bool) {
	for _, p := range statusLinePrefixes {
		if strings.HasPrefix(trimmed, p) {
			return p, true
		}
	}
	return "", false
}

func annotationLines(indent string, result models.TaskResult, cr string) []string {
	if result.Status != models.StatusCompleted {
		return nil
	}
	var lines []string
	if len(result.GeneratedFiles) > 0 {
		lines = append(lines, indent+generatedFilesLine+cr)
		for _, f := range result.GeneratedFiles {
			lines = append(lines, indent+"  - "+f+cr)
		}
	}
	if result.PullRequestURL != "" {
		lines = append(lines, fmt.Sprintf("%s%s [link](%s)%s", indent, pullRequestPrefix, result.PullRequestURL, cr))
	}
	return lines
}

func splitCR(line string) (string, string) {
	if strings.HasSuffix(line, "\r") {
		return strings.TrimSuffix(line, "\r"), "\r"
	}
	return line, ""
}

// ManifestWriter applies UpdateManifest to a manifest file on disk.
type ManifestWriter struct {
	path string
}

// NewManifestWriter creates a writer for the manifest at path.
func NewManifestWriter(path string) *ManifestWriter {
	return &ManifestWriter{path: path}
}

// Path returns the manifest path the writer rewrites.
func (w *ManifestWriter) Path() string {
	return w.path
}

// lockPath returns the lock file guarding rewrites: a hidden sibling of the
// manifest, so processes using different reports directories still share it.
func (w *ManifestWriter) lockPath() string {
	return filepath.Join(filepath.Dir(w.path), "."+filepath.Base(w.path)+".lock")
}

// Apply performs a read-modify-write of the manifest under an exclusive
// file lock. Errors wrap ErrManifestUpdateFailed.
func (w *ManifestWriter) Apply(task models.Task, result models.TaskResult) error {
	unlock, err := lockFile(w.lockPath())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrManifestUpdateFailed, task.Title, err)
	}
	defer func() { _ = unlock() }()

	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrManifestUpdateFailed, task.Title, err)
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrManifestUpdateFailed, task.Title, err)
	}

	updated := UpdateManifest(string(data), task, result)
	if updated == string(data) {
		return nil
	}
	if err := writeFileAtomic(w.path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrManifestUpdateFailed, task.Title, err)
	}
	return nil
}
