package core

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/valter-silva-au/maestro/pkg/models"
)

//go:embed templates
var templateFS embed.FS

// Template kinds rendered by the specialist handlers.
const (
	TemplatePrompt      = "prompt"
	TemplatePullRequest = "pullrequest"
)

// defaultQualityGuidance is used when a handler declares no standard for the
// task's quality level.
const defaultQualityGuidance = "Standard quality implementation"

// PromptData holds the values referenced by the prompt and pull request
// templates.
type PromptData struct {
	Role            string
	Skills          []string
	Task            models.Task
	QualityGuidance string
	Instructions    string
	Files           []string
}

// PromptTemplates renders prompts from the embedded templates, with optional
// per-role overrides loaded from disk.
type PromptTemplates interface {
	Render(kind, role string, data PromptData) (string, error)
	RegisterTemplate(kind, role, templatePath string) error
}

type promptTemplates struct {
	basePath string

	mu     sync.RWMutex
	custom map[string]string
}

// NewPromptTemplates creates a PromptTemplates rooted at basePath, which is
// used to resolve relative override paths.
func NewPromptTemplates(basePath string) PromptTemplates {
	return &promptTemplates{
		basePath: basePath,
		custom:   make(map[string]string),
	}
}

// RegisterTemplate makes templatePath override the built-in template of the
// given kind for role.
func (pt *promptTemplates) RegisterTemplate(kind, role, templatePath string) error {
	if _, err := builtinTemplate(kind); err != nil {
		return err
	}
	absPath := templatePath
	if !filepath.IsAbs(templatePath) {
		absPath = filepath.Join(pt.basePath, templatePath)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("custom %s template %s: %w", kind, absPath, err)
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.custom[templateKey(kind, role)] = absPath
	return nil
}

// Render executes the template of the given kind for role.
func (pt *promptTemplates) Render(kind, role string, data PromptData) (string, error) {
	raw, err := pt.source(kind, role)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(kind).Funcs(template.FuncMap{"join": strings.Join}).Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %s template for %s: %w", kind, role, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template for %s: %w", kind, role, err)
	}
	return buf.String(), nil
}

func (pt *promptTemplates) source(kind, role string) (string, error) {
	pt.mu.RLock()
	customPath, ok := pt.custom[templateKey(kind, role)]
	pt.mu.RUnlock()
	if ok {
		raw, err := os.ReadFile(customPath)
		if err != nil {
			return "", fmt.Errorf("reading custom template %s: %w", customPath, err)
		}
		return string(raw), nil
	}
	return builtinTemplate(kind)
}

func builtinTemplate(kind string) (string, error) {
	switch kind {
	case TemplatePrompt, TemplatePullRequest:
	default:
		return "", fmt.Errorf("unknown template kind %q", kind)
	}
	data, err := templateFS.ReadFile("templates/" + kind + ".md.tmpl")
	if err != nil {
		return "", fmt.Errorf("reading %s template: %w", kind, err)
	}
	return string(data), nil
}

func templateKey(kind, role string) string {
	return kind + "/" + strings.ToLower(role)
}
