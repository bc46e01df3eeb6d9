package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// LLMClient produces a completion for a prompt. Implementations must be safe
// for concurrent use.
type LLMClient interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

// PullRequestOpener commits generated files on a fresh branch and opens a
// pull request, returning its URL.
type PullRequestOpener interface {
	OpenPullRequest(ctx context.Context, req models.PullRequestRequest) (string, error)
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SpecialistHandler is a Handler driven by a HandlerDefinition. It renders a
// prompt, asks the LLM for content and saves it as <title>.md in the run
// directory.
type SpecialistHandler struct {
	def       models.HandlerDefinition
	llm       LLMClient
	templates PromptTemplates
	prs       PullRequestOpener
}

// SpecialistOption configures a SpecialistHandler.
type SpecialistOption func(*SpecialistHandler)

// WithPullRequests enables the pull request workflow for definitions that
// ask for it.
func WithPullRequests(opener PullRequestOpener) SpecialistOption {
	return func(h *SpecialistHandler) { h.prs = opener }
}

// WithTemplates replaces the default embedded prompt templates.
func WithTemplates(t PromptTemplates) SpecialistOption {
	return func(h *SpecialistHandler) { h.templates = t }
}

// NewSpecialistHandler creates a handler for def backed by llm.
func NewSpecialistHandler(def models.HandlerDefinition, llm LLMClient, opts ...SpecialistOption) (*SpecialistHandler, error) {
	if strings.TrimSpace(def.Role) == "" {
		return nil, fmt.Errorf("creating specialist: role must not be empty")
	}
	if len(def.Skills) == 0 {
		return nil, fmt.Errorf("creating specialist %s: at least one skill is required", def.Role)
	}
	if llm == nil {
		return nil, fmt.Errorf("creating specialist %s: llm client is nil", def.Role)
	}
	h := &SpecialistHandler{def: def, llm: llm}
	for _, opt := range opts {
		opt(h)
	}
	if h.templates == nil {
		h.templates = NewPromptTemplates("")
	}
	return h, nil
}

func (h *SpecialistHandler) Role() string { return h.def.Role }

func (h *SpecialistHandler) Skills() []string {
	return append([]string(nil), h.def.Skills...)
}

func (h *SpecialistHandler) QualityStandards() map[models.QualityLevel]string {
	out := make(map[models.QualityLevel]string, len(h.def.QualityStandards))
	for k, v := range h.def.QualityStandards {
		out[k] = v
	}
	return out
}

// Definition returns the definition the handler was built from.
func (h *SpecialistHandler) Definition() models.HandlerDefinition {
	return h.def
}

// Prompt renders the prompt sent to the LLM for task.
func (h *SpecialistHandler) Prompt(task models.Task) (string, error) {
	return h.templates.Render(TemplatePrompt, h.def.Role, h.promptData(task, nil))
}

// Execute implements Handler.
func (h *SpecialistHandler) Execute(ctx context.Context, task models.Task, outputDir string) (*models.TaskResult, error) {
	prompt, err := h.Prompt(task)
	if err != nil {
		return nil, err
	}

	content, err := h.llm.Complete(ctx, models.CompletionRequest{Prompt: prompt, Model: h.def.Model})
	if err != nil {
		return nil, fmt.Errorf("completing %s: %w", task.Title, err)
	}

	path := filepath.Join(outputDir, OutputFileName(task.Title))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("saving output for %s: %w", task.Title, err)
	}

	result := models.NewTaskResult(task, models.StatusCompleted, content)
	result.Handler = h.def.Role
	result.GeneratedFiles = []string{path}
	result.Notes = fmt.Sprintf("Completed by %s. Output saved to %s", h.def.Role, path)

	if h.def.PullRequest && h.prs != nil {
		body, err := h.templates.Render(TemplatePullRequest, h.def.Role, h.promptData(task, result.GeneratedFiles))
		if err != nil {
			return nil, err
		}
		url, err := h.prs.OpenPullRequest(ctx, models.PullRequestRequest{
			Title: task.Title,
			Body:  body,
			Files: result.GeneratedFiles,
		})
		if err != nil {
			return nil, fmt.Errorf("opening pull request for %s: %w", task.Title, err)
		}
		result.PullRequestURL = url
		result.Notes += ". Pull request: " + url
	}
	return result, nil
}

func (h *SpecialistHandler) promptData(task models.Task, files []string) PromptData {
	guidance, ok := h.def.QualityStandards[task.QualityLevel]
	if !ok || guidance == "" {
		guidance = defaultQualityGuidance
	}
	return PromptData{
		Role:            h.def.Role,
		Skills:          h.def.Skills,
		Task:            task,
		QualityGuidance: guidance,
		Instructions:    h.def.Instructions,
		Files:           files,
	}
}

// OutputFileName returns the markdown file name used for a task's content.
func OutputFileName(title string) string {
	name := unsafeFileChars.ReplaceAllString(title, "_")
	if name == "" {
		name = "task"
	}
	return name + ".md"
}
