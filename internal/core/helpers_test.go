package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// fakeHandler is a configurable Handler for registry and scheduler tests.
type fakeHandler struct {
	role   string
	skills []string
	// exec overrides the default behaviour of returning a completed result.
	exec func(ctx context.Context, task models.Task, outputDir string) (*models.TaskResult, error)
}

func newFakeHandler(role string, skills ...string) *fakeHandler {
	return &fakeHandler{role: role, skills: skills}
}

func (h *fakeHandler) Role() string     { return h.role }
func (h *fakeHandler) Skills() []string { return h.skills }

func (h *fakeHandler) QualityStandards() map[models.QualityLevel]string {
	return map[models.QualityLevel]string{models.QualityStandard: "standard"}
}

func (h *fakeHandler) Execute(ctx context.Context, task models.Task, outputDir string) (*models.TaskResult, error) {
	if h.exec != nil {
		return h.exec(ctx, task, outputDir)
	}
	return models.NewTaskResult(task, models.StatusCompleted, h.role+" handled "+task.Title), nil
}

func mustRegistry(t *testing.T, handlers ...Handler) *HandlerRegistry {
	t.Helper()
	r, err := NewHandlerRegistry(handlers...)
	if err != nil {
		t.Fatalf("NewHandlerRegistry: %v", err)
	}
	return r
}

// recordingEvents captures logged events in order.
type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

type recordedEvent struct {
	Type string
	Data map[string]any
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return r.err
}

func (r *recordingEvents) ofType(eventType string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// recordingObserver captures RunObserver callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []models.TaskResult
	runs     int
	summary  *models.ExecutionSummary
	total    int
}

func (o *recordingObserver) RunStarted(runID, outputDir string, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
	o.total = total
}

func (o *recordingObserver) TaskStarted(task models.Task, handler string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, task.Title+"="+handler)
}

func (o *recordingObserver) TaskFinished(task models.Task, result models.TaskResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, result)
}

func (o *recordingObserver) RunFinished(summary models.ExecutionSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary = &summary
}

// fakeLLM returns a fixed completion and records the requests it saw.
type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	requests []models.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakePROpener records pull request requests.
type fakePROpener struct {
	url  string
	err  error
	reqs []models.PullRequestRequest
}

func (f *fakePROpener) OpenPullRequest(ctx context.Context, req models.PullRequestRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.url, f.err
}

var errBoom = errors.New("boom")
