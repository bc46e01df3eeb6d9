package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// maxRunDirAttempts bounds the suffix search when a run directory name is taken.
const maxRunDirAttempts = 100

// SchedulerConfig holds the collaborators of a Scheduler.
type SchedulerConfig struct {
	Registry   *HandlerRegistry
	ReportsDir string
	Events     EventLogger
	Observers  []RunObserver
	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
	// Reports defaults to a ReportGenerator using Now.
	Reports *ReportGenerator
	Now     func() time.Time
}

// Scheduler runs queued tasks concurrently, one goroutine per task. A single
// coordinator goroutine owns the completed results, the active set, the
// manifest rewrites and the progress writes.
type Scheduler struct {
	registry   *HandlerRegistry
	reportsDir string
	events     EventLogger
	observers  []RunObserver
	tracer     trace.Tracer
	reports    *ReportGenerator
	now        func() time.Time

	mu       sync.Mutex
	queue    []*models.Task
	manifest *ManifestWriter
}

// NewScheduler creates a Scheduler from cfg.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/valter-silva-au/maestro/internal/core")
	}
	reports := cfg.Reports
	if reports == nil {
		reports = NewReportGenerator(now)
	}
	registry := cfg.Registry
	if registry == nil {
		registry, _ = NewHandlerRegistry()
	}
	return &Scheduler{
		registry:   registry,
		reportsDir: cfg.ReportsDir,
		events:     cfg.Events,
		observers:  cfg.Observers,
		tracer:     tracer,
		reports:    reports,
		now:        now,
	}
}

// LoadManifest reads the manifest at path, remembers it for status rewrites
// and enqueues every task that is not already completed. It returns the
// number of tasks enqueued.
func (s *Scheduler) LoadManifest(path string) (int, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return 0, err
	}
	for _, dropErr := range m.Dropped {
		s.logEvent(EventManifestBlockDrop, map[string]any{
			"manifest": m.Path,
			"error":    dropErr.Error(),
		})
	}

	pending := PendingTasks(m.Tasks)
	s.mu.Lock()
	s.manifest = NewManifestWriter(m.Path)
	s.queue = append(s.queue, pending...)
	s.mu.Unlock()

	s.logEvent(EventManifestLoaded, map[string]any{
		"manifest": m.Path,
		"parsed":   len(m.Tasks),
		"pending":  len(pending),
		"skipped":  len(m.Tasks) - len(pending),
		"dropped":  len(m.Dropped),
	})
	return len(pending), nil
}

// Enqueue adds tasks to the queue of the next run.
func (s *Scheduler) Enqueue(tasks ...*models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if t != nil {
			s.queue = append(s.queue, t)
		}
	}
}

// Queue returns a copy of the queued tasks.
func (s *Scheduler) Queue() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0, len(s.queue))
	for _, t := range s.queue {
		out = append(out, *t)
	}
	return out
}

// Registry returns the handler registry used for selection.
func (s *Scheduler) Registry() *HandlerRegistry {
	return s.registry
}

type taskEventKind int

const (
	taskStarted taskEventKind = iota
	taskFinished
)

type taskEvent struct {
	kind    taskEventKind
	index   int
	handler string
	result  *models.TaskResult
}

// Run executes every queued task concurrently and returns the summary once
// all of them have resolved. Only run-level failures are returned as errors;
// task failures are recorded as failed results.
func (s *Scheduler) Run(ctx context.Context) (*models.ExecutionSummary, error) {
	runID := uuid.NewString()
	ctx, runSpan := s.tracer.Start(ctx, "maestro.run", trace.WithAttributes(
		attribute.String("maestro.run_id", runID),
	))
	defer runSpan.End()

	// The queue stays in place when the run directory cannot be created, so
	// the caller can fix the reports path and run again.
	startedAt := s.now()
	outputDir, err := s.createRunDir(startedAt)
	if err != nil {
		runSpan.RecordError(err)
		runSpan.SetStatus(codes.Error, err.Error())
		s.logEvent(EventRunFailed, map[string]any{"run_id": runID, "error": err.Error()})
		return nil, err
	}

	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	manifest := s.manifest
	s.mu.Unlock()
	runSpan.SetAttributes(attribute.Int("maestro.tasks", len(queue)))

	s.logEvent(EventRunStarted, map[string]any{
		"run_id":     runID,
		"output_dir": outputDir,
		"tasks":      len(queue),
	})
	for _, o := range s.observers {
		o.RunStarted(runID, outputDir, len(queue))
	}

	progress := NewProgressWriter(outputDir, s.now)
	events := make(chan taskEvent)
	var wg sync.WaitGroup
	for i, t := range queue {
		wg.Add(1)
		go func(index int, task models.Task) {
			defer wg.Done()
			s.runTask(ctx, runID, index, task, outputDir, events)
		}(i, *t)
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	completed := make([]models.TaskResult, 0, len(queue))
	active := make(map[int]bool, len(queue))
	activeTasks := func() []models.Task {
		out := make([]models.Task, 0, len(active))
		for i, t := range queue {
			if active[i] {
				out = append(out, *t)
			}
		}
		return out
	}

	for ev := range events {
		task := queue[ev.index]
		switch ev.kind {
		case taskStarted:
			active[ev.index] = true
			if task.Status.CanTransition(models.StatusInProgress) {
				task.Status = models.StatusInProgress
			}
			for _, o := range s.observers {
				o.TaskStarted(*task, ev.handler)
			}

		case taskFinished:
			result := *ev.result
			completed = append(completed, result)
			if task.Status.CanTransition(result.Status) {
				task.Status = result.Status
			}

			if manifest != nil {
				if err := manifest.Apply(*task, result); err != nil {
					s.logEvent(EventManifestUpdateError, map[string]any{
						"run_id": runID,
						"task":   task.Title,
						"error":  err.Error(),
					})
				}
			}

			snapshot := models.ExecutionProgress{
				RunID:          runID,
				CompletedTasks: append([]models.TaskResult(nil), completed...),
				ActiveTasks:    activeTasks(),
				RemainingTasks: len(queue) - len(completed),
			}
			if _, err := progress.Write(snapshot); err != nil {
				s.logEvent(EventProgressWriteError, map[string]any{
					"run_id": runID,
					"task":   task.Title,
					"error":  err.Error(),
				})
			}

			delete(active, ev.index)
			for _, o := range s.observers {
				o.TaskFinished(*task, result)
			}
			s.logTaskResult(runID, result)
		}
	}

	summary := models.ExecutionSummary{
		RunID:      runID,
		OutputDir:  outputDir,
		StartedAt:  startedAt,
		TotalTasks: len(queue),
		Duration:   s.now().Sub(startedAt),
		Results:    completed,
	}
	if manifest != nil {
		summary.Manifest = manifest.Path()
	}
	for _, r := range completed {
		if r.Succeeded() {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
	}

	if path, err := s.reports.Write(outputDir, summary); err != nil {
		s.logEvent(EventReportWriteError, map[string]any{"run_id": runID, "error": err.Error()})
	} else {
		s.logEvent(EventReportWritten, map[string]any{"run_id": runID, "path": path})
	}

	runSpan.SetAttributes(
		attribute.Int("maestro.success_count", summary.SuccessCount),
		attribute.Int("maestro.failure_count", summary.FailureCount),
	)
	s.logEvent(EventRunCompleted, map[string]any{
		"run_id":        runID,
		"output_dir":    outputDir,
		"total":         summary.TotalTasks,
		"success_count": summary.SuccessCount,
		"failure_count": summary.FailureCount,
		"duration_ms":   summary.Duration.Milliseconds(),
	})
	for _, o := range s.observers {
		o.RunFinished(summary)
	}
	return &summary, nil
}

// ExecuteTask runs a single task outside the manifest workflow. It creates a
// run directory, selects a handler and invokes it. Unlike Run, a missing
// handler or a handler failure is returned as an error.
func (s *Scheduler) ExecuteTask(ctx context.Context, task models.Task) (*models.TaskResult, string, error) {
	outputDir, err := s.createRunDir(s.now())
	if err != nil {
		return nil, "", err
	}

	h, score, err := SelectHandler(s.registry, task)
	if err != nil {
		s.logEvent(EventTaskUnassigned, map[string]any{"task": task.Title, "error": err.Error()})
		return nil, outputDir, err
	}
	s.logEvent(EventTaskAssigned, map[string]any{
		"task":    task.Title,
		"handler": h.Role(),
		"score":   score,
	})

	ctx, span := s.startTaskSpan(ctx, task)
	defer span.End()
	span.SetAttributes(attribute.String("maestro.handler", h.Role()))

	result, err := s.invoke(ctx, h, task, outputDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logEvent(EventTaskFailed, map[string]any{
			"task":    task.Title,
			"handler": h.Role(),
			"error":   err.Error(),
		})
		return nil, outputDir, err
	}
	s.logTaskResult("", *result)
	if !result.Succeeded() {
		return result, outputDir, fmt.Errorf("%w: %s: %s", ErrHandlerInvocationFailed, task.Title, result.Notes)
	}
	return result, outputDir, nil
}

// runTask executes one task on its own goroutine and reports to the
// coordinator. It never touches shared run state.
func (s *Scheduler) runTask(ctx context.Context, runID string, index int, task models.Task, outputDir string, events chan<- taskEvent) {
	ctx, span := s.startTaskSpan(ctx, task)
	defer span.End()

	task.Status = models.StatusInProgress
	h, score, err := SelectHandler(s.registry, task)
	role := ""
	if err == nil {
		role = h.Role()
		span.SetAttributes(attribute.String("maestro.handler", role))
	}
	events <- taskEvent{kind: taskStarted, index: index, handler: role}

	var result *models.TaskResult
	if err != nil {
		s.logEvent(EventTaskUnassigned, map[string]any{
			"run_id": runID,
			"task":   task.Title,
			"error":  err.Error(),
		})
		result = failedResult(task, "", err, s.now)
	} else {
		s.logEvent(EventTaskAssigned, map[string]any{
			"run_id":  runID,
			"task":    task.Title,
			"handler": role,
			"score":   score,
		})
		result, err = s.invoke(ctx, h, task, outputDir)
		if err != nil {
			result = failedResult(task, role, err, s.now)
		}
	}

	span.SetAttributes(attribute.String("maestro.status", string(result.Status)))
	if !result.Succeeded() {
		span.SetStatus(codes.Error, result.Notes)
	}
	events <- taskEvent{kind: taskFinished, index: index, result: result}
}

// invoke calls the handler, converting panics and errors into
// ErrHandlerInvocationFailed and normalizing the returned result.
func (s *Scheduler) invoke(ctx context.Context, h Handler, task models.Task, outputDir string) (result *models.TaskResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrHandlerInvocationFailed, h.Role(), p)
		}
	}()

	res, err := h.Execute(ctx, task, outputDir)
	if err != nil {
		if errors.Is(err, ErrHandlerInvocationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrHandlerInvocationFailed, h.Role(), err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s: handler returned no result", ErrHandlerInvocationFailed, h.Role())
	}
	return normalizeResult(*res, task, h.Role(), s.now), nil
}

// normalizeResult fills identity fields the handler left empty and coerces a
// non-terminal status to Failed. A missing completion time is stamped from now.
func normalizeResult(res models.TaskResult, task models.Task, role string, now func() time.Time) *models.TaskResult {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.TaskID = task.ID
	res.TaskTitle = task.Title
	if res.Handler == "" {
		res.Handler = role
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = now()
	}
	if !res.Status.IsTerminal() {
		if res.Notes == "" {
			res.Notes = fmt.Sprintf("handler returned non-terminal status %q", res.Status)
		}
		res.Status = models.StatusFailed
	}
	return &res
}

func failedResult(task models.Task, role string, err error, now func() time.Time) *models.TaskResult {
	res := models.NewTaskResult(task, models.StatusFailed, "Task failed with error: "+err.Error())
	res.CompletedAt = now()
	res.Handler = role
	res.Notes = "Execution failed: " + err.Error()
	return res
}

// createRunDir creates <reportsDir>/<unix>, adding a -N suffix when the name
// is already taken.
func (s *Scheduler) createRunDir(at time.Time) (string, error) {
	root := s.reportsDir
	if root == "" {
		root = "reports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrOutputDirectoryUnavailable, root, err)
	}

	base := fmt.Sprintf("%d", at.Unix())
	var lastErr error
	for i := 0; i < maxRunDirAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s: %v", ErrOutputDirectoryUnavailable, dir, err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %s: %v", ErrOutputDirectoryUnavailable, root, lastErr)
}

func (s *Scheduler) startTaskSpan(ctx context.Context, task models.Task) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "maestro.task", trace.WithAttributes(
		attribute.String("maestro.task_id", task.ID),
		attribute.String("maestro.task_title", task.Title),
		attribute.String("maestro.complexity", string(task.Complexity)),
		attribute.String("maestro.quality_level", string(task.QualityLevel)),
	))
}

func (s *Scheduler) logTaskResult(runID string, result models.TaskResult) {
	data := map[string]any{
		"task":    result.TaskTitle,
		"task_id": result.TaskID,
		"handler": result.Handler,
		"status":  string(result.Status),
	}
	if runID != "" {
		data["run_id"] = runID
	}
	if len(result.GeneratedFiles) > 0 {
		data["generated_files"] = result.GeneratedFiles
	}
	if result.Succeeded() {
		s.logEvent(EventTaskCompleted, data)
		return
	}
	data["notes"] = result.Notes
	s.logEvent(EventTaskFailed, data)
}

func (s *Scheduler) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data)
}
