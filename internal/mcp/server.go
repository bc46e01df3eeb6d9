// Package mcp provides an MCP (Model Context Protocol) server that exposes
// Maestro's planning and telemetry as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/maestro/internal/core"
	"github.com/valter-silva-au/maestro/internal/observability"
	"github.com/valter-silva-au/maestro/internal/storage"
	"github.com/valter-silva-au/maestro/pkg/models"
)

// Server wraps Maestro services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	registry    *core.HandlerRegistry
	history     storage.RunHistoryManager
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server over the handler registry. history,
// metricsCalc and alertEngine may be nil; the tools depending on them then
// report an error result.
func NewServer(registry *core.HandlerRegistry, history storage.RunHistoryManager, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		registry:    registry,
		history:     history,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "maestro", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type manifestInput struct {
	Path string `json:"path" jsonschema:"required,path to the markdown task manifest"`
}

type taskOutput struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Goal               string   `json:"goal"`
	Status             string   `json:"status"`
	Complexity         string   `json:"complexity,omitempty"`
	QualityLevel       string   `json:"quality_level,omitempty"`
	SkillsNeeded       []string `json:"skills_needed,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
}

type parseManifestOutput struct {
	Path    string       `json:"path"`
	Tasks   []taskOutput `json:"tasks"`
	Count   int          `json:"count"`
	Pending int          `json:"pending"`
	Dropped []string     `json:"dropped,omitempty"`
}

type listHandlersInput struct{}

type handlerOutput struct {
	Role             string            `json:"role"`
	Skills           []string          `json:"skills"`
	QualityStandards map[string]string `json:"quality_standards,omitempty"`
}

type listHandlersOutput struct {
	Handlers []handlerOutput `json:"handlers"`
	Count    int             `json:"count"`
}

type candidateOutput struct {
	Role    string `json:"role"`
	Score   int    `json:"score"`
	Capable bool   `json:"capable"`
}

type planEntryOutput struct {
	Task       string            `json:"task"`
	Status     string            `json:"status"`
	Handler    string            `json:"handler,omitempty"`
	Score      int               `json:"score"`
	Error      string            `json:"error,omitempty"`
	Candidates []candidateOutput `json:"candidates"`
}

type rankHandlersOutput struct {
	Plan       []planEntryOutput `json:"plan"`
	Unassigned int               `json:"unassigned"`
}

type listRunsInput struct {
	Limit      int  `json:"limit,omitempty" jsonschema:"maximum number of runs to return, most recent first"`
	FailedOnly bool `json:"failed_only,omitempty" jsonschema:"only return runs with at least one failed task"`
}

type runOutput struct {
	ID           string `json:"id"`
	Manifest     string `json:"manifest,omitempty"`
	OutputDir    string `json:"output_dir"`
	StartedAt    string `json:"started_at"`
	DurationMs   int64  `json:"duration_ms"`
	TotalTasks   int    `json:"total_tasks"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
	Report       string `json:"report,omitempty"`
}

type listRunsOutput struct {
	Runs  []runOutput `json:"runs"`
	Count int         `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	RunsStarted            int            `json:"runs_started"`
	RunsCompleted          int            `json:"runs_completed"`
	RunsFailed             int            `json:"runs_failed"`
	TasksAssigned          int            `json:"tasks_assigned"`
	TasksCompleted         int            `json:"tasks_completed"`
	TasksFailed            int            `json:"tasks_failed"`
	TasksUnassigned        int            `json:"tasks_unassigned"`
	TasksByHandler         map[string]int `json:"tasks_by_handler"`
	SuccessRate            float64        `json:"success_rate"`
	AverageRunDurationMs   int64          `json:"average_run_duration_ms"`
	ManifestUpdateFailures int            `json:"manifest_update_failures"`
	EventCount             int            `json:"event_count"`
	OldestEvent            string         `json:"oldest_event,omitempty"`
	NewestEvent            string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"run to evaluate. Defaults to the most recent run in the history."`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	RunID  string        `json:"run_id"`
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "parse_manifest",
		Description: "Parse a markdown task manifest and return its tasks with their status. Blocks without a goal are reported as dropped.",
	}, s.handleParseManifest)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_handlers",
		Description: "List the registered specialist handlers with their skills and quality standards.",
	}, s.handleListHandlers)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "rank_handlers",
		Description: "Score every handler against each pending task of a manifest and show which one would be selected, without executing anything.",
	}, s.handleRankHandlers)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_runs",
		Description: "List past runs from the run history, most recent first.",
	}, s.handleListRuns)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated run and task metrics from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate alerts (failed tasks, unassigned tasks, manifest update failures, slow runs) for a run.",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleParseManifest(_ context.Context, _ *gomcp.CallToolRequest, input manifestInput) (*gomcp.CallToolResult, parseManifestOutput, error) {
	if input.Path == "" {
		return errorResult("path is required"), parseManifestOutput{}, nil
	}

	m, err := core.ReadManifest(input.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("reading manifest: %s", err)), parseManifestOutput{}, nil
	}

	out := parseManifestOutput{
		Path:    m.Path,
		Tasks:   make([]taskOutput, len(m.Tasks)),
		Count:   len(m.Tasks),
		Pending: len(core.PendingTasks(m.Tasks)),
	}
	for i, t := range m.Tasks {
		out.Tasks[i] = taskToOutput(t)
	}
	for _, d := range m.Dropped {
		out.Dropped = append(out.Dropped, d.Error())
	}
	return nil, out, nil
}

func (s *Server) handleListHandlers(_ context.Context, _ *gomcp.CallToolRequest, _ listHandlersInput) (*gomcp.CallToolResult, listHandlersOutput, error) {
	handlers := s.registry.Handlers()
	out := listHandlersOutput{
		Handlers: make([]handlerOutput, len(handlers)),
		Count:    len(handlers),
	}
	for i, h := range handlers {
		standards := make(map[string]string, len(h.QualityStandards()))
		for level, text := range h.QualityStandards() {
			standards[string(level)] = text
		}
		out.Handlers[i] = handlerOutput{
			Role:             h.Role(),
			Skills:           h.Skills(),
			QualityStandards: standards,
		}
	}
	return nil, out, nil
}

func (s *Server) handleRankHandlers(_ context.Context, _ *gomcp.CallToolRequest, input manifestInput) (*gomcp.CallToolResult, rankHandlersOutput, error) {
	if input.Path == "" {
		return errorResult("path is required"), rankHandlersOutput{}, nil
	}

	m, err := core.ReadManifest(input.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("reading manifest: %s", err)), rankHandlersOutput{}, nil
	}

	out := rankHandlersOutput{Plan: []planEntryOutput{}}
	for _, t := range core.PendingTasks(m.Tasks) {
		entry := planEntryOutput{Task: t.Title, Status: string(t.Status), Candidates: []candidateOutput{}}
		for _, a := range core.RankHandlers(s.registry, *t) {
			entry.Candidates = append(entry.Candidates, candidateOutput{
				Role:    a.Handler.Role(),
				Score:   a.Score,
				Capable: a.Capable,
			})
		}
		h, score, err := core.SelectHandler(s.registry, *t)
		if err != nil {
			entry.Error = err.Error()
			out.Unassigned++
		} else {
			entry.Handler = h.Role()
			entry.Score = score
		}
		out.Plan = append(out.Plan, entry)
	}
	return nil, out, nil
}

func (s *Server) handleListRuns(_ context.Context, _ *gomcp.CallToolRequest, input listRunsInput) (*gomcp.CallToolResult, listRunsOutput, error) {
	if s.history == nil {
		return errorResult("run history not available"), listRunsOutput{}, nil
	}
	if err := s.history.Load(); err != nil {
		return errorResult(fmt.Sprintf("loading run history: %s", err)), listRunsOutput{}, nil
	}

	runs, err := s.history.ListRuns(storage.RunFilter{Limit: input.Limit, FailedOnly: input.FailedOnly})
	if err != nil {
		return errorResult(fmt.Sprintf("listing runs: %s", err)), listRunsOutput{}, nil
	}

	out := listRunsOutput{Runs: make([]runOutput, len(runs)), Count: len(runs)}
	for i, r := range runs {
		out.Runs[i] = runOutput{
			ID:           r.ID,
			Manifest:     r.Manifest,
			OutputDir:    r.OutputDir,
			StartedAt:    r.StartedAt.Format(time.RFC3339),
			DurationMs:   r.DurationMs,
			TotalTasks:   r.TotalTasks,
			SuccessCount: r.SuccessCount,
			FailureCount: r.FailureCount,
			Report:       r.Report,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		RunsStarted:            metrics.RunsStarted,
		RunsCompleted:          metrics.RunsCompleted,
		RunsFailed:             metrics.RunsFailed,
		TasksAssigned:          metrics.TasksAssigned,
		TasksCompleted:         metrics.TasksCompleted,
		TasksFailed:            metrics.TasksFailed,
		TasksUnassigned:        metrics.TasksUnassigned,
		TasksByHandler:         metrics.TasksByHandler,
		SuccessRate:            metrics.SuccessRate(),
		AverageRunDurationMs:   metrics.AverageRunDurationMs,
		ManifestUpdateFailures: metrics.ManifestUpdateFailures,
		EventCount:             metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, input getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}

	runID := input.RunID
	if runID == "" {
		latest, err := s.latestRunID()
		if err != nil {
			return errorResult(err.Error()), getAlertsOutput{}, nil
		}
		runID = latest
	}

	alerts, err := s.alertEngine.Evaluate(runID)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		RunID:  runID,
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func (s *Server) latestRunID() (string, error) {
	if s.history == nil {
		return "", fmt.Errorf("run_id is required when run history is not available")
	}
	if err := s.history.Load(); err != nil {
		return "", fmt.Errorf("loading run history: %w", err)
	}
	runs, err := s.history.ListRuns(storage.RunFilter{Limit: 1})
	if err != nil {
		return "", fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded yet")
	}
	return runs[0].ID, nil
}

func taskToOutput(t *models.Task) taskOutput {
	return taskOutput{
		ID:                 t.ID,
		Title:              t.Title,
		Goal:               t.Goal,
		Status:             string(t.Status),
		Complexity:         string(t.Complexity),
		QualityLevel:       string(t.QualityLevel),
		SkillsNeeded:       t.SkillsNeeded,
		AcceptanceCriteria: t.AcceptanceCriteria,
	}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		TasksByHandler: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
