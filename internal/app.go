// Package internal provides the App struct that wires all components of
// Maestro together and initializes the CLI layer.
package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/maestro/internal/cli"
	"github.com/valter-silva-au/maestro/internal/core"
	"github.com/valter-silva-au/maestro/internal/integration"
	"github.com/valter-silva-au/maestro/internal/observability"
	"github.com/valter-silva-au/maestro/internal/storage"
	"github.com/valter-silva-au/maestro/pkg/models"
)

// Event types logged by the app-level run observers.
const (
	eventHistorySaveFailed  = "history.save_failed"
	eventNotificationFailed = "notification.send_failed"
)

// App holds all service dependencies for Maestro.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	// Storage layer
	HandlerStore storage.HandlerStore
	RunHistory   storage.RunHistoryManager

	// Integration services
	LLM integration.LLMClient
	Git *integration.GitService

	// Core services
	Templates core.PromptTemplates
	Registry  *core.HandlerRegistry
	Observers []core.RunObserver

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
	Exporter    *observability.RunMetricsExporter

	events         core.EventLogger
	shutdownTracer func()
}

// NewApp creates and wires all components of Maestro. basePath is the
// directory holding .maestro.yaml; relative paths in the configuration are
// resolved against it.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(cfg.Telemetry.EventLog)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.DefaultAlertThresholds())
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
		app.events = &eventLogAdapter{log: app.EventLog}
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}
	app.shutdownTracer, err = observability.InitTracer(context.Background(), observability.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		// Non-fatal: spans go to the no-op provider.
		app.shutdownTracer = func() {}
	}
	app.Exporter = observability.NewRunMetricsExporter(cfg.Telemetry.MetricsFile, app.EventLog)

	// --- Integration services ---
	app.LLM, err = integration.NewLLMClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	if cfg.Git.Enabled {
		app.Git = integration.NewGitService(cfg.Git, nil)
	}

	// --- Storage layer ---
	app.HandlerStore = storage.NewHandlerStore(cfg.HandlersFile)
	app.RunHistory = storage.NewRunHistoryManager(cfg.ReportsDir)

	// --- Handlers ---
	custom, err := app.HandlerStore.Load()
	if err != nil {
		return nil, err
	}
	app.Templates = core.NewPromptTemplates(basePath)
	app.Registry, err = app.buildRegistry(mergeDefinitions(core.BuiltinHandlerDefinitions(), custom))
	if err != nil {
		return nil, err
	}

	// --- Run observers ---
	app.Observers = []core.RunObserver{
		app.Exporter,
		&historyObserver{history: app.RunHistory, events: app.events},
	}
	if app.Notifier != nil {
		app.Observers = append(app.Observers, &notifyObserver{
			notifier: app.Notifier,
			alerts:   app.AlertEngine,
			events:   app.events,
		})
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Registry = app.Registry
	cli.HandlerStore = app.HandlerStore
	cli.RunHistory = app.RunHistory
	cli.NewScheduler = app.NewScheduler

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc

	return app, nil
}

// NewScheduler creates a scheduler over the app's registry and observers,
// plus any extra observers.
func (a *App) NewScheduler(extra ...core.RunObserver) *core.Scheduler {
	observers := make([]core.RunObserver, 0, len(a.Observers)+len(extra))
	observers = append(observers, a.Observers...)
	observers = append(observers, extra...)
	return core.NewScheduler(core.SchedulerConfig{
		Registry:   a.Registry,
		ReportsDir: a.Config.ReportsDir,
		Events:     a.events,
		Observers:  observers,
	})
}

func (a *App) buildRegistry(defs []models.HandlerDefinition) (*core.HandlerRegistry, error) {
	registry, err := core.NewHandlerRegistry()
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if def.PromptTemplate != "" {
			if err := a.Templates.RegisterTemplate(core.TemplatePrompt, def.Role, def.PromptTemplate); err != nil {
				return nil, fmt.Errorf("handler %s: %w", def.Role, err)
			}
		}
		opts := []core.SpecialistOption{core.WithTemplates(a.Templates)}
		if a.Git != nil {
			opts = append(opts, core.WithPullRequests(a.Git))
		}
		h, err := core.NewSpecialistHandler(def, a.LLM, opts...)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(h); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// mergeDefinitions returns builtins with custom definitions applied: a custom
// definition replaces the built-in with the same role in place, others are
// appended in file order.
func mergeDefinitions(builtins, custom []models.HandlerDefinition) []models.HandlerDefinition {
	merged := make([]models.HandlerDefinition, len(builtins))
	copy(merged, builtins)
	index := make(map[string]int, len(merged))
	for i, d := range merged {
		index[d.Role] = i
	}
	for _, d := range custom {
		if i, ok := index[d.Role]; ok {
			merged[i] = d
			continue
		}
		index[d.Role] = len(merged)
		merged = append(merged, d)
	}
	return merged
}

// Close flushes pending spans and releases the event log file handle. It is
// safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.shutdownTracer != nil {
		a.shutdownTracer()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the directory holding the Maestro configuration.
// It checks the MAESTRO_HOME env var, then the nearest ancestor of the
// current directory containing .maestro.yaml, then falls back to the current
// directory.
func ResolveBasePath() string {
	if home := os.Getenv("MAESTRO_HOME"); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelForEvent(eventType),
		Type:    eventType,
		Message: observability.MessageForEvent(eventType, data),
		Data:    data,
	})
}

// historyObserver records every finished run in the run history index.
type historyObserver struct {
	history storage.RunHistoryManager
	events  core.EventLogger
}

func (o *historyObserver) RunStarted(string, string, int)              {}
func (o *historyObserver) TaskStarted(models.Task, string)             {}
func (o *historyObserver) TaskFinished(models.Task, models.TaskResult) {}

func (o *historyObserver) RunFinished(summary models.ExecutionSummary) {
	err := o.history.Load()
	if err == nil {
		err = o.history.AddRun(storage.EntryFromSummary(summary, core.FindReport(summary.OutputDir)))
	}
	if err == nil {
		err = o.history.Save()
	}
	if err != nil && o.events != nil {
		_ = o.events.LogEvent(eventHistorySaveFailed, map[string]any{
			"run_id": summary.RunID,
			"error":  err.Error(),
		})
	}
}

// notifyObserver sends the run summary and its alerts when a run finishes.
type notifyObserver struct {
	notifier observability.Notifier
	alerts   observability.AlertEngine
	events   core.EventLogger
}

func (o *notifyObserver) RunStarted(string, string, int)              {}
func (o *notifyObserver) TaskStarted(models.Task, string)             {}
func (o *notifyObserver) TaskFinished(models.Task, models.TaskResult) {}

func (o *notifyObserver) RunFinished(summary models.ExecutionSummary) {
	var alerts []observability.Alert
	if o.alerts != nil {
		// A failed evaluation still sends the summary.
		alerts, _ = o.alerts.Evaluate(summary.RunID)
	}
	if err := o.notifier.Notify(summary, alerts); err != nil && o.events != nil {
		_ = o.events.LogEvent(eventNotificationFailed, map[string]any{
			"run_id": summary.RunID,
			"error":  err.Error(),
		})
	}
}
