package observability

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/valter-silva-au/maestro/pkg/models"
)

type runCollectors struct {
	registry      *prometheus.Registry
	tasksTotal    *prometheus.CounterVec
	tasksInFlight prometheus.Gauge
	taskDuration  *prometheus.HistogramVec
	runDuration   prometheus.Gauge
	runTasks      *prometheus.GaugeVec
}

func newRunCollectors() *runCollectors {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &runCollectors{
		registry: reg,
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Subsystem: "task",
			Name:      "results_total",
			Help:      "Task results of the run, labelled by handler and terminal status.",
		}, []string{"handler", "status"}),
		tasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "maestro",
			Subsystem: "task",
			Name:      "inflight",
			Help:      "Tasks currently executing.",
		}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "maestro",
			Subsystem: "task",
			Name:      "duration_seconds",
			Help:      "Task execution time from start to result in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"handler"}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "maestro",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of the run in seconds.",
		}),
		runTasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "maestro",
			Subsystem: "run",
			Name:      "tasks",
			Help:      "Task counts of the run by outcome.",
		}, []string{"outcome"}),
	}
}

// Event types logged by the exporter.
const (
	EventMetricsWritten     = "metrics.written"
	EventMetricsWriteFailed = "metrics.write_failed"
)

// RunMetricsExporter records per-run Prometheus metrics and writes them as a
// text exposition file into the run directory when the run finishes. It is
// meant to be registered as a scheduler run observer.
type RunMetricsExporter struct {
	fileName string
	log      EventLog
	now      func() time.Time

	mu        sync.Mutex
	c         *runCollectors
	startedAt map[string]time.Time
	lastPath  string
	lastErr   error
}

// NewRunMetricsExporter creates an exporter writing fileName into each run
// directory. The outcome of every write is recorded in log when it is not nil.
func NewRunMetricsExporter(fileName string, log EventLog) *RunMetricsExporter {
	if fileName == "" {
		fileName = "metrics.prom"
	}
	return &RunMetricsExporter{
		fileName:  fileName,
		log:       log,
		now:       time.Now,
		c:         newRunCollectors(),
		startedAt: make(map[string]time.Time),
	}
}

func (e *RunMetricsExporter) RunStarted(runID, outputDir string, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.c = newRunCollectors()
	e.startedAt = make(map[string]time.Time)
	e.c.runTasks.WithLabelValues("total").Set(float64(total))
}

func (e *RunMetricsExporter) TaskStarted(task models.Task, handler string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.c.tasksInFlight.Inc()
	e.startedAt[task.ID] = e.now()
}

func (e *RunMetricsExporter) TaskFinished(task models.Task, result models.TaskResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	handler := result.Handler
	if handler == "" {
		handler = "none"
	}
	e.c.tasksInFlight.Dec()
	e.c.tasksTotal.WithLabelValues(handler, string(result.Status)).Inc()
	if start, ok := e.startedAt[task.ID]; ok {
		e.c.taskDuration.WithLabelValues(handler).Observe(e.now().Sub(start).Seconds())
		delete(e.startedAt, task.ID)
	}
}

func (e *RunMetricsExporter) RunFinished(summary models.ExecutionSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.c.runDuration.Set(summary.Duration.Seconds())
	e.c.runTasks.WithLabelValues("succeeded").Set(float64(summary.SuccessCount))
	e.c.runTasks.WithLabelValues("failed").Set(float64(summary.FailureCount))

	path := filepath.Join(summary.OutputDir, e.fileName)
	var buf bytes.Buffer
	err := writeExposition(&buf, e.c.registry)
	if err == nil {
		if werr := os.WriteFile(path, buf.Bytes(), 0o644); werr != nil {
			err = fmt.Errorf("writing metrics file: %w", werr)
		}
	}
	if err != nil {
		e.lastPath, e.lastErr = "", err
		e.logEvent(LevelWarn, EventMetricsWriteFailed, map[string]any{"run_id": summary.RunID, "error": err.Error()})
		return
	}
	e.lastPath, e.lastErr = path, nil
	e.logEvent(LevelInfo, EventMetricsWritten, map[string]any{"run_id": summary.RunID, "path": path})
}

func (e *RunMetricsExporter) logEvent(level, eventType string, data map[string]any) {
	if e.log == nil {
		return
	}
	_ = e.log.Write(Event{
		Time:    e.now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: MessageForEvent(eventType, data),
		Data:    data,
	})
}

// result returns the path of the last metrics file written and the error of
// the last write attempt.
func (e *RunMetricsExporter) result() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPath, e.lastErr
}

// writeText renders the current run's metrics in the text exposition format.
func (e *RunMetricsExporter) writeText(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return writeExposition(w, e.c.registry)
}

func writeExposition(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
