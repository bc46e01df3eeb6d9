package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Event represents a single observable event in the system.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "run.started", "task.failed"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter specifies criteria for reading events.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	// TypePrefix matches every type starting with it, e.g. "task.".
	TypePrefix string
	Level      string
	RunID      string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog implements EventLog using an append-only JSONL file.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at the given
// path, creating parent directories as needed.
func NewJSONLEventLog(path string) (EventLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating event log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{
		path: path,
		file: f,
	}, nil
}

// Write appends a JSON-encoded event followed by a newline to the log file.
// Each event is a single write call, so concurrent writers never interleave.
func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read opens the log file for reading, scans line by line, decodes each event,
// and returns those matching the given filter.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // skip malformed lines
		}

		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}

	return events, nil
}

// Close closes the underlying log file.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// LevelForEvent maps an event type to its level.
func LevelForEvent(eventType string) string {
	switch {
	case eventType == "run.failed", eventType == "task.failed":
		return LevelError
	case strings.HasSuffix(eventType, "_failed"),
		eventType == "task.unassigned",
		eventType == "manifest.block_dropped":
		return LevelWarn
	default:
		return LevelInfo
	}
}

// MessageForEvent renders a short human-readable message for an event.
func MessageForEvent(eventType string, data map[string]any) string {
	str := func(key string) string {
		s, _ := data[key].(string)
		return s
	}
	switch eventType {
	case "run.started":
		return fmt.Sprintf("run started with %v tasks", data["tasks"])
	case "run.completed":
		return fmt.Sprintf("run completed: %v succeeded, %v failed", data["success_count"], data["failure_count"])
	case "run.failed":
		return "run failed: " + str("error")
	case "task.assigned":
		return fmt.Sprintf("%s assigned to %s", str("task"), str("handler"))
	case "task.unassigned":
		return "no suitable handler for " + str("task")
	case "task.completed":
		return str("task") + " completed"
	case "task.failed":
		return str("task") + " failed"
	case "manifest.loaded":
		return fmt.Sprintf("manifest loaded: %v pending of %v", data["pending"], data["parsed"])
	default:
		if e := str("error"); e != "" {
			return eventType + ": " + e
		}
		return eventType
	}
}

// matchesEventFilter checks whether an event satisfies all filter criteria.
func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.TypePrefix != "" && !strings.HasPrefix(event.Type, filter.TypePrefix) {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	if filter.RunID != "" {
		if id, _ := event.Data["run_id"].(string); id != filter.RunID {
			return false
		}
	}
	return true
}
