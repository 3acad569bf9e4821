// Package audit records sandbox lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per sandbox identity.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/firefly-engineering/fragile/internal/logging"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventCreate  EventType = "create"
	EventStart   EventType = "start"
	EventExec    EventType = "exec"
	EventStop    EventType = "stop"
	EventDestroy EventType = "destroy"
	EventError   EventType = "error"
)

// Step is one cleanup action as recorded in a destroy event.
type Step struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Sandbox   string    `json:"sandbox"`
	Details   string    `json:"details,omitempty"`

	// Code is the exit code of an exec event.
	Code *int `json:"code,omitempty"`

	// Steps is the cleanup report of a destroy event.
	Steps []Step `json:"steps,omitempty"`
}

// Logger writes and reads audit events.
// Events are stored in {eventsDir}/{id}.events.jsonl. A nil Logger, or one
// with an empty directory, records nothing.
type Logger struct {
	eventsDir string
}

// NewLogger creates a new audit logger rooted at eventsDir.
func NewLogger(eventsDir string) *Logger {
	return &Logger{eventsDir: eventsDir}
}

// Enabled reports whether events are persisted.
func (l *Logger) Enabled() bool {
	return l != nil && l.eventsDir != ""
}

func (l *Logger) eventPath(sandbox string) string {
	return filepath.Join(l.eventsDir, sandbox+".events.jsonl")
}

// Log appends an event to the sandbox's audit log.
func (l *Logger) Log(event Event) error {
	if !l.Enabled() {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path := l.eventPath(event.Sandbox)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Record logs an event and swallows any failure. The audit trail never
// changes the outcome of a lifecycle step.
func (l *Logger) Record(event Event) {
	if err := l.Log(event); err != nil {
		logging.Sandbox(event.Sandbox).Debug("audit write failed", "type", event.Type, "error", err)
	}
}

// LogEvent is a convenience method that creates and records an event.
func (l *Logger) LogEvent(eventType EventType, sandbox, details string) {
	l.Record(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Sandbox:   sandbox,
		Details:   details,
	})
}

// Events reads all events for a sandbox in chronological order.
func (l *Logger) Events(sandbox string) ([]Event, error) {
	if !l.Enabled() {
		return nil, nil
	}
	path := l.eventPath(sandbox)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}
