package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// Type denotes the kind of task event pushed by the backend.
type Type string

// Supported task event types.
const (
	TypeStarted   Type = "task_started"
	TypeProgress  Type = "task_progress"
	TypeCompleted Type = "task_completed"
	TypeError     Type = "task_error"
	TypeLog       Type = "task_log"
)

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	switch t {
	case TypeStarted, TypeProgress, TypeCompleted, TypeError, TypeLog:
		return true
	default:
		return false
	}
}

// ChangesStatus reports whether events of type t move a task between
// statuses.
func (t Type) ChangesStatus() bool {
	return t == TypeStarted || t == TypeCompleted || t == TypeError
}

// Event is a validated task event.
type Event struct {
	// Type is the event kind.
	Type Type
	// TaskID names the task the event belongs to.
	TaskID string
	// TS is the server timestamp, or the receive time when the server sent
	// none.
	TS time.Time
	// Status is the status the task enters. Set for started, completed and
	// error events.
	Status crawler.TaskStatus
	// Progress replaces the task's progress. Set for progress events.
	Progress *crawler.Progress
	// Log is appended to the task's logs. Set for log events.
	Log *crawler.TaskLog
	// Message carries the failure text of error events.
	Message string
	// ItemsCollected is the backend's running item count, when reported.
	ItemsCollected int
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TaskID == "" {
		return errors.New("task id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Type {
	case TypeStarted:
		if e.Status != crawler.StatusRunning {
			return fmt.Errorf("started event must carry running status, got %q", e.Status)
		}
	case TypeCompleted:
		if e.Status != crawler.StatusCompleted && e.Status != crawler.StatusCancelled {
			return fmt.Errorf("completed event must carry completed or cancelled status, got %q", e.Status)
		}
	case TypeError:
		if e.Status != crawler.StatusFailed {
			return fmt.Errorf("error event must carry failed status, got %q", e.Status)
		}
	case TypeProgress:
		if e.Progress == nil {
			return errors.New("progress event requires progress")
		}
		if e.Progress.Current < 0 || e.Progress.Total < 0 {
			return errors.New("progress counters must be >= 0")
		}
	case TypeLog:
		if e.Log == nil || e.Log.Message == "" {
			return errors.New("log event requires a message")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Patch converts a status-changing event into the task update it implies.
// It returns false for progress and log events.
func (e Event) Patch() (crawler.TaskPatch, bool) {
	if !e.Type.ChangesStatus() {
		return crawler.TaskPatch{}, false
	}
	status := e.Status
	at := e.TS
	patch := crawler.TaskPatch{Status: &status}
	switch e.Type {
	case TypeStarted:
		patch.StartedAt = &at
	case TypeCompleted:
		patch.CompletedAt = &at
	case TypeError:
		patch.CompletedAt = &at
		if e.Message != "" {
			msg := e.Message
			patch.ErrorMessage = &msg
		}
	}
	return patch, true
}
