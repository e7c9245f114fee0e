package crawler

import (
	"errors"
	"fmt"
)

// TaskStatus represents the lifecycle state of a crawl task.
type TaskStatus string

// Task status values reported by the backend.
const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusPaused    TaskStatus = "paused"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// ErrIllegalTransition is returned when an action is not allowed from the
// task's current status.
var ErrIllegalTransition = errors.New("illegal task transition")

// Action is an operator-triggered task control.
type Action string

// Task actions.
const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
	ActionDelete Action = "delete"
)

var transitions = map[TaskStatus][]TaskStatus{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusPaused, StatusCompleted, StatusFailed, StatusCancelled},
	StatusPaused:  {StatusRunning, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is completed, failed or cancelled.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is an edge of the task state machine.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Allowed reports whether action a may be issued for a task in status s.
func (s TaskStatus) Allowed(a Action) bool {
	switch a {
	case ActionPause:
		return CanTransition(s, StatusPaused)
	case ActionResume:
		return s == StatusPaused && CanTransition(s, StatusRunning)
	case ActionCancel:
		return CanTransition(s, StatusCancelled)
	case ActionDelete:
		return s.Terminal()
	default:
		return false
	}
}

// CheckAction returns ErrIllegalTransition when a is not allowed from s.
func CheckAction(s TaskStatus, a Action) error {
	if s.Allowed(a) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s a %s task", ErrIllegalTransition, a, s)
}
