package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskSelected indicates the scheduler picked a task to process.
	EventTaskSelected EventType = "task_selected"
	// EventTaskCompleted indicates a task reached a terminal state.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskBlocked indicates a task was marked blocked.
	EventTaskBlocked EventType = "task_blocked"
	// EventTaskTimedOut indicates an agent hit the wall-clock limit and the
	// task was left in progress for a later resume.
	EventTaskTimedOut EventType = "task_timed_out"
	// EventTaskSkipped indicates a task was passed over this iteration
	// (lost claim race or dependency gate still open).
	EventTaskSkipped EventType = "task_skipped"
	// EventTaskExecuted indicates the agent succeeded but auto-complete is
	// off, so the task stays in progress.
	EventTaskExecuted EventType = "task_executed"
	// EventDryRun indicates the task was inspected without any mutation.
	EventDryRun EventType = "dry_run"
	// EventLoopFinished indicates the orchestration loop has stopped.
	EventLoopFinished EventType = "loop_finished"
)

// Event represents a step in the orchestration loop. Events feed the CLI
// output and carry no control-flow significance.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// TaskTitle is the title of the related task, if applicable.
	TaskTitle string
	// Iteration is the 1-based loop iteration the event belongs to.
	Iteration int
	// Resumed marks tasks picked up from in_progress rather than ready.
	Resumed bool
	// Message provides additional context about the event.
	Message string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventHandler receives loop events. Handlers run synchronously on the loop
// goroutine and must not block.
type EventHandler func(Event)
