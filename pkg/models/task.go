package models

// Status represents the lifecycle state of a task in the tracker.
type Status string

const (
	// StatusReady indicates the task is unclaimed and eligible for work.
	StatusReady Status = "ready"
	// StatusInProgress indicates the task has been claimed.
	StatusInProgress Status = "in_progress"
	// StatusBlocked indicates the task cannot proceed without intervention.
	StatusBlocked Status = "blocked"
	// StatusDone indicates the task completed successfully.
	StatusDone Status = "done"
	// StatusClosed indicates the task was closed, including auto-closed parents.
	StatusClosed Status = "closed"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusReady, StatusInProgress, StatusBlocked, StatusDone, StatusClosed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is done or closed. A parent task may
// only be auto-closed once every direct child is terminal.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusClosed
}

// TypeEpic is the task type that is always treated as a non-leaf node,
// regardless of its position in the id hierarchy.
const TypeEpic = "epic"

// Task is a snapshot of a tracker issue. Snapshots are always fetched fresh
// from the store; the orchestrator never caches them across iterations.
type Task struct {
	// ID is the tracker identifier, e.g. "fb-ft0.1.2". Dot segments after
	// the prefix encode the task's depth in the hierarchy.
	ID string `json:"id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// AcceptanceCriteria defines the criteria for task completion.
	AcceptanceCriteria string `json:"acceptance,omitempty"`
	// Labels carries tracker labels, including the agent:<kind> selector.
	Labels []string `json:"labels,omitempty"`
	// Type is the tracker issue type ("epic", "task", ...).
	Type string `json:"type,omitempty"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// ParentID is a lookup key for the parent task, if any. It is not an
	// ownership relation; child lookups go through the store.
	ParentID string `json:"parent,omitempty"`
}

// HasLabel reports whether the task carries the given label.
func (t *Task) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if l == label {
			return true
		}
	}
	return false
}
