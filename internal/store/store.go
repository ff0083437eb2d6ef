// Package store defines the task store collaborator contract and its
// implementations. The orchestration loop only ever reads task snapshots and
// requests status mutations; tasks are created and owned by the store.
package store

import (
	"context"
	"errors"

	"github.com/beadloop/beadloop/pkg/models"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound indicates the requested task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrClaimConflict indicates the task was not in ready state, typically
	// because a concurrent orchestrator claimed it first. Not a failure;
	// callers skip the task for the current iteration.
	ErrClaimConflict = errors.New("task already claimed")
)

// DefaultPageSize bounds candidate queries when no limit is given. The bound
// keeps per-iteration round-trip cost predictable; it is not a correctness
// limit.
const DefaultPageSize = 50

// ListOptions bounds and filters candidate queries.
type ListOptions struct {
	// Label restricts results to tasks carrying this label, if non-empty.
	Label string
	// Limit is the page size. Values <= 0 fall back to DefaultPageSize.
	Limit int
}

// StatusUpdate describes a requested status mutation.
type StatusUpdate struct {
	Status models.Status
	// Note is an optional free-text annotation recorded with the change.
	Note string
	// SessionRef optionally links the change to an execution session.
	SessionRef string
}

// TaskReader provides read-only snapshot queries.
type TaskReader interface {
	// ListReady returns tasks with status ready.
	ListReady(ctx context.Context, opts ListOptions) ([]models.Task, error)

	// ListInProgress returns tasks with status in_progress.
	ListInProgress(ctx context.Context, opts ListOptions) ([]models.Task, error)

	// ListChildren returns the direct children of parentID, including
	// terminal ones.
	ListChildren(ctx context.Context, parentID string, limit int) ([]models.Task, error)

	// Get returns a single task snapshot, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Task, error)
}

// TaskClaimer provides the atomic acquisition operation.
type TaskClaimer interface {
	// Claim atomically transitions a task from ready to in_progress.
	// The store guarantees at-most-one successful claimant across
	// concurrent orchestrators; losers receive ErrClaimConflict.
	Claim(ctx context.Context, id string) error
}

// StatusWriter provides status and annotation mutations.
type StatusWriter interface {
	// SetStatus mutates a task's status. Failures are returned, never
	// swallowed; the lifecycle controller decides how to react.
	SetStatus(ctx context.Context, id string, update StatusUpdate) error

	// AppendNote attaches a progress annotation without changing status.
	AppendNote(ctx context.Context, id string, text string) error
}

// TaskStore is the full collaborator contract required by the orchestrator.
type TaskStore interface {
	TaskReader
	TaskClaimer
	StatusWriter
}
