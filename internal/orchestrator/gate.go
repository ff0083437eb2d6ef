package orchestrator

import (
	"context"

	"github.com/beadloop/beadloop/internal/store"
	"github.com/beadloop/beadloop/pkg/models"
)

// Gate decides whether a non-leaf task may close: every direct child must be
// in a terminal state. Children are always fetched fresh so the answer
// reflects the store, not a cached snapshot.
type Gate struct {
	store store.TaskReader
	log   *DebugLogger
}

// childPageSize bounds the child fetch. Direct child counts are small in
// practice; the bound only guards against degenerate trees.
const childPageSize = 100

// NewGate creates a dependency gate over the given store.
func NewGate(s store.TaskReader, log *DebugLogger) *Gate {
	return &Gate{store: s, log: log}
}

// ChildrenComplete reports whether all direct children of the task are done
// or closed. A task with zero children is vacuously complete. A store read
// failure also counts as complete rather than wedging the walk; the loop
// favors availability here and the close mutation still has to succeed.
func (g *Gate) ChildrenComplete(ctx context.Context, parentID string) bool {
	complete, _ := g.Inspect(ctx, parentID)
	return complete
}

// Inspect evaluates the gate in one child fetch. When the gate is open it
// also reports the id of a blocked child, if any; a subtree that can no
// longer make progress on its own is escalated rather than re-polled.
func (g *Gate) Inspect(ctx context.Context, parentID string) (complete bool, blockedChild string) {
	children, err := g.store.ListChildren(ctx, parentID, childPageSize)
	if err != nil {
		g.log.Log("gate: list children of %s failed: %v (treating as complete)", parentID, err)
		return true, ""
	}

	complete = true
	for _, child := range children {
		if child.Status.Terminal() {
			continue
		}
		complete = false
		if child.Status == models.StatusBlocked && blockedChild == "" {
			blockedChild = child.ID
		}
	}
	return complete, blockedChild
}
