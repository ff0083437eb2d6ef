// Package hierarchy derives tree position from task identifiers.
//
// Tracker ids encode their place in the task tree with dot notation:
//
//	fb-ft0     -> depth 0 (epic)
//	fb-ft0.1   -> depth 1 (task)
//	fb-ft0.1.1 -> depth 2 (leaf subtask)
//
// Depth is always recomputed from the id, never stored.
package hierarchy

import (
	"sort"
	"strings"

	"github.com/beadloop/beadloop/pkg/models"
)

// Depth returns the hierarchy depth encoded in a task id: the number of dot
// separators after the first "-". Ids without a "-" separator degrade to
// depth 0 and are treated as roots; this is intentional, not an error.
func Depth(id string) int {
	_, suffix, found := strings.Cut(id, "-")
	if !found {
		return 0
	}
	return strings.Count(suffix, ".")
}

// IsLeaf reports whether a task is a leaf, i.e. a unit of real executable
// work. Epics are never leaves. Depth-1 non-epic tasks are treated as
// parents even when they have no children, so only depth >= 2 qualifies.
func IsLeaf(t *models.Task) bool {
	if t.Type == models.TypeEpic {
		return false
	}
	return Depth(t.ID) >= 2
}

// SortDeepestFirst orders tasks by descending depth, breaking ties by id.
// This is the scheduling order: leaves run before their ancestors.
func SortDeepestFirst(tasks []models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		di, dj := Depth(tasks[i].ID), Depth(tasks[j].ID)
		if di != dj {
			return di > dj
		}
		return tasks[i].ID < tasks[j].ID
	})
}
