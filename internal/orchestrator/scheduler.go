package orchestrator

import (
	"context"

	"github.com/beadloop/beadloop/internal/hierarchy"
	"github.com/beadloop/beadloop/internal/store"
	"github.com/beadloop/beadloop/pkg/models"
)

// Scheduler picks the next task to process. Candidates are ordered deepest
// first so leaf tasks (where real work happens) always run before their
// ancestors; an ancestor is only considered once its whole subtree is
// terminal, which is what makes auto-closing it safe.
type Scheduler struct {
	store store.TaskReader
	gate  *Gate
	log   *DebugLogger

	label    string
	pageSize int
	resume   bool
}

// SchedulerConfig controls candidate selection.
type SchedulerConfig struct {
	// Label restricts candidates to tasks carrying this label.
	Label string
	// PageSize bounds each candidate fetch; <= 0 uses the store default.
	PageSize int
	// Resume prefers in-progress tasks over fresh ready ones.
	Resume bool
}

// NewScheduler creates a scheduler over the given store and gate.
func NewScheduler(s store.TaskReader, gate *Gate, log *DebugLogger, cfg SchedulerConfig) *Scheduler {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}
	return &Scheduler{
		store:    s,
		gate:     gate,
		log:      log,
		label:    cfg.Label,
		pageSize: pageSize,
		resume:   cfg.Resume,
	}
}

// Next returns the next task to process and whether it was resumed from
// in_progress. A nil task means no work remains and the loop should stop.
//
// In resume mode the in-progress pool is walked first: leaf tasks are
// resumable immediately, non-leaf tasks only once the dependency gate
// passes, otherwise they are skipped so their children get processed first.
func (s *Scheduler) Next(ctx context.Context) (*models.Task, bool) {
	if s.resume {
		if task := s.nextInProgress(ctx); task != nil {
			return task, true
		}
	}
	return s.nextReady(ctx), false
}

func (s *Scheduler) nextInProgress(ctx context.Context) *models.Task {
	tasks, err := s.store.ListInProgress(ctx, store.ListOptions{Label: s.label, Limit: s.pageSize})
	if err != nil {
		s.log.Log("scheduler: list in-progress failed: %v", err)
		return nil
	}
	hierarchy.SortDeepestFirst(tasks)

	for i := range tasks {
		task := tasks[i]
		if hierarchy.IsLeaf(&task) {
			return &task
		}
		if s.gate.ChildrenComplete(ctx, task.ID) {
			return &task
		}
		s.log.Log("scheduler: skipping in-progress non-leaf %s (children not complete)", task.ID)
	}
	return nil
}

func (s *Scheduler) nextReady(ctx context.Context) *models.Task {
	tasks, err := s.store.ListReady(ctx, store.ListOptions{Label: s.label, Limit: s.pageSize})
	if err != nil {
		s.log.Log("scheduler: list ready failed: %v", err)
		return nil
	}
	if len(tasks) == 0 {
		return nil
	}
	hierarchy.SortDeepestFirst(tasks)

	task := tasks[0]
	return &task
}
