package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/beadloop/beadloop/internal/hierarchy"
	"github.com/beadloop/beadloop/pkg/models"
)

func newTestScheduler(s *fakeStore, cfg SchedulerConfig) *Scheduler {
	return NewScheduler(s, NewGate(s, NopLogger()), NopLogger(), cfg)
}

func TestNextPicksDeepestReadyTask(t *testing.T) {
	// Depths 0, 1, 2, 2: a depth-2 task must win, and among equal depths
	// the lexicographically smaller ID.
	s := newFakeStore(
		epic("fb-a0", models.StatusReady),
		leaf("fb-a0.1", models.StatusReady, "fb-a0"),
		leaf("fb-a0.1.2", models.StatusReady, "fb-a0.1"),
		leaf("fb-a0.1.1", models.StatusReady, "fb-a0.1"),
	)
	sched := newTestScheduler(s, SchedulerConfig{})

	task, resumed := sched.Next(context.Background())
	if task == nil {
		t.Fatal("expected a task")
	}
	if resumed {
		t.Error("ready task should not be marked resumed")
	}
	if task.ID != "fb-a0.1.1" {
		t.Errorf("selected %s, want fb-a0.1.1", task.ID)
	}
}

func TestNextSelectsLeafBeforeParentIsConsidered(t *testing.T) {
	// fb-x0.1 still has a ready child, so the child must be selected and
	// fb-x0 never comes first.
	s := newFakeStore(
		epic("fb-x0", models.StatusReady),
		leaf("fb-x0.1", models.StatusReady, "fb-x0"),
		leaf("fb-x0.1.1", models.StatusDone, "fb-x0.1"),
		leaf("fb-x0.1.2", models.StatusReady, "fb-x0.1"),
	)
	sched := newTestScheduler(s, SchedulerConfig{})

	task, _ := sched.Next(context.Background())
	if task == nil || task.ID != "fb-x0.1.2" {
		t.Fatalf("selected %v, want fb-x0.1.2", task)
	}
}

func TestNextEmptyPoolMeansDone(t *testing.T) {
	sched := newTestScheduler(newFakeStore(), SchedulerConfig{})

	if task, _ := sched.Next(context.Background()); task != nil {
		t.Errorf("expected nil task, got %s", task.ID)
	}
}

func TestNextListErrorDegradesToNoWork(t *testing.T) {
	s := newFakeStore(leaf("fb-a0.1.1", models.StatusReady, "fb-a0.1"))
	s.listErr = errors.New("store unreachable")
	sched := newTestScheduler(s, SchedulerConfig{})

	if task, _ := sched.Next(context.Background()); task != nil {
		t.Errorf("list failure should look like no work, got %s", task.ID)
	}
}

func TestNextResumePrefersInProgressLeaf(t *testing.T) {
	s := newFakeStore(
		leaf("fb-a0.1.1", models.StatusInProgress, "fb-a0.1"),
		leaf("fb-a0.1.2", models.StatusReady, "fb-a0.1"),
	)
	sched := newTestScheduler(s, SchedulerConfig{Resume: true})

	task, resumed := sched.Next(context.Background())
	if task == nil || task.ID != "fb-a0.1.1" {
		t.Fatalf("selected %v, want fb-a0.1.1", task)
	}
	if !resumed {
		t.Error("in-progress pick should be marked resumed")
	}
}

func TestNextResumeSkipsGatedParent(t *testing.T) {
	// The in-progress parent has a ready child, so the walk skips it and
	// falls through to the ready pool.
	s := newFakeStore(
		leaf("fb-a0.1", models.StatusInProgress, "fb-a0"),
		leaf("fb-a0.1.1", models.StatusReady, "fb-a0.1"),
	)
	sched := newTestScheduler(s, SchedulerConfig{Resume: true})

	task, resumed := sched.Next(context.Background())
	if task == nil || task.ID != "fb-a0.1.1" {
		t.Fatalf("selected %v, want fb-a0.1.1", task)
	}
	if resumed {
		t.Error("ready fallback should not be marked resumed")
	}
}

func TestNextResumeReturnsParentOnceChildrenTerminal(t *testing.T) {
	s := newFakeStore(
		leaf("fb-a0.1", models.StatusInProgress, "fb-a0"),
		leaf("fb-a0.1.1", models.StatusClosed, "fb-a0.1"),
		leaf("fb-a0.1.2", models.StatusDone, "fb-a0.1"),
	)
	sched := newTestScheduler(s, SchedulerConfig{Resume: true})

	task, resumed := sched.Next(context.Background())
	if task == nil || task.ID != "fb-a0.1" {
		t.Fatalf("selected %v, want fb-a0.1", task)
	}
	if !resumed {
		t.Error("gated parent pick should be marked resumed")
	}
}

func TestNextWithoutResumeIgnoresInProgress(t *testing.T) {
	s := newFakeStore(leaf("fb-a0.1.1", models.StatusInProgress, "fb-a0.1"))
	sched := newTestScheduler(s, SchedulerConfig{})

	if task, _ := sched.Next(context.Background()); task != nil {
		t.Errorf("expected no work without resume, got %s", task.ID)
	}
}

func TestNextLabelFilter(t *testing.T) {
	withLabel := leaf("fb-a0.1.2", models.StatusReady, "fb-a0.1")
	withLabel.Labels = []string{"sprint-3"}
	s := newFakeStore(
		leaf("fb-a0.1.1", models.StatusReady, "fb-a0.1"),
		withLabel,
	)
	sched := newTestScheduler(s, SchedulerConfig{Label: "sprint-3"})

	task, _ := sched.Next(context.Background())
	if task == nil || task.ID != "fb-a0.1.2" {
		t.Fatalf("selected %v, want fb-a0.1.2", task)
	}
}

func TestSchedulingOrderIsDeterministic(t *testing.T) {
	tasks := []models.Task{
		{ID: "fb-b0"},
		{ID: "fb-a0.1.1"},
		{ID: "fb-a0.2"},
		{ID: "fb-a0.1.2"},
		{ID: "fb-a0"},
	}
	hierarchy.SortDeepestFirst(tasks)

	want := []string{"fb-a0.1.1", "fb-a0.1.2", "fb-a0.2", "fb-a0", "fb-b0"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s (full: %v)", i, tasks[i].ID, id, tasks)
		}
	}
}
