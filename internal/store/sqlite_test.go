package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/beadloop/beadloop/pkg/models"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *SQLiteStore, tasks ...models.Task) {
	t.Helper()
	for _, task := range tasks {
		if err := s.Create(context.Background(), task); err != nil {
			t.Fatalf("seed %s: %v", task.ID, err)
		}
	}
}

func TestSQLiteListReady(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		models.Task{ID: "fb-x0", Title: "Epic", Type: "epic", Status: models.StatusReady},
		models.Task{ID: "fb-x0.1.1", Title: "Leaf", Status: models.StatusReady, Labels: []string{"agent:backend"}},
		models.Task{ID: "fb-x0.1.2", Title: "Busy", Status: models.StatusInProgress},
	)

	tasks, err := s.ListReady(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("ListReady: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 ready tasks, got %d", len(tasks))
	}

	labeled, err := s.ListReady(context.Background(), ListOptions{Label: "agent:backend"})
	if err != nil {
		t.Fatalf("ListReady with label: %v", err)
	}
	if len(labeled) != 1 || labeled[0].ID != "fb-x0.1.1" {
		t.Fatalf("label filter returned %+v", labeled)
	}
}

func TestSQLiteListChildrenIncludesTerminal(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		models.Task{ID: "fb-x0.1", Title: "Parent", Status: models.StatusReady},
		models.Task{ID: "fb-x0.1.1", Title: "Done child", Status: models.StatusDone, ParentID: "fb-x0.1"},
		models.Task{ID: "fb-x0.1.2", Title: "Ready child", Status: models.StatusReady, ParentID: "fb-x0.1"},
	)

	children, err := s.ListChildren(context.Background(), "fb-x0.1", 0)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected terminal children included, got %d", len(children))
	}
}

func TestSQLiteGetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "fb-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteClaimIsAtMostOnce(t *testing.T) {
	s := openTestStore(t)
	seed(t, s, models.Task{ID: "fb-x0.1.1", Title: "Leaf", Status: models.StatusReady})

	if err := s.Claim(context.Background(), "fb-x0.1.1"); err != nil {
		t.Fatalf("first claim should succeed: %v", err)
	}

	err := s.Claim(context.Background(), "fb-x0.1.1")
	if !errors.Is(err, ErrClaimConflict) {
		t.Errorf("second claim should conflict, got %v", err)
	}

	task, err := s.Get(context.Background(), "fb-x0.1.1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != models.StatusInProgress {
		t.Errorf("status = %q, want in_progress", task.Status)
	}
}

func TestSQLiteClaimMissingTask(t *testing.T) {
	s := openTestStore(t)

	err := s.Claim(context.Background(), "fb-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteClaimRequiresReadyState(t *testing.T) {
	s := openTestStore(t)
	seed(t, s, models.Task{ID: "fb-x0.1.1", Title: "Blocked", Status: models.StatusBlocked})

	err := s.Claim(context.Background(), "fb-x0.1.1")
	if !errors.Is(err, ErrClaimConflict) {
		t.Errorf("claiming a non-ready task should conflict, got %v", err)
	}
}

func TestSQLiteSetStatusRecordsNote(t *testing.T) {
	s := openTestStore(t)
	seed(t, s, models.Task{ID: "fb-x0.1.1", Title: "Leaf", Status: models.StatusInProgress})

	err := s.SetStatus(context.Background(), "fb-x0.1.1", StatusUpdate{
		Status:     models.StatusBlocked,
		Note:       "agent execution failed",
		SessionRef: "sess-1",
	})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	task, err := s.Get(context.Background(), "fb-x0.1.1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != models.StatusBlocked {
		t.Errorf("status = %q, want blocked", task.Status)
	}

	notes, err := s.Notes(context.Background(), "fb-x0.1.1")
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 1 || notes[0] != "agent execution failed" {
		t.Errorf("notes = %v", notes)
	}
}

func TestSQLiteSetStatusMissingTask(t *testing.T) {
	s := openTestStore(t)

	err := s.SetStatus(context.Background(), "fb-missing", StatusUpdate{Status: models.StatusDone})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteAppendNoteKeepsStatus(t *testing.T) {
	s := openTestStore(t)
	seed(t, s, models.Task{ID: "fb-x0.1.1", Title: "Leaf", Status: models.StatusInProgress})

	if err := s.AppendNote(context.Background(), "fb-x0.1.1", "timed out after 30m"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}

	task, err := s.Get(context.Background(), "fb-x0.1.1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != models.StatusInProgress {
		t.Errorf("AppendNote must not change status, got %q", task.Status)
	}
}

func TestSQLiteCountByStatus(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		models.Task{ID: "fb-a", Title: "A", Status: models.StatusReady},
		models.Task{ID: "fb-b", Title: "B", Status: models.StatusReady},
		models.Task{ID: "fb-c", Title: "C", Status: models.StatusClosed},
	)

	counts, err := s.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.StatusReady] != 2 || counts[models.StatusClosed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
