package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/beadloop/beadloop/pkg/models"
)

// fakeRunner records invocations and replays canned responses keyed by the
// tracker subcommand.
type fakeRunner struct {
	calls     [][]string
	responses map[string]string
	failWith  map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: make(map[string]string),
		failWith:  make(map[string]string),
	}
}

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	key := args[0]
	if msg, ok := f.failWith[key]; ok {
		return nil, []byte(msg), fmt.Errorf("exit status 1")
	}
	return []byte(f.responses[key]), nil, nil
}

func (f *fakeRunner) lastCall() []string {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func TestListReadyBuildsCommand(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["ready"] = `[{"id":"fb-x0.1.1","title":"Leaf","status":"ready","issue_type":"task"}]`
	s := NewBeadsStore(runner, "")

	tasks, err := s.ListReady(context.Background(), ListOptions{Label: "agent:backend", Limit: 10})
	if err != nil {
		t.Fatalf("ListReady: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "fb-x0.1.1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}

	got := strings.Join(runner.lastCall(), " ")
	want := "bd ready --json --limit 10 --label agent:backend"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestListInProgressDefaultsPageSize(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["list"] = `[]`
	s := NewBeadsStore(runner, "bd")

	if _, err := s.ListInProgress(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("ListInProgress: %v", err)
	}

	got := strings.Join(runner.lastCall(), " ")
	want := fmt.Sprintf("bd list --status in_progress --json --limit %d", DefaultPageSize)
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestListChildrenIncludesTerminal(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["list"] = `[{"id":"fb-x0.1.1","status":"closed","type":"task","parent":"fb-x0.1"}]`
	s := NewBeadsStore(runner, "bd")

	children, err := s.ListChildren(context.Background(), "fb-x0.1", 100)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 1 || children[0].ParentID != "fb-x0.1" {
		t.Fatalf("unexpected children: %+v", children)
	}

	got := strings.Join(runner.lastCall(), " ")
	if !strings.Contains(got, "--all") {
		t.Errorf("expected --all in command, got %q", got)
	}
}

func TestDecodeSingleObjectResponse(t *testing.T) {
	// bd show can return a bare object instead of an array.
	runner := newFakeRunner()
	runner.responses["show"] = `{"id":"fb-x0","title":"Epic","status":"ready","issue_type":"epic"}`
	s := NewBeadsStore(runner, "bd")

	task, err := s.Get(context.Background(), "fb-x0")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Type != models.TypeEpic {
		t.Errorf("type = %q, want epic", task.Type)
	}
}

func TestGetEmptyResponseIsNotFound(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["show"] = ""
	s := NewBeadsStore(runner, "bd")

	_, err := s.Get(context.Background(), "fb-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimConflict(t *testing.T) {
	// A rejected claim shows the task already past ready on re-read.
	runner := newFakeRunner()
	runner.failWith["update"] = "issue fb-x0.1.1 is not in ready state"
	runner.responses["show"] = `{"id":"fb-x0.1.1","title":"Leaf","status":"in_progress","issue_type":"task"}`
	s := NewBeadsStore(runner, "bd")

	err := s.Claim(context.Background(), "fb-x0.1.1")
	if !errors.Is(err, ErrClaimConflict) {
		t.Errorf("expected ErrClaimConflict, got %v", err)
	}
}

func TestClaimStoreErrorIsNotConflict(t *testing.T) {
	// When the tracker itself is failing, the error must not satisfy the
	// conflict sentinel; only a genuine lost race does.
	runner := newFakeRunner()
	runner.failWith["update"] = "connection refused"
	runner.failWith["show"] = "connection refused"
	s := NewBeadsStore(runner, "bd")

	err := s.Claim(context.Background(), "fb-x0.1.1")
	if err == nil {
		t.Fatal("expected error from failed claim")
	}
	if errors.Is(err, ErrClaimConflict) {
		t.Errorf("store error must not be ErrClaimConflict, got %v", err)
	}
}

func TestClaimStillReadyAfterFailureIsNotConflict(t *testing.T) {
	// The update failed but the task is untouched; surface the real error.
	runner := newFakeRunner()
	runner.failWith["update"] = "exit status 1"
	runner.responses["show"] = `{"id":"fb-x0.1.1","title":"Leaf","status":"ready","issue_type":"task"}`
	s := NewBeadsStore(runner, "bd")

	err := s.Claim(context.Background(), "fb-x0.1.1")
	if err == nil {
		t.Fatal("expected error from failed claim")
	}
	if errors.Is(err, ErrClaimConflict) {
		t.Errorf("a still-ready task did not lose a race, got %v", err)
	}
}

func TestSetStatusWithNoteAndSession(t *testing.T) {
	runner := newFakeRunner()
	s := NewBeadsStore(runner, "bd")

	err := s.SetStatus(context.Background(), "fb-x0.1.1", StatusUpdate{
		Status:     models.StatusClosed,
		Note:       "all done",
		SessionRef: "sess-42",
	})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got := strings.Join(runner.lastCall(), " ")
	want := "bd update fb-x0.1.1 --status closed --notes all done --session sess-42"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestAppendNote(t *testing.T) {
	runner := newFakeRunner()
	s := NewBeadsStore(runner, "bd")

	if err := s.AppendNote(context.Background(), "fb-x0.1.1", "halfway there"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}

	got := strings.Join(runner.lastCall(), " ")
	want := "bd update fb-x0.1.1 --notes halfway there"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestReadErrorsSurfaceToCaller(t *testing.T) {
	// The store reports read failures; degrading them to empty results is
	// the scheduler's and gate's policy, not the store's.
	runner := newFakeRunner()
	runner.failWith["ready"] = "connection refused"
	s := NewBeadsStore(runner, "bd")

	_, err := s.ListReady(context.Background(), ListOptions{})
	if err == nil {
		t.Fatal("expected error from failed read")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should carry stderr detail, got %v", err)
	}
}
