package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/beadloop/beadloop/internal/exec"
	"github.com/beadloop/beadloop/pkg/models"
)

// DefaultBeadsBin is the tracker CLI binary name.
const DefaultBeadsBin = "bd"

// BeadsStore implements TaskStore over the beads tracker CLI. Every method
// is a single subprocess round-trip; the store holds no state of its own.
type BeadsStore struct {
	runner  exec.CommandRunner
	bin     string
	workDir string
}

// NewBeadsStore creates a store backed by the given command runner.
// An empty bin falls back to DefaultBeadsBin.
func NewBeadsStore(runner exec.CommandRunner, bin string) *BeadsStore {
	if bin == "" {
		bin = DefaultBeadsBin
	}
	return &BeadsStore{runner: runner, bin: bin}
}

// SetWorkDir sets the working directory for tracker invocations.
func (s *BeadsStore) SetWorkDir(dir string) {
	s.workDir = dir
}

// beadItem mirrors the tracker's JSON issue shape. The type field has
// shifted between tracker releases ("issue_type" vs "type"), as has the
// parent reference ("parent" vs "parent_id"); both spellings are accepted.
type beadItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Acceptance  string   `json:"acceptance"`
	Status      string   `json:"status"`
	IssueType   string   `json:"issue_type"`
	Type        string   `json:"type"`
	Parent      string   `json:"parent"`
	ParentID    string   `json:"parent_id"`
}

func (it beadItem) toTask() models.Task {
	taskType := it.IssueType
	if taskType == "" {
		taskType = it.Type
	}
	if taskType == "" {
		taskType = "task"
	}
	parent := it.Parent
	if parent == "" {
		parent = it.ParentID
	}
	return models.Task{
		ID:                 it.ID,
		Title:              it.Title,
		Description:        it.Description,
		AcceptanceCriteria: it.Acceptance,
		Labels:             it.Labels,
		Type:               taskType,
		Status:             models.Status(it.Status),
		ParentID:           parent,
	}
}

// decodeTasks parses a tracker JSON response. The CLI returns a single
// object for some queries and an array for others; both are handled.
func decodeTasks(data []byte) ([]models.Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var items []beadItem
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode tracker response: %w", err)
		}
	} else {
		var item beadItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, fmt.Errorf("decode tracker response: %w", err)
		}
		items = []beadItem{item}
	}

	tasks := make([]models.Task, 0, len(items))
	for _, it := range items {
		tasks = append(tasks, it.toTask())
	}
	return tasks, nil
}

// run invokes the tracker CLI and returns its stdout.
func (s *BeadsStore) run(ctx context.Context, args ...string) ([]byte, error) {
	stdout, stderr, err := s.runner.Run(ctx, s.workDir, s.bin, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", s.bin, args[0], msg)
	}
	return stdout, nil
}

func pageLimit(limit int) string {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return strconv.Itoa(limit)
}

// ListReady returns tasks with status ready.
func (s *BeadsStore) ListReady(ctx context.Context, opts ListOptions) ([]models.Task, error) {
	args := []string{"ready", "--json", "--limit", pageLimit(opts.Limit)}
	if opts.Label != "" {
		args = append(args, "--label", opts.Label)
	}
	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return decodeTasks(out)
}

// ListInProgress returns tasks with status in_progress.
func (s *BeadsStore) ListInProgress(ctx context.Context, opts ListOptions) ([]models.Task, error) {
	args := []string{"list", "--status", "in_progress", "--json", "--limit", pageLimit(opts.Limit)}
	if opts.Label != "" {
		args = append(args, "--label", opts.Label)
	}
	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return decodeTasks(out)
}

// ListChildren returns the direct children of parentID. The --all flag
// includes terminal children, which the dependency gate needs.
func (s *BeadsStore) ListChildren(ctx context.Context, parentID string, limit int) ([]models.Task, error) {
	args := []string{"list", "--parent", parentID, "--all", "--json", "--limit", pageLimit(limit)}
	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return decodeTasks(out)
}

// Get returns a single task snapshot, or ErrNotFound.
func (s *BeadsStore) Get(ctx context.Context, id string) (*models.Task, error) {
	out, err := s.run(ctx, "show", id, "--json")
	if err != nil {
		return nil, err
	}
	tasks, err := decodeTasks(out)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return &tasks[0], nil
}

// Claim atomically transitions a task from ready to in_progress. The
// tracker enforces at-most-one claimant, but its CLI reports rejections and
// transport errors the same way, so a failed claim is disambiguated with a
// follow-up read: a task that is no longer ready lost the race; anything
// else is a store error.
func (s *BeadsStore) Claim(ctx context.Context, id string) error {
	_, err := s.run(ctx, "update", id, "--claim")
	if err == nil {
		return nil
	}
	if t, getErr := s.Get(ctx, id); getErr == nil && t.Status != models.StatusReady {
		return fmt.Errorf("claim %s: %w", id, ErrClaimConflict)
	}
	return fmt.Errorf("claim %s: %w", id, err)
}

// SetStatus mutates a task's status, with optional note and session ref.
func (s *BeadsStore) SetStatus(ctx context.Context, id string, update StatusUpdate) error {
	args := []string{"update", id, "--status", string(update.Status)}
	if update.Note != "" {
		args = append(args, "--notes", update.Note)
	}
	if update.SessionRef != "" {
		args = append(args, "--session", update.SessionRef)
	}
	_, err := s.run(ctx, args...)
	return err
}

// AppendNote attaches a progress annotation without changing status.
func (s *BeadsStore) AppendNote(ctx context.Context, id string, text string) error {
	_, err := s.run(ctx, "update", id, "--notes", text)
	return err
}

var _ TaskStore = (*BeadsStore)(nil)
