package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/beadloop/beadloop/pkg/models"
)

// SQLiteStore implements TaskStore over a project-local SQLite database.
// The claim operation is a single conditional UPDATE, so at-most-one
// claimant is guaranteed across concurrent orchestrator processes sharing
// the database file.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// SQLitePath returns the project-local database path.
func SQLitePath(projectRoot string) string {
	return filepath.Join(projectRoot, ".beadloop", "tasks.db")
}

// OpenSQLite opens (and if necessary creates) the task database at path.
// WAL mode is enabled for concurrent reads.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			acceptance TEXT DEFAULT '',
			type TEXT NOT NULL DEFAULT 'task',
			status TEXT NOT NULL DEFAULT 'ready',
			labels TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id)`,
		`CREATE TABLE IF NOT EXISTS task_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL REFERENCES tasks(id),
			note TEXT NOT NULL,
			session_ref TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Create inserts a task. Task authoring is not an orchestrator concern;
// this exists for external tooling and tests that seed the store.
func (s *SQLiteStore) Create(ctx context.Context, t models.Task) error {
	labels, err := json.Marshal(t.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	status := t.Status
	if status == "" {
		status = models.StatusReady
	}
	taskType := t.Type
	if taskType == "" {
		taskType = "task"
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO tasks (id, parent_id, title, description, acceptance, type, status, labels)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ParentID, t.Title, t.Description, t.AcceptanceCriteria, taskType, string(status), string(labels))
	if err != nil {
		return fmt.Errorf("create task %s: %w", t.ID, err)
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var parent sql.NullString
		var labels string
		if err := rows.Scan(&t.ID, &parent, &t.Title, &t.Description, &t.AcceptanceCriteria, &t.Type, &t.Status, &labels); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.ParentID = parent.String
		if err := json.Unmarshal([]byte(labels), &t.Labels); err != nil {
			return nil, fmt.Errorf("decode labels for %s: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

const selectCols = `SELECT id, parent_id, title, description, acceptance, type, status, labels FROM tasks`

func (s *SQLiteStore) listByStatus(ctx context.Context, status models.Status, opts ListOptions) ([]models.Task, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}

	rows, err := s.conn.QueryContext(ctx,
		selectCols+` WHERE status = ? ORDER BY id LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", status, err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if opts.Label == "" {
		return tasks, nil
	}

	// Label filtering happens after the page query. The page size is a
	// round-trip cost cap, not a correctness bound, so an under-filled
	// page after filtering is acceptable.
	filtered := tasks[:0]
	for _, t := range tasks {
		if t.HasLabel(opts.Label) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// ListReady returns tasks with status ready.
func (s *SQLiteStore) ListReady(ctx context.Context, opts ListOptions) ([]models.Task, error) {
	return s.listByStatus(ctx, models.StatusReady, opts)
}

// ListInProgress returns tasks with status in_progress.
func (s *SQLiteStore) ListInProgress(ctx context.Context, opts ListOptions) ([]models.Task, error) {
	return s.listByStatus(ctx, models.StatusInProgress, opts)
}

// ListChildren returns the direct children of parentID, terminal included.
func (s *SQLiteStore) ListChildren(ctx context.Context, parentID string, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	rows, err := s.conn.QueryContext(ctx,
		selectCols+` WHERE parent_id = ? ORDER BY id LIMIT ?`, parentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", parentID, err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// Get returns a single task snapshot, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Task, error) {
	rows, err := s.conn.QueryContext(ctx, selectCols+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return &tasks[0], nil
}

// Claim atomically transitions a task from ready to in_progress. The
// conditional UPDATE succeeds for exactly one claimant; everyone else sees
// zero affected rows and receives ErrClaimConflict.
func (s *SQLiteStore) Claim(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(models.StatusInProgress), time.Now().UTC(), id, string(models.StatusReady))
	if err != nil {
		return fmt.Errorf("claim %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim %s: %w", id, err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, ErrNotFound) {
			return fmt.Errorf("claim %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("claim %s: %w", id, ErrClaimConflict)
	}
	return nil
}

// SetStatus mutates a task's status, recording any note or session ref.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, update StatusUpdate) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set status %s: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(update.Status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set status %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("set status %s: %w", id, ErrNotFound)
	}

	if update.Note != "" || update.SessionRef != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_notes (task_id, note, session_ref) VALUES (?, ?, ?)`,
			id, update.Note, update.SessionRef); err != nil {
			return fmt.Errorf("record note for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// AppendNote attaches a progress annotation without changing status.
func (s *SQLiteStore) AppendNote(ctx context.Context, id string, text string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO task_notes (task_id, note) VALUES (?, ?)`, id, text)
	if err != nil {
		return fmt.Errorf("append note to %s: %w", id, err)
	}
	return nil
}

// Notes returns the recorded annotations for a task, oldest first.
func (s *SQLiteStore) Notes(ctx context.Context, id string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT note FROM task_notes WHERE task_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("notes for %s: %w", id, err)
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CountByStatus returns the number of tasks per status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

var _ TaskStore = (*SQLiteStore)(nil)
