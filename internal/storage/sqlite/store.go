package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tracker/internal/models"
)

// Store wraps access to the SQLite database and exposes the read queries the
// analytics engine runs against a project snapshot.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'user'
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            owner_id INTEGER NOT NULL,
            start_date DATETIME,
            end_date DATETIME,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(owner_id) REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS project_members (
            project_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            role TEXT NOT NULL DEFAULT 'member',
            PRIMARY KEY(project_id, user_id),
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS sprints (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            start_date DATETIME NOT NULL,
            end_date DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'planning',
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            sprint_id INTEGER,
            title TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'todo',
            priority TEXT NOT NULL DEFAULT 'medium',
            estimated_time REAL NOT NULL DEFAULT 0,
            actual_time REAL NOT NULL DEFAULT 0,
            due_date DATETIME,
            completed_at DATETIME,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE,
            FOREIGN KEY(sprint_id) REFERENCES sprints(id) ON DELETE SET NULL
        );`,
		`CREATE TABLE IF NOT EXISTS task_assignees (
            task_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            PRIMARY KEY(task_id, user_id),
            FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS time_entries (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_id INTEGER NOT NULL,
            project_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            start_time DATETIME NOT NULL,
            start_unix INTEGER NOT NULL,
            end_time DATETIME,
            duration INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'running',
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_sprint ON tasks(project_id, sprint_id);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_project_start ON time_entries(project_id, start_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_task ON time_entries(task_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// GetProject fetches a single project by id together with its member list.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var (
		p          models.Project
		start, end sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, owner_id, start_date, end_date, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.OwnerID, &start, &end, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	p.StartDate = timePtr(start)
	p.EndDate = timePtr(end)

	rows, err := s.db.QueryContext(ctx, `SELECT user_id, role FROM project_members WHERE project_id = ? ORDER BY user_id`, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return models.Project{}, fmt.Errorf("scan member: %w", err)
		}
		p.Members = append(p.Members, m)
	}
	return p, rows.Err()
}

// GetSprint retrieves a sprint by id.
func (s *Store) GetSprint(ctx context.Context, id int64) (models.Sprint, error) {
	var sp models.Sprint
	err := s.db.QueryRowContext(ctx, `SELECT id, project_id, name, start_date, end_date, status FROM sprints WHERE id = ?`, id).
		Scan(&sp.ID, &sp.ProjectID, &sp.Name, &sp.StartDate, &sp.EndDate, &sp.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sprint{}, fmt.Errorf("sprint %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Sprint{}, fmt.Errorf("get sprint: %w", err)
	}
	return sp, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, role FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUsers returns the users that exist among ids, keyed by id. Unknown ids are
// simply absent from the result.
func (s *Store) GetUsers(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	users := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT id, name, email, role FROM users WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

// ListTasks returns the tasks of a project, optionally narrowed to a sprint,
// with their assignees attached.
func (s *Store) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	query := `SELECT id, project_id, sprint_id, title, status, priority, estimated_time, actual_time, due_date, completed_at, created_at
        FROM tasks WHERE project_id = ?`
	args := []any{filter.ProjectID}
	if filter.SprintID != nil {
		query += ` AND sprint_id = ?`
		args = append(args, *filter.SprintID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	index := make(map[int64]int)
	for rows.Next() {
		var (
			t              models.Task
			sprintID       sql.NullInt64
			due, completed sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.ProjectID, &sprintID, &t.Title, &t.Status, &t.Priority,
			&t.EstimatedTime, &t.ActualTime, &due, &completed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if sprintID.Valid {
			id := sprintID.Int64
			t.SprintID = &id
		}
		t.DueDate = timePtr(due)
		t.CompletedAt = timePtr(completed)
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	arows, err := s.db.QueryContext(ctx, `SELECT ta.task_id, ta.user_id FROM task_assignees ta
        JOIN tasks t ON t.id = ta.task_id WHERE t.project_id = ? ORDER BY ta.task_id, ta.user_id`, filter.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var taskID, userID int64
		if err := arows.Scan(&taskID, &userID); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Assignees = append(tasks[i].Assignees, userID)
		}
	}
	return tasks, arows.Err()
}

// ListTimeEntries returns the time entries of a project whose start time falls
// inside the filter bounds.
func (s *Store) ListTimeEntries(ctx context.Context, filter models.TimeEntryFilter) ([]models.TimeEntry, error) {
	query := `SELECT id, task_id, project_id, user_id, start_time, end_time, duration, status
        FROM time_entries WHERE project_id = ?`
	args := []any{filter.ProjectID}
	if !filter.From.IsZero() {
		query += ` AND start_unix >= ?`
		args = append(args, filter.From.Unix())
	}
	if !filter.To.IsZero() {
		query += ` AND start_unix <= ?`
		args = append(args, filter.To.Unix())
	}
	query += ` ORDER BY start_unix, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	var entries []models.TimeEntry
	for rows.Next() {
		var (
			e   models.TimeEntry
			end sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.ProjectID, &e.UserID, &e.StartTime, &end, &e.Duration, &e.Status); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		e.EndTime = timePtr(end)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
