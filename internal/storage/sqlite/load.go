package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tracker/internal/models"
)

// Snapshot is a point-in-time export of tracker records. The owning tracker
// service produces it; this package only replays it into the local database.
type Snapshot struct {
	Users       []models.User      `yaml:"users"`
	Projects    []models.Project   `yaml:"projects"`
	Sprints     []models.Sprint    `yaml:"sprints"`
	Tasks       []models.Task      `yaml:"tasks"`
	TimeEntries []models.TimeEntry `yaml:"time_entries"`
}

// ReadSnapshot decodes a YAML snapshot file.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}

// Load replays a snapshot inside a single transaction. Records keep the ids
// they carry so references between them stay intact.
func (s *Store) Load(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range snap.Users {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, p := range snap.Projects {
		if err := insertProject(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, sp := range snap.Sprints {
		if err := insertSprint(ctx, tx, sp); err != nil {
			return err
		}
	}
	for _, t := range snap.Tasks {
		if err := insertTask(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, e := range snap.TimeEntries {
		if err := insertTimeEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}

	s.logger.Info("snapshot loaded",
		slog.Int("users", len(snap.Users)),
		slog.Int("projects", len(snap.Projects)),
		slog.Int("sprints", len(snap.Sprints)),
		slog.Int("tasks", len(snap.Tasks)),
		slog.Int("time_entries", len(snap.TimeEntries)),
	)
	return nil
}

func insertUser(ctx context.Context, tx *sql.Tx, u models.User) error {
	role := u.Role
	if role == "" {
		role = models.UserRoleUser
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO users(id, name, email, role) VALUES(?, ?, ?, ?)`,
		nullID(u.ID), u.Name, u.Email, role); err != nil {
		return fmt.Errorf("insert user %d: %w", u.ID, err)
	}
	return nil
}

func insertProject(ctx context.Context, tx *sql.Tx, p models.Project) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(id, name, owner_id, start_date, end_date, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		nullID(p.ID), p.Name, p.OwnerID, nullTime(p.StartDate), nullTime(p.EndDate), created)
	if err != nil {
		return fmt.Errorf("insert project %d: %w", p.ID, err)
	}
	id := p.ID
	if id == 0 {
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("project id: %w", err)
		}
	}
	for _, m := range p.Members {
		role := m.Role
		if role == "" {
			role = models.RoleMember
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO project_members(project_id, user_id, role) VALUES(?, ?, ?)`, id, m.UserID, role); err != nil {
			return fmt.Errorf("insert member %d of project %d: %w", m.UserID, id, err)
		}
	}
	return nil
}

func insertSprint(ctx context.Context, tx *sql.Tx, sp models.Sprint) error {
	if !sp.EndDate.After(sp.StartDate) {
		return fmt.Errorf("sprint %d: end date must be after start date", sp.ID)
	}
	status := sp.Status
	if status == "" {
		status = models.SprintPlanning
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sprints(id, project_id, name, start_date, end_date, status) VALUES(?, ?, ?, ?, ?, ?)`,
		nullID(sp.ID), sp.ProjectID, sp.Name, sp.StartDate, sp.EndDate, status); err != nil {
		return fmt.Errorf("insert sprint %d: %w", sp.ID, err)
	}
	return nil
}

func insertTask(ctx context.Context, tx *sql.Tx, t models.Task) error {
	if _, ok := models.ValidTaskStatuses[t.Status]; !ok {
		t.Status = models.StatusTodo
	}
	if _, ok := models.ValidPriorities[t.Priority]; !ok {
		t.Priority = "medium"
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var sprintID any
	if t.SprintID != nil {
		sprintID = *t.SprintID
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(id, project_id, sprint_id, title, status, priority, estimated_time, actual_time, due_date, completed_at, created_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(t.ID), t.ProjectID, sprintID, t.Title, t.Status, t.Priority, t.EstimatedTime, t.ActualTime,
		nullTime(t.DueDate), nullTime(t.CompletedAt), created)
	if err != nil {
		return fmt.Errorf("insert task %d: %w", t.ID, err)
	}
	id := t.ID
	if id == 0 {
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("task id: %w", err)
		}
	}
	for _, userID := range t.Assignees {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_assignees(task_id, user_id) VALUES(?, ?)`, id, userID); err != nil {
			return fmt.Errorf("insert assignee %d of task %d: %w", userID, id, err)
		}
	}
	return nil
}

func insertTimeEntry(ctx context.Context, tx *sql.Tx, e models.TimeEntry) error {
	if e.Duration < 0 {
		return fmt.Errorf("time entry %d: negative duration", e.ID)
	}
	status := e.Status
	if status == "" {
		status = models.EntryCompleted
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO time_entries(id, task_id, project_id, user_id, start_time, start_unix, end_time, duration, status)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(e.ID), e.TaskID, e.ProjectID, e.UserID, e.StartTime, e.StartTime.Unix(), nullTime(e.EndTime), e.Duration, status); err != nil {
		return fmt.Errorf("insert time entry %d: %w", e.ID, err)
	}
	return nil
}

// nullID lets SQLite assign an id when the snapshot leaves it out.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
