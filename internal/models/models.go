package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by the persistence layer when a record does not exist.
var ErrNotFound = errors.New("not found")

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// Sprint statuses.
const (
	SprintPlanning  = "planning"
	SprintActive    = "active"
	SprintCompleted = "completed"
)

// Time entry statuses.
const (
	EntryRunning   = "running"
	EntryPaused    = "paused"
	EntryCompleted = "completed"
)

// Project member roles.
const (
	RoleManager = "manager"
	RoleMember  = "member"
)

// User roles.
const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// ValidTaskStatuses enumerates the statuses supported by the board columns.
var ValidTaskStatuses = map[string]struct{}{
	StatusTodo:       {},
	StatusInProgress: {},
	StatusReview:     {},
	StatusDone:       {},
}

// ValidPriorities enumerates task priorities.
var ValidPriorities = map[string]struct{}{
	"low":    {},
	"medium": {},
	"high":   {},
	"urgent": {},
}

// User is an account that can own projects and log time.
type User struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Role  string `json:"role" yaml:"role"`
}

// Member links a user to a project with a role.
type Member struct {
	UserID int64  `json:"user_id" yaml:"user_id"`
	Role   string `json:"role" yaml:"role"`
}

// Project groups sprints and tasks.
type Project struct {
	ID        int64      `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	OwnerID   int64      `json:"owner_id" yaml:"owner_id"`
	Members   []Member   `json:"members" yaml:"members"`
	StartDate *time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

// Sprint is a time-boxed iteration inside a project.
type Sprint struct {
	ID        int64     `json:"id" yaml:"id"`
	ProjectID int64     `json:"project_id" yaml:"project_id"`
	Name      string    `json:"name" yaml:"name"`
	StartDate time.Time `json:"start_date" yaml:"start_date"`
	EndDate   time.Time `json:"end_date" yaml:"end_date"`
	Status    string    `json:"status" yaml:"status"`
}

// Task represents a single card in the board.
// EstimatedTime and ActualTime are hours; ActualTime is the cached total of flushed time entries.
type Task struct {
	ID            int64      `json:"id" yaml:"id"`
	ProjectID     int64      `json:"project_id" yaml:"project_id"`
	SprintID      *int64     `json:"sprint_id,omitempty" yaml:"sprint_id,omitempty"`
	Title         string     `json:"title" yaml:"title"`
	Status        string     `json:"status" yaml:"status"`
	Priority      string     `json:"priority" yaml:"priority"`
	EstimatedTime float64    `json:"estimated_time" yaml:"estimated_time"`
	ActualTime    float64    `json:"actual_time" yaml:"actual_time"`
	DueDate       *time.Time `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Assignees     []int64    `json:"assignees" yaml:"assignees"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
}

// IsDone reports whether the task sits in the done column.
func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// HasAssignee reports whether userID is one of the task assignees.
func (t Task) HasAssignee(userID int64) bool {
	for _, id := range t.Assignees {
		if id == userID {
			return true
		}
	}
	return false
}

// TimeEntry is a recorded interval of work. Duration is in seconds.
type TimeEntry struct {
	ID        int64      `json:"id" yaml:"id"`
	TaskID    int64      `json:"task_id" yaml:"task_id"`
	ProjectID int64      `json:"project_id" yaml:"project_id"`
	UserID    int64      `json:"user_id" yaml:"user_id"`
	StartTime time.Time  `json:"start_time" yaml:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Duration  int64      `json:"duration" yaml:"duration"`
	Status    string     `json:"status" yaml:"status"`
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	ProjectID int64
	SprintID  *int64
}

// TimeEntryFilter narrows a time entry listing by start time. Zero From/To
// leave that bound open.
type TimeEntryFilter struct {
	ProjectID int64
	From      time.Time
	To        time.Time
}
