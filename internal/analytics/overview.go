package analytics

import (
	"math"
	"time"

	"tracker/internal/models"
)

// SprintSummary describes the sprint an overview is scoped to.
type SprintSummary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DaysRemaining int    `json:"days_remaining"`
}

// TimeSources counts tasks by the field their reconciled time came from.
type TimeSources struct {
	Cached  int `json:"cached"`
	Entries int `json:"entries"`
	None    int `json:"none"`
}

// Overview is the headline summary of a project or sprint.
type Overview struct {
	ProjectID       int64          `json:"project_id"`
	SprintID        *int64         `json:"sprint_id,omitempty"`
	EvaluatedAt     time.Time      `json:"evaluated_at"`
	TotalTasks      int            `json:"total_tasks"`
	CompletedTasks  int            `json:"completed_tasks"`
	InProgressTasks int            `json:"in_progress_tasks"`
	ReviewTasks     int            `json:"review_tasks"`
	TodoTasks       int            `json:"todo_tasks"`
	OverdueTasks    int            `json:"overdue_tasks"`
	CompletionRate  float64        `json:"completion_rate"`
	TotalTime       float64        `json:"total_time"`
	EstimatedTime   float64        `json:"estimated_time"`
	TimeSources     TimeSources    `json:"time_sources"`
	TasksByStatus   map[string]int `json:"tasks_by_status"`
	TasksByPriority map[string]int `json:"tasks_by_priority"`
	MemberCount     int            `json:"member_count"`
	Sprint          *SprintSummary `json:"sprint,omitempty"`
}

// BuildOverview tallies tasks and reconciled time. Times are minutes.
func BuildOverview(tasks []models.Task, rec *Reconciler, memberCount int, now time.Time) Overview {
	o := Overview{
		EvaluatedAt:     now,
		TotalTasks:      len(tasks),
		TasksByStatus:   make(map[string]int),
		TasksByPriority: make(map[string]int),
		MemberCount:     memberCount,
	}

	for _, t := range tasks {
		o.TasksByStatus[t.Status]++
		o.TasksByPriority[t.Priority]++
		switch t.Status {
		case models.StatusDone:
			o.CompletedTasks++
		case models.StatusInProgress:
			o.InProgressTasks++
		case models.StatusReview:
			o.ReviewTasks++
		case models.StatusTodo:
			o.TodoTasks++
		}
		if isOverdue(t, now) {
			o.OverdueTasks++
		}

		o.TotalTime += rec.TaskMinutes(t)
		o.EstimatedTime += hoursToMinutes(t.EstimatedTime)
		switch rec.Source(t) {
		case SourceCached:
			o.TimeSources.Cached++
		case SourceEntries:
			o.TimeSources.Entries++
		default:
			o.TimeSources.None++
		}
	}

	if o.TotalTasks > 0 {
		o.CompletionRate = float64(o.CompletedTasks) / float64(o.TotalTasks) * 100
	}
	return o
}

// summarizeSprint reports sprint dates as calendar days and the whole days
// left until the end day, never below zero.
func summarizeSprint(n *Normalizer, sp models.Sprint, now time.Time) *SprintSummary {
	end := n.DayOf(sp.EndDate)
	today := n.InstantDay(now)

	remaining := 0
	if end.After(today) {
		// Round so a DST shift inside the span does not lose a day.
		remaining = int(math.Round(end.Sub(today).Hours() / 24))
	}

	return &SprintSummary{
		ID:            sp.ID,
		Name:          sp.Name,
		Status:        sp.Status,
		StartDate:     n.DayOf(sp.StartDate).Format(dayLayout),
		EndDate:       end.Format(dayLayout),
		DaysRemaining: remaining,
	}
}
