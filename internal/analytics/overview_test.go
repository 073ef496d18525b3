package analytics

import (
	"testing"
	"time"

	"tracker/internal/models"
)

func TestOverviewTallies(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Status: models.StatusDone, Priority: "high", CompletedAt: at(2024, 3, 2, 9), ActualTime: 1.5, EstimatedTime: 2},
		{ID: 2, Status: models.StatusInProgress, Priority: "high", DueDate: at(2024, 3, 5, 0), EstimatedTime: 1},
		{ID: 3, Status: models.StatusReview, Priority: "low"},
		{ID: 4, Status: models.StatusTodo, Priority: "medium", DueDate: at(2024, 4, 1, 0)},
	}
	rec := NewReconciler([]models.TimeEntry{{TaskID: 2, Duration: 1200}})
	now := *at(2024, 3, 10, 12)

	o := BuildOverview(tasks, rec, 3, now)

	if o.TotalTasks != 4 || o.CompletedTasks != 1 || o.InProgressTasks != 1 || o.ReviewTasks != 1 || o.TodoTasks != 1 {
		t.Fatalf("unexpected counts %+v", o)
	}
	if o.OverdueTasks != 1 {
		t.Fatalf("overdue = %d, want 1", o.OverdueTasks)
	}
	if o.CompletionRate != 25 {
		t.Fatalf("completion rate = %v, want 25", o.CompletionRate)
	}
	if o.TotalTime != 110 || o.EstimatedTime != 180 {
		t.Fatalf("time = %v / %v, want 110 / 180", o.TotalTime, o.EstimatedTime)
	}
	if o.TimeSources != (TimeSources{Cached: 1, Entries: 1, None: 2}) {
		t.Fatalf("time sources = %+v", o.TimeSources)
	}
	if o.TasksByPriority["high"] != 2 || o.TasksByStatus[models.StatusReview] != 1 {
		t.Fatalf("breakdowns = %v / %v", o.TasksByStatus, o.TasksByPriority)
	}
	if o.MemberCount != 3 {
		t.Fatalf("member count = %d, want 3", o.MemberCount)
	}
}

func TestOverviewEmpty(t *testing.T) {
	o := BuildOverview(nil, NewReconciler(nil), 0, time.Now())
	if o.CompletionRate != 0 || o.TotalTasks != 0 {
		t.Fatalf("unexpected overview %+v", o)
	}
	if o.TasksByStatus == nil || o.TasksByPriority == nil {
		t.Fatalf("breakdown maps should be non-nil")
	}
}

func TestSummarizeSprintDaysRemaining(t *testing.T) {
	n := NewNormalizer(time.UTC, discardLogger())
	sp := models.Sprint{
		ID:        5,
		Name:      "Sprint 5",
		Status:    models.SprintActive,
		StartDate: day(2024, 3, 1),
		EndDate:   time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		now  time.Time
		want int
	}{
		{*at(2024, 3, 10, 12), 5},
		{*at(2024, 3, 15, 8), 0},
		{*at(2024, 4, 1, 8), 0},
		{*at(2024, 2, 28, 23), 16},
	}
	for _, tc := range cases {
		s := summarizeSprint(n, sp, tc.now)
		if s.DaysRemaining != tc.want {
			t.Fatalf("at %s days remaining = %d, want %d", tc.now, s.DaysRemaining, tc.want)
		}
		if s.StartDate != "2024-03-01" || s.EndDate != "2024-03-15" {
			t.Fatalf("dates = %s..%s", s.StartDate, s.EndDate)
		}
	}
}
