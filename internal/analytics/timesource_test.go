package analytics

import (
	"testing"

	"tracker/internal/models"
)

func TestReconcilerPrefersCachedTime(t *testing.T) {
	entries := []models.TimeEntry{
		{ID: 1, TaskID: 1, UserID: 1, Duration: 3600},
		{ID: 2, TaskID: 1, UserID: 2, Duration: 1800},
		{ID: 3, TaskID: 2, UserID: 1, Duration: 900},
		{ID: 4, TaskID: 3, UserID: 1, Duration: -60},
	}
	rec := NewReconciler(entries)

	cases := []struct {
		name    string
		task    models.Task
		minutes float64
		source  string
	}{
		{"cached wins over entries", models.Task{ID: 1, ActualTime: 2}, 120, SourceCached},
		{"entries when no cache", models.Task{ID: 1}, 90, SourceEntries},
		{"single entry", models.Task{ID: 2}, 15, SourceEntries},
		{"negative durations ignored", models.Task{ID: 3}, 0, SourceNone},
		{"nothing logged", models.Task{ID: 4}, 0, SourceNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rec.TaskMinutes(tc.task); got != tc.minutes {
				t.Fatalf("minutes = %v, want %v", got, tc.minutes)
			}
			if got := rec.Source(tc.task); got != tc.source {
				t.Fatalf("source = %q, want %q", got, tc.source)
			}
		})
	}
}

func TestReconcilerTotalMixesSourcesPerTask(t *testing.T) {
	rec := NewReconciler([]models.TimeEntry{
		{TaskID: 1, Duration: 6000},
		{TaskID: 2, Duration: 600},
	})
	tasks := []models.Task{
		{ID: 1, ActualTime: 0.5},
		{ID: 2},
		{ID: 3},
	}

	if got := rec.TotalMinutes(tasks); got != 40 {
		t.Fatalf("total = %v, want 40", got)
	}
}
