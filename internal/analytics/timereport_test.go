package analytics

import (
	"errors"
	"testing"
	"time"

	"tracker/internal/models"
)

func entryAt(id, taskID, userID int64, start time.Time, seconds int64) models.TimeEntry {
	end := start.Add(time.Duration(seconds) * time.Second)
	return models.TimeEntry{
		ID:        id,
		TaskID:    taskID,
		ProjectID: 1,
		UserID:    userID,
		StartTime: start,
		EndTime:   &end,
		Duration:  seconds,
		Status:    models.EntryCompleted,
	}
}

func reportUsers() map[int64]models.User {
	return map[int64]models.User{
		1: {ID: 1, Name: "Ada"},
		2: {ID: 2, Name: "Linus"},
	}
}

func TestTimeReportWeeklySkipsEmptyWeeks(t *testing.T) {
	n := NewNormalizer(time.UTC, discardLogger())
	entries := []models.TimeEntry{
		entryAt(1, 1, 1, *at(2024, 3, 5, 9), 3600),
		entryAt(2, 1, 2, *at(2024, 3, 6, 9), 1800),
		entryAt(3, 2, 1, *at(2024, 3, 19, 9), 2700),
	}
	tasks := []models.Task{
		{ID: 1, EstimatedTime: 2},
		{ID: 2, EstimatedTime: 1},
	}

	report := BuildTimeReport(n, TimeReportParams{GroupBy: GroupByWeek}, entries, tasks, reportUsers(), discardLogger())

	if len(report.Periods) != 2 {
		t.Fatalf("expected 2 periods, got %d: %+v", len(report.Periods), report.Periods)
	}
	if report.Periods[0].Period != "2024-W10" || report.Periods[1].Period != "2024-W12" {
		t.Fatalf("unexpected periods %q, %q", report.Periods[0].Period, report.Periods[1].Period)
	}

	var sum float64
	for _, p := range report.Periods {
		sum += p.Minutes
	}
	if report.TotalMinutes != 135 || sum != report.TotalMinutes {
		t.Fatalf("total = %v, period sum = %v, want 135", report.TotalMinutes, sum)
	}

	first := report.Periods[0]
	if first.Minutes != 90 || first.EntryCount != 2 || first.TaskCount != 1 {
		t.Fatalf("first period = %+v", first)
	}
	if len(first.Users) != 2 || first.Users[0].UserID != 1 || first.Users[1].UserID != 2 {
		t.Fatalf("first period users = %+v", first.Users)
	}

	if report.TotalEstimatedMinutes != 180 {
		t.Fatalf("estimated = %v, want 180", report.TotalEstimatedMinutes)
	}
	for _, p := range report.Periods {
		if p.EstimatedMinutes != 90 {
			t.Fatalf("period %s estimated = %v, want 90", p.Period, p.EstimatedMinutes)
		}
	}

	if len(report.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(report.Users))
	}
	ada := report.Users[0]
	if ada.UserID != 1 || ada.Name != "Ada" || ada.Minutes != 105 || ada.TaskCount != 2 || ada.EntryCount != 2 {
		t.Fatalf("top user = %+v", ada)
	}
}

func TestTimeReportSkipsUnknownUsers(t *testing.T) {
	n := NewNormalizer(time.UTC, discardLogger())
	entries := []models.TimeEntry{
		entryAt(1, 1, 1, *at(2024, 3, 5, 9), 600),
		entryAt(2, 1, 99, *at(2024, 3, 5, 10), 600),
	}

	report := BuildTimeReport(n, TimeReportParams{}, entries, nil, reportUsers(), discardLogger())
	if report.SkippedEntries != 1 {
		t.Fatalf("skipped = %d, want 1", report.SkippedEntries)
	}
	if report.TotalMinutes != 10 {
		t.Fatalf("total = %v, want 10", report.TotalMinutes)
	}
	if report.GroupBy != GroupByDay {
		t.Fatalf("group by = %q, want day", report.GroupBy)
	}
}

func TestTimeReportBucketsInLocalTime(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	n := NewNormalizer(tokyo, discardLogger())
	entries := []models.TimeEntry{
		entryAt(1, 1, 1, time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC), 600),
	}

	daily := BuildTimeReport(n, TimeReportParams{GroupBy: GroupByDay}, entries, nil, reportUsers(), discardLogger())
	if got := daily.Periods[0].Period; got != "2024-04-01" {
		t.Fatalf("day period = %q, want 2024-04-01", got)
	}
	monthly := BuildTimeReport(n, TimeReportParams{GroupBy: GroupByMonth}, entries, nil, reportUsers(), discardLogger())
	if got := monthly.Periods[0].Period; got != "2024-04" {
		t.Fatalf("month period = %q, want 2024-04", got)
	}
}

func TestTimeReportHonoursBounds(t *testing.T) {
	n := NewNormalizer(time.UTC, discardLogger())
	entries := []models.TimeEntry{
		entryAt(1, 1, 1, *at(2024, 3, 1, 9), 600),
		entryAt(2, 1, 1, *at(2024, 3, 2, 9), 600),
		entryAt(3, 1, 1, *at(2024, 3, 3, 9), 600),
	}
	params := TimeReportParams{
		From: day(2024, 3, 2),
		To:   n.EndOfDay(day(2024, 3, 2)),
	}

	report := BuildTimeReport(n, params, entries, nil, reportUsers(), discardLogger())
	if len(report.Periods) != 1 || report.Periods[0].Period != "2024-03-02" {
		t.Fatalf("unexpected periods %+v", report.Periods)
	}
}

func TestTimeReportEmpty(t *testing.T) {
	n := NewNormalizer(time.UTC, discardLogger())
	report := BuildTimeReport(n, TimeReportParams{GroupBy: GroupByWeek}, nil, []models.Task{{ID: 1, EstimatedTime: 3}}, reportUsers(), discardLogger())

	if report.Periods == nil || len(report.Periods) != 0 {
		t.Fatalf("expected empty, non-nil periods")
	}
	if report.TotalEstimatedMinutes != 180 {
		t.Fatalf("estimated = %v, want 180", report.TotalEstimatedMinutes)
	}
}

func TestParseGroupBy(t *testing.T) {
	cases := map[string]GroupBy{
		"":       GroupByDay,
		"day":    GroupByDay,
		" Week ": GroupByWeek,
		"MONTH":  GroupByMonth,
	}
	for in, want := range cases {
		got, err := ParseGroupBy(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseGroupBy("quarter"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
