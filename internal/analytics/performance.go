package analytics

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/models"
)

// Weights applied to the completion and on-time rates.
const (
	CompletionWeight = 0.6
	OnTimeWeight     = 0.4
)

// TaskStats counts the tasks assigned to one member.
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
}

// TimeStats holds a member's reconciled and estimated time in minutes.
type TimeStats struct {
	TotalTime     float64 `json:"total_time"`
	EstimatedTime float64 `json:"estimated_time"`
}

// MemberPerformance is the score card of one project member.
type MemberPerformance struct {
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	TaskStats      TaskStats `json:"task_stats"`
	TimeStats      TimeStats `json:"time_stats"`
	CompletionRate float64   `json:"completion_rate"`
	OnTimeRate     float64   `json:"on_time_rate"`
	Performance    int       `json:"performance"`
}

// PerformanceReport scores every member of a project or sprint.
type PerformanceReport struct {
	ProjectID          int64               `json:"project_id"`
	SprintID           *int64              `json:"sprint_id,omitempty"`
	EvaluatedAt        time.Time           `json:"evaluated_at"`
	Members            []MemberPerformance `json:"members"`
	AveragePerformance float64             `json:"average_performance"`
	Correction         Correction          `json:"correction"`
}

// BuildPerformance scores each member against the tasks assigned to them.
// Members are computed concurrently; each goroutine reads the shared snapshot
// and writes only its own slot. Members whose user record is missing are
// logged and left out.
func BuildPerformance(ctx context.Context, members []models.Member, users map[int64]models.User, tasks []models.Task, rec *Reconciler, now time.Time, logger *slog.Logger) (PerformanceReport, error) {
	known := make([]models.Member, 0, len(members))
	for _, m := range members {
		if _, ok := users[m.UserID]; !ok {
			err := upstreamData("member %d has no user record", m.UserID)
			logger.Warn("skipping project member", slog.Int64("user_id", m.UserID), slog.String("error", err.Error()))
			continue
		}
		known = append(known, m)
	}

	out := make([]MemberPerformance, len(known))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range known {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = memberPerformance(m, users[m.UserID], tasks, rec, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PerformanceReport{}, err
	}

	report := PerformanceReport{
		EvaluatedAt: now,
		Members:     out,
		Correction:  correctCompletions(out, distinctCompleted(tasks)),
	}
	report.AveragePerformance = averagePerformance(out)
	return report, nil
}

func memberPerformance(m models.Member, u models.User, tasks []models.Task, rec *Reconciler, now time.Time) MemberPerformance {
	mp := MemberPerformance{UserID: m.UserID, Name: u.Name, Role: m.Role}
	for _, t := range tasks {
		if !t.HasAssignee(m.UserID) {
			continue
		}
		mp.TaskStats.Total++
		switch {
		case t.IsDone():
			mp.TaskStats.Completed++
		case t.Status == models.StatusInProgress:
			mp.TaskStats.InProgress++
		}
		if isOverdue(t, now) {
			mp.TaskStats.Overdue++
		}
		mp.TimeStats.TotalTime += rec.TaskMinutes(t)
		mp.TimeStats.EstimatedTime += hoursToMinutes(t.EstimatedTime)
	}
	score(&mp)
	return mp
}

// score derives the rates and the weighted score from TaskStats.
func score(mp *MemberPerformance) {
	s := mp.TaskStats
	mp.CompletionRate = 0
	mp.OnTimeRate = 0
	if s.Total > 0 {
		mp.CompletionRate = float64(s.Completed) / float64(s.Total) * 100
		mp.OnTimeRate = float64(s.Completed-s.Overdue) / float64(s.Total) * 100
	}
	mp.Performance = int(math.Round(mp.CompletionRate*CompletionWeight + mp.OnTimeRate*OnTimeWeight))
}

func isOverdue(t models.Task, now time.Time) bool {
	return !t.IsDone() && t.DueDate != nil && t.DueDate.Before(now)
}

// distinctCompleted counts tasks with a usable completion time, the same rule
// burndown applies.
func distinctCompleted(tasks []models.Task) int {
	seen := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		if _, ok := completedAt(t); ok {
			seen[t.ID] = struct{}{}
		}
	}
	return len(seen)
}

func averagePerformance(members []MemberPerformance) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum int
	for _, m := range members {
		sum += m.Performance
	}
	return float64(sum) / float64(len(members))
}
