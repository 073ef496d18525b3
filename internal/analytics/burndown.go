package analytics

import (
	"log/slog"
	"sort"
	"time"

	"tracker/internal/models"
)

// BurndownPoint is one day of a burndown chart.
type BurndownPoint struct {
	Date      string `json:"date"`
	Remaining int    `json:"remaining"`
	Completed int    `json:"completed"`
	Ideal     int    `json:"ideal"`
}

// BurndownSeries is the chart data for a project or sprint.
type BurndownSeries struct {
	ProjectID int64           `json:"project_id"`
	SprintID  *int64          `json:"sprint_id,omitempty"`
	Total     int             `json:"total"`
	Empty     bool            `json:"empty"`
	Range     RangeMeta       `json:"range"`
	Points    []BurndownPoint `json:"points"`
}

// BuildBurndown evaluates every day of days against the completion instants
// of tasks. It never looks at the current time, so the same snapshot always
// yields the same series.
func BuildBurndown(n *Normalizer, days DayRange, tasks []models.Task, logger *slog.Logger) BurndownSeries {
	total := len(tasks)
	series := BurndownSeries{
		Total:  total,
		Range:  days.Meta(),
		Points: []BurndownPoint{},
	}
	if total == 0 {
		series.Empty = true
		return series
	}

	completions := completionInstants(tasks, logger)
	sort.Slice(completions, func(i, j int) bool { return completions[i].Before(completions[j]) })

	last := len(days.Days) - 1
	done := 0
	for i, day := range days.Days {
		eod := n.EndOfDay(day)
		for done < len(completions) && !completions[done].After(eod) {
			done++
		}
		remaining := total - done
		if remaining < 0 {
			remaining = 0
		}
		series.Points = append(series.Points, BurndownPoint{
			Date:      day.Format(dayLayout),
			Remaining: remaining,
			Completed: done,
			Ideal:     idealRemaining(total, i, last),
		})
	}
	return series
}

// idealRemaining is the straight line from total on day 0 to zero on day last.
func idealRemaining(total, i, last int) int {
	if last <= 0 {
		return 0
	}
	return total * (last - i) / last
}

// completionInstants returns the completion time of every done task. Tasks
// that break the done/completedAt pairing are logged and left out.
func completionInstants(tasks []models.Task, logger *slog.Logger) []time.Time {
	out := make([]time.Time, 0, len(tasks))
	for _, t := range tasks {
		at, ok := completedAt(t)
		if !ok {
			if err := checkCompletion(t); err != nil {
				logger.Warn("skipping task completion", slog.Int64("task_id", t.ID), slog.String("error", err.Error()))
			}
			continue
		}
		out = append(out, at)
	}
	return out
}

// completedAt reports the completion instant of a task that is done and
// carries one.
func completedAt(t models.Task) (time.Time, bool) {
	if !t.IsDone() || t.CompletedAt == nil || t.CompletedAt.IsZero() {
		return time.Time{}, false
	}
	return *t.CompletedAt, true
}

func checkCompletion(t models.Task) error {
	hasAt := t.CompletedAt != nil && !t.CompletedAt.IsZero()
	switch {
	case t.IsDone() && !hasAt:
		return upstreamData("task %d is done without a completion time", t.ID)
	case !t.IsDone() && hasAt:
		return upstreamData("task %d has a completion time but status %q", t.ID, t.Status)
	}
	return nil
}
