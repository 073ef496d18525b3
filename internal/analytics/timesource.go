package analytics

import "tracker/internal/models"

// Time source labels reported by Reconciler.Source.
const (
	SourceCached  = "cached"
	SourceEntries = "entries"
	SourceNone    = "none"
)

// Reconciler resolves the time spent on a task from the cached ActualTime
// field or, when that is empty, from the task's time entries.
type Reconciler struct {
	entrySeconds map[int64]int64
}

// NewReconciler indexes entries by task once so lookups are constant time.
func NewReconciler(entries []models.TimeEntry) *Reconciler {
	r := &Reconciler{entrySeconds: make(map[int64]int64, len(entries))}
	for _, e := range entries {
		if e.Duration > 0 {
			r.entrySeconds[e.TaskID] += e.Duration
		}
	}
	return r
}

// TaskMinutes returns the reconciled time spent on a task in minutes. A
// positive ActualTime (hours) wins over the entry sum (seconds).
func (r *Reconciler) TaskMinutes(t models.Task) float64 {
	if t.ActualTime > 0 {
		return hoursToMinutes(t.ActualTime)
	}
	return secondsToMinutes(r.entrySeconds[t.ID])
}

// TotalMinutes sums TaskMinutes over tasks, deciding the source per task.
func (r *Reconciler) TotalMinutes(tasks []models.Task) float64 {
	var total float64
	for _, t := range tasks {
		total += r.TaskMinutes(t)
	}
	return total
}

// Source names the field TaskMinutes read for t.
func (r *Reconciler) Source(t models.Task) string {
	switch {
	case t.ActualTime > 0:
		return SourceCached
	case r.entrySeconds[t.ID] > 0:
		return SourceEntries
	default:
		return SourceNone
	}
}

func hoursToMinutes(h float64) float64 {
	return h * 60
}

func secondsToMinutes(s int64) float64 {
	return float64(s) / 60
}
