package analytics

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"tracker/internal/models"
)

// GroupBy selects the period a time report buckets entries into.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// ParseGroupBy accepts day, week or month. Empty means day.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByDay, nil
	case GroupByDay, GroupByWeek, GroupByMonth:
		return g, nil
	default:
		return "", invalidRange("unknown grouping %q", s)
	}
}

// periodKey formats the local instant t as a period label: 2006-01-02,
// ISO week 2006-W01, or 2006-01.
func (g GroupBy) periodKey(t time.Time) string {
	switch g {
	case GroupByWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GroupByMonth:
		return t.Format("2006-01")
	default:
		return t.Format(dayLayout)
	}
}

// UserTime is the time one user logged, overall or inside a period.
type UserTime struct {
	UserID     int64   `json:"user_id"`
	Name       string  `json:"name"`
	Minutes    float64 `json:"minutes"`
	TaskCount  int     `json:"task_count"`
	EntryCount int     `json:"entry_count"`
}

// PeriodTime is one bucket of a time report.
type PeriodTime struct {
	Period           string     `json:"period"`
	Minutes          float64    `json:"minutes"`
	EstimatedMinutes float64    `json:"estimated_minutes"`
	TaskCount        int        `json:"task_count"`
	EntryCount       int        `json:"entry_count"`
	Users            []UserTime `json:"users"`
}

// TimeReport aggregates time entries by period and by user.
type TimeReport struct {
	ProjectID             int64        `json:"project_id"`
	SprintID              *int64       `json:"sprint_id,omitempty"`
	GroupBy               GroupBy      `json:"group_by"`
	Range                 *RangeMeta   `json:"range,omitempty"`
	Periods               []PeriodTime `json:"periods"`
	Users                 []UserTime   `json:"users"`
	TotalMinutes          float64      `json:"total_minutes"`
	TotalEstimatedMinutes float64      `json:"total_estimated_minutes"`
	SkippedEntries        int          `json:"skipped_entries"`
}

// TimeReportParams bounds an aggregation. Zero From/To leave that side open.
type TimeReportParams struct {
	GroupBy GroupBy
	From    time.Time
	To      time.Time
}

type timeBucket struct {
	seconds int64
	entries int
	tasks   map[int64]struct{}
}

func newTimeBucket() *timeBucket {
	return &timeBucket{tasks: make(map[int64]struct{})}
}

func (b *timeBucket) add(e models.TimeEntry) {
	if e.Duration > 0 {
		b.seconds += e.Duration
	}
	b.entries++
	b.tasks[e.TaskID] = struct{}{}
}

// BuildTimeReport groups entries by (period, user). Estimated time of every
// task in scope is spread evenly over the periods that hold entries. Entries
// whose user cannot be resolved are logged and skipped.
func BuildTimeReport(n *Normalizer, params TimeReportParams, entries []models.TimeEntry, tasks []models.Task, users map[int64]models.User, logger *slog.Logger) TimeReport {
	if params.GroupBy == "" {
		params.GroupBy = GroupByDay
	}
	report := TimeReport{
		GroupBy: params.GroupBy,
		Periods: []PeriodTime{},
		Users:   []UserTime{},
	}

	periods := make(map[string]*timeBucket)
	periodUsers := make(map[string]map[int64]*timeBucket)
	userTotals := make(map[int64]*timeBucket)
	var totalSeconds int64

	for _, e := range entries {
		if !params.From.IsZero() && e.StartTime.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && e.StartTime.After(params.To) {
			continue
		}
		if _, ok := users[e.UserID]; !ok {
			report.SkippedEntries++
			err := upstreamData("time entry %d references unknown user %d", e.ID, e.UserID)
			logger.Warn("skipping time entry", slog.Int64("entry_id", e.ID), slog.String("error", err.Error()))
			continue
		}

		key := params.GroupBy.periodKey(e.StartTime.In(n.Location()))
		if periods[key] == nil {
			periods[key] = newTimeBucket()
			periodUsers[key] = make(map[int64]*timeBucket)
		}
		if periodUsers[key][e.UserID] == nil {
			periodUsers[key][e.UserID] = newTimeBucket()
		}
		if userTotals[e.UserID] == nil {
			userTotals[e.UserID] = newTimeBucket()
		}

		periods[key].add(e)
		periodUsers[key][e.UserID].add(e)
		userTotals[e.UserID].add(e)
		if e.Duration > 0 {
			totalSeconds += e.Duration
		}
	}

	var estimatedHours float64
	for _, t := range tasks {
		estimatedHours += t.EstimatedTime
	}
	report.TotalEstimatedMinutes = hoursToMinutes(estimatedHours)

	var perPeriodEstimate float64
	if len(periods) > 0 {
		perPeriodEstimate = report.TotalEstimatedMinutes / float64(len(periods))
	}

	keys := make([]string, 0, len(periods))
	for key := range periods {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		b := periods[key]
		pt := PeriodTime{
			Period:           key,
			Minutes:          secondsToMinutes(b.seconds),
			EstimatedMinutes: perPeriodEstimate,
			TaskCount:        len(b.tasks),
			EntryCount:       b.entries,
			Users:            userTimes(periodUsers[key], users),
		}
		sort.Slice(pt.Users, func(i, j int) bool { return pt.Users[i].UserID < pt.Users[j].UserID })
		report.Periods = append(report.Periods, pt)
	}

	report.Users = userTimes(userTotals, users)
	sort.Slice(report.Users, func(i, j int) bool {
		if report.Users[i].Minutes != report.Users[j].Minutes {
			return report.Users[i].Minutes > report.Users[j].Minutes
		}
		return report.Users[i].UserID < report.Users[j].UserID
	})
	report.TotalMinutes = secondsToMinutes(totalSeconds)
	return report
}

func userTimes(buckets map[int64]*timeBucket, users map[int64]models.User) []UserTime {
	out := make([]UserTime, 0, len(buckets))
	for id, b := range buckets {
		out = append(out, UserTime{
			UserID:     id,
			Name:       users[id].Name,
			Minutes:    secondsToMinutes(b.seconds),
			TaskCount:  len(b.tasks),
			EntryCount: b.entries,
		})
	}
	return out
}
