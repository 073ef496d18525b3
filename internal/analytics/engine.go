// Package analytics turns task, sprint and time-entry snapshots into burndown
// charts, time reports, member performance scores and project overviews.
//
// Every report is a pure function of a snapshot read at request time. The
// engine holds no shared mutable state, so reports may run fully in parallel.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/models"
)

// Scope is the access level a caller holds on a project, lowest first.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeManager
	ScopeOwner
	ScopeAdmin
)

func (s Scope) String() string {
	switch s {
	case ScopeManager:
		return "manager"
	case ScopeOwner:
		return "owner"
	case ScopeAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Minimum scope per report. Plain members hold no scope.
const (
	BurndownScope    = ScopeManager
	TimeReportScope  = ScopeManager
	OverviewScope    = ScopeManager
	PerformanceScope = ScopeManager
)

// Grant is the gate's answer: the caller's scope and the project it was
// resolved against.
type Grant struct {
	Scope   Scope
	Project models.Project
}

// Gate resolves the caller's access to a project. A missing project is
// reported as models.ErrNotFound.
type Gate interface {
	Authorize(ctx context.Context, userID, projectID int64) (Grant, error)
}

// Repository is the read side of the persistence layer.
type Repository interface {
	GetSprint(ctx context.Context, id int64) (models.Sprint, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	ListTimeEntries(ctx context.Context, filter models.TimeEntryFilter) ([]models.TimeEntry, error)
	GetUsers(ctx context.Context, ids []int64) (map[int64]models.User, error)
}

// Query is the shape shared by every report request. Start and End are date
// strings and only the time report reads them. A zero At is filled from the
// engine clock when the request enters the engine.
type Query struct {
	CallerID  int64
	ProjectID int64
	SprintID  *int64
	Start     string
	End       string
	GroupBy   string
	At        time.Time
}

// Options configures an Engine.
type Options struct {
	// Location is where day boundaries fall. Defaults to UTC.
	Location *time.Location
	// Now is the clock used when a query carries no evaluation instant.
	Now func() time.Time
}

// Engine runs the report entry points against a Repository under a Gate.
type Engine struct {
	repo   Repository
	gate   Gate
	norm   *Normalizer
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine wires the collaborators into an engine.
func NewEngine(repo Repository, gate Gate, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		repo:   repo,
		gate:   gate,
		norm:   NewNormalizer(opts.Location, logger),
		logger: logger,
		now:    now,
	}
}

// reportScope is the authorized project, and optional sprint, a report runs over.
type reportScope struct {
	project models.Project
	sprint  *models.Sprint
	at      time.Time
}

func (rs reportScope) sprintID() *int64 {
	if rs.sprint == nil {
		return nil
	}
	id := rs.sprint.ID
	return &id
}

// Burndown builds the burndown series of a sprint, or of the whole project
// when no sprint is given.
func (e *Engine) Burndown(ctx context.Context, q Query) (BurndownSeries, error) {
	rs, err := e.authorize(ctx, q, BurndownScope)
	if err != nil {
		return BurndownSeries{}, err
	}

	days, err := e.burndownRange(rs)
	if err != nil {
		return BurndownSeries{}, err
	}

	snap, err := e.load(ctx, rs, loadPlan{})
	if err != nil {
		return BurndownSeries{}, err
	}

	series := BuildBurndown(e.norm, days, snap.tasks, e.logger)
	series.ProjectID = rs.project.ID
	series.SprintID = rs.sprintID()

	if err := ctx.Err(); err != nil {
		return BurndownSeries{}, err
	}
	return series, nil
}

// TimeReport aggregates logged time by period and user.
func (e *Engine) TimeReport(ctx context.Context, q Query) (TimeReport, error) {
	groupBy, err := ParseGroupBy(q.GroupBy)
	if err != nil {
		return TimeReport{}, err
	}
	rs, err := e.authorize(ctx, q, TimeReportScope)
	if err != nil {
		return TimeReport{}, err
	}

	bounds, err := e.timeBounds(q, rs)
	if err != nil {
		return TimeReport{}, err
	}

	snap, err := e.load(ctx, rs, loadPlan{entries: true, from: bounds.from, to: bounds.to, entryUsers: true})
	if err != nil {
		return TimeReport{}, err
	}

	report := BuildTimeReport(e.norm, TimeReportParams{GroupBy: groupBy, From: bounds.from, To: bounds.to},
		snap.entries, snap.tasks, snap.users, e.logger)
	report.ProjectID = rs.project.ID
	report.SprintID = rs.sprintID()
	report.Range = bounds.meta

	if err := ctx.Err(); err != nil {
		return TimeReport{}, err
	}
	return report, nil
}

// Performance scores every project member.
func (e *Engine) Performance(ctx context.Context, q Query) (PerformanceReport, error) {
	rs, err := e.authorize(ctx, q, PerformanceScope)
	if err != nil {
		return PerformanceReport{}, err
	}

	memberIDs := make([]int64, 0, len(rs.project.Members))
	for _, m := range rs.project.Members {
		memberIDs = append(memberIDs, m.UserID)
	}

	snap, err := e.load(ctx, rs, loadPlan{entries: true, userIDs: memberIDs})
	if err != nil {
		return PerformanceReport{}, err
	}

	report, err := BuildPerformance(ctx, rs.project.Members, snap.users, snap.tasks, NewReconciler(snap.entries), rs.at, e.logger)
	if err != nil {
		return PerformanceReport{}, err
	}
	report.ProjectID = rs.project.ID
	report.SprintID = rs.sprintID()

	if err := ctx.Err(); err != nil {
		return PerformanceReport{}, err
	}
	return report, nil
}

// Overview summarizes tasks and reconciled time.
func (e *Engine) Overview(ctx context.Context, q Query) (Overview, error) {
	rs, err := e.authorize(ctx, q, OverviewScope)
	if err != nil {
		return Overview{}, err
	}

	snap, err := e.load(ctx, rs, loadPlan{entries: true})
	if err != nil {
		return Overview{}, err
	}

	o := BuildOverview(snap.tasks, NewReconciler(snap.entries), len(rs.project.Members), rs.at)
	o.ProjectID = rs.project.ID
	o.SprintID = rs.sprintID()
	if rs.sprint != nil {
		o.Sprint = summarizeSprint(e.norm, *rs.sprint, rs.at)
	}

	if err := ctx.Err(); err != nil {
		return Overview{}, err
	}
	return o, nil
}

// authorize consults the gate, which also resolves the project, then loads
// the sprint. Nothing else is read before the caller is cleared.
func (e *Engine) authorize(ctx context.Context, q Query, need Scope) (reportScope, error) {
	at := q.At
	if at.IsZero() {
		at = e.now()
	}

	grant, err := e.gate.Authorize(ctx, q.CallerID, q.ProjectID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return reportScope{}, NotFoundError{Kind: "project", ID: q.ProjectID}
		}
		return reportScope{}, fmt.Errorf("authorize: %w", err)
	}
	if grant.Scope < need {
		return reportScope{}, ForbiddenError{UserID: q.CallerID, ProjectID: q.ProjectID, Have: grant.Scope, Need: need}
	}

	project := grant.Project
	rs := reportScope{project: project, at: at}
	if q.SprintID != nil {
		sprint, err := e.repo.GetSprint(ctx, *q.SprintID)
		if errors.Is(err, models.ErrNotFound) || (err == nil && sprint.ProjectID != project.ID) {
			return reportScope{}, NotFoundError{Kind: "sprint", ID: *q.SprintID}
		}
		if err != nil {
			return reportScope{}, fmt.Errorf("load sprint: %w", err)
		}
		rs.sprint = &sprint
	}
	return rs, nil
}

// burndownRange picks the sprint dates, or the project dates falling back to
// the project creation time.
func (e *Engine) burndownRange(rs reportScope) (DayRange, error) {
	if rs.sprint != nil {
		end := rs.sprint.EndDate
		return e.norm.Range(rs.sprint.StartDate, &end, SprintWindowDays)
	}
	start := rs.project.CreatedAt
	if rs.project.StartDate != nil && !rs.project.StartDate.IsZero() {
		start = *rs.project.StartDate
	}
	return e.norm.Range(start, rs.project.EndDate, ProjectWindowDays)
}

type timeBounds struct {
	from, to time.Time
	meta     *RangeMeta
}

// timeBounds resolves the optional start/end strings of a time report. With
// neither set the report is unbounded; with only an end it runs up to the end
// of that day. An unparseable end is dropped and the default window applies;
// only an unparseable start fails the report.
func (e *Engine) timeBounds(q Query, rs reportScope) (timeBounds, error) {
	if q.Start == "" && q.End == "" {
		return timeBounds{}, nil
	}

	window := ProjectWindowDays
	if rs.sprint != nil {
		window = SprintWindowDays
	}

	var end *time.Time
	corrected := false
	if q.End != "" {
		day, err := e.norm.ParseDay(q.End)
		if err != nil {
			e.logger.Warn("ignoring unparseable end date; using default window",
				slog.String("end", q.End),
				slog.Int("window_days", window),
				slog.String("error", err.Error()),
			)
			corrected = true
		} else {
			eod := e.norm.EndOfDay(day)
			end = &eod
		}
	}

	if q.Start == "" {
		if end == nil {
			return timeBounds{meta: &RangeMeta{Corrected: corrected}}, nil
		}
		return timeBounds{to: *end, meta: &RangeMeta{End: end.Format(dayLayout)}}, nil
	}

	start, err := e.norm.ParseDay(q.Start)
	if err != nil {
		return timeBounds{}, err
	}
	days, err := e.norm.Range(start, end, window)
	if err != nil {
		return timeBounds{}, err
	}
	days.Corrected = days.Corrected || corrected
	meta := days.Meta()
	return timeBounds{from: days.First(), to: e.norm.EndOfDay(days.Last()), meta: &meta}, nil
}

type loadPlan struct {
	entries    bool
	from, to   time.Time
	userIDs    []int64
	entryUsers bool
}

type snapshot struct {
	tasks   []models.Task
	entries []models.TimeEntry
	users   map[int64]models.User
}

// load reads the tasks, time entries and users a report needs. Independent
// reads run concurrently; any failure abandons the whole snapshot.
func (e *Engine) load(ctx context.Context, rs reportScope, plan loadPlan) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tasks, err := e.repo.ListTasks(gctx, models.TaskFilter{ProjectID: rs.project.ID, SprintID: rs.sprintID()})
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		snap.tasks = tasks
		return nil
	})
	if plan.entries {
		g.Go(func() error {
			entries, err := e.repo.ListTimeEntries(gctx, models.TimeEntryFilter{ProjectID: rs.project.ID, From: plan.from, To: plan.to})
			if err != nil {
				return fmt.Errorf("load time entries: %w", err)
			}
			snap.entries = entries
			return nil
		})
	}
	if len(plan.userIDs) > 0 {
		g.Go(func() error {
			users, err := e.repo.GetUsers(gctx, plan.userIDs)
			if err != nil {
				return fmt.Errorf("load users: %w", err)
			}
			snap.users = users
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}

	if rs.sprint != nil && plan.entries {
		snap.entries = entriesForTasks(snap.entries, snap.tasks)
	}

	if plan.entryUsers {
		users, err := e.repo.GetUsers(ctx, entryUserIDs(snap.entries))
		if err != nil {
			return snapshot{}, fmt.Errorf("load users: %w", err)
		}
		snap.users = users
	}
	if snap.users == nil {
		snap.users = map[int64]models.User{}
	}
	return snap, nil
}

func entriesForTasks(entries []models.TimeEntry, tasks []models.Task) []models.TimeEntry {
	ids := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = struct{}{}
	}
	out := entries[:0:0]
	for _, en := range entries {
		if _, ok := ids[en.TaskID]; ok {
			out = append(out, en)
		}
	}
	return out
}

func entryUserIDs(entries []models.TimeEntry) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, en := range entries {
		if _, ok := seen[en.UserID]; ok {
			continue
		}
		seen[en.UserID] = struct{}{}
		ids = append(ids, en.UserID)
	}
	return ids
}
