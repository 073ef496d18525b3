package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracker/internal/analytics"
)

type reportFlags struct {
	project int64
	user    int64
	sprint  int64
	start   string
	end     string
	groupBy string
	at      string
}

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a progress report as JSON",
	}
	cmd.AddCommand(newReportSubCmd(app, "burndown", "Burndown series of a project or sprint",
		func(ctx context.Context, e *analytics.Engine, q analytics.Query) (any, error) { return e.Burndown(ctx, q) }))
	cmd.AddCommand(newReportSubCmd(app, "time", "Logged time grouped by period and user",
		func(ctx context.Context, e *analytics.Engine, q analytics.Query) (any, error) { return e.TimeReport(ctx, q) }))
	cmd.AddCommand(newReportSubCmd(app, "performance", "Per-member performance scores",
		func(ctx context.Context, e *analytics.Engine, q analytics.Query) (any, error) { return e.Performance(ctx, q) }))
	cmd.AddCommand(newReportSubCmd(app, "overview", "Headline project summary",
		func(ctx context.Context, e *analytics.Engine, q analytics.Query) (any, error) { return e.Overview(ctx, q) }))
	return cmd
}

type runReport func(ctx context.Context, e *analytics.Engine, q analytics.Query) (any, error)

func newReportSubCmd(app *App, use, short string, run runReport) *cobra.Command {
	var f reportFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query()
			if err != nil {
				return err
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := app.newEngine(store)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if app.cfg.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, app.cfg.RequestTimeout)
				defer cancel()
			}

			result, err := run(ctx, engine, q)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().Int64Var(&f.project, "project", 0, "Project id")
	cmd.Flags().Int64Var(&f.user, "user", 0, "Caller user id")
	cmd.Flags().Int64Var(&f.sprint, "sprint", 0, "Sprint id (optional)")
	cmd.Flags().StringVar(&f.start, "start", "", "Range start date, e.g. 2024-03-01")
	cmd.Flags().StringVar(&f.end, "end", "", "Range end date")
	cmd.Flags().StringVar(&f.groupBy, "group-by", "day", "Grouping: day, week or month")
	cmd.Flags().StringVar(&f.at, "at", "", "Evaluation instant (RFC 3339); defaults to now")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (f reportFlags) query() (analytics.Query, error) {
	if f.project <= 0 || f.user <= 0 {
		return analytics.Query{}, errors.New("--project and --user must be positive")
	}
	q := analytics.Query{
		CallerID:  f.user,
		ProjectID: f.project,
		Start:     f.start,
		End:       f.end,
		GroupBy:   f.groupBy,
	}
	if f.sprint > 0 {
		id := f.sprint
		q.SprintID = &id
	}
	if f.at != "" {
		at, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return analytics.Query{}, fmt.Errorf("invalid --at: %w", err)
		}
		q.At = at
	}
	return q, nil
}
