package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tracker/internal/analytics"
)

type stubReporter struct {
	err  error
	last analytics.Query
	wait bool
}

func (r *stubReporter) Burndown(ctx context.Context, q analytics.Query) (analytics.BurndownSeries, error) {
	r.last = q
	if r.wait {
		<-ctx.Done()
		return analytics.BurndownSeries{}, ctx.Err()
	}
	if r.err != nil {
		return analytics.BurndownSeries{}, r.err
	}
	return analytics.BurndownSeries{
		ProjectID: q.ProjectID,
		Total:     2,
		Points:    []analytics.BurndownPoint{{Date: "2024-03-01", Remaining: 2, Ideal: 2}},
	}, nil
}

func (r *stubReporter) TimeReport(_ context.Context, q analytics.Query) (analytics.TimeReport, error) {
	r.last = q
	return analytics.TimeReport{ProjectID: q.ProjectID, GroupBy: analytics.GroupByWeek}, r.err
}

func (r *stubReporter) Performance(_ context.Context, q analytics.Query) (analytics.PerformanceReport, error) {
	r.last = q
	return analytics.PerformanceReport{ProjectID: q.ProjectID}, r.err
}

func (r *stubReporter) Overview(_ context.Context, q analytics.Query) (analytics.Overview, error) {
	r.last = q
	return analytics.Overview{ProjectID: q.ProjectID, TotalTasks: 3}, r.err
}

func newTestServer(r Reporter, timeout time.Duration) *Server {
	return New(r, slog.New(slog.NewTextHandler(io.Discard, nil)), timeout)
}

func doRequest(t *testing.T, srv *Server, path string, caller string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubReporter{}, time.Second)
	rec := doRequest(t, srv, "/api/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id header")
	}
}

func TestReportsRequireCaller(t *testing.T) {
	srv := newTestServer(&stubReporter{}, time.Second)
	for _, caller := range []string{"", "abc", "-3"} {
		rec := doRequest(t, srv, "/api/projects/1/reports/burndown", caller)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("caller %q: status = %d, want 401", caller, rec.Code)
		}
	}
}

func TestBurndownSuccess(t *testing.T) {
	reporter := &stubReporter{}
	srv := newTestServer(reporter, time.Second)

	rec := doRequest(t, srv, "/api/projects/7/reports/burndown?sprint_id=3&at=2024-03-06T12:00:00Z", "5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	var series analytics.BurndownSeries
	if err := json.Unmarshal(body["burndown"], &series); err != nil {
		t.Fatalf("decode burndown: %v", err)
	}
	if series.ProjectID != 7 || len(series.Points) != 1 {
		t.Fatalf("unexpected series %+v", series)
	}

	q := reporter.last
	if q.CallerID != 5 || q.ProjectID != 7 || q.SprintID == nil || *q.SprintID != 3 {
		t.Fatalf("unexpected query %+v", q)
	}
	if !q.At.Equal(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("at = %s", q.At)
	}
}

func TestEnvelopeKeys(t *testing.T) {
	srv := newTestServer(&stubReporter{}, time.Second)
	cases := map[string]string{
		"/api/projects/1/reports/time?group_by=week&start=2024-03-01&end=2024-03-31": "time_report",
		"/api/projects/1/reports/performance":                                         "performance",
		"/api/projects/1/reports/overview":                                            "overview",
	}
	for path, key := range cases {
		rec := doRequest(t, srv, path, "1")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		if _, ok := decodeBody(t, rec)[key]; !ok {
			t.Fatalf("%s: missing %q in %s", path, key, rec.Body.String())
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(&stubReporter{}, time.Second)
	req := httptest.NewRequest(http.MethodGet, "/api/projects/1/reports/overview", nil)
	req.Header.Set(callerHeader, "1")
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("request id = %q, want req-123", got)
	}
}

func TestReportErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", analytics.NotFoundError{Kind: "project", ID: 1}, http.StatusNotFound},
		{"forbidden", analytics.ForbiddenError{UserID: 1, ProjectID: 1, Need: analytics.ScopeManager}, http.StatusForbidden},
		{"invalid range", analytics.ErrInvalidRange, http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"cancelled", fmt.Errorf("load tasks: %w", context.Canceled), 499},
		{"internal", errors.New("sql: database is locked"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&stubReporter{err: tc.err}, time.Second)
			rec := doRequest(t, srv, "/api/projects/1/reports/performance", "1")
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			body := decodeBody(t, rec)
			if _, ok := body["request_id"]; !ok {
				t.Fatalf("expected request_id in error body %s", rec.Body.String())
			}
			if tc.want == http.StatusInternalServerError {
				var msg string
				_ = json.Unmarshal(body["error"], &msg)
				if msg != "internal error" {
					t.Fatalf("internal detail leaked: %q", msg)
				}
			}
		})
	}
}

func TestBadQueryParameters(t *testing.T) {
	srv := newTestServer(&stubReporter{}, time.Second)
	paths := []string{
		"/api/projects/abc/reports/overview",
		"/api/projects/0/reports/overview",
		"/api/projects/1/reports/time?group_by=year",
		"/api/projects/1/reports/burndown?sprint_id=0",
		"/api/projects/1/reports/overview?at=yesterday",
	}
	for _, path := range paths {
		rec := doRequest(t, srv, path, "1")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestReportTimeout(t *testing.T) {
	srv := newTestServer(&stubReporter{wait: true}, 20*time.Millisecond)
	rec := doRequest(t, srv, "/api/projects/1/reports/burndown", "1")
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(&stubReporter{}, time.Second)
	rec := doRequest(t, srv, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
