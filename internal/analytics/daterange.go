package analytics

import (
	"log/slog"
	"strings"
	"time"
)

// Default windows used when a range has no usable end date. They are counted
// from the start day and never from the current time, so reports stay reproducible.
const (
	SprintWindowDays  = 14
	ProjectWindowDays = 7

	// MaxRangeDays caps the number of day markers a range may produce.
	MaxRangeDays = 365
)

const dayLayout = "2006-01-02"

// dayInputLayouts are tried in order by ParseDay.
var dayInputLayouts = []string{
	dayLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
}

// DayRange is an inclusive, ordered run of calendar days.
type DayRange struct {
	Days      []time.Time
	Corrected bool
	Truncated bool
}

// RangeMeta describes a DayRange in a report.
type RangeMeta struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Days      int    `json:"days"`
	Corrected bool   `json:"corrected,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// First returns the first day marker.
func (r DayRange) First() time.Time {
	if len(r.Days) == 0 {
		return time.Time{}
	}
	return r.Days[0]
}

// Last returns the last day marker.
func (r DayRange) Last() time.Time {
	if len(r.Days) == 0 {
		return time.Time{}
	}
	return r.Days[len(r.Days)-1]
}

// Meta summarizes the range for report output.
func (r DayRange) Meta() RangeMeta {
	if len(r.Days) == 0 {
		return RangeMeta{}
	}
	return RangeMeta{
		Start:     r.First().Format(dayLayout),
		End:       r.Last().Format(dayLayout),
		Days:      len(r.Days),
		Corrected: r.Corrected,
		Truncated: r.Truncated,
	}
}

// Normalizer turns instants and date strings into day markers at local
// midnight in a fixed location.
type Normalizer struct {
	loc    *time.Location
	logger *slog.Logger
}

// NewNormalizer builds a normalizer for loc. A nil loc means UTC.
func NewNormalizer(loc *time.Location, logger *slog.Logger) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{loc: loc, logger: logger}
}

// Location returns the location day markers are built in.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// DayOf returns the marker for the calendar day written in t. The year, month
// and day are read in t's own offset and rebuilt in the normalizer's location,
// so no conversion can push the value into a neighbouring day.
func (n *Normalizer) DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, n.loc)
}

// InstantDay returns the marker of the local day an instant falls on.
func (n *Normalizer) InstantDay(t time.Time) time.Time {
	return n.DayOf(t.In(n.loc))
}

// EndOfDay returns the last representable instant of day's calendar day.
func (n *Normalizer) EndOfDay(day time.Time) time.Time {
	return n.DayOf(day).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ParseDay parses a date or timestamp string and returns the marker for the
// calendar date literally written in it.
func (n *Normalizer) ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalidRange("empty date")
	}
	for _, layout := range dayInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return n.DayOf(t), nil
		}
	}
	return time.Time{}, invalidRange("unparseable date %q", s)
}

// Range builds the inclusive day sequence from start to end. A missing end,
// or one that does not come after start, is replaced by start plus windowDays.
// Only a missing start is an error.
func (n *Normalizer) Range(start time.Time, end *time.Time, windowDays int) (DayRange, error) {
	if start.IsZero() {
		return DayRange{}, invalidRange("missing start date")
	}
	if windowDays <= 0 {
		windowDays = ProjectWindowDays
	}

	var out DayRange
	first := n.DayOf(start)
	var last time.Time

	switch {
	case end == nil || end.IsZero():
		last = first.AddDate(0, 0, windowDays)
	case !end.After(start) || n.DayOf(*end).Before(first):
		n.logger.Warn("end date not after start date; using default window",
			slog.String("start", start.Format(time.RFC3339)),
			slog.String("end", end.Format(time.RFC3339)),
			slog.Int("window_days", windowDays),
		)
		out.Corrected = true
		last = first.AddDate(0, 0, windowDays)
	default:
		last = n.DayOf(*end)
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if len(out.Days) == MaxRangeDays {
			out.Truncated = true
			n.logger.Warn("date range truncated",
				slog.String("start", first.Format(dayLayout)),
				slog.String("end", last.Format(dayLayout)),
				slog.Int("max_days", MaxRangeDays),
			)
			break
		}
		out.Days = append(out.Days, d)
	}
	return out, nil
}
