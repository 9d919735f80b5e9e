package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Date range presets understood by ParseDateRange.
const (
	RangeThisMonth  = "this_month"
	RangeLastMonth  = "last_month"
	RangeLast30Days = "last_30_days"
	RangeLast90Days = "last_90_days"
	RangeYearToDate = "year_to_date"
)

var errInvertedRange = errors.New("dashboard: range start must not be after end")

// DateRange is an inclusive [Start, End] interval scoping metric aggregation.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// NewDateRange builds a range, rejecting inverted bounds.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, errInvertedRange
	}
	return DateRange{Start: start, End: end}, nil
}

// CurrentMonth spans the first to the last instant of now's calendar month.
func CurrentMonth(now time.Time) DateRange {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return DateRange{Start: start, End: endOfMonth(start)}
}

// Contains reports whether t falls within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	if r.IsEmpty() {
		return false
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// IsEmpty reports a degenerate interval (start after end).
func (r DateRange) IsEmpty() bool {
	return r.Start.After(r.End)
}

// ParseDateRange resolves a preset or explicit bounds. Explicit bounds accept
// RFC3339 or YYYY-MM-DD; a date-only end is extended to the end of that day.
// With neither, the current month is used.
func ParseDateRange(preset, start, end string, now time.Time) (DateRange, error) {
	preset = strings.TrimSpace(strings.ToLower(preset))
	if start != "" || end != "" {
		return parseExplicitRange(start, end, now)
	}
	switch preset {
	case "", RangeThisMonth:
		return CurrentMonth(now), nil
	case RangeLastMonth:
		prev := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return DateRange{Start: prev, End: endOfMonth(prev)}, nil
	case RangeLast30Days:
		return trailingDays(now, 30), nil
	case RangeLast90Days:
		return trailingDays(now, 90), nil
	case RangeYearToDate:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return DateRange{Start: start, End: now}, nil
	default:
		return DateRange{}, fmt.Errorf("dashboard: unknown date range preset %q", preset)
	}
}

func parseExplicitRange(start, end string, now time.Time) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, errors.New("dashboard: both start and end are required for a custom range")
	}
	from, _, err := parseBound(start, now.Location())
	if err != nil {
		return DateRange{}, fmt.Errorf("dashboard: parse range start: %w", err)
	}
	to, dateOnly, err := parseBound(end, now.Location())
	if err != nil {
		return DateRange{}, fmt.Errorf("dashboard: parse range end: %w", err)
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return NewDateRange(from, to)
}

func parseBound(value string, loc *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func trailingDays(now time.Time, days int) DateRange {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))
	return DateRange{Start: start, End: now}
}

func endOfMonth(firstOfMonth time.Time) time.Time {
	return firstOfMonth.AddDate(0, 1, 0).Add(-time.Nanosecond)
}
