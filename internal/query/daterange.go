// Package query turns keywords and a date span into search engine query URLs.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format used in configuration and in query URLs.
const DateLayout = "20060102"

// ErrInvalidRange is returned for malformed or inverted date spans.
var ErrInvalidRange = errors.New("invalid date range")

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses a YYYYMMDD date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse %q: %v", ErrInvalidRange, value, err)
	}
	return t, nil
}

// NewDateRange builds a range from two YYYYMMDD dates.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	r := DateRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate reports ErrInvalidRange when the range is inverted or unset.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: missing start or end", ErrInvalidRange)
	}
	if truncate(r.Start).After(truncate(r.End)) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange,
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}

// String renders the range as "YYYYMMDD-YYYYMMDD".
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + "-" + r.End.Format(DateLayout)
}

// MonthlyRanges splits [start, end] into consecutive sub-ranges that never
// cross a calendar month boundary. The first sub-range begins at start and the
// last one ends at end.
func MonthlyRanges(start, end time.Time) ([]DateRange, error) {
	start, end = truncate(start), truncate(end)
	if err := (DateRange{Start: start, End: end}).Validate(); err != nil {
		return nil, err
	}

	var ranges []DateRange
	left := start
	for monthEnd := endOfMonth(start); !monthEnd.After(end); monthEnd = endOfMonth(monthEnd.AddDate(0, 0, 1)) {
		ranges = append(ranges, DateRange{Start: left, End: monthEnd})
		left = monthEnd.AddDate(0, 0, 1)
	}
	if !left.After(end) {
		ranges = append(ranges, DateRange{Start: left, End: end})
	}
	return ranges, nil
}

// Months is MonthlyRanges applied to r.
func (r DateRange) Months() ([]DateRange, error) {
	return MonthlyRanges(r.Start, r.End)
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
