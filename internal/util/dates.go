package util

import (
	"errors"
	"strings"
	"time"
)

var ErrDateFormat = errors.New("invalid date format (use YYYY-MM-DD or RFC3339)")

// DateRange is a half-open [Start, EndExclusive) filter. A missing bound has
// its Has flag unset.
type DateRange struct {
	Start        time.Time
	HasStart     bool
	EndExclusive time.Time
	HasEnd       bool
}

// parseBound reads an RFC3339 timestamp or a calendar day in loc.
// Blank input is reported as absent.
func parseBound(s *string, loc *time.Location) (t time.Time, ok, dayOnly bool, err error) {
	if s == nil {
		return time.Time{}, false, false, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return time.Time{}, false, false, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true, false, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t, true, true, nil
	}
	return time.Time{}, false, false, ErrDateFormat
}

// ParseDateRange is ParseDateRangeIn with days taken in UTC.
func ParseDateRange(startStr, endStr *string) (DateRange, error) {
	return ParseDateRangeIn(startStr, endStr, time.UTC)
}

// ParseDateRangeIn builds a filter from optional start and end inputs. A
// day-only end covers that whole day. Reversed bounds are swapped; the end
// keeps the day-only handling of the end input.
func ParseDateRangeIn(startStr, endStr *string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}

	start, hasStart, _, err := parseBound(startStr, loc)
	if err != nil {
		return DateRange{}, err
	}
	end, hasEnd, endDayOnly, err := parseBound(endStr, loc)
	if err != nil {
		return DateRange{}, err
	}

	if hasStart && hasEnd && end.Before(start) {
		start, end = end, start
	}

	r := DateRange{Start: start, HasStart: hasStart, HasEnd: hasEnd}
	if hasEnd {
		r.EndExclusive = end
		if endDayOnly {
			r.EndExclusive = end.AddDate(0, 0, 1)
		}
	}
	return r, nil
}
