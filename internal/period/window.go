package period

import (
	"errors"
	"time"
)

var (
	ErrNotOpen = errors.New("upload window has not opened yet")
	ErrClosed  = errors.New("upload window is closed")
)

// Window is the range of calendar days in which producers may upload.
// Both ends are inclusive; a zero bound is unbounded.
type Window struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// NewWindow uses the producer dates and narrows the end to deadline when one
// is set and earlier.
func NewWindow(start, end time.Time, deadline *time.Time, loc *time.Location) Window {
	w := Window{Start: start, End: end, Location: loc}
	if deadline != nil && !deadline.IsZero() && (w.End.IsZero() || deadline.Before(w.End)) {
		w.End = *deadline
	}
	return w
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// today converts now to the window location; bounds are calendar dates and
// keep their own year, month and day.
func (w Window) today(now time.Time) time.Time {
	return w.day(now.In(w.loc()))
}

func (w Window) day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.loc())
}

// Check returns ErrNotOpen before the first day and ErrClosed after the last.
func (w Window) Check(now time.Time) error {
	today := w.today(now)
	if !w.Start.IsZero() && today.Before(w.day(w.Start)) {
		return ErrNotOpen
	}
	if !w.End.IsZero() && today.After(w.day(w.End)) {
		return ErrClosed
	}
	return nil
}

// DaysRemaining counts the days left including today; 0 once closed and
// -1 when the window has no end.
func (w Window) DaysRemaining(now time.Time) int {
	if w.End.IsZero() {
		return -1
	}
	today, last := w.today(now), w.day(w.End)
	if today.After(last) {
		return 0
	}
	// calendar days survive DST shifts when counted on UTC midnights
	a := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}
