package stats

import (
	"fmt"
	"time"
)

// DayWindow is the half-open interval [Start, End) covering one calendar day.
// Start is inclusive, End (the start of the next day) is exclusive.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DateKey returns the calendar date of the window in YYYY-MM-DD form.
func (w DayWindow) DateKey() string {
	return w.Start.Format("2006-01-02")
}

// CurrentDayWindow resolves the calendar day containing now in the given
// location. It is a pure function of its inputs and is called exactly once per
// engine run, so a day boundary crossed mid-run does not shift the window.
func CurrentDayWindow(now time.Time, loc *time.Location) (DayWindow, error) {
	if now.IsZero() {
		return DayWindow{}, fmt.Errorf("cannot resolve day window: zero time reference")
	}

	if loc == nil {
		loc = time.Local
	}

	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	return DayWindow{
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}, nil
}

// DayWindowFor resolves the window for an explicit calendar date (year, month
// and day taken from date) in the given location. Used by the stats read
// surface to translate a YYYY-MM-DD parameter into a stat key.
func DayWindowFor(date time.Time, loc *time.Location) (DayWindow, error) {
	if date.IsZero() {
		return DayWindow{}, fmt.Errorf("cannot resolve day window: zero date")
	}

	if loc == nil {
		loc = time.Local
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	return DayWindow{
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}, nil
}
