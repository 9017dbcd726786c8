// Package calendar provides work calendars: functions from a calendar day
// to the capacity units available on that day.
//
// A calendar answers Units(day) with (units, true), or (0, false) when it
// has no definite answer for that day, for example outside a validity
// window. Undefined is distinct from zero capacity. Composite calendars
// combine their children pointwise and skip undefined children; a
// composite is undefined only when all of its children are.
//
// The set of calendar types is closed: Weekly, Direct, Fixed, Sum, Diff,
// Product, Quotient, Disjunction and Transform.
package calendar

import (
	"time"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

// Calendar maps a day to available capacity units.
type Calendar interface {
	// Units returns the capacity for the day containing t.
	Units(t time.Time) (float64, bool)

	sealed()
}

// Day truncates t to midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Window bounds the days on which a calendar is defined. Zero Start or End
// leaves that side open. Both bounds are inclusive days.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) contains(t time.Time) bool {
	day := Day(t)
	if !w.Start.IsZero() && day.Before(Day(w.Start)) {
		return false
	}
	if !w.End.IsZero() && day.After(Day(w.End)) {
		return false
	}
	return true
}

func (w Window) validate() error {
	if !w.Start.IsZero() && !w.End.IsZero() && Day(w.Start).After(Day(w.End)) {
		return planerr.Validationf("window", nil, "start %s is after end %s",
			w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
	}
	return nil
}

// Option configures the validity window of a base calendar.
type Option func(*Window)

// Between limits a calendar to the inclusive day range [start, end].
func Between(start, end time.Time) Option {
	return func(w *Window) {
		w.Start = start
		w.End = end
	}
}

// From limits a calendar to days on or after start.
func From(start time.Time) Option {
	return func(w *Window) { w.Start = start }
}

// Until limits a calendar to days on or before end.
func Until(end time.Time) Option {
	return func(w *Window) { w.End = end }
}

func buildWindow(opts []Option) (Window, error) {
	var w Window
	for _, opt := range opts {
		opt(&w)
	}
	return w, w.validate()
}

// Default is the Monday to Friday, 8 units per day calendar.
func Default() Calendar {
	return defaultCalendar
}

var defaultCalendar = &Weekly{
	units: [7]float64{
		time.Monday:    8,
		time.Tuesday:   8,
		time.Wednesday: 8,
		time.Thursday:  8,
		time.Friday:    8,
	},
}
