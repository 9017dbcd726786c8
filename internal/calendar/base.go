package calendar

import (
	"time"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

// Weekly gives a capacity per weekday, optionally within a window.
type Weekly struct {
	units  [7]float64
	window Window
}

// NewWeekly builds a calendar with unitsPerDay on each of days and zero on
// the other weekdays.
func NewWeekly(days []time.Weekday, unitsPerDay float64, opts ...Option) (*Weekly, error) {
	if len(days) == 0 {
		return nil, planerr.Validationf("days", nil, "at least one working day is required")
	}
	if unitsPerDay < 0 {
		return nil, planerr.Validationf("units_per_day", nil, "units per day must be >= 0, got %v", unitsPerDay)
	}
	per := make(map[time.Weekday]float64, len(days))
	for _, d := range days {
		per[d] = unitsPerDay
	}
	return NewWeeklyUnits(per, opts...)
}

// NewWeeklyUnits builds a calendar from an explicit per-weekday capacity.
// Weekdays missing from units have zero capacity.
func NewWeeklyUnits(units map[time.Weekday]float64, opts ...Option) (*Weekly, error) {
	if len(units) == 0 {
		return nil, planerr.Validationf("units_per_day", nil, "at least one weekday capacity is required")
	}
	w := &Weekly{}
	for d, u := range units {
		if d < time.Sunday || d > time.Saturday {
			return nil, planerr.Validationf("days", nil, "weekday %d out of range", int(d))
		}
		if u < 0 {
			return nil, planerr.Validationf("units_per_day", nil, "units for %s must be >= 0, got %v", d, u)
		}
		w.units[d] = u
	}
	window, err := buildWindow(opts)
	if err != nil {
		return nil, err
	}
	w.window = window
	return w, nil
}

func (w *Weekly) Units(t time.Time) (float64, bool) {
	if !w.window.contains(t) {
		return 0, false
	}
	return w.units[t.Weekday()], true
}

func (*Weekly) sealed() {}

// Direct holds explicit per-day capacities and is undefined elsewhere.
type Direct struct {
	units map[time.Time]float64
}

// NewDirect builds a calendar from day overrides. Keys are truncated to days.
func NewDirect(units map[time.Time]float64) (*Direct, error) {
	d := &Direct{units: make(map[time.Time]float64, len(units))}
	for day, u := range units {
		if err := d.Set(day, u); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Set overrides the capacity of the day containing t.
func (d *Direct) Set(t time.Time, units float64) error {
	if units < 0 {
		return planerr.Validationf("units", nil, "units for %s must be >= 0, got %v", t.Format(time.DateOnly), units)
	}
	d.units[dayKey(t)] = units
	return nil
}

func (d *Direct) Units(t time.Time) (float64, bool) {
	u, ok := d.units[dayKey(t)]
	return u, ok
}

func (*Direct) sealed() {}

// dayKey normalizes to a UTC date so lookups ignore the caller's location.
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Fixed gives the same capacity on every day within its window.
type Fixed struct {
	units  float64
	window Window
}

func NewFixed(units float64, opts ...Option) (*Fixed, error) {
	if units < 0 {
		return nil, planerr.Validationf("units", nil, "units must be >= 0, got %v", units)
	}
	window, err := buildWindow(opts)
	if err != nil {
		return nil, err
	}
	return &Fixed{units: units, window: window}, nil
}

func (f *Fixed) Units(t time.Time) (float64, bool) {
	if !f.window.contains(t) {
		return 0, false
	}
	return f.units, true
}

func (*Fixed) sealed() {}
