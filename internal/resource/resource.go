// Package resource binds named capacity sources to work calendars and
// records the capacity consumed by tasks.
package resource

import (
	"math"
	"time"

	"github.com/swamp-dev/pjplan/internal/calendar"
	"github.com/swamp-dev/pjplan/internal/planerr"
)

// DefaultName is the resource used by tasks that name none.
const DefaultName = "default"

// DefaultMaxDays bounds the nearest-availability search.
const DefaultMaxDays = 100

// Direction is the stepping direction of a date search.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// Resource is a person, machine or any other capacity that performs work.
type Resource struct {
	Name     string
	Calendar calendar.Calendar
}

// New returns a resource. A nil calendar means calendar.Default().
func New(name string, cal calendar.Calendar) *Resource {
	if cal == nil {
		cal = calendar.Default()
	}
	return &Resource{Name: name, Calendar: cal}
}

// Default returns a fresh resource named DefaultName on the default calendar.
func Default() *Resource {
	return New(DefaultName, nil)
}

// AvailableUnits returns the calendar capacity for the day containing t,
// clamped to >= 0. Days the calendar leaves undefined have no capacity.
// taskID identifies the requesting task; calendars are task independent.
func (r *Resource) AvailableUnits(t time.Time, taskID string) float64 {
	v, ok := r.Calendar.Units(t)
	if !ok {
		return 0
	}
	return math.Max(v, 0)
}

// NearestAvailability steps one calendar day at a time from start in dir
// until a day with positive capacity is found. The returned time keeps
// start's time of day when start itself is available.
func (r *Resource) NearestAvailability(start time.Time, dir Direction, maxDays int) (time.Time, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	d := start
	for step := 0; step < maxDays; step++ {
		if r.AvailableUnits(d, "") > 0 {
			return d, nil
		}
		d = d.AddDate(0, 0, int(dir))
	}
	return time.Time{}, planerr.Schedulingf(nil,
		"no availability found for resource %q within %d days from %s",
		r.Name, maxDays, start.Format(time.DateOnly))
}

// Set indexes resources by name.
type Set map[string]*Resource

// NewSet builds a Set. Later resources replace earlier ones with the same name.
func NewSet(resources ...*Resource) Set {
	s := make(Set, len(resources))
	for _, r := range resources {
		s[r.Name] = r
	}
	return s
}

// Lookup returns the named resource. An empty name means DefaultName. An
// unknown name gets a resource of its own on the calendar of the set's
// default entry, or on calendar.Default() when the set has none.
func (s Set) Lookup(name string) *Resource {
	if name == "" {
		name = DefaultName
	}
	if r, ok := s[name]; ok {
		return r
	}
	var cal calendar.Calendar
	if d, ok := s[DefaultName]; ok {
		cal = d.Calendar
	}
	return New(name, cal)
}
