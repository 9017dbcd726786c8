package project

import (
	"strings"
	"time"

	"github.com/swamp-dev/pjplan/internal/calendar"
	"github.com/swamp-dev/pjplan/internal/planerr"
)

// defaultUnits is the daily capacity of weekly and fixed calendars that
// leave units unset.
const defaultUnits = 8

// CalendarSpec is the file form of a work calendar. Composite kinds list
// their operands in Children.
type CalendarSpec struct {
	Kind string `yaml:"kind" json:"kind" validate:"required,oneof=weekly fixed direct sum diff product quotient any scale"`

	// weekly, fixed
	Weekdays []string          `yaml:"weekdays,omitempty" json:"weekdays,omitempty"`
	Units    *float64           `yaml:"units,omitempty" json:"units,omitempty" validate:"omitempty,gte=0"`
	PerDay   map[string]float64 `yaml:"per_day,omitempty" json:"per_day,omitempty" validate:"omitempty,dive,gte=0"`
	From     string             `yaml:"from,omitempty" json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Until    string             `yaml:"until,omitempty" json:"until,omitempty" validate:"omitempty,datetime=2006-01-02"`

	// direct: date -> units
	Days map[string]float64 `yaml:"days,omitempty" json:"days,omitempty" validate:"omitempty,dive,gte=0"`

	Divisor  float64        `yaml:"divisor,omitempty" json:"divisor,omitempty"`
	Factor   float64        `yaml:"factor,omitempty" json:"factor,omitempty"`
	Children []CalendarSpec `yaml:"children,omitempty" json:"children,omitempty" validate:"omitempty,dive"`
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, planerr.Validationf("weekdays", nil, "unknown weekday %q", s)
	}
	return d, nil
}

// Build returns the calendar described by s.
func (s CalendarSpec) Build() (calendar.Calendar, error) {
	switch s.Kind {
	case "weekly":
		return s.weekly()
	case "fixed":
		window, err := s.window()
		if err != nil {
			return nil, err
		}
		return calendar.NewFixed(s.units(), window...)
	case "direct":
		units := make(map[time.Time]float64, len(s.Days))
		for day, u := range s.Days {
			d, err := time.Parse(time.DateOnly, day)
			if err != nil {
				return nil, planerr.Validationf("days", nil, "invalid date %q", day)
			}
			units[d] = u
		}
		return calendar.NewDirect(units)
	case "sum", "diff", "product", "any", "quotient", "scale":
	default:
		return nil, planerr.Validationf("kind", nil, "unknown calendar kind %q", s.Kind)
	}

	children, err := s.children()
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case "sum":
		return calendar.NewSum(children...), nil
	case "diff":
		return calendar.NewDiff(children...), nil
	case "product":
		return calendar.NewProduct(children...), nil
	case "quotient":
		if s.Divisor != 0 {
			if len(children) != 1 {
				return nil, planerr.Validationf("children", nil, "a quotient by a constant takes one calendar, got %d", len(children))
			}
			return calendar.Divide(children[0], s.Divisor)
		}
		return calendar.DivideBy(children...), nil
	case "scale":
		if len(children) != 1 {
			return nil, planerr.Validationf("children", nil, "scale takes one calendar, got %d", len(children))
		}
		return calendar.Scale(children[0], s.Factor), nil
	}
	return calendar.Any(children...), nil
}

func (s CalendarSpec) weekly() (calendar.Calendar, error) {
	window, err := s.window()
	if err != nil {
		return nil, err
	}
	if len(s.PerDay) > 0 {
		per := make(map[time.Weekday]float64, len(s.PerDay))
		for name, u := range s.PerDay {
			d, err := parseWeekday(name)
			if err != nil {
				return nil, err
			}
			per[d] = u
		}
		return calendar.NewWeeklyUnits(per, window...)
	}
	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	if len(s.Weekdays) > 0 {
		days = nil
		for _, name := range s.Weekdays {
			d, err := parseWeekday(name)
			if err != nil {
				return nil, err
			}
			days = append(days, d)
		}
	}
	return calendar.NewWeekly(days, s.units(), window...)
}

func (s CalendarSpec) units() float64 {
	if s.Units == nil {
		return defaultUnits
	}
	return *s.Units
}

func (s CalendarSpec) window() ([]calendar.Option, error) {
	var opts []calendar.Option
	if s.From != "" {
		d, err := time.Parse(time.DateOnly, s.From)
		if err != nil {
			return nil, planerr.Validationf("from", nil, "invalid date %q", s.From)
		}
		opts = append(opts, calendar.From(d))
	}
	if s.Until != "" {
		d, err := time.Parse(time.DateOnly, s.Until)
		if err != nil {
			return nil, planerr.Validationf("until", nil, "invalid date %q", s.Until)
		}
		opts = append(opts, calendar.Until(d))
	}
	return opts, nil
}

func (s CalendarSpec) children() ([]calendar.Calendar, error) {
	if len(s.Children) == 0 {
		return nil, planerr.Validationf("children", nil, "%s calendar needs at least one child", s.Kind)
	}
	out := make([]calendar.Calendar, len(s.Children))
	for i, c := range s.Children {
		cal, err := c.Build()
		if err != nil {
			return nil, err
		}
		out[i] = cal
	}
	return out, nil
}
