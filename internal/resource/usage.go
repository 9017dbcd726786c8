package resource

import (
	"sort"
	"time"

	"github.com/swamp-dev/pjplan/internal/calendar"
)

// Reservation is one row of the usage ledger.
type Reservation struct {
	Resource string    `json:"resource" yaml:"resource"`
	Day      time.Time `json:"day" yaml:"day"`
	TaskID   string    `json:"task_id" yaml:"task_id"`
	Units    float64   `json:"units" yaml:"units"`
}

type dayKey struct {
	resource string
	day      time.Time
}

type taskKey struct {
	dayKey
	task string
}

// Usage is an append-only ledger of reserved capacity.
type Usage struct {
	rows   []Reservation
	byDay  map[dayKey]float64
	byTask map[taskKey]float64
}

func NewUsage() *Usage {
	return &Usage{
		byDay:  make(map[dayKey]float64),
		byTask: make(map[taskKey]float64),
	}
}

func keyFor(resource string, t time.Time) dayKey {
	return dayKey{resource: resource, day: calendar.Day(t).UTC()}
}

// Reserve records units of resource consumed by taskID on the day
// containing t and returns units.
func (u *Usage) Reserve(resource string, t time.Time, taskID string, units float64) float64 {
	k := keyFor(resource, t)
	u.rows = append(u.rows, Reservation{
		Resource: resource,
		Day:      calendar.Day(t),
		TaskID:   taskID,
		Units:    units,
	})
	u.byDay[k] += units
	u.byTask[taskKey{dayKey: k, task: taskID}] += units
	return units
}

// Used returns the units of resource reserved by all tasks on the day containing t.
func (u *Usage) Used(resource string, t time.Time) float64 {
	return u.byDay[keyFor(resource, t)]
}

// UsedBy returns the units of resource reserved by taskID on the day containing t.
func (u *Usage) UsedBy(resource string, t time.Time, taskID string) float64 {
	return u.byTask[taskKey{dayKey: keyFor(resource, t), task: taskID}]
}

// ByResource returns reserved units per day for resource.
func (u *Usage) ByResource(resource string) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	for _, r := range u.rows {
		if r.Resource == resource {
			out[r.Day] += r.Units
		}
	}
	return out
}

// Rows returns a copy of the ledger in insertion order.
func (u *Usage) Rows() []Reservation {
	out := make([]Reservation, len(u.rows))
	copy(out, u.rows)
	return out
}

// Resources returns the sorted names of resources with reservations.
func (u *Usage) Resources() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range u.rows {
		if !seen[r.Resource] {
			seen[r.Resource] = true
			names = append(names, r.Resource)
		}
	}
	sort.Strings(names)
	return names
}
