package schedule

import (
	"math"
	"time"

	"github.com/swamp-dev/pjplan/internal/calendar"
	"github.com/swamp-dev/pjplan/internal/planerr"
	"github.com/swamp-dev/pjplan/internal/resource"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

// Forward schedules every task as early as possible from a baseline.
type Forward struct {
	opts Options
}

func NewForward(opts Options) *Forward {
	return &Forward{opts: opts.withDefaults()}
}

// Calc dates a clone of g. Dated tasks of other graphs linked from g gain
// the clone's tasks as back-references; call Release on the result graph
// once it is no longer needed. A failed run releases its clone itself.
func (f *Forward) Calc(g *wbs.WBS) (_ *Result, err error) {
	began := time.Now()
	opts := f.opts
	now := opts.now()
	if opts.Start.IsZero() {
		opts.Start = now
	}

	res := g.Clone()
	defer func() {
		if err != nil {
			res.Release()
		}
	}()
	if err := checkIsolation(res, (*wbs.Task).Predecessors, "predecessor"); err != nil {
		return nil, err
	}
	deps := forwardDeps(res)
	if err := checkCycles(res, deps); err != nil {
		return nil, err
	}
	resetParents(res)
	for _, t := range res.Leaves() {
		if t.Milestone || t.End == nil || !t.End.After(now) {
			continue
		}
		return nil, planerr.Schedulingf([]string{t.ID()},
			"task %s already ends on %s, after %s", describe(t),
			t.End.Format(time.DateTime), now.Format(time.DateTime))
	}

	p := &forwardPass{pass: newPass(res, opts), now: now}
	if err := evaluate(res.Roots(), deps, p.compute); err != nil {
		return nil, err
	}
	p.traceRun("forward", began)
	return p.result(), nil
}

type forwardPass struct {
	*pass
	now time.Time
}

// floor is the earliest start allowed for t: the baseline and the ends of
// the predecessors of t and of its ancestors.
func (p *forwardPass) floor(t *wbs.Task) time.Time {
	floor := p.opts.Start
	for _, x := range append([]*wbs.Task{t}, t.AllParents()...) {
		for _, pred := range x.Predecessors() {
			if pred.End != nil {
				floor = later(floor, *pred.End)
			}
		}
	}
	return floor
}

func (p *forwardPass) compute(t *wbs.Task) error {
	floor := p.floor(t)
	switch {
	case t.Milestone:
		t.Start, t.End = wbs.At(floor), wbs.At(floor)
		_ = t.SetEstimate(0)
		_ = t.SetSpent(0)
	case t.IsLeaf():
		if err := p.leaf(t, floor); err != nil {
			return err
		}
	default:
		p.parent(t, floor)
	}
	p.traceTask(t)
	return nil
}

func (p *forwardPass) leaf(t *wbs.Task, floor time.Time) error {
	left := p.defaults(t)
	r := p.resourceFor(t)
	if t.Start == nil {
		from := later(floor, p.now)
		if t.MinStart != nil {
			from = later(from, *t.MinStart)
		}
		start, err := p.firstSlot(t, r, from)
		if err != nil {
			return err
		}
		t.Start = wbs.At(start)
	}
	if t.End == nil {
		end, err := p.consume(t, r, later(*t.Start, p.now), left)
		if err != nil {
			return err
		}
		t.End = wbs.At(later(end, p.now))
	}
	return nil
}

func (p *forwardPass) parent(t *wbs.Task, floor time.Time) {
	var start, end *time.Time
	for _, c := range t.Children() {
		if c.Start != nil && (start == nil || c.Start.Before(*start)) {
			start = c.Start
		}
		if c.End != nil && (end == nil || c.End.After(*end)) {
			end = c.End
		}
	}
	s := floor
	if start != nil {
		s = later(*start, floor)
	}
	t.Start = wbs.At(s)
	if end != nil {
		t.End = wbs.At(later(*end, s))
	} else {
		t.End = wbs.At(s)
	}
	p.rollup(t)
}

// firstSlot returns the first instant at or after from where r has spare
// capacity. The position within a day is proportional to the capacity
// already reserved on it.
func (p *forwardPass) firstSlot(t *wbs.Task, r *resource.Resource, from time.Time) (time.Time, error) {
	d, err := r.NearestAvailability(from, resource.Forward, p.opts.MaxSearchDays)
	if err != nil {
		return time.Time{}, err
	}
	day, frac := fraction(from)
	if !calendar.Day(d).Equal(day) {
		day, frac = calendar.Day(d), 0
	}
	for n := 0; n < p.opts.MaxWorkDays; n++ {
		capacity := r.AvailableUnits(day, t.ID())
		pos := math.Max(p.used(r, day, t.ID()), frac*capacity)
		if capacity-pos > epsilon {
			return at(day, pos/capacity), nil
		}
		day, frac = day.AddDate(0, 0, 1), 0
	}
	return time.Time{}, p.tooLong(t, r)
}

// consume reserves left units of r day by day from from onward and
// returns the instant the work completes.
func (p *forwardPass) consume(t *wbs.Task, r *resource.Resource, from time.Time, left float64) (time.Time, error) {
	if left <= epsilon {
		return from, nil
	}
	day, frac := fraction(from)
	for n := 0; n < p.opts.MaxWorkDays; n++ {
		capacity := r.AvailableUnits(day, t.ID())
		pos := math.Max(p.used(r, day, t.ID()), frac*capacity)
		if free := capacity - pos; free > epsilon {
			x := math.Min(left, free)
			p.usage.Reserve(r.Name, day, t.ID(), x)
			left -= x
			if left <= epsilon {
				return at(day, (pos+x)/capacity), nil
			}
		}
		day, frac = day.AddDate(0, 0, 1), 0
	}
	return time.Time{}, p.tooLong(t, r)
}
