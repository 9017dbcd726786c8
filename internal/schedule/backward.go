package schedule

import (
	"math"
	"slices"
	"time"

	"github.com/swamp-dev/pjplan/internal/calendar"
	"github.com/swamp-dev/pjplan/internal/planerr"
	"github.com/swamp-dev/pjplan/internal/resource"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

// Backward schedules every task as late as possible before a deadline.
// Capacity on a day is consumed from the end of the day.
type Backward struct {
	opts Options
}

func NewBackward(opts Options) *Backward {
	return &Backward{opts: opts.withDefaults()}
}

// Calc dates a clone of g. Dated tasks of other graphs linked from g gain
// the clone's tasks as back-references; call Release on the result graph
// once it is no longer needed. A failed run releases its clone itself.
func (b *Backward) Calc(g *wbs.WBS) (_ *Result, err error) {
	began := time.Now()
	opts := b.opts
	if opts.Deadline.IsZero() {
		return nil, planerr.Validationf("deadline", nil, "backward scheduling needs a deadline")
	}

	res := g.Clone()
	defer func() {
		if err != nil {
			res.Release()
		}
	}()
	if err := checkIsolation(res, (*wbs.Task).Successors, "successor"); err != nil {
		return nil, err
	}
	deps := backwardDeps(res)
	if err := checkCycles(res, deps); err != nil {
		return nil, err
	}
	resetParents(res)
	for _, t := range res.Leaves() {
		if t.Milestone || t.End == nil || !t.End.After(opts.Deadline) {
			continue
		}
		return nil, planerr.Schedulingf([]string{t.ID()},
			"task %s ends on %s, after the deadline %s", describe(t),
			t.End.Format(time.DateTime), opts.Deadline.Format(time.DateTime))
	}

	p := &backwardPass{pass: newPass(res, opts)}
	roots := res.Roots()
	slices.Reverse(roots)
	if err := evaluate(roots, deps, p.compute); err != nil {
		return nil, err
	}
	p.traceRun("backward", began)
	return p.result(), nil
}

type backwardPass struct {
	*pass
}

// ceiling is the latest end allowed for t: the deadline and the starts of
// the successors of t and of its ancestors.
func (p *backwardPass) ceiling(t *wbs.Task) time.Time {
	ceiling := p.opts.Deadline
	for _, x := range append([]*wbs.Task{t}, t.AllParents()...) {
		for _, succ := range x.Successors() {
			if succ.Start != nil {
				ceiling = earlier(ceiling, *succ.Start)
			}
		}
	}
	return ceiling
}

func (p *backwardPass) compute(t *wbs.Task) error {
	ceiling := p.ceiling(t)
	switch {
	case t.Milestone:
		t.Start, t.End = wbs.At(ceiling), wbs.At(ceiling)
		_ = t.SetEstimate(0)
		_ = t.SetSpent(0)
	case t.IsLeaf():
		if err := p.leaf(t, ceiling); err != nil {
			return err
		}
	default:
		p.parent(t, ceiling)
	}
	p.traceTask(t)
	return nil
}

func (p *backwardPass) leaf(t *wbs.Task, ceiling time.Time) error {
	left := p.defaults(t)
	r := p.resourceFor(t)
	if t.End == nil {
		until := ceiling
		if t.MaxEnd != nil {
			until = earlier(until, *t.MaxEnd)
		}
		end, err := p.lastSlot(t, r, until)
		if err != nil {
			return err
		}
		t.End = wbs.At(end)
	}
	if t.Start == nil {
		start, err := p.consume(t, r, *t.End, left)
		if err != nil {
			return err
		}
		t.Start = wbs.At(start)
	}
	return nil
}

func (p *backwardPass) parent(t *wbs.Task, ceiling time.Time) {
	var start, end *time.Time
	for _, c := range t.Children() {
		if c.Start != nil && (start == nil || c.Start.Before(*start)) {
			start = c.Start
		}
		if c.End != nil && (end == nil || c.End.After(*end)) {
			end = c.End
		}
	}
	e := ceiling
	if end != nil {
		e = earlier(*end, ceiling)
	}
	t.End = wbs.At(e)
	if start != nil {
		t.Start = wbs.At(earlier(*start, e))
	} else {
		t.Start = wbs.At(e)
	}
	p.rollup(t)
}

// dayBefore returns the day holding the instant just before t and the
// position of t within it, in (0, 1]. Midnight closes the previous day.
func dayBefore(t time.Time) (time.Time, float64) {
	day, frac := fraction(t)
	if frac == 0 {
		return day.AddDate(0, 0, -1), 1
	}
	return day, frac
}

// lastSlot returns the last instant at or before until where r has spare
// capacity. Reserved capacity occupies the end of each day.
func (p *backwardPass) lastSlot(t *wbs.Task, r *resource.Resource, until time.Time) (time.Time, error) {
	day, frac := dayBefore(until)
	d, err := r.NearestAvailability(day, resource.Backward, p.opts.MaxSearchDays)
	if err != nil {
		return time.Time{}, err
	}
	if !calendar.Day(d).Equal(day) {
		day, frac = calendar.Day(d), 1
	}
	for n := 0; n < p.opts.MaxWorkDays; n++ {
		capacity := r.AvailableUnits(day, t.ID())
		pos := math.Min(capacity-p.used(r, day, t.ID()), frac*capacity)
		if pos > epsilon {
			return at(day, pos/capacity), nil
		}
		day, frac = day.AddDate(0, 0, -1), 1
	}
	return time.Time{}, p.tooLong(t, r)
}

// consume reserves left units of r day by day from until backward and
// returns the instant the work has to begin.
func (p *backwardPass) consume(t *wbs.Task, r *resource.Resource, until time.Time, left float64) (time.Time, error) {
	if left <= epsilon {
		return until, nil
	}
	day, frac := dayBefore(until)
	for n := 0; n < p.opts.MaxWorkDays; n++ {
		capacity := r.AvailableUnits(day, t.ID())
		pos := math.Min(capacity-p.used(r, day, t.ID()), frac*capacity)
		if pos > epsilon {
			x := math.Min(left, pos)
			p.usage.Reserve(r.Name, day, t.ID(), x)
			left -= x
			if left <= epsilon {
				return at(day, (pos-x)/capacity), nil
			}
		}
		day, frac = day.AddDate(0, 0, -1), 1
	}
	return time.Time{}, p.tooLong(t, r)
}
