// Package schedule computes start and end dates for every task of a WBS.
//
// Forward scheduling starts from a baseline and pushes each task to the
// earliest date its predecessors, its resource calendar and the capacity
// already reserved by other tasks allow. Backward scheduling mirrors it
// from a deadline. Both work on a clone: the input graph is never changed.
package schedule

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/swamp-dev/pjplan/internal/calendar"
	"github.com/swamp-dev/pjplan/internal/planerr"
	"github.com/swamp-dev/pjplan/internal/resource"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

// DefaultMaxWorkDays bounds the days a single task may span.
const DefaultMaxWorkDays = 1000

const epsilon = 1e-9

// Rollup selects how the spent work of a parent task is summed.
type Rollup int

const (
	// RollupPessimistic sums min(estimate, spent) over the children, so
	// overspent children never hide remaining work elsewhere.
	RollupPessimistic Rollup = iota
	// RollupRaw sums the spent work of the children as recorded.
	RollupRaw
)

func (r Rollup) String() string {
	if r == RollupRaw {
		return "raw"
	}
	return "pessimistic"
}

// ParseRollup maps "pessimistic" (or "") and "raw" to a Rollup.
func ParseRollup(s string) (Rollup, error) {
	switch strings.ToLower(s) {
	case "", "pessimistic":
		return RollupPessimistic, nil
	case "raw":
		return RollupRaw, nil
	}
	return 0, planerr.Validationf("spent_rollup", nil, "unknown rollup %q", s)
}

// Options configure a scheduler.
type Options struct {
	// Start is the forward baseline. Zero means Now().
	Start time.Time
	// Deadline is the backward ceiling. Required for backward scheduling.
	Deadline time.Time
	// Now returns the current time. Nil means Start, or time.Now when
	// Start is zero too.
	Now func() time.Time

	Resources       resource.Set
	DefaultEstimate float64
	// PerTaskCapacity lets every task see the full calendar capacity of its
	// resource instead of what other tasks left over.
	PerTaskCapacity bool
	SpentRollup     Rollup
	MaxSearchDays   int
	MaxWorkDays     int

	Logger *slog.Logger
}

// Result is a scheduled copy of the input graph.
type Result struct {
	Graph     *wbs.WBS
	Resources []*resource.Resource
	Usage     *resource.Usage
}

// Scheduler dates the tasks of a graph.
type Scheduler interface {
	Calc(g *wbs.WBS) (*Result, error)
}

// New returns the scheduler for direction "forward" (or "") or "backward".
func New(direction string, opts Options) (Scheduler, error) {
	switch strings.ToLower(direction) {
	case "", "forward":
		return NewForward(opts), nil
	case "backward":
		return NewBackward(opts), nil
	}
	return nil, planerr.Validationf("direction", nil, "unknown scheduling direction %q", direction)
}

func (o Options) withDefaults() Options {
	if o.MaxSearchDays <= 0 {
		o.MaxSearchDays = resource.DefaultMaxDays
	}
	if o.MaxWorkDays <= 0 {
		o.MaxWorkDays = DefaultMaxWorkDays
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Resources == nil {
		o.Resources = resource.NewSet()
	}
	return o
}

// now resolves the clock for one run.
func (o Options) now() time.Time {
	switch {
	case o.Now != nil:
		return o.Now()
	case !o.Start.IsZero():
		return o.Start
	default:
		return time.Now()
	}
}

// pass holds the state of one Calc run.
type pass struct {
	opts    Options
	graph   *wbs.WBS
	usage   *resource.Usage
	touched map[string]*resource.Resource
	log     *slog.Logger
}

func newPass(g *wbs.WBS, opts Options) *pass {
	return &pass{
		opts:    opts,
		graph:   g,
		usage:   resource.NewUsage(),
		touched: make(map[string]*resource.Resource),
		log:     opts.Logger,
	}
}

func (p *pass) resourceFor(t *wbs.Task) *resource.Resource {
	name := t.Resource
	if name == "" {
		name = resource.DefaultName
	}
	if r, ok := p.touched[name]; ok {
		return r
	}
	r := p.opts.Resources.Lookup(name)
	p.touched[name] = r
	return r
}

// used returns the capacity of r already taken on day, as seen by taskID.
func (p *pass) used(r *resource.Resource, day time.Time, taskID string) float64 {
	if p.opts.PerTaskCapacity {
		return p.usage.UsedBy(r.Name, day, taskID)
	}
	return p.usage.Used(r.Name, day)
}

func (p *pass) result() *Result {
	names := make([]string, 0, len(p.touched))
	for name := range p.touched {
		names = append(names, name)
	}
	sort.Strings(names)
	res := &Result{Graph: p.graph, Usage: p.usage}
	for _, name := range names {
		res.Resources = append(res.Resources, p.touched[name])
	}
	return res
}

func (p *pass) tooLong(t *wbs.Task, r *resource.Resource) error {
	return planerr.Schedulingf([]string{t.ID()},
		"work of task %s does not fit into %d days of resource %q", t.ID(), p.opts.MaxWorkDays, r.Name)
}

// rollup sets the estimate and spent work of parent from its children.
func (p *pass) rollup(parent *wbs.Task) {
	var est, spent float64
	for _, c := range parent.Children() {
		ce, _ := c.Estimate()
		cs, _ := c.Spent()
		est += ce
		if p.opts.SpentRollup == RollupRaw {
			spent += cs
		} else {
			spent += math.Min(ce, cs)
		}
	}
	_ = parent.SetEstimate(est)
	_ = parent.SetSpent(spent)
}

// defaults fills the unset estimate and spent work of a leaf.
func (p *pass) defaults(t *wbs.Task) float64 {
	if _, ok := t.Estimate(); !ok {
		_ = t.SetEstimate(p.opts.DefaultEstimate)
	}
	if _, ok := t.Spent(); !ok {
		_ = t.SetSpent(0)
	}
	est, _ := t.Estimate()
	spent, _ := t.Spent()
	return math.Max(est-spent, 0)
}

func (p *pass) traceTask(t *wbs.Task) {
	p.log.Debug("task dated",
		"id", t.ID(),
		"start", formatTime(t.Start),
		"end", formatTime(t.End),
		"resource", t.Resource,
	)
}

func (p *pass) traceRun(kind string, began time.Time) {
	p.log.Info("schedule computed",
		"direction", kind,
		"graph", p.graph.Name,
		"roots", len(p.graph.Roots()),
		"tasks", p.graph.Len(),
		"resources", len(p.touched),
		"elapsed", time.Since(began),
	)
}

// at returns the instant at fraction frac of day.
func at(day time.Time, frac float64) time.Time {
	return day.Add(time.Duration(math.Round(frac * float64(24*time.Hour))))
}

// fraction returns the position of t within its day, in [0, 1).
func fraction(t time.Time) (time.Time, float64) {
	day := calendar.Day(t)
	return day, float64(t.Sub(day)) / float64(24*time.Hour)
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func earlier(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func inGraph(g *wbs.WBS, ts []*wbs.Task) []*wbs.Task {
	out := ts[:0:0]
	for _, t := range ts {
		if g.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

func describe(t *wbs.Task) string {
	if t.Name == "" {
		return t.ID()
	}
	return fmt.Sprintf("%s (%s)", t.ID(), t.Name)
}
