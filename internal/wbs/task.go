// Package wbs implements the work breakdown structure: a graph of tasks
// linked by four relations kept consistent in both directions.
//
//   - parent / children: the ownership tree
//   - predecessors / successors: finish-to-start dependencies
//
// Every mutating method validates before it mutates. A rejected mutation
// returns a *planerr.ValidationError and leaves every task unchanged.
//
// A WBS owns an invisible root task whose children are the graph roots.
// Tasks reached from that root belong to the graph; a task may depend on
// tasks of other graphs but may only be parented inside its own.
package wbs

import (
	"fmt"
	"time"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

const rootID = "\x00wbs-root"

// Task is a unit of work and a node of the task graph.
type Task struct {
	id string

	Name      string
	Resource  string
	Start     *time.Time
	End       *time.Time
	MinStart  *time.Time
	MaxEnd    *time.Time
	Milestone bool
	Attrs     map[string]Value

	estimate *float64
	spent    *float64

	graph    *WBS
	sentinel bool
	parent   *Task
	children []*Task
	preds    []*Task
	succs    []*Task
}

// At returns a pointer to t, for the optional date fields of Task.
func At(t time.Time) *time.Time { return &t }

// Option configures a task built by NewTask.
type Option func(*builder) error

type builder struct {
	task   *Task
	parent *Task
	preds  []*Task
	succs  []*Task
}

func WithName(name string) Option {
	return func(b *builder) error { b.task.Name = name; return nil }
}

func WithResource(resource string) Option {
	return func(b *builder) error { b.task.Resource = resource; return nil }
}

func WithStart(t time.Time) Option {
	return func(b *builder) error { b.task.Start = At(t); return nil }
}

func WithEnd(t time.Time) Option {
	return func(b *builder) error { b.task.End = At(t); return nil }
}

func WithMinStart(t time.Time) Option {
	return func(b *builder) error { b.task.MinStart = At(t); return nil }
}

func WithMaxEnd(t time.Time) Option {
	return func(b *builder) error { b.task.MaxEnd = At(t); return nil }
}

func WithMilestone() Option {
	return func(b *builder) error { b.task.Milestone = true; return nil }
}

func WithEstimate(hours float64) Option {
	return func(b *builder) error { return b.task.SetEstimate(hours) }
}

func WithSpent(hours float64) Option {
	return func(b *builder) error { return b.task.SetSpent(hours) }
}

func WithAttr(key string, v Value) Option {
	return func(b *builder) error {
		if b.task.Attrs == nil {
			b.task.Attrs = make(map[string]Value)
		}
		b.task.Attrs[key] = v
		return nil
	}
}

func WithParent(p *Task) Option {
	return func(b *builder) error { b.parent = p; return nil }
}

func WithPredecessors(ts ...*Task) Option {
	return func(b *builder) error { b.preds = ts; return nil }
}

func WithSuccessors(ts ...*Task) Option {
	return func(b *builder) error { b.succs = ts; return nil }
}

// NewTask builds a standalone task, then attaches it to the parent,
// successors and predecessors given as options, in that order. If any
// relation is rejected the task is detached again and the error returned.
func NewTask(id string, opts ...Option) (*Task, error) {
	if id == rootID {
		return nil, planerr.Validationf("id", nil, "reserved task id")
	}
	b := &builder{task: &Task{id: id}}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	t := b.task

	succs, err := dedupe(t, "successors", b.succs)
	if err != nil {
		return nil, err
	}
	preds, err := dedupe(t, "predecessors", b.preds)
	if err != nil {
		return nil, err
	}
	if err := t.validateParent(b.parent); err != nil {
		return nil, err
	}
	for _, s := range succs {
		if err := t.validateLinkUnder(b.parent, s, "successor", func(*Task) bool { return false }); err != nil {
			return nil, err
		}
	}
	// A predecessor closes a cycle when it can be reached from one of the
	// new successors.
	closes := func(x *Task) bool {
		for _, s := range succs {
			if s == x || reachable(s, x, func(n *Task) []*Task { return n.succs }) {
				return true
			}
		}
		return false
	}
	for _, p := range preds {
		if err := t.validateLinkUnder(b.parent, p, "predecessor", closes); err != nil {
			return nil, err
		}
	}

	if b.parent != nil {
		t.attach(b.parent, -1)
	}
	t.succs = succs
	for _, s := range succs {
		s.preds = appendUnique(s.preds, t)
	}
	t.preds = preds
	for _, p := range preds {
		p.succs = appendUnique(p.succs, t)
	}
	return t, nil
}

// MustTask is NewTask for fixtures and examples. It panics on error.
func MustTask(id string, opts ...Option) *Task {
	t, err := NewTask(id, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Task) ID() string { return t.id }

// Graph returns the WBS the task belongs to, or nil for a detached task.
func (t *Task) Graph() *WBS { return t.graph }

// Estimate returns the estimated work in hours, if set.
func (t *Task) Estimate() (float64, bool) {
	if t.estimate == nil {
		return 0, false
	}
	return *t.estimate, true
}

// SetEstimate sets the estimated work. Negative values are rejected.
func (t *Task) SetEstimate(hours float64) error {
	if hours < 0 {
		return planerr.Validationf("estimate", []string{t.id}, "estimate must be >= 0, got %v", hours)
	}
	t.estimate = &hours
	return nil
}

func (t *Task) ClearEstimate() { t.estimate = nil }

// Spent returns the completed work in hours, if set.
func (t *Task) Spent() (float64, bool) {
	if t.spent == nil {
		return 0, false
	}
	return *t.spent, true
}

// SetSpent sets the completed work. Negative values are rejected.
func (t *Task) SetSpent(hours float64) error {
	if hours < 0 {
		return planerr.Validationf("spent", []string{t.id}, "spent must be >= 0, got %v", hours)
	}
	t.spent = &hours
	return nil
}

func (t *Task) ClearSpent() { t.spent = nil }

// Parent returns the parent task, or nil for a root or standalone task.
func (t *Task) Parent() *Task {
	if t.parent == nil || t.parent.sentinel {
		return nil
	}
	return t.parent
}

func (t *Task) Children() []*Task     { return clone(t.children) }
func (t *Task) Predecessors() []*Task { return clone(t.preds) }
func (t *Task) Successors() []*Task   { return clone(t.succs) }

func (t *Task) IsLeaf() bool { return len(t.children) == 0 }

// Attr returns the extension attribute key.
func (t *Task) Attr(key string) (Value, bool) {
	v, ok := t.Attrs[key]
	return v, ok
}

// Clone copies the task attributes without any relation.
func (t *Task) Clone() *Task {
	c := &Task{
		id:        t.id,
		Name:      t.Name,
		Resource:  t.Resource,
		Start:     copyTime(t.Start),
		End:       copyTime(t.End),
		MinStart:  copyTime(t.MinStart),
		MaxEnd:    copyTime(t.MaxEnd),
		Milestone: t.Milestone,
		estimate:  copyFloat(t.estimate),
		spent:     copyFloat(t.spent),
	}
	if t.Attrs != nil {
		c.Attrs = make(map[string]Value, len(t.Attrs))
		for k, v := range t.Attrs {
			c.Attrs[k] = v
		}
	}
	return c
}

func (t *Task) String() string {
	return fmt.Sprintf("Task(%s %q)", t.id, t.Name)
}

func clone(ts []*Task) []*Task {
	if len(ts) == 0 {
		return nil
	}
	out := make([]*Task, len(ts))
	copy(out, ts)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func ids(ts []*Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.id
	}
	return out
}
