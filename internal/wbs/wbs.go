package wbs

import (
	"slices"
	"time"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

// WBS is a task graph: an ordered forest of tasks plus their dependencies.
type WBS struct {
	Name  string
	Attrs map[string]Value

	root *Task
}

// New returns an empty graph.
func New(name string) *WBS {
	g := &WBS{Name: name}
	g.root = &Task{id: rootID, sentinel: true, graph: g}
	return g
}

// FromTasks builds a graph whose roots are attribute-only copies of tasks.
func FromTasks(name string, tasks ...*Task) (*WBS, error) {
	g := New(name)
	roots := make([]*Task, len(tasks))
	for i, t := range tasks {
		roots[i] = t.Clone()
	}
	if err := g.SetRoots(roots); err != nil {
		return nil, err
	}
	return g, nil
}

// Roots returns the top-level tasks in order.
func (g *WBS) Roots() []*Task { return clone(g.root.children) }

// SetRoots replaces the top-level tasks. Dropped roots leave the graph.
func (g *WBS) SetRoots(roots []*Task) error { return g.root.SetChildren(roots) }

// Add appends tasks, with their subtrees, as roots of the graph.
func (g *WBS) Add(tasks ...*Task) error {
	for _, t := range tasks {
		if t == nil {
			return planerr.Validationf("children", nil, "nil task")
		}
		if t.graph == g {
			continue
		}
		if err := t.validateParent(g.root); err != nil {
			return err
		}
	}
	if err := checkIDCollision(g.root, tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		if t.graph != g {
			t.attach(g.root, -1)
		}
	}
	return nil
}

// Tasks returns every task of the graph in pre-order.
func (g *WBS) Tasks() []*Task { return g.root.AllChildren() }

// Len returns the number of tasks in the graph.
func (g *WBS) Len() int { return len(subtree(g.root)) - 1 }

// Contains reports whether t belongs to g.
func (g *WBS) Contains(t *Task) bool { return t != nil && t.graph == g && !t.sentinel }

// Find returns the task with the given id.
func (g *WBS) Find(id string) (*Task, bool) {
	for _, t := range g.Tasks() {
		if t.id == id {
			return t, true
		}
	}
	return nil, false
}

// Get is Find returning a *planerr.NotFoundError for unknown ids.
func (g *WBS) Get(id string) (*Task, error) {
	if t, ok := g.Find(id); ok {
		return t, nil
	}
	return nil, planerr.NotFound("task", id)
}

// Select returns the tasks matching keep, in pre-order.
func (g *WBS) Select(keep func(*Task) bool) []*Task {
	return slices.DeleteFunc(g.Tasks(), func(t *Task) bool { return !keep(t) })
}

// Leaves returns the tasks without children, in pre-order.
func (g *WBS) Leaves() []*Task {
	return g.Select((*Task).IsLeaf)
}

// Start returns the earliest start over all tasks, or nil.
func (g *WBS) Start() *time.Time {
	s, _ := g.root.Dates()
	return s
}

// End returns the latest end over all tasks, or nil.
func (g *WBS) End() *time.Time {
	_, e := g.root.Dates()
	return e
}

// Remove deletes t from the graph. Its children take its place under its
// former parent and all of its dependency links are cleared.
func (g *WBS) Remove(t *Task) error {
	if !g.Contains(t) {
		return planerr.NotFound("task", idOf(t))
	}
	parent := t.parent
	i := slices.Index(parent.children, t)
	for _, c := range t.children {
		c.parent = parent
	}
	parent.children = slices.Replace(parent.children, i, i+1, t.children...)
	t.children = nil
	t.parent = nil
	t.graph = nil
	t.clearLinks()
	return nil
}

// RemoveSubtree deletes t and its descendants from the graph. Links inside
// the subtree are kept; links to any task outside it are cleared.
func (g *WBS) RemoveSubtree(t *Task) error {
	if !g.Contains(t) {
		return planerr.NotFound("task", idOf(t))
	}
	members := subtree(t)
	inside := make(map[*Task]bool, len(members))
	for _, m := range members {
		inside[m] = true
	}
	for _, m := range members {
		for _, p := range m.Predecessors() {
			if !inside[p] {
				m.RemovePredecessor(p)
			}
		}
		for _, s := range m.Successors() {
			if !inside[s] {
				m.RemoveSuccessor(s)
			}
		}
	}
	t.detachParent()
	return nil
}

// Clone deep-copies the graph. Links to tasks of other graphs point at the
// original external tasks, which gain the copies as back-references and
// keep them until the copy is released.
func (g *WBS) Clone() *WBS {
	return g.copyOf(g.root.children)
}

// Release clears every link between g's tasks and tasks of other graphs,
// on both sides. Call it on a discarded copy so the external tasks stop
// referring to it.
func (g *WBS) Release() {
	for _, t := range g.Tasks() {
		for _, p := range t.Predecessors() {
			if p.graph != g {
				t.RemovePredecessor(p)
			}
		}
		for _, s := range t.Successors() {
			if s.graph != g {
				t.RemoveSuccessor(s)
			}
		}
	}
}

// Subtree copies the given tasks and their descendants into a new graph.
// Roots nested under another given root are copied once. Links to tasks of
// g outside the copied set are dropped; links to other graphs are kept.
func (g *WBS) Subtree(roots ...*Task) (*WBS, error) {
	for _, r := range roots {
		if !g.Contains(r) {
			return nil, planerr.NotFound("task", idOf(r))
		}
	}
	return g.copyOf(roots), nil
}

func (g *WBS) copyOf(roots []*Task) *WBS {
	chosen := make(map[*Task]bool, len(roots))
	for _, r := range roots {
		chosen[r] = true
	}
	var top []*Task
	for _, r := range roots {
		nested := false
		for _, a := range r.AllParents() {
			if chosen[a] {
				nested = true
				break
			}
		}
		if !nested && !slices.Contains(top, r) {
			top = append(top, r)
		}
	}

	ng := New(g.Name)
	if g.Attrs != nil {
		ng.Attrs = make(map[string]Value, len(g.Attrs))
		for k, v := range g.Attrs {
			ng.Attrs[k] = v
		}
	}

	copies := make(map[*Task]*Task)
	var order []*Task
	for _, r := range top {
		for _, x := range subtree(r) {
			c := x.Clone()
			c.graph = ng
			copies[x] = c
			order = append(order, x)
		}
	}
	resolve := func(x *Task) (*Task, bool) {
		if c, ok := copies[x]; ok {
			return c, true
		}
		if x.graph != g {
			return x, true
		}
		return nil, false
	}

	for _, r := range top {
		c := copies[r]
		c.parent = ng.root
		ng.root.children = append(ng.root.children, c)
	}
	for _, x := range order {
		c := copies[x]
		for _, ch := range x.children {
			cc := copies[ch]
			cc.parent = c
			c.children = append(c.children, cc)
		}
		for _, p := range x.preds {
			if rp, ok := resolve(p); ok {
				c.preds = append(c.preds, rp)
				if rp == p {
					p.succs = appendUnique(p.succs, c)
				}
			}
		}
		for _, s := range x.succs {
			if rs, ok := resolve(s); ok {
				c.succs = append(c.succs, rs)
				if rs == s {
					s.preds = appendUnique(s.preds, c)
				}
			}
		}
	}
	return ng
}

func idOf(t *Task) string {
	if t == nil {
		return ""
	}
	return t.id
}
