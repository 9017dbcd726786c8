package wbs

import (
	"slices"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

// SetParent moves t under p, appending it to p's children. A nil parent
// makes t a root of its graph, or a standalone task if it has no graph.
func (t *Task) SetParent(p *Task) error {
	if p == t.parent || (p == nil && t.parent != nil && t.parent.sentinel) {
		return nil
	}
	if err := t.validateParent(p); err != nil {
		return err
	}
	t.attach(p, -1)
	return nil
}

// SetChildren replaces t's children. Children that are dropped are
// detached from t and from its graph together with their subtrees.
func (t *Task) SetChildren(children []*Task) error {
	children, err := dedupe(t, "children", children)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := c.validateParent(t); err != nil {
			return err
		}
	}
	incoming := make([]*Task, 0, len(children))
	for _, c := range children {
		if c.parent != t {
			incoming = append(incoming, c)
		}
	}
	if err := checkIDCollision(t, incoming); err != nil {
		return err
	}

	keep := make(map[*Task]bool, len(children))
	for _, c := range children {
		keep[c] = true
	}
	for _, old := range t.children {
		if !keep[old] {
			old.parent = nil
			setGraph(subtree(old), nil)
		}
	}
	t.children = nil
	for _, c := range children {
		c.attach(t, -1)
	}
	return nil
}

// AddChild appends c to t's children.
func (t *Task) AddChild(c *Task) error {
	return t.InsertChild(len(t.children), c)
}

// InsertChild places c at index i of t's children, moving it there if it
// already is a child of t.
func (t *Task) InsertChild(i int, c *Task) error {
	if c == nil {
		return planerr.Validationf("children", []string{t.id}, "nil child")
	}
	if c.parent != t {
		if err := c.validateParent(t); err != nil {
			return err
		}
	}
	c.attach(t, i)
	return nil
}

// RemoveChild detaches c and its subtree from t and from t's graph.
// Predecessor and successor links are left in place.
func (t *Task) RemoveChild(c *Task) bool {
	if c == nil || c.parent != t {
		return false
	}
	t.children = slices.DeleteFunc(t.children, func(x *Task) bool { return x == c })
	c.parent = nil
	setGraph(subtree(c), nil)
	return true
}

// MoveBefore reorders t's children so that c directly precedes anchor.
func (t *Task) MoveBefore(c, anchor *Task) error {
	return t.move(c, anchor, 0)
}

// MoveAfter reorders t's children so that c directly follows anchor.
func (t *Task) MoveAfter(c, anchor *Task) error {
	return t.move(c, anchor, 1)
}

func (t *Task) move(c, anchor *Task, offset int) error {
	if c == nil || anchor == nil || c.parent != t || anchor.parent != t {
		return planerr.Validationf("children", []string{t.id}, "both tasks must be children of %s", t.id)
	}
	if c == anchor {
		return nil
	}
	rest := slices.DeleteFunc(clone(t.children), func(x *Task) bool { return x == c })
	i := slices.Index(rest, anchor) + offset
	t.children = slices.Insert(rest, i, c)
	return nil
}

// SetPredecessors replaces the tasks t depends on.
func (t *Task) SetPredecessors(preds []*Task) error {
	preds, err := dedupe(t, "predecessors", preds)
	if err != nil {
		return err
	}
	for _, p := range preds {
		if err := t.validateLink(p, "predecessor", t.viaSuccessors); err != nil {
			return err
		}
	}
	for _, old := range t.preds {
		old.succs = remove(old.succs, t)
	}
	t.preds = preds
	for _, p := range preds {
		p.succs = appendUnique(p.succs, t)
	}
	return nil
}

// SetSuccessors replaces the tasks that depend on t.
func (t *Task) SetSuccessors(succs []*Task) error {
	succs, err := dedupe(t, "successors", succs)
	if err != nil {
		return err
	}
	for _, s := range succs {
		if err := t.validateLink(s, "successor", t.viaPredecessors); err != nil {
			return err
		}
	}
	for _, old := range t.succs {
		old.preds = remove(old.preds, t)
	}
	t.succs = succs
	for _, s := range succs {
		s.preds = appendUnique(s.preds, t)
	}
	return nil
}

func (t *Task) AddPredecessor(p *Task) error {
	if slices.Contains(t.preds, p) {
		return nil
	}
	return t.SetPredecessors(append(clone(t.preds), p))
}

func (t *Task) AddSuccessor(s *Task) error {
	if slices.Contains(t.succs, s) {
		return nil
	}
	return t.SetSuccessors(append(clone(t.succs), s))
}

func (t *Task) RemovePredecessor(p *Task) bool {
	if !slices.Contains(t.preds, p) {
		return false
	}
	t.preds = remove(t.preds, p)
	p.succs = remove(p.succs, t)
	return true
}

func (t *Task) RemoveSuccessor(s *Task) bool {
	if !slices.Contains(t.succs, s) {
		return false
	}
	t.succs = remove(t.succs, s)
	s.preds = remove(s.preds, t)
	return true
}

func (t *Task) validateParent(p *Task) error {
	if p == nil {
		return nil
	}
	if p == t {
		return planerr.Validationf("parent", []string{t.id}, "task cannot be its own parent")
	}
	if t.graph != nil && p.graph != t.graph {
		return planerr.Validationf("parent", []string{t.id, p.id},
			"parent %s must belong to the same graph as %s", p.id, t.id)
	}
	members := subtree(t)
	if slices.Contains(members, p) {
		return planerr.Validationf("parent", []string{t.id, p.id},
			"parent %s is a descendant of %s", p.id, t.id)
	}
	if t.graph == nil {
		if err := checkIDCollision(p, []*Task{t}); err != nil {
			return err
		}
	}
	above := make(map[*Task]bool)
	for a := p; a != nil && !a.sentinel; a = a.parent {
		above[a] = true
	}
	for _, m := range members {
		for _, x := range m.preds {
			if above[x] {
				return planerr.Validationf("parent", []string{m.id, x.id},
					"%s would be a descendant of its predecessor %s", m.id, x.id)
			}
		}
		for _, x := range m.succs {
			if above[x] {
				return planerr.Validationf("parent", []string{m.id, x.id},
					"%s would be a descendant of its successor %s", m.id, x.id)
			}
		}
	}
	return nil
}

// validateLink checks that x may become a predecessor or successor of t.
// closes reports whether linking x would close a dependency cycle.
func (t *Task) validateLink(x *Task, field string, closes func(*Task) bool) error {
	return t.validateLinkUnder(t.parent, x, field, closes)
}

// validateLinkUnder is validateLink for t placed under parent, which may
// differ from t's current parent.
func (t *Task) validateLinkUnder(parent, x *Task, field string, closes func(*Task) bool) error {
	if x == t {
		return planerr.Validationf(field+"s", []string{t.id}, "task cannot be its own %s", field)
	}
	for a := parent; a != nil && !a.sentinel; a = a.parent {
		if a == x {
			return planerr.Validationf(field+"s", []string{t.id, x.id},
				"%s %s is an ancestor of %s", field, x.id, t.id)
		}
	}
	if slices.Contains(subtree(t)[1:], x) {
		return planerr.Validationf(field+"s", []string{t.id, x.id},
			"%s %s is a descendant of %s", field, x.id, t.id)
	}
	if closes(x) {
		return planerr.Validationf(field+"s", []string{t.id, x.id},
			"adding %s %s to %s would create a cycle", field, x.id, t.id)
	}
	return nil
}

// viaSuccessors reports whether x is reachable from t through successors,
// which is where a new predecessor x would close a cycle.
func (t *Task) viaSuccessors(x *Task) bool {
	return reachable(t, x, func(n *Task) []*Task { return n.succs })
}

// viaPredecessors reports whether x is reachable from t through predecessors.
func (t *Task) viaPredecessors(x *Task) bool {
	return reachable(t, x, func(n *Task) []*Task { return n.preds })
}

func reachable(from, target *Task, next func(*Task) []*Task) bool {
	seen := map[*Task]bool{from: true}
	stack := clone(next(from))
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, next(n)...)
	}
	return false
}

// attach moves t under p at index i (append when i is out of range).
// A nil parent makes t a graph root when t has a graph.
func (t *Task) attach(p *Task, i int) {
	if t.parent != nil {
		t.parent.children = slices.DeleteFunc(t.parent.children, func(x *Task) bool { return x == t })
	}
	if p == nil && t.graph != nil {
		p = t.graph.root
	}
	t.parent = p
	if p == nil {
		return
	}
	if i < 0 || i > len(p.children) {
		i = len(p.children)
	}
	p.children = slices.Insert(p.children, i, t)
	if p.graph != nil && t.graph != p.graph {
		setGraph(subtree(t), p.graph)
	}
}

func (t *Task) detachParent() {
	if t.parent != nil {
		t.parent.children = slices.DeleteFunc(t.parent.children, func(x *Task) bool { return x == t })
		t.parent = nil
	}
	setGraph(subtree(t), nil)
}

func (t *Task) clearLinks() {
	for _, p := range t.preds {
		p.succs = remove(p.succs, t)
	}
	for _, s := range t.succs {
		s.preds = remove(s.preds, t)
	}
	t.preds, t.succs = nil, nil
}

// checkIDCollision rejects incoming subtrees whose ids clash with the tree
// that contains parent, or with each other.
func checkIDCollision(parent *Task, incoming []*Task) error {
	top := parent
	for top.parent != nil {
		top = top.parent
	}
	present := make(map[*Task]bool)
	known := make(map[string]bool)
	for _, x := range subtree(top) {
		present[x] = true
		if !x.sentinel {
			known[x.id] = true
		}
	}
	var clash []string
	for _, in := range incoming {
		for _, x := range subtree(in) {
			if present[x] {
				continue
			}
			present[x] = true
			if known[x.id] {
				clash = append(clash, x.id)
				continue
			}
			known[x.id] = true
		}
	}
	if len(clash) > 0 {
		return planerr.Validationf("id", clash, "duplicate task ids: %v", clash)
	}
	return nil
}

func dedupe(t *Task, field string, ts []*Task) ([]*Task, error) {
	out := make([]*Task, 0, len(ts))
	for _, x := range ts {
		if x == nil {
			return nil, planerr.Validationf(field, []string{t.id}, "nil entry in %s", field)
		}
		if !slices.Contains(out, x) {
			out = append(out, x)
		}
	}
	return out, nil
}

func remove(ts []*Task, x *Task) []*Task {
	return slices.DeleteFunc(ts, func(y *Task) bool { return y == x })
}

func appendUnique(ts []*Task, x *Task) []*Task {
	if slices.Contains(ts, x) {
		return ts
	}
	return append(ts, x)
}

func setGraph(ts []*Task, g *WBS) {
	for _, x := range ts {
		x.graph = g
	}
}
