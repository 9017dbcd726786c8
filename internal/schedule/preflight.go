package schedule

import (
	"github.com/swamp-dev/pjplan/internal/planerr"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

// depsFunc returns the in-graph tasks whose dates must be known before t is
// dated: its links, the links of its ancestors and its children.
type depsFunc func(t *wbs.Task) []*wbs.Task

func forwardDeps(g *wbs.WBS) depsFunc {
	return func(t *wbs.Task) []*wbs.Task {
		out := inGraph(g, t.Predecessors())
		for _, a := range t.AllParents() {
			out = append(out, inGraph(g, a.Predecessors())...)
		}
		return append(out, t.Children()...)
	}
}

func backwardDeps(g *wbs.WBS) depsFunc {
	return func(t *wbs.Task) []*wbs.Task {
		out := inGraph(g, t.Successors())
		for _, a := range t.AllParents() {
			out = append(out, inGraph(g, a.Successors())...)
		}
		children := t.Children()
		for i := len(children) - 1; i >= 0; i-- {
			out = append(out, children[i])
		}
		return out
	}
}

// checkIsolation requires every link leaving the graph to point at a task
// that already carries both dates.
func checkIsolation(g *wbs.WBS, links func(*wbs.Task) []*wbs.Task, what string) error {
	for _, t := range g.Tasks() {
		for _, x := range links(t) {
			if g.Contains(x) || (x.Start != nil && x.End != nil) {
				continue
			}
			return planerr.Schedulingf([]string{t.ID(), x.ID()},
				"task %s has %s %s outside the graph without dates", describe(t), what, describe(x))
		}
	}
	return nil
}

func checkCycles(g *wbs.WBS, deps depsFunc) error {
	path := findCycle(g.Tasks(), deps)
	if path == nil {
		return nil
	}
	ids := make([]string, len(path))
	for i, t := range path {
		ids[i] = t.ID()
	}
	return planerr.Cycle(ids)
}

// findCycle runs an iterative three-colour depth-first search from every
// root and returns the first cycle found, closed by repeating its first
// member, or nil.
func findCycle[T comparable](roots []T, deps func(T) []T) []T {
	const (
		white = iota
		grey
		black
	)
	type frame struct {
		node T
		deps []T
		next int
	}
	color := make(map[T]int)
	for _, root := range roots {
		if color[root] != white {
			continue
		}
		color[root] = grey
		stack := []frame{{node: root, deps: deps(root)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.deps) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			d := top.deps[top.next]
			top.next++
			switch color[d] {
			case grey:
				var path []T
				for i := range stack {
					if stack[i].node == d {
						for _, f := range stack[i:] {
							path = append(path, f.node)
						}
						break
					}
				}
				return append(path, d)
			case white:
				color[d] = grey
				stack = append(stack, frame{node: d, deps: deps(d)})
			}
		}
	}
	return nil
}

// resetParents clears every computed field of the non-leaf tasks so the
// pass rebuilds them from the children.
func resetParents(g *wbs.WBS) {
	for _, t := range g.Tasks() {
		if t.IsLeaf() {
			continue
		}
		t.Start, t.End = nil, nil
		t.ClearEstimate()
		t.ClearSpent()
	}
}

// evaluate computes every task after all of its dependencies, starting
// from roots in order. The graph must be free of cycles.
func evaluate(roots []*wbs.Task, deps depsFunc, compute func(*wbs.Task) error) error {
	type frame struct {
		task     *wbs.Task
		expanded bool
	}
	done := make(map[*wbs.Task]bool)
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{task: roots[i]})
	}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if done[top.task] {
			stack = stack[:len(stack)-1]
			continue
		}
		if !top.expanded {
			top.expanded = true
			ds := deps(top.task)
			for i := len(ds) - 1; i >= 0; i-- {
				if !done[ds[i]] {
					stack = append(stack, frame{task: ds[i]})
				}
			}
			continue
		}
		t := top.task
		stack = stack[:len(stack)-1]
		if err := compute(t); err != nil {
			return err
		}
		done[t] = true
	}
	return nil
}
