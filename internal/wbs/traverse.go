package wbs

import "time"

// AllChildren returns every descendant of t in pre-order.
func (t *Task) AllChildren() []*Task {
	return subtree(t)[1:]
}

// AllParents returns the ancestors of t, nearest first.
func (t *Task) AllParents() []*Task {
	var out []*Task
	for p := t.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// AllPredecessors returns the transitive predecessors of t in depth-first
// pre-order, deduplicated by id.
func (t *Task) AllPredecessors() []*Task {
	return walk(t, func(n *Task) []*Task { return n.preds })
}

// AllSuccessors returns the transitive successors of t in depth-first
// pre-order, deduplicated by id.
func (t *Task) AllSuccessors() []*Task {
	return walk(t, func(n *Task) []*Task { return n.succs })
}

// Dates returns the earliest start and latest end over t and its
// descendants. Either value is nil when no task in the subtree has it.
func (t *Task) Dates() (start, end *time.Time) {
	for _, x := range subtree(t) {
		if x.Start != nil && (start == nil || x.Start.Before(*start)) {
			start = x.Start
		}
		if x.End != nil && (end == nil || x.End.After(*end)) {
			end = x.End
		}
	}
	return copyTime(start), copyTime(end)
}

func walk(from *Task, next func(*Task) []*Task) []*Task {
	var out []*Task
	seen := map[string]bool{from.id: true}
	stack := reversed(next(from))
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n.id] {
			continue
		}
		seen[n.id] = true
		out = append(out, n)
		stack = append(stack, reversed(next(n))...)
	}
	return out
}

// subtree returns t followed by its descendants in pre-order.
func subtree(t *Task) []*Task {
	var out []*Task
	stack := []*Task{t}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		stack = append(stack, reversed(n.children)...)
	}
	return out
}

func reversed(ts []*Task) []*Task {
	out := make([]*Task, len(ts))
	for i, x := range ts {
		out[len(ts)-1-i] = x
	}
	return out
}
