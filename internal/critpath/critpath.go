// Package critpath finds the tasks without slack in a task graph.
//
// Every leaf task becomes a pair of nodes joined by a link weighted by its
// remaining work. A predecessor's end node links to its successor's start
// node with weight zero, and super source and sink nodes close the network.
// A forward pass computes the earliest offsets, a backward pass the latest
// ones, and a task is critical when its link has no slack.
package critpath

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/swamp-dev/pjplan/internal/planerr"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

const epsilon = 1e-9

// Result of a critical path analysis. Offsets are in work hours from the
// start of the network.
type Result struct {
	Critical []*wbs.Task
	Slack    map[string]float64
	Earliest map[string]float64
	Duration float64
}

// IsCritical reports whether the task with id is in r.Critical.
func (r *Result) IsCritical(id string) bool {
	return slices.ContainsFunc(r.Critical, func(t *wbs.Task) bool { return t.ID() == id })
}

// Analyze runs over tasks and their transitive predecessors.
func Analyze(tasks []*wbs.Task) (*Result, error) {
	return build(tasks).solve()
}

// AnalyzeUntil seeds the network with the tasks ending exactly at end and
// keeps the connected groups of critical tasks that contain one of them,
// sorted by start.
func AnalyzeUntil(tasks []*wbs.Task, end time.Time) (*Result, error) {
	var seeds []*wbs.Task
	for _, t := range tasks {
		if t.End != nil && t.End.Equal(end) {
			seeds = append(seeds, t)
		}
	}
	n := build(seeds)
	res, err := n.solve()
	if err != nil {
		return nil, err
	}

	critical := make(map[int]bool)
	for _, t := range res.Critical {
		critical[n.index[t]] = true
	}
	adj := n.adjacency(critical)
	seen := make(map[int]bool)
	var kept []*wbs.Task
	for _, t := range res.Critical {
		i := n.index[t]
		if seen[i] {
			continue
		}
		cluster := component(i, adj, seen)
		hitsEnd := false
		for _, j := range cluster {
			if e := n.items[j].task.End; e != nil && e.Equal(end) {
				hitsEnd = true
			}
		}
		if hitsEnd {
			for _, j := range cluster {
				kept = append(kept, n.items[j].task)
			}
		}
	}
	sort.SliceStable(kept, func(a, b int) bool {
		sa, sb := kept[a].Start, kept[b].Start
		if sa == nil || sb == nil {
			return sb == nil && sa != nil
		}
		return sa.Before(*sb)
	})
	res.Critical = kept
	return res, nil
}

type item struct {
	task   *wbs.Task
	weight float64
	preds  []int
}

type network struct {
	items []item
	index map[*wbs.Task]int
}

// build inserts the leaves among seeds and, transitively, the leaf work
// they depend on. A non-leaf predecessor stands for all of its leaves, and
// the predecessors of a task's ancestors are predecessors of the task.
func build(seeds []*wbs.Task) *network {
	n := &network{index: make(map[*wbs.Task]int)}
	var queue []*wbs.Task
	for _, t := range seeds {
		if t.IsLeaf() {
			queue = append(queue, t)
		}
	}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if _, ok := n.index[t]; ok {
			continue
		}
		n.index[t] = len(n.items)
		n.items = append(n.items, item{task: t, weight: remaining(t)})
		queue = append(queue, workPredecessors(t)...)
	}
	for i := range n.items {
		for _, p := range workPredecessors(n.items[i].task) {
			n.items[i].preds = append(n.items[i].preds, n.index[p])
		}
	}
	return n
}

func workPredecessors(t *wbs.Task) []*wbs.Task {
	var out []*wbs.Task
	add := func(p *wbs.Task) {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	for _, x := range append([]*wbs.Task{t}, t.AllParents()...) {
		for _, p := range x.Predecessors() {
			if p.IsLeaf() {
				add(p)
				continue
			}
			for _, c := range p.AllChildren() {
				if c.IsLeaf() {
					add(c)
				}
			}
		}
	}
	return out
}

func remaining(t *wbs.Task) float64 {
	est, _ := t.Estimate()
	spent, _ := t.Spent()
	return math.Max(est-spent, 0)
}

// Node 2i starts item i and node 2i+1 ends it. The last two nodes are the
// super source and the super sink.
type link struct {
	from, to int
	weight   float64
}

func (n *network) solve() (*Result, error) {
	size := 2*len(n.items) + 2
	source, sink := size-2, size-1
	var links []link
	for i, it := range n.items {
		links = append(links, link{from: 2 * i, to: 2*i + 1, weight: it.weight})
		for _, p := range it.preds {
			links = append(links, link{from: 2*p + 1, to: 2 * i})
		}
	}
	in := make([][]int, size)
	out := make([][]int, size)
	for k, l := range links {
		out[l.from] = append(out[l.from], k)
		in[l.to] = append(in[l.to], k)
	}
	for v := 0; v < source; v++ {
		if len(in[v]) == 0 {
			links = append(links, link{from: source, to: v})
			out[source] = append(out[source], len(links)-1)
			in[v] = append(in[v], len(links)-1)
		}
	}
	for v := 0; v < source; v++ {
		if len(out[v]) == 0 {
			links = append(links, link{from: v, to: sink})
			out[v] = append(out[v], len(links)-1)
			in[sink] = append(in[sink], len(links)-1)
		}
	}

	order, err := n.topoOrder(size, links, in, out)
	if err != nil {
		return nil, err
	}

	earliest := make([]float64, size)
	for _, v := range order {
		for _, k := range in[v] {
			l := links[k]
			earliest[v] = math.Max(earliest[v], earliest[l.from]+l.weight)
		}
	}
	latest := make([]float64, size)
	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		if len(out[v]) == 0 {
			latest[v] = earliest[v]
			continue
		}
		latest[v] = math.Inf(1)
		for _, k := range out[v] {
			l := links[k]
			latest[v] = math.Min(latest[v], latest[l.to]-l.weight)
		}
	}

	res := &Result{
		Slack:    make(map[string]float64, len(n.items)),
		Earliest: make(map[string]float64, len(n.items)),
		Duration: earliest[sink],
	}
	for i, it := range n.items {
		slack := latest[2*i+1] - earliest[2*i] - it.weight
		if math.Abs(slack) <= epsilon {
			slack = 0
			res.Critical = append(res.Critical, it.task)
		}
		res.Slack[it.task.ID()] = slack
		res.Earliest[it.task.ID()] = earliest[2*i]
	}
	return res, nil
}

// topoOrder sorts the nodes with Kahn's algorithm, lowest index first.
func (n *network) topoOrder(size int, links []link, in, out [][]int) ([]int, error) {
	degree := make([]int, size)
	for v := range degree {
		degree[v] = len(in[v])
	}
	var ready []int
	for v, d := range degree {
		if d == 0 {
			ready = append(ready, v)
		}
	}
	order := make([]int, 0, size)
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)
		for _, k := range out[v] {
			to := links[k].to
			degree[to]--
			if degree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}
	if len(order) != size {
		var ids []string
		for v, d := range degree {
			if d > 0 && v < 2*len(n.items) && v%2 == 0 {
				ids = append(ids, n.items[v/2].task.ID())
			}
		}
		return nil, planerr.Schedulingf(ids, "work items form a cycle: %v", ids)
	}
	return order, nil
}

// adjacency links critical items to their critical predecessors and
// successors, ignoring direction.
func (n *network) adjacency(critical map[int]bool) [][]int {
	adj := make([][]int, len(n.items))
	for j, it := range n.items {
		if !critical[j] {
			continue
		}
		for _, p := range it.preds {
			if critical[p] {
				adj[j] = append(adj[j], p)
				adj[p] = append(adj[p], j)
			}
		}
	}
	return adj
}

// component returns the items connected to i, marking them in seen.
func component(i int, adj [][]int, seen map[int]bool) []int {
	seen[i] = true
	members := []int{i}
	stack := []int{i}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, w := range adj[v] {
			if !seen[w] {
				seen[w] = true
				members = append(members, w)
				stack = append(stack, w)
			}
		}
	}
	return members
}
