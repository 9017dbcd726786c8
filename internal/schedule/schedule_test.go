package schedule

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/swamp-dev/pjplan/internal/calendar"
	"github.com/swamp-dev/pjplan/internal/planerr"
	"github.com/swamp-dev/pjplan/internal/resource"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

// 2025-01-01 is a Wednesday.
var baseline = jan(1, 0)

func jan(day, hour int) time.Time {
	return time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
}

func newGraph(t *testing.T, roots ...*wbs.Task) *wbs.WBS {
	t.Helper()
	g := wbs.New("test")
	if err := g.Add(roots...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return g
}

func calc(t *testing.T, s Scheduler, g *wbs.WBS) *Result {
	t.Helper()
	res, err := s.Calc(g)
	if err != nil {
		t.Fatalf("Calc: %v", err)
	}
	return res
}

func task(t *testing.T, res *Result, id string) *wbs.Task {
	t.Helper()
	got, err := res.Graph.Get(id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return got
}

func assertDates(t *testing.T, got *wbs.Task, start, end time.Time) {
	t.Helper()
	if got.Start == nil || !got.Start.Equal(start) {
		t.Errorf("%s start = %v, want %v", got.ID(), got.Start, start)
	}
	if got.End == nil || !got.End.Equal(end) {
		t.Errorf("%s end = %v, want %v", got.ID(), got.End, end)
	}
}

func TestForward_SharedResource(t *testing.T) {
	g := newGraph(t,
		wbs.MustTask("a", wbs.WithEstimate(10), wbs.WithResource("default")),
		wbs.MustTask("b", wbs.WithEstimate(16), wbs.WithResource("default")),
	)
	res := calc(t, NewForward(Options{Start: baseline}), g)

	assertDates(t, task(t, res, "a"), jan(1, 0), jan(2, 6))
	assertDates(t, task(t, res, "b"), jan(2, 6), jan(6, 6))

	if got := res.Usage.Used("default", jan(2, 0)); got != 8 {
		t.Errorf("usage on 01-02 = %v, want 8", got)
	}
	if len(res.Resources) != 1 || res.Resources[0].Name != resource.DefaultName {
		t.Errorf("touched resources = %v", res.Resources)
	}
}

func TestForward_FixedStartIsInterrupted(t *testing.T) {
	g := newGraph(t,
		wbs.MustTask("1", wbs.WithEstimate(8)),
		wbs.MustTask("2", wbs.WithEstimate(8), wbs.WithStart(baseline)),
	)
	res := calc(t, NewForward(Options{Start: baseline}), g)

	assertDates(t, task(t, res, "1"), jan(1, 0), jan(2, 0))
	assertDates(t, task(t, res, "2"), jan(1, 0), jan(3, 0))
}

func TestForward_PredecessorOrder(t *testing.T) {
	first := wbs.MustTask("first", wbs.WithEstimate(8))
	second := wbs.MustTask("second", wbs.WithEstimate(8))
	g := newGraph(t, second, first)
	if err := second.AddPredecessor(first); err != nil {
		t.Fatalf("AddPredecessor: %v", err)
	}

	res := calc(t, NewForward(Options{Start: baseline}), g)
	assertDates(t, task(t, res, "first"), jan(1, 0), jan(2, 0))
	assertDates(t, task(t, res, "second"), jan(2, 0), jan(3, 0))
}

func TestForward_Milestone(t *testing.T) {
	other := wbs.New("other")
	done := wbs.MustTask("done", wbs.WithStart(jan(2, 0)), wbs.WithEnd(jan(5, 0)))
	if err := other.Add(done); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ms := wbs.MustTask("ms", wbs.WithMilestone(), wbs.WithEstimate(5), wbs.WithPredecessors(done))
	g := newGraph(t, ms)

	res := calc(t, NewForward(Options{Start: baseline}), g)
	got := task(t, res, "ms")
	assertDates(t, got, jan(5, 0), jan(5, 0))
	if est, _ := got.Estimate(); est != 0 {
		t.Errorf("milestone estimate = %v, want 0", est)
	}
	if spent, _ := got.Spent(); spent != 0 {
		t.Errorf("milestone spent = %v, want 0", spent)
	}
}

func TestForward_CrossProjectPredecessor(t *testing.T) {
	p1 := wbs.New("p1")
	t1 := wbs.MustTask("1", wbs.WithStart(jan(1, 0)), wbs.WithEnd(jan(10, 0)))
	if err := p1.Add(t1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	t2 := wbs.MustTask("2", wbs.WithEstimate(8), wbs.WithSpent(8), wbs.WithPredecessors(t1))
	p2 := newGraph(t, t2)

	res := calc(t, NewForward(Options{Start: baseline}), p2)
	assertDates(t, task(t, res, "2"), jan(10, 0), jan(10, 0))

	if t2.Start != nil {
		t.Error("input graph must not be modified")
	}
}

func TestForward_ParentRollup(t *testing.T) {
	p := wbs.MustTask("p", wbs.WithStart(jan(20, 0)), wbs.WithEstimate(99))
	a := wbs.MustTask("a", wbs.WithParent(p), wbs.WithEstimate(8))
	wbs.MustTask("b", wbs.WithParent(p), wbs.WithEstimate(8), wbs.WithPredecessors(a))
	g := newGraph(t, p)

	res := calc(t, NewForward(Options{Start: baseline}), g)
	parent := task(t, res, "p")
	assertDates(t, parent, jan(1, 0), jan(3, 0))
	assertDates(t, task(t, res, "b"), jan(2, 0), jan(3, 0))
	if est, _ := parent.Estimate(); est != 16 {
		t.Errorf("parent estimate = %v, want 16", est)
	}
}

func TestForward_ParentPredecessorBoundsChildren(t *testing.T) {
	gate := wbs.MustTask("gate", wbs.WithEstimate(8))
	p := wbs.MustTask("p", wbs.WithPredecessors(gate))
	wbs.MustTask("k", wbs.WithParent(p), wbs.WithEstimate(4), wbs.WithResource("qa"))
	g := newGraph(t, p, gate)

	res := calc(t, NewForward(Options{Start: baseline}), g)
	assertDates(t, task(t, res, "k"), jan(2, 0), jan(2, 12))
	assertDates(t, task(t, res, "p"), jan(2, 0), jan(2, 12))
}

func TestForward_MidDayStart(t *testing.T) {
	a := wbs.MustTask("a", wbs.WithEstimate(4))
	b := wbs.MustTask("b", wbs.WithEstimate(8), wbs.WithResource("qa"), wbs.WithPredecessors(a))
	g := newGraph(t, a, b)

	res := calc(t, NewForward(Options{Start: baseline}), g)
	assertDates(t, task(t, res, "a"), jan(1, 0), jan(1, 12))
	assertDates(t, task(t, res, "b"), jan(1, 12), jan(2, 12))
}

func TestForward_MinStart(t *testing.T) {
	g := newGraph(t, wbs.MustTask("a", wbs.WithEstimate(8), wbs.WithMinStart(jan(4, 0))))
	res := calc(t, NewForward(Options{Start: baseline}), g)
	// Saturday and Sunday have no capacity.
	assertDates(t, task(t, res, "a"), jan(6, 0), jan(7, 0))
}

func TestForward_PerTaskCapacity(t *testing.T) {
	g := newGraph(t,
		wbs.MustTask("a", wbs.WithEstimate(10)),
		wbs.MustTask("b", wbs.WithEstimate(16)),
	)
	res := calc(t, NewForward(Options{Start: baseline, PerTaskCapacity: true}), g)

	assertDates(t, task(t, res, "a"), jan(1, 0), jan(2, 6))
	assertDates(t, task(t, res, "b"), jan(1, 0), jan(3, 0))
}

func TestForward_SpentRollup(t *testing.T) {
	build := func(t *testing.T) *wbs.WBS {
		p := wbs.MustTask("p")
		wbs.MustTask("over", wbs.WithParent(p), wbs.WithEstimate(4), wbs.WithSpent(6))
		wbs.MustTask("under", wbs.WithParent(p), wbs.WithEstimate(4), wbs.WithSpent(1))
		return newGraph(t, p)
	}

	tests := []struct {
		rollup Rollup
		want   float64
	}{
		{RollupPessimistic, 5},
		{RollupRaw, 7},
	}
	for _, tt := range tests {
		t.Run(tt.rollup.String(), func(t *testing.T) {
			res := calc(t, NewForward(Options{Start: baseline, SpentRollup: tt.rollup}), build(t))
			if spent, _ := task(t, res, "p").Spent(); spent != tt.want {
				t.Errorf("spent = %v, want %v", spent, tt.want)
			}
		})
	}
}

func TestForward_Deterministic(t *testing.T) {
	a := wbs.MustTask("a", wbs.WithEstimate(11), wbs.WithResource("dev"))
	b := wbs.MustTask("b", wbs.WithEstimate(5), wbs.WithResource("dev"), wbs.WithPredecessors(a))
	c := wbs.MustTask("c", wbs.WithEstimate(7), wbs.WithResource("dev"))
	g := newGraph(t, a, b, c)
	s := NewForward(Options{Start: baseline})

	first, second := calc(t, s, g), calc(t, s, g)
	for _, x := range first.Graph.Tasks() {
		y := task(t, second, x.ID())
		if !x.Start.Equal(*y.Start) || !x.End.Equal(*y.End) {
			t.Errorf("%s differs between runs: %v-%v vs %v-%v", x.ID(), x.Start, x.End, y.Start, y.End)
		}
	}
}

func TestForward_RespectsCapacity(t *testing.T) {
	half, err := calendar.NewWeekly([]time.Weekday{time.Monday, time.Wednesday, time.Friday}, 4)
	if err != nil {
		t.Fatalf("NewWeekly: %v", err)
	}
	dev := resource.New("dev", half)
	var roots []*wbs.Task
	for i, est := range []float64{3, 9, 2.5, 6, 1} {
		roots = append(roots, wbs.MustTask(string(rune('a'+i)), wbs.WithEstimate(est), wbs.WithResource("dev")))
	}
	g := newGraph(t, roots...)

	res := calc(t, NewForward(Options{Start: baseline, Resources: resource.NewSet(dev)}), g)
	for day, units := range res.Usage.ByResource("dev") {
		if limit := dev.AvailableUnits(day, ""); units > limit+epsilon {
			t.Errorf("%s: reserved %v of %v", day.Format(time.DateOnly), units, limit)
		}
	}
	for _, x := range res.Graph.Tasks() {
		for _, p := range x.Predecessors() {
			if x.Start.Before(*p.End) {
				t.Errorf("%s starts before predecessor %s ends", x.ID(), p.ID())
			}
		}
	}
}

func TestForward_Rejects(t *testing.T) {
	closed, err := calendar.NewFixed(0)
	if err != nil {
		t.Fatalf("NewFixed: %v", err)
	}

	tests := []struct {
		name  string
		opts  Options
		build func(t *testing.T) *wbs.WBS
	}{
		{"undated external predecessor", Options{Start: baseline}, func(t *testing.T) *wbs.WBS {
			return newGraph(t, wbs.MustTask("a", wbs.WithPredecessors(wbs.MustTask("outside"))))
		}},
		{"end after now", Options{Start: baseline}, func(t *testing.T) *wbs.WBS {
			return newGraph(t, wbs.MustTask("a", wbs.WithStart(jan(1, 0)), wbs.WithEnd(jan(20, 0))))
		}},
		{"never available", Options{Start: baseline, Resources: resource.NewSet(resource.New("closed", closed))},
			func(t *testing.T) *wbs.WBS {
				return newGraph(t, wbs.MustTask("a", wbs.WithEstimate(1), wbs.WithResource("closed")))
			}},
		{"work too long", Options{Start: baseline, MaxWorkDays: 3}, func(t *testing.T) *wbs.WBS {
			return newGraph(t, wbs.MustTask("a", wbs.WithEstimate(80)))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewForward(tt.opts).Calc(tt.build(t))
			if !errors.Is(err, planerr.ErrScheduling) {
				t.Errorf("expected scheduling error, got %v", err)
			}
		})
	}
}

func TestForward_CycleThroughHierarchy(t *testing.T) {
	p := wbs.MustTask("P")
	k := wbs.MustTask("K", wbs.WithParent(p))
	b := wbs.MustTask("B", wbs.WithPredecessors(k))
	c := wbs.MustTask("C", wbs.WithPredecessors(b))
	if err := p.AddPredecessor(c); err != nil {
		t.Fatalf("AddPredecessor: %v", err)
	}
	g := newGraph(t, p, b, c)

	_, err := NewForward(Options{Start: baseline}).Calc(g)
	var se *planerr.SchedulingError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchedulingError, got %v", err)
	}
	for _, id := range []string{"K", "B", "C"} {
		if !slices.Contains(se.TaskIDs, id) {
			t.Errorf("cycle %v does not name %s", se.TaskIDs, id)
		}
	}
}

func TestFindCycle(t *testing.T) {
	edges := map[string][]string{"A": {"B"}, "B": {"C"}, "C": {"A"}, "D": {"A"}}
	deps := func(n string) []string { return edges[n] }

	got := findCycle([]string{"D", "A", "B", "C"}, deps)
	if want := []string{"A", "B", "C", "A"}; !slices.Equal(got, want) {
		t.Errorf("findCycle = %v, want %v", got, want)
	}

	delete(edges, "C")
	if got := findCycle([]string{"A", "B", "C", "D"}, deps); got != nil {
		t.Errorf("acyclic graph reported cycle %v", got)
	}
}

func TestBackward(t *testing.T) {
	g := newGraph(t,
		wbs.MustTask("a", wbs.WithEstimate(10)),
		wbs.MustTask("b", wbs.WithEstimate(16)),
	)
	res := calc(t, NewBackward(Options{Deadline: jan(10, 0)}), g)

	assertDates(t, task(t, res, "b"), jan(8, 0), jan(10, 0))
	assertDates(t, task(t, res, "a"), jan(6, 18), jan(8, 0))
}

func TestBackward_SuccessorOrder(t *testing.T) {
	first := wbs.MustTask("first", wbs.WithEstimate(4))
	second := wbs.MustTask("second", wbs.WithEstimate(4), wbs.WithResource("qa"), wbs.WithPredecessors(first))
	g := newGraph(t, first, second)

	res := calc(t, NewBackward(Options{Deadline: jan(10, 0)}), g)
	assertDates(t, task(t, res, "second"), jan(9, 12), jan(10, 0))
	assertDates(t, task(t, res, "first"), jan(9, 0), jan(9, 12))
}

func TestBackward_NeedsDeadline(t *testing.T) {
	_, err := NewBackward(Options{}).Calc(wbs.New("empty"))
	if !errors.Is(err, planerr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	if s, err := New("backward", Options{}); err != nil {
		t.Errorf("New(backward): %v", err)
	} else if _, ok := s.(*Backward); !ok {
		t.Errorf("New(backward) = %T", s)
	}
	if _, err := New("sideways", Options{}); !errors.Is(err, planerr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if r, err := ParseRollup("RAW"); err != nil || r != RollupRaw {
		t.Errorf("ParseRollup(RAW) = %v, %v", r, err)
	}
}

func TestForward_ExternalBackReferences(t *testing.T) {
	other := wbs.New("other")
	ext := wbs.MustTask("ext", wbs.WithStart(jan(1, 0)), wbs.WithEnd(jan(1, 0)))
	if err := other.Add(ext); err != nil {
		t.Fatalf("Add: %v", err)
	}
	a := wbs.MustTask("a", wbs.WithEstimate(8), wbs.WithPredecessors(ext))
	g := newGraph(t, a)

	late := wbs.MustTask("late", wbs.WithStart(jan(1, 0)), wbs.WithEnd(jan(20, 0)))
	if err := g.Add(late); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := NewForward(Options{Start: baseline}).Calc(g); err == nil {
		t.Fatal("expected a task ending after now to fail the run")
	}
	if n := len(ext.Successors()); n != 1 {
		t.Errorf("failed run left %d successors on ext, want 1", n)
	}

	if err := g.Remove(late); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	res, err := NewForward(Options{Start: baseline}).Calc(g)
	if err != nil {
		t.Fatalf("Calc: %v", err)
	}
	if n := len(ext.Successors()); n != 2 {
		t.Errorf("ext has %d successors after a run, want 2", n)
	}
	res.Graph.Release()
	if succ := ext.Successors(); len(succ) != 1 || succ[0] != a {
		t.Errorf("ext successors after release = %v, want [a]", succ)
	}
}
