package wbs

import (
	"errors"
	"slices"
	"testing"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

func taskIDs(ts []*Task) []string { return ids(ts) }

func assertIDs(t *testing.T, what string, got []*Task, want ...string) {
	t.Helper()
	if g := taskIDs(got); !slices.Equal(g, want) {
		t.Errorf("%s = %v, want %v", what, g, want)
	}
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, planerr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNewTask_Parent(t *testing.T) {
	t1 := MustTask("1")
	t2 := MustTask("2", WithParent(t1))

	if t2.Parent() != t1 {
		t.Errorf("parent = %v, want %v", t2.Parent(), t1)
	}
	assertIDs(t, "children", t1.Children(), "2")
	if t1.Parent() != nil {
		t.Error("standalone task should have no parent")
	}
}

func TestNewTask_RejectedRelationLeavesNoTrace(t *testing.T) {
	t1 := MustTask("1")
	t2 := MustTask("2", WithParent(t1))

	_, err := NewTask("3", WithParent(t2), WithSuccessors(t1))
	assertValidation(t, err)

	assertIDs(t, "t2 children", t2.Children())
	assertIDs(t, "t1 predecessors", t1.Predecessors())
}

func TestNewTask_PredecessorReachableFromSuccessor(t *testing.T) {
	parent := MustTask("p")
	a := MustTask("a")
	b := MustTask("b", WithPredecessors(a))

	_, err := NewTask("c", WithParent(parent), WithSuccessors(a), WithPredecessors(b))
	assertValidation(t, err)

	assertIDs(t, "parent children", parent.Children())
	assertIDs(t, "a predecessors", a.Predecessors())
	assertIDs(t, "b successors", b.Successors())
}

func TestEstimate(t *testing.T) {
	task := MustTask("a", WithEstimate(4))
	if v, ok := task.Estimate(); !ok || v != 4 {
		t.Errorf("Estimate() = %v, %v, want 4, true", v, ok)
	}
	assertValidation(t, task.SetEstimate(-1))
	if v, _ := task.Estimate(); v != 4 {
		t.Errorf("rejected estimate changed value to %v", v)
	}
	task.ClearEstimate()
	if _, ok := task.Estimate(); ok {
		t.Error("expected estimate to be unset")
	}

	_, err := NewTask("b", WithSpent(-2))
	assertValidation(t, err)
}

func TestSetParent_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		build func() (child, parent *Task)
	}{
		{"self", func() (*Task, *Task) {
			a := MustTask("a")
			return a, a
		}},
		{"descendant", func() (*Task, *Task) {
			a := MustTask("a")
			b := MustTask("b", WithParent(a))
			return a, b
		}},
		{"predecessor", func() (*Task, *Task) {
			a := MustTask("a")
			b := MustTask("b", WithPredecessors(a))
			return b, a
		}},
		{"successor of descendant", func() (*Task, *Task) {
			a := MustTask("a")
			b := MustTask("b")
			c := MustTask("c", WithParent(b))
			if err := c.AddSuccessor(a); err != nil {
				panic(err)
			}
			return b, a
		}},
		{"id collision", func() (*Task, *Task) {
			a := MustTask("a")
			MustTask("x", WithParent(a))
			return MustTask("x"), a
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child, parent := tt.build()
			before := child.Parent()
			assertValidation(t, child.SetParent(parent))
			if child.Parent() != before {
				t.Error("rejected SetParent changed the parent")
			}
		})
	}
}

func TestSetParent_Moves(t *testing.T) {
	a := MustTask("a")
	b := MustTask("b")
	c := MustTask("c", WithParent(a))

	if err := c.SetParent(b); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	assertIDs(t, "a children", a.Children())
	assertIDs(t, "b children", b.Children(), "c")

	if err := c.SetParent(nil); err != nil {
		t.Fatalf("SetParent(nil): %v", err)
	}
	if c.Parent() != nil {
		t.Error("expected c to be detached")
	}
	assertIDs(t, "b children", b.Children())
}

func TestLinks_Bidirectional(t *testing.T) {
	a := MustTask("a")
	b := MustTask("b")
	c := MustTask("c")

	if err := c.SetPredecessors([]*Task{a, b, a}); err != nil {
		t.Fatalf("SetPredecessors: %v", err)
	}
	assertIDs(t, "c predecessors", c.Predecessors(), "a", "b")
	assertIDs(t, "a successors", a.Successors(), "c")

	if err := c.SetPredecessors([]*Task{b}); err != nil {
		t.Fatalf("SetPredecessors: %v", err)
	}
	assertIDs(t, "a successors", a.Successors())
	assertIDs(t, "b successors", b.Successors(), "c")

	if !b.RemoveSuccessor(c) {
		t.Error("RemoveSuccessor returned false")
	}
	assertIDs(t, "c predecessors", c.Predecessors())
	if b.RemoveSuccessor(c) {
		t.Error("second RemoveSuccessor should return false")
	}
}

func TestLinks_Rejected(t *testing.T) {
	a := MustTask("a")
	b := MustTask("b", WithPredecessors(a))
	c := MustTask("c", WithPredecessors(b))
	parent := MustTask("p")
	child := MustTask("k", WithParent(parent))

	tests := []struct {
		name string
		fn   func() error
	}{
		{"self predecessor", func() error { return a.AddPredecessor(a) }},
		{"cycle through predecessor", func() error { return a.AddPredecessor(c) }},
		{"cycle through successor", func() error { return c.AddSuccessor(a) }},
		{"ancestor predecessor", func() error { return child.AddPredecessor(parent) }},
		{"descendant successor", func() error { return parent.AddSuccessor(child) }},
		{"nil entry", func() error { return a.SetSuccessors([]*Task{nil}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, tt.fn())
		})
	}
	assertIDs(t, "a predecessors", a.Predecessors())
	assertIDs(t, "c successors", c.Successors())
	assertIDs(t, "child predecessors", child.Predecessors())
}

func TestSetChildren(t *testing.T) {
	g := New("g")
	p := MustTask("p")
	x := MustTask("x", WithParent(p))
	if err := g.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}
	y := MustTask("y")
	z := MustTask("z")

	if err := p.SetChildren([]*Task{z, y}); err != nil {
		t.Fatalf("SetChildren: %v", err)
	}
	assertIDs(t, "children", p.Children(), "z", "y")
	if x.Parent() != nil || x.Graph() != nil {
		t.Error("dropped child should leave the graph")
	}
	if y.Graph() != g {
		t.Error("new child should join the graph")
	}

	dup := MustTask("y")
	assertValidation(t, p.SetChildren([]*Task{z, dup}))
	assertIDs(t, "children after rejection", p.Children(), "z", "y")
}

func TestOrdering(t *testing.T) {
	p := MustTask("p")
	a := MustTask("a", WithParent(p))
	b := MustTask("b", WithParent(p))
	c := MustTask("c", WithParent(p))

	if err := p.MoveBefore(c, a); err != nil {
		t.Fatalf("MoveBefore: %v", err)
	}
	assertIDs(t, "after MoveBefore", p.Children(), "c", "a", "b")

	if err := p.MoveAfter(c, b); err != nil {
		t.Fatalf("MoveAfter: %v", err)
	}
	assertIDs(t, "after MoveAfter", p.Children(), "a", "b", "c")

	d := MustTask("d")
	if err := p.InsertChild(1, d); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}
	assertIDs(t, "after InsertChild", p.Children(), "a", "d", "b", "c")

	assertValidation(t, p.MoveBefore(MustTask("e"), a))

	if !p.RemoveChild(d) {
		t.Error("RemoveChild returned false")
	}
	assertIDs(t, "after RemoveChild", p.Children(), "a", "b", "c")
}

func TestTraversals(t *testing.T) {
	root := MustTask("root")
	a := MustTask("a", WithParent(root))
	MustTask("a1", WithParent(a))
	b := MustTask("b", WithParent(root))
	b1 := MustTask("b1", WithParent(b))

	assertIDs(t, "AllChildren", root.AllChildren(), "a", "a1", "b", "b1")
	assertIDs(t, "AllParents", b1.AllParents(), "b", "root")

	// Diamond: d depends on l and r, both depend on s.
	s := MustTask("s")
	l := MustTask("l", WithPredecessors(s))
	r := MustTask("r", WithPredecessors(s))
	d := MustTask("d", WithPredecessors(l, r))

	assertIDs(t, "AllPredecessors", d.AllPredecessors(), "l", "s", "r")
	assertIDs(t, "AllSuccessors", s.AllSuccessors(), "l", "d", "r")
}
