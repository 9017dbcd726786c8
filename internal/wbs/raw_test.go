package wbs

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestRawRoundTrip(t *testing.T) {
	g := New("plan")
	a := MustTask("a", WithEstimate(8), WithAttr("owner", String("ann")))
	MustTask("a1", WithParent(a), WithMilestone())
	b := MustTask("b", WithPredecessors(a))
	mustAdd(t, g, a, b)

	raws := ToRaws(g.Tasks())
	if len(raws) != 3 {
		t.Fatalf("got %d records, want 3", len(raws))
	}
	if raws[1].ParentID != "a" || !raws[1].Milestone {
		t.Errorf("child record = %+v", raws[1])
	}
	if raws[2].PredecessorIDs[0] != "a" {
		t.Errorf("predecessor ids = %v, want [a]", raws[2].PredecessorIDs)
	}

	back, err := FromRaws("copy", raws)
	if err != nil {
		t.Fatalf("FromRaws: %v", err)
	}
	assertIDs(t, "Roots", back.Roots(), "a", "b")
	ra, _ := back.Get("a")
	if v, ok := ra.Estimate(); !ok || v != 8 {
		t.Errorf("estimate = %v, %v", v, ok)
	}
	if owner, _ := ra.Attr("owner"); owner.Str() != "ann" {
		t.Errorf("owner attr = %v", owner)
	}
	rb, _ := back.Get("b")
	assertIDs(t, "b predecessors", rb.Predecessors(), "a")
}

func TestFromRaws_Lenient(t *testing.T) {
	raws := []TaskRaw{
		{ID: "a", ParentID: "ghost"},
		{ID: "b", PredecessorIDs: []string{"a", "nobody"}},
		{ID: "b1", ParentID: "b"},
	}
	g, err := FromRaws("plan", raws)
	if err != nil {
		t.Fatalf("FromRaws: %v", err)
	}
	assertIDs(t, "Roots", g.Roots(), "a", "b")
	b, _ := g.Get("b")
	assertIDs(t, "b predecessors", b.Predecessors(), "a")
	assertIDs(t, "b children", b.Children(), "b1")
}

func TestFromRaws_Rejects(t *testing.T) {
	negative := -1.0
	tests := []struct {
		name string
		raws []TaskRaw
	}{
		{"duplicate id", []TaskRaw{{ID: "a"}, {ID: "a"}}},
		{"missing id", []TaskRaw{{Name: "nameless"}}},
		{"negative estimate", []TaskRaw{{ID: "a", Estimate: &negative}}},
		{"dependency cycle", []TaskRaw{
			{ID: "a", PredecessorIDs: []string{"b"}},
			{ID: "b", PredecessorIDs: []string{"a"}},
		}},
		{"parent cycle", []TaskRaw{{ID: "a", ParentID: "b"}, {ID: "b", ParentID: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRaws("plan", tt.raws)
			assertValidation(t, err)
		})
	}
}

func TestValue_YAML(t *testing.T) {
	src := "count: 3\nratio: 0.5\ndone: true\ndue: 2025-01-10\nnote: hello\nquoted: \"2025-01-10\"\n"
	var attrs map[string]Value
	if err := yaml.Unmarshal([]byte(src), &attrs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	tests := []struct {
		key  string
		kind Kind
	}{
		{"count", KindNumber},
		{"ratio", KindNumber},
		{"done", KindBool},
		{"due", KindDate},
		{"note", KindString},
		{"quoted", KindString},
	}
	for _, tt := range tests {
		if got := attrs[tt.key].Kind(); got != tt.kind {
			t.Errorf("%s kind = %v, want %v", tt.key, got, tt.kind)
		}
	}
	if !attrs["due"].Time().Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("due = %v", attrs["due"].Time())
	}
}

func TestValue_JSON(t *testing.T) {
	in := map[string]Value{
		"n": Number(2),
		"d": Date(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		"s": String("x"),
		"t": String("2025-01-01"),
		"b": Bool(true),
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]Value
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for k, v := range in {
		if out[k].Kind() != v.Kind() || out[k].String() != v.String() {
			t.Errorf("%s: got %v (%v), want %v (%v)", k, out[k], out[k].Kind(), v, v.Kind())
		}
	}

	var bad Value
	if err := json.Unmarshal([]byte(`{"when": "2025-01-01"}`), &bad); err == nil {
		t.Error("expected an error for an object without a date key")
	}
}
