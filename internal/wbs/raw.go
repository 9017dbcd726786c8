package wbs

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/swamp-dev/pjplan/internal/planerr"
)

// TaskRaw is the flat record form of a task used for interchange.
type TaskRaw struct {
	ID             string           `json:"id" yaml:"id" validate:"required"`
	Name           string           `json:"name,omitempty" yaml:"name,omitempty"`
	Resource       string           `json:"resource,omitempty" yaml:"resource,omitempty"`
	Start          *time.Time       `json:"start,omitempty" yaml:"start,omitempty"`
	End            *time.Time       `json:"end,omitempty" yaml:"end,omitempty"`
	MinStart       *time.Time       `json:"min_start,omitempty" yaml:"min_start,omitempty"`
	MaxEnd         *time.Time       `json:"max_end,omitempty" yaml:"max_end,omitempty"`
	Estimate       *float64         `json:"estimate,omitempty" yaml:"estimate,omitempty" validate:"omitempty,gte=0"`
	Spent          *float64         `json:"spent,omitempty" yaml:"spent,omitempty" validate:"omitempty,gte=0"`
	Milestone      bool             `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	ParentID       string           `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	PredecessorIDs []string         `json:"predecessor_ids,omitempty" yaml:"predecessor_ids,omitempty"`
	Attrs          map[string]Value `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

var validate = validator.New()

// Validate checks the record fields.
func (r TaskRaw) Validate() error {
	if err := validate.Struct(r); err != nil {
		return planerr.Validationf("task", []string{r.ID}, "%v", err)
	}
	return nil
}

// Raw returns the record form of t.
func (t *Task) Raw() TaskRaw {
	r := TaskRaw{
		ID:        t.id,
		Name:      t.Name,
		Resource:  t.Resource,
		Start:     copyTime(t.Start),
		End:       copyTime(t.End),
		MinStart:  copyTime(t.MinStart),
		MaxEnd:    copyTime(t.MaxEnd),
		Estimate:  copyFloat(t.estimate),
		Spent:     copyFloat(t.spent),
		Milestone: t.Milestone,
	}
	if p := t.Parent(); p != nil {
		r.ParentID = p.id
	}
	if len(t.preds) > 0 {
		r.PredecessorIDs = ids(t.preds)
	}
	if len(t.Attrs) > 0 {
		r.Attrs = make(map[string]Value, len(t.Attrs))
		for k, v := range t.Attrs {
			r.Attrs[k] = v
		}
	}
	return r
}

// ToRaws returns the record form of tasks, in order.
func ToRaws(tasks []*Task) []TaskRaw {
	out := make([]TaskRaw, len(tasks))
	for i, t := range tasks {
		out[i] = t.Raw()
	}
	return out
}

// FromRaws rebuilds a graph from records. Records whose parent id is empty
// or unknown become roots; children keep record order. Unknown predecessor
// ids are dropped.
func FromRaws(name string, raws []TaskRaw) (*WBS, error) {
	byID := make(map[string]*Task, len(raws))
	tasks := make([]*Task, len(raws))
	for i, r := range raws {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[r.ID]; dup {
			return nil, planerr.Validationf("id", []string{r.ID}, "duplicate task id %q", r.ID)
		}
		t, err := NewTask(r.ID, WithName(r.Name), WithResource(r.Resource))
		if err != nil {
			return nil, err
		}
		t.Start = copyTime(r.Start)
		t.End = copyTime(r.End)
		t.MinStart = copyTime(r.MinStart)
		t.MaxEnd = copyTime(r.MaxEnd)
		t.estimate = copyFloat(r.Estimate)
		t.spent = copyFloat(r.Spent)
		t.Milestone = r.Milestone
		if len(r.Attrs) > 0 {
			t.Attrs = make(map[string]Value, len(r.Attrs))
			for k, v := range r.Attrs {
				t.Attrs[k] = v
			}
		}
		byID[r.ID] = t
		tasks[i] = t
	}

	var roots []*Task
	for i, r := range raws {
		p, ok := byID[r.ParentID]
		if r.ParentID == "" || !ok {
			roots = append(roots, tasks[i])
			continue
		}
		if err := p.AddChild(tasks[i]); err != nil {
			return nil, err
		}
	}

	g := New(name)
	if err := g.Add(roots...); err != nil {
		return nil, err
	}

	for i, r := range raws {
		for _, pid := range r.PredecessorIDs {
			p, ok := byID[pid]
			if !ok {
				continue
			}
			if err := tasks[i].AddPredecessor(p); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}
