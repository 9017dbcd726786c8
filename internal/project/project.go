// Package project reads and writes project files: a YAML document with the
// resources of a plan, their work calendars and the task list.
//
// Tasks are given either flat, linked through parent_id, or nested under
// subtasks. Tasks without an id get a generated one.
package project

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/swamp-dev/pjplan/internal/planerr"
	"github.com/swamp-dev/pjplan/internal/resource"
	"github.com/swamp-dev/pjplan/internal/wbs"
)

// File is a project file.
type File struct {
	Name      string         `yaml:"name" json:"name" validate:"required"`
	Start     *time.Time     `yaml:"start,omitempty" json:"start,omitempty"`
	Deadline  *time.Time     `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	Resources []ResourceSpec `yaml:"resources,omitempty" json:"resources,omitempty" validate:"dive"`
	Tasks     []Task         `yaml:"tasks" json:"tasks" validate:"dive"`
}

// ResourceSpec names a resource. A missing calendar means the default
// Monday to Friday calendar.
type ResourceSpec struct {
	Name     string        `yaml:"name" json:"name" validate:"required"`
	Calendar *CalendarSpec `yaml:"calendar,omitempty" json:"calendar,omitempty"`
}

// Task is a task record with optional nested subtasks.
type Task struct {
	wbs.TaskRaw `yaml:",inline"`
	Subtasks    []Task `yaml:"subtasks,omitempty" json:"subtasks,omitempty" validate:"dive"`
}

var validate = validator.New()

// Load reads and parses a project file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a project document, fills in missing task ids and
// validates the result.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	f.assignIDs()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save writes f as YAML.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}
	return nil
}

// Validate checks field constraints, resource names and calendars.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return planerr.Validationf("project", nil, "%v", err)
	}
	seen := make(map[string]bool, len(f.Resources))
	for _, r := range f.Resources {
		if seen[r.Name] {
			return planerr.Validationf("resources", nil, "duplicate resource %q", r.Name)
		}
		seen[r.Name] = true
		if r.Calendar == nil {
			continue
		}
		if _, err := r.Calendar.Build(); err != nil {
			return fmt.Errorf("resource %s: %w", r.Name, err)
		}
	}
	return nil
}

// assignIDs gives every task without an id a short random one.
func (f *File) assignIDs() {
	used := make(map[string]bool)
	var collect func(tasks []Task)
	collect = func(tasks []Task) {
		for _, t := range tasks {
			if t.ID != "" {
				used[t.ID] = true
			}
			collect(t.Subtasks)
		}
	}
	collect(f.Tasks)

	var fill func(tasks []Task)
	fill = func(tasks []Task) {
		for i := range tasks {
			for tasks[i].ID == "" {
				if id := uuid.NewString()[:8]; !used[id] {
					used[id] = true
					tasks[i].ID = id
				}
			}
			fill(tasks[i].Subtasks)
		}
	}
	fill(f.Tasks)
}

// Flatten returns the task records in pre-order. Nested subtasks get their
// enclosing task as parent.
func (f *File) Flatten() []wbs.TaskRaw {
	var out []wbs.TaskRaw
	var walk func(tasks []Task, parent string)
	walk = func(tasks []Task, parent string) {
		for _, t := range tasks {
			r := t.TaskRaw
			if parent != "" {
				r.ParentID = parent
			}
			out = append(out, r)
			walk(t.Subtasks, r.ID)
		}
	}
	walk(f.Tasks, "")
	return out
}

// Graph builds the task graph of f.
func (f *File) Graph() (*wbs.WBS, error) {
	return wbs.FromRaws(f.Name, f.Flatten())
}

// ResourceSet builds the resources of f.
func (f *File) ResourceSet() (resource.Set, error) {
	out := make([]*resource.Resource, 0, len(f.Resources))
	for _, r := range f.Resources {
		if r.Calendar == nil {
			out = append(out, resource.New(r.Name, nil))
			continue
		}
		cal, err := r.Calendar.Build()
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", r.Name, err)
		}
		out = append(out, resource.New(r.Name, cal))
	}
	return resource.NewSet(out...), nil
}

// WithTasks returns a copy of f whose task list is the flat record form of
// tasks.
func (f *File) WithTasks(tasks []*wbs.Task) *File {
	out := *f
	raws := wbs.ToRaws(tasks)
	out.Tasks = make([]Task, len(raws))
	for i, r := range raws {
		out.Tasks[i] = Task{TaskRaw: r}
	}
	return &out
}
