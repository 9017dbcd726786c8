// Package planerr defines the error taxonomy shared by the task graph,
// the calendars and the schedulers.
//
// Three kinds of failure exist:
//   - ValidationError: a relation mutation or field value was rejected
//   - SchedulingError: a graph cannot be scheduled
//   - NotFoundError: a lookup by id failed
//
// Each typed error unwraps to a sentinel so callers can branch with
// errors.Is without importing the concrete type:
//
//	if errors.Is(err, planerr.ErrScheduling) { ... }
//
//	var se *planerr.SchedulingError
//	if errors.As(err, &se) { fmt.Println(se.TaskIDs) }
package planerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrScheduling = errors.New("scheduling error")
	ErrNotFound   = errors.New("not found")
)

// ValidationError reports a rejected mutation. The graph is left unchanged.
type ValidationError struct {
	Field   string
	TaskIDs []string
	Msg     string
}

// Validationf builds a ValidationError for field. ids name the tasks involved.
func Validationf(field string, ids []string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, TaskIDs: ids, Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	prefix := ErrValidation.Error()
	if e.Field != "" {
		prefix = fmt.Sprintf("%s [field=%s]", prefix, e.Field)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SchedulingError reports a graph that cannot be scheduled.
type SchedulingError struct {
	TaskIDs []string
	Msg     string
}

// Schedulingf builds a SchedulingError naming ids.
func Schedulingf(ids []string, format string, args ...any) *SchedulingError {
	return &SchedulingError{TaskIDs: ids, Msg: fmt.Sprintf(format, args...)}
}

// Cycle builds a SchedulingError for a dependency cycle. path lists the
// members in traversal order.
func Cycle(path []string) *SchedulingError {
	return &SchedulingError{
		TaskIDs: path,
		Msg:     "cycle detected: " + strings.Join(path, " -> "),
	}
}

func (e *SchedulingError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", ErrScheduling.Error(), e.Msg)
}

func (e *SchedulingError) Unwrap() error { return ErrScheduling }

// NotFoundError reports a missing task, resource or other keyed item.
type NotFoundError struct {
	Kind string
	ID   string
}

func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
