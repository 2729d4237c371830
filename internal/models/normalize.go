package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// NormalizeMode selects which fields a caller may set.
type NormalizeMode int

const (
	// ForCreate forces the status to pending.
	ForCreate NormalizeMode = iota
	// ForUpdate coerces the given status.
	ForUpdate
)

// ValidationError is returned for input rejected before any storage call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CoercePriority maps anything outside low|medium|high to low.
func CoercePriority(s string) TaskPriority {
	switch p := TaskPriority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	}
	return PriorityLow
}

// CoerceStatus maps anything outside pending|completed to pending.
func CoerceStatus(s string) TaskStatus {
	switch st := TaskStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusCompleted:
		return st
	}
	return StatusPending
}

// Normalize turns raw form input into the mutable fields of a Task.
// Unknown enum values are coerced to their defaults rather than rejected.
// The result carries no id, owner or timestamps.
func Normalize(in TaskInput, mode NormalizeMode) (Task, error) {
	t := Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Priority:    CoercePriority(in.Priority),
		Status:      StatusPending,
	}
	if t.Title == "" {
		return Task{}, &ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(t.Description) > DescriptionMaxLen {
		return Task{}, &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters", DescriptionMaxLen),
		}
	}
	if due := strings.TrimSpace(in.DueDate); due != "" {
		d, err := ParseDate(due)
		if err != nil {
			return Task{}, &ValidationError{Field: "dueDate", Message: err.Error()}
		}
		t.DueDate = &d
	}
	if mode == ForUpdate {
		t.Status = CoerceStatus(in.Status)
	}
	return t, nil
}

// InputFromTask is the inverse of Normalize for an already stored task.
func InputFromTask(t Task) TaskInput {
	in := TaskInput{
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
	}
	if t.DueDate != nil {
		in.DueDate = t.DueDate.String()
	}
	return in
}
