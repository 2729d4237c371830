package tasksync

import (
	"errors"
	"fmt"

	"siraqemir/internal/models"
)

// ErrMalformedEvent is returned by Reduce for events it cannot apply.
var ErrMalformedEvent = errors.New("malformed change event")

// Reduce applies one change event to a newest-first task list and returns
// the new list. The input slice is never modified.
//
//   - INSERT puts the record at the head. A record whose id is already
//     present replaces that entry in place instead, so a redelivered insert
//     cannot duplicate a task.
//   - UPDATE replaces the entry with the same id in place; unknown ids are ignored.
//   - DELETE removes the entry with the old record's id; unknown ids are ignored.
func Reduce(tasks []models.Task, ev models.ChangeEvent) ([]models.Task, error) {
	switch ev.Type {
	case models.ChangeInsert:
		if ev.Record == nil || ev.Record.ID == "" {
			return tasks, fmt.Errorf("%w: insert without record id", ErrMalformedEvent)
		}
		if i := indexOf(tasks, ev.Record.ID); i >= 0 {
			return replaceAt(tasks, i, *ev.Record), nil
		}
		out := make([]models.Task, 0, len(tasks)+1)
		out = append(out, *ev.Record)
		return append(out, tasks...), nil

	case models.ChangeUpdate:
		if ev.Record == nil || ev.Record.ID == "" {
			return tasks, fmt.Errorf("%w: update without record id", ErrMalformedEvent)
		}
		i := indexOf(tasks, ev.Record.ID)
		if i < 0 {
			return tasks, nil
		}
		return replaceAt(tasks, i, *ev.Record), nil

	case models.ChangeDelete:
		id := ev.TaskID()
		if id == "" {
			return tasks, fmt.Errorf("%w: delete without old record id", ErrMalformedEvent)
		}
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks, nil
		}
		out := make([]models.Task, 0, len(tasks)-1)
		out = append(out, tasks[:i]...)
		return append(out, tasks[i+1:]...), nil
	}
	return tasks, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
}

func indexOf(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(tasks []models.Task, i int, t models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	out[i] = t
	return out
}
