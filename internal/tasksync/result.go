package tasksync

import (
	"errors"

	"siraqemir/internal/models"
)

// ErrNotAuthenticated is returned by mutations when no session is active.
var ErrNotAuthenticated = errors.New("not authenticated")

// Result is the outcome of a mutation. Exactly one of Task (possibly nil
// for Delete) or Err is meaningful, selected by Success.
type Result struct {
	Success bool
	Task    *models.Task
	Err     error
}

func succeeded(t *models.Task) Result {
	return Result{Success: true, Task: t}
}

func failed(err error) Result {
	return Result{Err: err}
}

// Message is a human-readable description of the failure, empty on success.
func (r Result) Message() string {
	if r.Success || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// IsValidation reports whether the mutation was rejected before reaching the service.
func (r Result) IsValidation() bool {
	var verr *models.ValidationError
	return errors.As(r.Err, &verr)
}
