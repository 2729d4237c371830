package tasksync

import (
	"context"

	"siraqemir/internal/models"
)

// Remote is the owner-scoped task store the Syncer reconciles against.
// Access control is the store's job: every call acts on behalf of the
// authenticated user only.
type Remote interface {
	// ListTasks returns the owner's tasks ordered by creation time, newest first.
	ListTasks(ctx context.Context, userID string) ([]models.Task, error)
	InsertTask(ctx context.Context, task models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, task models.Task) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	// Subscribe opens the owner's change feed. Cancelling ctx or calling
	// Close on the result ends it.
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Subscription is a live change feed.
type Subscription interface {
	// Events is closed when the feed ends.
	Events() <-chan models.ChangeEvent
	// Err reports why the feed ended, nil after a normal Close.
	Err() error
	Close() error
}
