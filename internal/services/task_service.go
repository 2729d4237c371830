package services

import (
	"context"
	"sync"
	"time"

	"siraqemir/internal/models"
	"siraqemir/internal/repositories"
)

// Publisher fans change events out to the owner's subscribers.
type Publisher interface {
	Publish(ev models.ChangeEvent)
}

// TaskService is the owner-scoped task store. Every successful mutation
// is followed by exactly one change event.
type TaskService interface {
	List(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error)
	Get(ctx context.Context, userID, id string) (*models.Task, error)
	Create(ctx context.Context, userID string, in models.TaskInput) (*models.Task, error)
	Update(ctx context.Context, userID, id string, in models.TaskInput) (*models.Task, error)
	Delete(ctx context.Context, userID, id string) (*models.Task, error)
}

type taskService struct {
	repo      repositories.TaskRepository
	publisher Publisher
	now       func() time.Time

	// owners holds one *sync.Mutex per user; a mutation and its event are
	// published under it so event order matches commit order.
	owners sync.Map
}

// NewTaskService creates a new instance of TaskService. publisher may be nil.
func NewTaskService(repo repositories.TaskRepository, publisher Publisher) TaskService {
	return &taskService{repo: repo, publisher: publisher, now: time.Now}
}

func (s *taskService) lockOwner(userID string) func() {
	v, _ := s.owners.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *taskService) List(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error) {
	return s.repo.FindAll(ctx, userID, filter)
}

func (s *taskService) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	return s.repo.FindByID(ctx, userID, id)
}

func (s *taskService) Create(ctx context.Context, userID string, in models.TaskInput) (*models.Task, error) {
	task, err := models.Normalize(in, models.ForCreate)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	task.UserID = userID
	task.CreatedAt = now
	task.UpdatedAt = now

	defer s.lockOwner(userID)()
	if err := s.repo.Store(ctx, &task); err != nil {
		return nil, err
	}
	s.publish(models.ChangeEvent{Type: models.ChangeInsert, Record: &task, CommitTimestamp: now})
	return &task, nil
}

// Update replaces title, description, due date, priority and status.
// updated_at is always set by the service, never taken from the client.
func (s *taskService) Update(ctx context.Context, userID, id string, in models.TaskInput) (*models.Task, error) {
	fields, err := models.Normalize(in, models.ForUpdate)
	if err != nil {
		return nil, err
	}
	defer s.lockOwner(userID)()
	existing, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	old := *existing

	existing.Title = fields.Title
	existing.Description = fields.Description
	existing.DueDate = fields.DueDate
	existing.Priority = fields.Priority
	existing.Status = fields.Status
	existing.UpdatedAt = s.now().UTC()
	if existing.UpdatedAt.Before(existing.CreatedAt) {
		existing.UpdatedAt = existing.CreatedAt
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.publish(models.ChangeEvent{Type: models.ChangeUpdate, Record: existing, OldRecord: &old, CommitTimestamp: existing.UpdatedAt})
	return existing, nil
}

// Delete returns the removed task; a missing task yields repositories.ErrNotFound.
func (s *taskService) Delete(ctx context.Context, userID, id string) (*models.Task, error) {
	defer s.lockOwner(userID)()
	existing, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return nil, err
	}
	s.publish(models.ChangeEvent{Type: models.ChangeDelete, OldRecord: existing, CommitTimestamp: s.now().UTC()})
	return existing, nil
}

func (s *taskService) publish(ev models.ChangeEvent) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}
