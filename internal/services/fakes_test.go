package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"siraqemir/internal/models"
	"siraqemir/internal/repositories"
)

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]models.Task

	// afterUpdate runs after an update is stored, outside the lock.
	afterUpdate func(models.Task)
}

func newMemTaskRepo() *memTaskRepo { return &memTaskRepo{tasks: map[string]models.Task{}} }

func (r *memTaskRepo) Store(_ context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.tasks[t.ID] = *t
	return nil
}

func (r *memTaskRepo) FindByID(_ context.Context, userID, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r *memTaskRepo) FindAll(_ context.Context, userID string, f models.TaskFilter) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Task{}
	for _, t := range r.tasks {
		if t.UserID != userID || (f.Status != nil && t.Status != *f.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTaskRepo) Update(_ context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[t.ID]
	if !ok || cur.UserID != t.UserID {
		return repositories.ErrNotFound
	}
	r.tasks[t.ID] = *t
	hook := r.afterUpdate
	r.mu.Unlock()
	if hook != nil {
		hook(*t)
	}
	r.mu.Lock()
	return nil
}

func (r *memTaskRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[id]
	if !ok || cur.UserID != userID {
		return repositories.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: map[string]*models.User{}} }

func (r *memUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetByRefreshToken(_ context.Context, token string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.RefreshToken != nil && *u.RefreshToken == token })
}

func (r *memUserRepo) UpdateRefresh(_ context.Context, userID, token string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.RefreshToken, u.RefreshExpiresAt, u.RefreshRevoked = &token, &exp, false
	return nil
}

func (r *memUserRepo) RotateRefresh(_ context.Context, oldToken, newToken string, exp time.Time) (*models.User, error) {
	r.mu.Lock()
	for _, u := range r.users {
		if u.RefreshToken != nil && *u.RefreshToken == oldToken && !u.RefreshRevoked {
			u.RefreshToken, u.RefreshExpiresAt = &newToken, &exp
			cp := *u
			r.mu.Unlock()
			return &cp, nil
		}
	}
	r.mu.Unlock()
	return nil, repositories.ErrNotFound
}

func (r *memUserRepo) ClearRefresh(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.RefreshToken, u.RefreshExpiresAt, u.RefreshRevoked = nil, nil, true
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (p *recordingPublisher) Publish(ev models.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

type stubEmail struct {
	sent []string
	err  error
}

func (s *stubEmail) SendWelcomeEmail(email string) error {
	s.sent = append(s.sent, email)
	return s.err
}
