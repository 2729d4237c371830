package tasksync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"siraqemir/internal/models"
)

type fakeSub struct {
	mu     sync.Mutex
	ch     chan models.ChangeEvent
	closed bool
	closes int
	err    error
}

func newFakeSub() *fakeSub {
	return &fakeSub{ch: make(chan models.ChangeEvent, 16)}
}

func (s *fakeSub) Events() <-chan models.ChangeEvent { return s.ch }

func (s *fakeSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// emit delivers ev unless the subscription was closed; it reports whether it was sent.
func (s *fakeSub) emit(ev models.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.ch <- ev
	return true
}

// drop ends the feed from the remote side with err.
func (s *fakeSub) drop(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.err = err
		close(s.ch)
	}
}

func (s *fakeSub) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// fakeRemote records every call and never emits events on its own.
type fakeRemote struct {
	mu sync.Mutex

	list         []models.Task
	listErr      error
	mutateErr    error
	subscribeErr error
	block        chan struct{} // when set, mutations wait on it or the context
	listGate     chan struct{} // when set, ListTasks signals listing and waits on it
	listing      chan struct{}

	calls  map[string]int
	subs   []*fakeSub
	last   models.Task
	nextID int
	now    time.Time
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		calls: map[string]int{},
		now:   time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (r *fakeRemote) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name]++
}

func (r *fakeRemote) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *fakeRemote) totalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *fakeRemote) lastSub() *fakeSub {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) == 0 {
		return nil
	}
	return r.subs[len(r.subs)-1]
}

func (r *fakeRemote) wait(ctx context.Context) error {
	if r.block == nil {
		return nil
	}
	select {
	case <-r.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *fakeRemote) ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	r.record("list")
	if r.listGate != nil {
		r.listing <- struct{}{}
		<-r.listGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Task, len(r.list))
	copy(out, r.list)
	return out, nil
}

func (r *fakeRemote) InsertTask(ctx context.Context, task models.Task) (*models.Task, error) {
	r.record("insert")
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutateErr != nil {
		return nil, r.mutateErr
	}
	r.nextID++
	task.ID = fmt.Sprintf("task-%d", r.nextID)
	task.CreatedAt = r.now
	task.UpdatedAt = r.now
	r.last = task
	return &task, nil
}

func (r *fakeRemote) UpdateTask(ctx context.Context, id string, task models.Task) (*models.Task, error) {
	r.record("update")
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutateErr != nil {
		return nil, r.mutateErr
	}
	r.last = task
	return &task, nil
}

func (r *fakeRemote) DeleteTask(ctx context.Context, id string) error {
	r.record("delete")
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutateErr
}

func (r *fakeRemote) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	r.record("subscribe")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscribeErr != nil {
		return nil, r.subscribeErr
	}
	sub := newFakeSub()
	r.subs = append(r.subs, sub)
	return sub, nil
}

var errBoom = errors.New("boom")

// captureLogger collects log lines for assertions.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Printf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *captureLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}
