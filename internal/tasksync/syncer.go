package tasksync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"siraqemir/internal/models"
)

// DefaultTimeout bounds every remote call made by the Syncer.
const DefaultTimeout = 10 * time.Second

// Logger is where fetch failures and bad events are reported.
type Logger interface {
	Printf(format string, v ...interface{})
}

type Option func(*Syncer)

func WithLogger(l Logger) Option {
	return func(s *Syncer) { s.log = l }
}

// WithTimeout sets the per-call timeout; zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Syncer) { s.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// Syncer owns the current user's task list for the lifetime of a session.
type Syncer struct {
	remote  Remote
	log     Logger
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	userID  string
	tasks   []models.Task
	feed    *feed
	gen     uint64
	updates chan struct{}
}

// feed is one session's subscription plus its dispatch goroutine.
type feed struct {
	userID string
	gen    uint64
	sub    Subscription
	cancel context.CancelFunc
	log    Logger
	done   chan struct{}
	once   sync.Once
}

func NewSyncer(remote Remote, opts ...Option) *Syncer {
	s := &Syncer{
		remote:  remote,
		log:     log.Default(),
		timeout: DefaultTimeout,
		now:     time.Now,
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the user's tasks and opens the change feed. An empty userID
// (session absent or still loading) is a no-op, as is a second Start for
// the user that is already active. Starting for another user stops the
// previous session first.
//
// A failed initial load keeps whatever list is held and is only logged.
// A failed subscribe is returned; mutations still work but the list will
// not follow them.
func (s *Syncer) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	s.mu.Lock()
	if s.userID == userID && s.feed != nil && !s.feed.ended() {
		s.mu.Unlock()
		return nil
	}
	prev := s.detachLocked()
	if s.userID != userID {
		s.tasks = nil
	}
	s.userID = userID
	gen := s.gen
	s.mu.Unlock()
	prev.stop()

	fetchCtx, cancel := s.withTimeout(ctx)
	tasks, err := s.remote.ListTasks(fetchCtx, userID)
	cancel()
	if err != nil {
		s.log.Printf("[tasksync][init][err] user=%s initial fetch failed: %v", userID, err)
	} else {
		if tasks == nil {
			tasks = []models.Task{}
		}
		if s.replace(gen, tasks) {
			s.log.Printf("[tasksync][init][ok] user=%s count=%d", userID, len(tasks))
		}
	}

	subCtx, subCancel := context.WithCancel(context.Background())
	sub, err := s.remote.Subscribe(subCtx, userID)
	if err != nil {
		subCancel()
		s.log.Printf("[tasksync][subscribe][err] user=%s: %v", userID, err)
		return fmt.Errorf("subscribe: %w", err)
	}
	f := &feed{userID: userID, gen: gen, sub: sub, cancel: subCancel, log: s.log, done: make(chan struct{})}

	s.mu.Lock()
	if s.gen != gen || s.feed != nil {
		// stopped or restarted while we were subscribing; dispatch never ran
		s.mu.Unlock()
		close(f.done)
		f.stop()
		return nil
	}
	s.feed = f
	s.mu.Unlock()

	go s.dispatch(f)
	s.log.Printf("[tasksync][subscribe][ok] user=%s", userID)
	return nil
}

// Stop ends the session: the subscription is closed exactly once, the
// list is cleared and no event is applied after Stop returns. Calling Stop
// without an active session is a no-op.
func (s *Syncer) Stop() {
	s.mu.Lock()
	f := s.detachLocked()
	hadSession := s.userID != "" || len(s.tasks) > 0
	s.userID = ""
	s.tasks = nil
	s.mu.Unlock()

	f.stop()
	if hadSession {
		s.notify()
	}
}

// detachLocked invalidates in-flight Start calls and hands back the active
// feed for the caller to stop outside the lock.
func (s *Syncer) detachLocked() *feed {
	s.gen++
	f := s.feed
	s.feed = nil
	return f
}

func (f *feed) stop() {
	if f == nil {
		return
	}
	// Close must end the Events channel, which lets dispatch return.
	f.once.Do(func() {
		f.cancel()
		if err := f.sub.Close(); err != nil {
			f.log.Printf("[tasksync][unsubscribe][warn] user=%s: %v", f.userID, err)
		}
	})
	<-f.done
}

func (f *feed) ended() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// dispatch applies events strictly in delivery order until the feed ends.
// Watchers of Updates are woken when the feed ends so they can check Live.
func (s *Syncer) dispatch(f *feed) {
	for ev := range f.sub.Events() {
		if !s.apply(f.gen, ev) {
			close(f.done)
			return
		}
	}
	if err := f.sub.Err(); err != nil {
		s.log.Printf("[tasksync][subscribe][err] user=%s feed ended: %v", f.userID, err)
	}
	close(f.done)
	s.notify()
}

// apply reports false once the feed's session is over. A bad event is
// logged and skipped.
func (s *Syncer) apply(gen uint64, ev models.ChangeEvent) bool {
	changed, alive, err := s.reduce(gen, ev)
	if err != nil {
		s.log.Printf("[tasksync][event][err] type=%s id=%s: %v", ev.Type, ev.TaskID(), err)
	}
	if changed {
		s.notify()
	}
	return alive
}

func (s *Syncer) reduce(gen uint64, ev models.ChangeEvent) (changed, alive bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			changed, alive, err = false, true, fmt.Errorf("panic: %v", r)
		}
	}()

	if s.gen != gen {
		return false, false, nil
	}
	next, err := Reduce(s.tasks, ev)
	if err != nil {
		return false, true, err
	}
	s.tasks = next
	return true, true, nil
}

func (s *Syncer) replace(gen uint64, tasks []models.Task) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.tasks = tasks
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Syncer) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Updates receives a value after the list changes. Notifications are
// coalesced; read Tasks for the current state.
func (s *Syncer) Updates() <-chan struct{} {
	return s.updates
}

// Tasks returns a copy of the current list, newest first.
func (s *Syncer) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Live reports whether the change feed of the current session is open.
func (s *Syncer) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feed != nil && !s.feed.ended()
}

// UserID returns the active session's user, or "" without one.
func (s *Syncer) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Create validates input and inserts it for the current user. The list is
// not touched; the insert event updates it.
func (s *Syncer) Create(ctx context.Context, in models.TaskInput) (res Result) {
	defer recoverResult("create task", &res)

	userID := s.UserID()
	if userID == "" {
		return failed(ErrNotAuthenticated)
	}
	task, err := models.Normalize(in, models.ForCreate)
	if err != nil {
		return failed(err)
	}
	task.UserID = userID

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	created, err := s.remote.InsertTask(ctx, task)
	if err != nil {
		return failed(remoteError("create task", err))
	}
	return succeeded(created)
}

// Update replaces the mutable fields of task id and refreshes its
// updated_at. Status is coerced like priority.
func (s *Syncer) Update(ctx context.Context, id string, in models.TaskInput) (res Result) {
	defer recoverResult("update task", &res)

	userID := s.UserID()
	if userID == "" {
		return failed(ErrNotAuthenticated)
	}
	if strings.TrimSpace(id) == "" {
		return failed(&models.ValidationError{Field: "id", Message: "task id is required"})
	}
	task, err := models.Normalize(in, models.ForUpdate)
	if err != nil {
		return failed(err)
	}
	task.ID = id
	task.UserID = userID
	task.UpdatedAt = s.now().UTC()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	updated, err := s.remote.UpdateTask(ctx, id, task)
	if err != nil {
		return failed(remoteError("update task", err))
	}
	return succeeded(updated)
}

// ToggleStatus flips pending and completed, leaving the other fields as given.
func (s *Syncer) ToggleStatus(ctx context.Context, task models.Task) Result {
	in := models.InputFromTask(task)
	if task.Status == models.StatusCompleted {
		in.Status = string(models.StatusPending)
	} else {
		in.Status = string(models.StatusCompleted)
	}
	return s.Update(ctx, task.ID, in)
}

// Delete removes task id. Deleting a task that is already gone is
// reported as a failure.
func (s *Syncer) Delete(ctx context.Context, id string) (res Result) {
	defer recoverResult("delete task", &res)

	if s.UserID() == "" {
		return failed(ErrNotAuthenticated)
	}
	if strings.TrimSpace(id) == "" {
		return failed(&models.ValidationError{Field: "id", Message: "task id is required"})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.remote.DeleteTask(ctx, id); err != nil {
		return failed(remoteError("delete task", err))
	}
	return succeeded(nil)
}

func (s *Syncer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func remoteError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: request timed out: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func recoverResult(op string, res *Result) {
	if r := recover(); r != nil {
		*res = failed(fmt.Errorf("%s: %v", op, r))
	}
}
