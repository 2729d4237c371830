// Package session tracks who is signed in and tells listeners when that
// changes, so the task list can be loaded and torn down with the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"siraqemir/internal/models"
)

// Authenticator is the remote side of a session.
type Authenticator interface {
	// CurrentUser returns nil and no error when there is no valid session.
	CurrentUser(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
}

// Transition is a session state. Listeners only ever see Loading false.
type Transition struct {
	User    *models.User
	Loading bool
}

// Result is the outcome of a session operation.
type Result struct {
	Success bool
	User    *models.User
	Err     error
}

func (r Result) Message() string {
	if r.Success || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

var ErrBusy = errors.New("another session operation is in progress")

type Listener func(Transition)

// Logger receives one line per completed operation.
type Logger interface {
	Printf(format string, v ...interface{})
}

type Option func(*Manager)

func WithLogger(l Logger) Option {
	return func(m *Manager) { m.log = l }
}

// Manager starts out loading. Listeners are told about the loaded state
// once when the first operation completes and after that only when the
// signed-in user actually changes.
type Manager struct {
	auth Authenticator
	log  Logger

	mu        sync.Mutex
	user      *models.User
	loading   bool
	restored  bool
	listeners map[int]Listener
	nextID    int

	// serializes operations so transitions reach listeners in order
	op sync.Mutex
}

func NewManager(auth Authenticator, opts ...Option) *Manager {
	m := &Manager{auth: auth, log: log.Default(), loading: true, listeners: make(map[int]Listener)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current user (nil when signed out) and the loading flag.
func (m *Manager) State() Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Transition{User: m.user, Loading: m.loading}
}

// Subscribe registers fn and returns a func that removes it.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Restore resolves a previously stored session.
func (m *Manager) Restore(ctx context.Context) Result {
	return m.run(ctx, "restore", func(ctx context.Context) (*models.User, error) {
		return m.auth.CurrentUser(ctx)
	})
}

func (m *Manager) Login(ctx context.Context, email, password string) Result {
	return m.run(ctx, "login", func(ctx context.Context) (*models.User, error) {
		user, err := m.auth.Login(ctx, email, password)
		if err == nil && user == nil {
			err = errors.New("login returned no user")
		}
		return user, err
	})
}

func (m *Manager) Register(ctx context.Context, email, password string) Result {
	return m.run(ctx, "register", func(ctx context.Context) (*models.User, error) {
		user, err := m.auth.Register(ctx, email, password)
		if err == nil && user == nil {
			err = errors.New("registration returned no user")
		}
		return user, err
	})
}

// Logout always ends the local session; a remote failure is still reported.
func (m *Manager) Logout(ctx context.Context) Result {
	var remoteErr error
	res := m.run(ctx, "logout", func(ctx context.Context) (*models.User, error) {
		remoteErr = m.auth.Logout(ctx)
		return nil, nil
	})
	if remoteErr != nil {
		m.log.Printf("[session][logout][warn] remote logout failed: %v", remoteErr)
		return Result{Err: fmt.Errorf("logout: %w", remoteErr)}
	}
	return res
}

func (m *Manager) run(ctx context.Context, op string, fn func(context.Context) (*models.User, error)) (res Result) {
	if !m.op.TryLock() {
		return Result{Err: ErrBusy}
	}
	defer m.op.Unlock()

	m.mu.Lock()
	prev := m.user
	m.loading = true
	m.mu.Unlock()

	var (
		user *models.User
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: %v", op, r)
			}
		}()
		user, err = fn(ctx)
	}()

	// a failed login or register leaves the current session as it was
	next := user
	if err != nil {
		next = prev
	}

	m.mu.Lock()
	m.user = next
	m.loading = false
	first := !m.restored
	m.restored = true
	m.mu.Unlock()

	if first || !sameUser(prev, next) {
		m.emit(Transition{User: next})
	}

	if err != nil {
		m.log.Printf("[session][%s][err] %v", op, err)
		return Result{Err: err}
	}
	m.log.Printf("[session][%s][ok] signed_in=%t", op, next != nil)
	return Result{Success: true, User: next}
}

func sameUser(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func (m *Manager) emit(t Transition) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}
