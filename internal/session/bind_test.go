package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLifecycle struct {
	starts   []string
	stops    int
	startErr error
}

func (f *fakeLifecycle) Start(_ context.Context, userID string) error {
	f.starts = append(f.starts, userID)
	return f.startErr
}

func (f *fakeLifecycle) Stop() { f.stops++ }

func TestBind_FollowsSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeAuth())
	lc := &fakeLifecycle{}
	unbind := Bind(ctx, m, lc)

	m.Restore(ctx)
	assert.Empty(t, lc.starts)
	assert.Equal(t, 1, lc.stops)

	require.True(t, m.Login(ctx, "alice@example.com", "secret1").Success)
	require.True(t, m.Login(ctx, "alice@example.com", "secret1").Success)
	assert.Equal(t, []string{"u-alice"}, lc.starts)

	require.True(t, m.Logout(ctx).Success)
	assert.Equal(t, 2, lc.stops)

	unbind()
	assert.Equal(t, 3, lc.stops)
	require.True(t, m.Login(ctx, "bob@example.com", "secret1").Success)
	assert.Equal(t, []string{"u-alice"}, lc.starts)
}

func TestBind_CatchesUpWithResolvedSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeAuth())
	require.True(t, m.Login(ctx, "bob@example.com", "secret1").Success)

	lc := &fakeLifecycle{startErr: errors.New("feed refused")}
	unbind := Bind(ctx, m, lc)
	defer unbind()
	assert.Equal(t, []string{"u-bob"}, lc.starts)
}
