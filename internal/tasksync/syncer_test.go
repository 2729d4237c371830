package tasksync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siraqemir/internal/models"
)

const userA = "user-a"

func newTestSyncer(t *testing.T, r *fakeRemote, opts ...Option) (*Syncer, *captureLogger) {
	t.Helper()
	logger := &captureLogger{}
	s := NewSyncer(r, append([]Option{WithLogger(logger)}, opts...)...)
	t.Cleanup(s.Stop)
	return s, logger
}

func startSession(t *testing.T, s *Syncer, r *fakeRemote) *fakeSub {
	t.Helper()
	require.NoError(t, s.Start(context.Background(), userA))
	sub := r.lastSub()
	require.NotNil(t, sub)
	return sub
}

func waitForIDs(t *testing.T, s *Syncer, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, ids(s.Tasks()))
	}, time.Second, 5*time.Millisecond, "want %v, have %v", want, ids(s.Tasks()))
}

func TestSyncer_StartLoadsAndSubscribesOnce(t *testing.T) {
	r := newFakeRemote()
	r.list = []models.Task{task("b", "newer"), task("a", "older")}
	s, _ := newTestSyncer(t, r)

	startSession(t, s, r)
	assert.Equal(t, []string{"b", "a"}, ids(s.Tasks()))
	assert.Equal(t, userA, s.UserID())

	require.NoError(t, s.Start(context.Background(), userA))
	assert.Equal(t, 1, r.count("list"))
	assert.Equal(t, 1, r.count("subscribe"))
}

func TestSyncer_StartWithoutUserIsNoop(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)

	require.NoError(t, s.Start(context.Background(), ""))
	assert.Zero(t, r.totalCalls())
	assert.Empty(t, s.UserID())
}

func TestSyncer_EmptyInitialFetch(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)

	startSession(t, s, r)
	assert.NotNil(t, s.Tasks())
	assert.Empty(t, s.Tasks())
}

func TestSyncer_FailedFetchKeepsList(t *testing.T) {
	r := newFakeRemote()
	r.list = []models.Task{task("a", "kept")}
	s, logger := newTestSyncer(t, r)
	sub := startSession(t, s, r)

	// the feed drops, then a restart cannot reach the service
	require.NoError(t, sub.Close())
	require.Eventually(t, func() bool { return r.count("subscribe") == 1 && !s.Live() }, time.Second, 5*time.Millisecond)
	r.mu.Lock()
	r.listErr = errBoom
	r.mu.Unlock()

	require.NoError(t, s.Start(context.Background(), userA))
	assert.Equal(t, []string{"a"}, ids(s.Tasks()))
	assert.True(t, logger.contains("initial fetch failed"))
	assert.Equal(t, 2, r.count("subscribe"))
}

func TestSyncer_SubscribeFailure(t *testing.T) {
	r := newFakeRemote()
	r.subscribeErr = errBoom
	s, logger := newTestSyncer(t, r)

	err := s.Start(context.Background(), userA)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, logger.contains("[tasksync][subscribe][err]"))
	assert.Equal(t, userA, s.UserID())
}

func TestSyncer_CreateRequiresSession(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)

	res := s.Create(context.Background(), models.TaskInput{Title: "x"})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNotAuthenticated)
	assert.Equal(t, "not authenticated", res.Message())

	assert.ErrorIs(t, s.Update(context.Background(), "a", models.TaskInput{Title: "x"}).Err, ErrNotAuthenticated)
	assert.ErrorIs(t, s.Delete(context.Background(), "a").Err, ErrNotAuthenticated)
	assert.Zero(t, r.totalCalls())
}

func TestSyncer_CreateRejectsBlankTitleWithoutRemoteCall(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)
	startSession(t, s, r)

	res := s.Create(context.Background(), models.TaskInput{Title: "  "})
	assert.False(t, res.Success)
	assert.True(t, res.IsValidation())
	assert.Zero(t, r.count("insert"))
}

func TestSyncer_CreateNormalizes(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)
	startSession(t, s, r)

	res := s.Create(context.Background(), models.TaskInput{
		Title:       "  Buy milk  ",
		Description: "  2L ",
		DueDate:     "2025-05-12",
		Priority:    "urgent",
		Status:      "completed",
	})
	require.True(t, res.Success, res.Message())
	assert.Equal(t, "task-1", res.Task.ID)

	r.mu.Lock()
	sent := r.last
	r.mu.Unlock()
	assert.Equal(t, "Buy milk", sent.Title)
	assert.Equal(t, "2L", sent.Description)
	assert.Equal(t, models.PriorityLow, sent.Priority)
	assert.Equal(t, models.StatusPending, sent.Status)
	assert.Equal(t, userA, sent.UserID)
	require.NotNil(t, sent.DueDate)
	assert.Equal(t, "2025-05-12", sent.DueDate.String())
}

func TestSyncer_UpdateCoercesStatusAndStampsTime(t *testing.T) {
	r := newFakeRemote()
	stamp := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	s, _ := newTestSyncer(t, r, WithClock(func() time.Time { return stamp }))
	startSession(t, s, r)

	res := s.Update(context.Background(), "a", models.TaskInput{Title: "x", Status: "archived", Priority: "medium"})
	require.True(t, res.Success, res.Message())

	r.mu.Lock()
	sent := r.last
	r.mu.Unlock()
	assert.Equal(t, "a", sent.ID)
	assert.Equal(t, models.StatusPending, sent.Status)
	assert.Equal(t, models.PriorityMedium, sent.Priority)
	assert.Equal(t, stamp, sent.UpdatedAt)
}

func TestSyncer_MutationsDoNotTouchList(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)
	sub := startSession(t, s, r)

	res := s.Create(context.Background(), models.TaskInput{Title: "Buy milk"})
	require.True(t, res.Success)
	assert.Empty(t, s.Tasks(), "list changes only through the feed")

	require.True(t, sub.emit(models.ChangeEvent{Type: models.ChangeInsert, Record: res.Task}))
	waitForIDs(t, s, res.Task.ID)
	assert.Equal(t, "Buy milk", s.Tasks()[0].Title)
}

func TestSyncer_RemoteErrorsBecomeResults(t *testing.T) {
	r := newFakeRemote()
	r.mutateErr = errors.New("permission denied for table tasks")
	s, _ := newTestSyncer(t, r)
	startSession(t, s, r)

	res := s.Create(context.Background(), models.TaskInput{Title: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message(), "permission denied")

	res = s.Delete(context.Background(), "gone")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message(), "delete task")
}

func TestSyncer_Timeout(t *testing.T) {
	r := newFakeRemote()
	r.block = make(chan struct{})
	s, _ := newTestSyncer(t, r, WithTimeout(20*time.Millisecond))
	startSession(t, s, r)

	res := s.Create(context.Background(), models.TaskInput{Title: "slow"})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Contains(t, res.Message(), "timed out")
}

func TestSyncer_DeleteEventsTwice(t *testing.T) {
	r := newFakeRemote()
	r.list = []models.Task{task("b", "b"), task("a", "a")}
	s, logger := newTestSyncer(t, r)
	sub := startSession(t, s, r)

	del := models.ChangeEvent{Type: models.ChangeDelete, OldRecord: &models.Task{ID: "a"}}
	sub.emit(del)
	sub.emit(del)
	marker := task("m", "marker")
	sub.emit(models.ChangeEvent{Type: models.ChangeInsert, Record: &marker})

	waitForIDs(t, s, "m", "b")
	assert.False(t, logger.contains("[tasksync][event][err]"))
}

func TestSyncer_InsertGoesToHead(t *testing.T) {
	r := newFakeRemote()
	newer, older := task("b", "newer"), task("a", "older")
	newer.CreatedAt = time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	older.CreatedAt = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	r.list = []models.Task{newer, older}
	s, _ := newTestSyncer(t, r)
	sub := startSession(t, s, r)

	backdated := task("c", "backdated")
	backdated.CreatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	sub.emit(models.ChangeEvent{Type: models.ChangeInsert, Record: &backdated})

	waitForIDs(t, s, "c", "b", "a")
}

func TestSyncer_BadEventDoesNotStopFeed(t *testing.T) {
	r := newFakeRemote()
	s, logger := newTestSyncer(t, r)
	sub := startSession(t, s, r)

	sub.emit(models.ChangeEvent{Type: "TRUNCATE"})
	sub.emit(models.ChangeEvent{Type: models.ChangeUpdate})
	good := task("a", "fine")
	sub.emit(models.ChangeEvent{Type: models.ChangeInsert, Record: &good})

	waitForIDs(t, s, "a")
	assert.True(t, logger.contains("[tasksync][event][err]"))
}

func TestSyncer_StopClosesSubscriptionOnce(t *testing.T) {
	r := newFakeRemote()
	r.list = []models.Task{task("a", "a")}
	s, _ := newTestSyncer(t, r)
	sub := startSession(t, s, r)

	s.Stop()
	assert.Empty(t, s.Tasks())
	assert.Empty(t, s.UserID())
	assert.Equal(t, 1, sub.closeCount())

	s.Stop()
	assert.Equal(t, 1, sub.closeCount())

	late := task("late", "late")
	assert.False(t, sub.emit(models.ChangeEvent{Type: models.ChangeInsert, Record: &late}))
	assert.Empty(t, s.Tasks())

	res := s.Create(context.Background(), models.TaskInput{Title: "after logout"})
	assert.ErrorIs(t, res.Err, ErrNotAuthenticated)
}

func TestSyncer_StopDuringStartReturns(t *testing.T) {
	r := newFakeRemote()
	r.list = []models.Task{task("a", "a")}
	r.listGate = make(chan struct{})
	r.listing = make(chan struct{}, 1)
	s, _ := newTestSyncer(t, r)

	started := make(chan error, 1)
	go func() { started <- s.Start(context.Background(), userA) }()

	<-r.listing
	s.Stop()
	close(r.listGate)

	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after a concurrent Stop")
	}
	sub := r.lastSub()
	require.NotNil(t, sub)
	assert.Equal(t, 1, sub.closeCount())
	assert.Empty(t, s.Tasks())
	assert.False(t, s.Live())
}

func TestSyncer_SwitchingUsersResets(t *testing.T) {
	r := newFakeRemote()
	r.list = []models.Task{task("a", "a")}
	s, _ := newTestSyncer(t, r)
	first := startSession(t, s, r)

	r.mu.Lock()
	r.list = nil
	r.mu.Unlock()
	require.NoError(t, s.Start(context.Background(), "user-b"))

	assert.Equal(t, 1, first.closeCount())
	assert.Equal(t, "user-b", s.UserID())
	assert.Empty(t, s.Tasks())
	assert.Equal(t, 2, r.count("subscribe"))
}

func TestSyncer_UpdatesNotified(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)
	sub := startSession(t, s, r)

	// drain the notification from the initial load
	select {
	case <-s.Updates():
	default:
	}

	rec := task("a", "a")
	sub.emit(models.ChangeEvent{Type: models.ChangeInsert, Record: &rec})
	select {
	case <-s.Updates():
	case <-time.After(time.Second):
		t.Fatal("no update notification")
	}
}

func TestSyncer_FeedDroppedWakesWatchers(t *testing.T) {
	r := newFakeRemote()
	s, logs := newTestSyncer(t, r)
	sub := startSession(t, s, r)
	select {
	case <-s.Updates():
	default:
	}

	sub.drop(errBoom)
	select {
	case <-s.Updates():
	case <-time.After(time.Second):
		t.Fatal("no notification when the feed ended")
	}
	assert.False(t, s.Live())
	assert.True(t, logs.contains("feed ended"))

	// the same user may start again once the feed is gone
	require.NoError(t, s.Start(context.Background(), s.UserID()))
	assert.Equal(t, 2, r.count("subscribe"))
	assert.True(t, s.Live())
}

func TestSyncer_EndToEnd(t *testing.T) {
	r := newFakeRemote()
	s, _ := newTestSyncer(t, r)
	sub := startSession(t, s, r)
	assert.Empty(t, s.Tasks())

	created := s.Create(context.Background(), models.TaskInput{Title: "Buy milk", Priority: "high"})
	require.True(t, created.Success, created.Message())
	sub.emit(models.ChangeEvent{Type: models.ChangeInsert, Record: created.Task})
	waitForIDs(t, s, created.Task.ID)

	got := s.Tasks()[0]
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, models.StatusPending, got.Status)

	toggled := s.ToggleStatus(context.Background(), got)
	require.True(t, toggled.Success, toggled.Message())
	assert.Equal(t, models.StatusPending, s.Tasks()[0].Status, "not applied before the event")

	sub.emit(models.ChangeEvent{Type: models.ChangeUpdate, Record: toggled.Task})
	require.Eventually(t, func() bool {
		tasks := s.Tasks()
		return len(tasks) == 1 && tasks[0].Status == models.StatusCompleted
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Buy milk", s.Tasks()[0].Title)
	assert.Equal(t, models.PriorityHigh, s.Tasks()[0].Priority)
}
