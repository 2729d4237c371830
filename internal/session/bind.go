package session

import (
	"context"
	"log"
)

// Lifecycle is the part of tasksync.Syncer the session drives.
type Lifecycle interface {
	Start(ctx context.Context, userID string) error
	Stop()
}

// Bind starts the syncer for each signed-in user and stops it on sign-out.
// ctx bounds the initial fetch and the feed dial of every Start. The
// returned func detaches the syncer and stops it.
func Bind(ctx context.Context, m *Manager, sync Lifecycle) (unbind func()) {
	apply := func(t Transition) {
		if t.Loading {
			return
		}
		if t.User == nil {
			sync.Stop()
			return
		}
		if err := sync.Start(ctx, t.User.ID); err != nil {
			log.Printf("[session][bind][err] start sync for user=%s: %v", t.User.ID, err)
		}
	}
	unsubscribe := m.Subscribe(apply)

	// catch up if the session was already resolved
	if st := m.State(); !st.Loading && st.User != nil {
		apply(st)
	}
	return func() {
		unsubscribe()
		sync.Stop()
	}
}
