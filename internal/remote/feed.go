package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"siraqemir/internal/models"
	"siraqemir/internal/realtime"
	"siraqemir/internal/tasksync"
)

var _ tasksync.Remote = (*Client)(nil)

const dialTimeout = 15 * time.Second

var errFeedClosed = errors.New("change feed closed by server")

// Subscribe opens the change feed at /realtime/tasks. The feed ends when
// ctx is cancelled, Close is called or the connection drops.
func (c *Client) Subscribe(ctx context.Context, _ string) (tasksync.Subscription, error) {
	conn, err := c.dialFeed(ctx)
	var hsErr *realtime.HandshakeError
	if errors.As(err, &hsErr) && hsErr.Status == http.StatusUnauthorized {
		if rerr := c.refreshIfStale(ctx, c.accessToken()); rerr == nil {
			conn, err = c.dialFeed(ctx)
		}
	}
	if err != nil {
		return nil, err
	}

	f := &feed{conn: conn, events: make(chan models.ChangeEvent), done: make(chan struct{})}
	f.stopCtx = context.AfterFunc(ctx, func() { _ = f.Close() })
	go f.read()
	return f, nil
}

func (c *Client) dialFeed(ctx context.Context) (*realtime.Conn, error) {
	token := c.accessToken()
	if token == "" {
		return nil, errNoSession
	}
	target, err := c.wsURL("/realtime/tasks")
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("apikey", c.apiKey)
	header.Set("Authorization", "Bearer "+token)
	// bounds the handshake only; the open feed lives until ctx ends
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return realtime.Dial(dialCtx, target, header)
}

type feed struct {
	conn    *realtime.Conn
	events  chan models.ChangeEvent
	done    chan struct{}
	stopCtx func() bool

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

func (f *feed) Events() <-chan models.ChangeEvent { return f.events }

func (f *feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *feed) Close() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.done)
		_ = f.conn.Close()
	})
	return nil
}

func (f *feed) read() {
	defer close(f.events)
	defer f.stopCtx()
	for {
		var ev models.ChangeEvent
		if err := f.conn.ReadJSON(&ev); err != nil {
			f.mu.Lock()
			if !f.closed {
				if errors.Is(err, io.EOF) {
					err = errFeedClosed
				}
				f.err = err
			}
			f.mu.Unlock()
			_ = f.conn.Close()
			return
		}
		select {
		case f.events <- ev:
		case <-f.done:
			return
		}
	}
}
