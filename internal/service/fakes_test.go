package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/marketchat/internal/auth"
	"github.com/vedran77/marketchat/internal/transport/ws"
)

const testAPIBase = "http://shop.test/api"

var errPeerClosed = errors.New("peer closed")

// fakeConn is an in-memory socket. Frames pushed with push are returned by
// Read; every successful Write is recorded on writes.
type fakeConn struct {
	mu       sync.Mutex
	open     bool
	writeErr error

	incoming  chan []byte
	writes    chan any
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		open:     true,
		incoming: make(chan []byte, 16),
		writes:   make(chan any, 16),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.incoming:
		return data, nil
	case <-c.closed:
		return nil, errPeerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ws.ErrNotOpen
	}
	if c.writeErr != nil {
		c.open = false
		return c.writeErr
	}
	c.writes <- v
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.open = false
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) push(frame string) {
	c.incoming <- []byte(frame)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) nextWrite(t *testing.T) any {
	t.Helper()
	select {
	case v := <-c.writes:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
		return nil
	}
}

type fakeDialer struct {
	mu   sync.Mutex
	urls []string
	err  error

	conns chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(_ context.Context, url string) (ws.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns <- c
	return c, nil
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no socket dialed")
		return nil
	}
}

func signToken(t *testing.T, userID int, username string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func newTestSession(t *testing.T) *auth.Session {
	t.Helper()
	s := auth.NewSession()
	require.NoError(t, s.SetToken(signToken(t, 5, "ana")))
	return s
}
