// Package ws is the client side of the chat and notification sockets.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait        = 10 * time.Second
	pingInterval     = 30 * time.Second
	defaultReadLimit = 1 << 20
)

var ErrNotOpen = errors.New("websocket is not open")

// Conn is an established socket. Open reports the ready state: it turns
// false after Close or after any read or write failure.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, v any) error
	Close() error
	Open() bool
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with nhooyr.io/websocket.
type WebsocketDialer struct {
	readLimit int64
}

func NewDialer(readLimit int64) *WebsocketDialer {
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	return &WebsocketDialer{readLimit: readLimit}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing websocket: %w", err)
	}
	c.SetReadLimit(d.readLimit)

	conn := &client{conn: c, done: make(chan struct{})}
	conn.open.Store(true)
	go conn.keepalive()
	return conn, nil
}

type client struct {
	conn *websocket.Conn
	open atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

func (c *client) Open() bool {
	return c.open.Load()
}

func (c *client) Read(ctx context.Context) ([]byte, error) {
	if !c.open.Load() {
		return nil, ErrNotOpen
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		c.open.Store(false)
		return nil, err
	}
	return data, nil
}

func (c *client) Write(ctx context.Context, v any) error {
	if !c.open.Load() {
		return ErrNotOpen
	}
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := wsjson.Write(ctx, c.conn, v); err != nil {
		c.open.Store(false)
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func (c *client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)
		err = c.conn.Close(websocket.StatusNormalClosure, "")
	})
	return err
}

func (c *client) keepalive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.open.Store(false)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Pump reads frames until the connection fails or ctx ends, handing every
// parsed frame to handle. Malformed frames are logged and skipped. The
// returned error is the one that ended the loop.
func Pump(ctx context.Context, conn Conn, log zerolog.Logger, handle func(Frame)) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				log.Debug().Int("status", int(status)).Msg("socket closed by peer")
			} else if ctx.Err() == nil {
				log.Debug().Err(err).Msg("socket read failed")
			}
			return err
		}

		frame, err := ParseFrame(data)
		if err != nil {
			log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		handle(frame)
	}
}
