package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/marketchat/internal/auth"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return nil
}

func runListener(t *testing.T, l *NotificationListener) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("listener did not stop")
		}
	})
}

func TestNotificationListener_NewMessageTriggersRefresh(t *testing.T) {
	t.Parallel()

	dialer := newFakeDialer()
	target := &countingRefresher{}
	session := newTestSession(t)
	runListener(t, NewNotificationListener(dialer, session, target, testAPIBase, time.Hour, zerolog.Nop()))

	conn := dialer.next(t)
	assert.Contains(t, dialer.dialed()[0], "ws://shop.test/ws/notifications/?token=")

	conn.push(`{"event": "typing", "user_id": 9, "typing": true}`)
	conn.push(`{"event": "new_message"}`)
	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, waitFor, tick)
}

func TestNotificationListener_PollsWithoutSocket(t *testing.T) {
	t.Parallel()

	dialer := newFakeDialer()
	dialer.err = errors.New("offline")
	target := &countingRefresher{}
	runListener(t, NewNotificationListener(dialer, newTestSession(t), target, testAPIBase, 20*time.Millisecond, zerolog.Nop()))

	assert.Eventually(t, func() bool { return target.calls.Load() >= 2 }, waitFor, tick)
}

func TestNotificationListener_TokenChangeResubscribes(t *testing.T) {
	t.Parallel()

	dialer := newFakeDialer()
	session := newTestSession(t)
	runListener(t, NewNotificationListener(dialer, session, &countingRefresher{}, testAPIBase, time.Hour, zerolog.Nop()))

	first := dialer.next(t)

	token := signToken(t, 5, "ana-renewed")
	require.NoError(t, session.SetToken(token))

	dialer.next(t)
	assert.Eventually(t, first.isClosed, waitFor, tick)
	assert.Contains(t, dialer.dialed()[1], "token="+token)
}

func TestNotificationListener_SignedOutSkipsSocket(t *testing.T) {
	t.Parallel()

	dialer := newFakeDialer()
	target := &countingRefresher{}
	runListener(t, NewNotificationListener(dialer, auth.NewSession(), target, testAPIBase, 20*time.Millisecond, zerolog.Nop()))

	assert.Eventually(t, func() bool { return target.calls.Load() >= 1 }, waitFor, tick)
	assert.Empty(t, dialer.dialed())
}
