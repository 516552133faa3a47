package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vedran77/marketchat/internal/transport/ws"
)

const defaultPollInterval = 4000 * time.Millisecond

// Refresher re-runs the conversation list fetch. It must be safe to call
// redundantly.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// NotificationListener triggers a refresh on every new_message event of the
// user's notification socket and on a fixed interval, so the list stays
// current while the socket is down.
type NotificationListener struct {
	dialer   ws.Dialer
	session  Session
	target   Refresher
	apiBase  string
	interval time.Duration
	log      zerolog.Logger
}

func NewNotificationListener(
	dialer ws.Dialer,
	session Session,
	target Refresher,
	apiBase string,
	interval time.Duration,
	log zerolog.Logger,
) *NotificationListener {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &NotificationListener{
		dialer:   dialer,
		session:  session,
		target:   target,
		apiBase:  apiBase,
		interval: interval,
		log: log.With().
			Str("component", "notifications").
			Str("listener_id", uuid.NewString()).
			Logger(),
	}
}

// Run blocks until ctx is done. The socket is re-subscribed whenever the
// session token changes; a dropped socket is not redialed, polling covers it.
func (l *NotificationListener) Run(ctx context.Context) error {
	tokens := make(chan struct{}, 1)
	unsubscribe := l.session.Subscribe(func(string) {
		select {
		case tokens <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	triggers := make(chan struct{}, 1)
	cancel := l.subscribe(ctx, triggers)
	defer func() { cancel() }()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tokens:
			cancel()
			cancel = l.subscribe(ctx, triggers)
		case <-ticker.C:
			l.refresh(ctx, "poll")
		case <-triggers:
			l.refresh(ctx, "new_message")
		}
	}
}

func (l *NotificationListener) refresh(ctx context.Context, reason string) {
	if err := l.target.Refresh(ctx); err != nil && ctx.Err() == nil {
		l.log.Warn().Err(err).Str("reason", reason).Msg("refresh failed")
	}
}

// subscribe connects the notification socket in the background and returns
// a func that tears it down.
func (l *NotificationListener) subscribe(ctx context.Context, triggers chan<- struct{}) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	token := l.session.Token()
	if token == "" {
		return cancel
	}

	go func() {
		url, err := ws.BuildURL(l.apiBase, ws.NotificationsPath, token)
		if err != nil {
			l.log.Warn().Err(err).Msg("cannot build socket url")
			return
		}
		conn, err := l.dialer.Dial(ctx, url)
		if err != nil {
			if ctx.Err() == nil {
				l.log.Warn().Err(err).Msg("notification socket connect failed")
			}
			return
		}
		defer conn.Close()

		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()

		l.log.Info().Msg("notification socket connected")
		ws.Pump(ctx, conn, l.log, func(f ws.Frame) {
			if f.Kind != ws.KindNewMessage {
				return
			}
			select {
			case triggers <- struct{}{}:
			default:
			}
		})
		l.log.Info().Msg("notification socket disconnected")
	}()
	return cancel
}
