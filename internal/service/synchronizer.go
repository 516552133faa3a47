package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vedran77/marketchat/internal/chat"
	"github.com/vedran77/marketchat/internal/domain"
	"github.com/vedran77/marketchat/internal/format"
	"github.com/vedran77/marketchat/internal/repository"
	"github.com/vedran77/marketchat/internal/transport/ws"
	"github.com/vedran77/marketchat/pkg/validator"
)

var (
	ErrClosed       = errors.New("conversation is closed")
	ErrNotOpen      = errors.New("conversation is not open")
	ErrSuperseded   = errors.New("conversation was reopened")
	ErrNoPartner    = errors.New("conversation has no partner")
	ErrNoProduct    = errors.New("conversation has no product")
	ErrEmptyMessage = errors.New("message is empty")
)

const (
	defaultTypingClear    = 2000 * time.Millisecond
	defaultTypingDebounce = 1200 * time.Millisecond
)

// Session supplies the bearer token and the signed-in user.
type Session interface {
	Token() string
	User() domain.User
	Subscribe(fn func(token string)) func()
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type SyncOptions struct {
	APIBase string
	// TypingClear hides the partner's typing indicator when no follow-up arrives.
	TypingClear time.Duration
	// TypingDebounce is the compose pause after which {typing:false} is sent.
	TypingDebounce time.Duration
}

// Snapshot is a consistent copy of what a conversation view renders.
type Snapshot struct {
	State         State
	PartnerID     domain.ID
	ProductID     domain.ID
	Messages      []domain.Message
	PartnerTyping bool
	PartnerOnline bool
	Product       *domain.Product
}

// Synchronizer keeps one conversation's message list in sync from the REST
// history and the conversation socket. Once closed it ignores every late
// callback.
type Synchronizer struct {
	messages repository.MessageRepository
	products repository.ProductRepository
	dialer   ws.Dialer
	session  Session
	opts     SyncOptions
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	epoch       uint64
	liveEpoch   uint64
	partnerID   domain.ID
	productID   domain.ID
	store       *chat.Store
	product     *domain.Product
	conn        ws.Conn
	cancelRead  context.CancelFunc
	unsubscribe func()

	partnerTyping bool
	partnerOnline bool
	typingTimer   *time.Timer
	typingGen     uint64

	draft         string
	debounceTimer *time.Timer
	debounceGen   uint64

	changes chan struct{}
}

func NewSynchronizer(
	messages repository.MessageRepository,
	products repository.ProductRepository,
	dialer ws.Dialer,
	session Session,
	opts SyncOptions,
	log zerolog.Logger,
) *Synchronizer {
	if opts.TypingClear <= 0 {
		opts.TypingClear = defaultTypingClear
	}
	if opts.TypingDebounce <= 0 {
		opts.TypingDebounce = defaultTypingDebounce
	}

	return &Synchronizer{
		messages: messages,
		products: products,
		dialer:   dialer,
		session:  session,
		opts:     opts,
		log: log.With().
			Str("component", "synchronizer").
			Str("conversation_id", uuid.NewString()).
			Logger(),
		store:   chat.NewStore(),
		changes: make(chan struct{}, 1),
	}
}

// Open loads the history of the conversation with partnerID (optionally
// scoped to productID) and subscribes to its socket. Opening again tears
// down the previous conversation first. A failed history fetch leaves the
// synchronizer idle with an empty store and is returned so the caller can
// retry.
func (s *Synchronizer) Open(ctx context.Context, partnerID, productID domain.ID) error {
	if partnerID.IsZero() {
		return ErrNoPartner
	}
	if errs := validator.ValidateConversation(partnerID.String(), productID.String()); errs.HasErrors() {
		return errs
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	old := s.detachLocked()
	s.epoch++
	epoch := s.epoch
	s.state = StateLoading
	s.partnerID = partnerID
	s.productID = productID
	s.store = chat.NewConversationStore(productID)
	s.product = nil
	if s.unsubscribe == nil {
		s.unsubscribe = s.session.Subscribe(s.tokenChanged)
	}
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.notify()

	log := s.log.With().Str("partner_id", partnerID.String()).Str("product_id", productID.String()).Logger()
	log.Info().Msg("opening conversation")

	history, err := s.messages.List(ctx, repository.MessageFilter{
		PartnerID: partnerID.String(),
		ProductID: productID.String(),
	})

	s.mu.Lock()
	if cerr := s.currentLocked(epoch); cerr != nil {
		s.mu.Unlock()
		return cerr
	}
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		s.notify()
		log.Error().Err(err).Msg("failed to load conversation")
		return fmt.Errorf("fetching messages: %w", err)
	}
	added := s.store.MergeInsertBatch(history)
	s.state = StateLive
	s.liveEpoch = epoch
	s.mu.Unlock()

	log.Info().Int("messages", added).Msg("conversation live")
	s.notify()

	if !productID.IsZero() {
		s.loadProduct(ctx, epoch, productID)
	}
	s.connect(ctx, epoch)
	return nil
}

// Refresh reloads the history and merges it into the current store.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StateLive:
	default:
		s.mu.Unlock()
		return ErrNotOpen
	}
	s.state = StateLoading
	epoch := s.epoch
	filter := repository.MessageFilter{PartnerID: s.partnerID.String(), ProductID: s.productID.String()}
	s.mu.Unlock()
	s.notify()

	history, err := s.messages.List(ctx, filter)

	s.mu.Lock()
	if cerr := s.currentLocked(epoch); cerr != nil {
		s.mu.Unlock()
		return cerr
	}
	s.state = StateLive
	if err != nil {
		s.mu.Unlock()
		s.notify()
		s.log.Warn().Err(err).Msg("refresh failed")
		return fmt.Errorf("fetching messages: %w", err)
	}
	s.store.MergeInsertBatch(history)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Send delivers text over the socket when it is open and over REST
// otherwise. A socket send is fire-and-forget: the message shows up when the
// server echoes it. A REST send merges the returned message directly; when
// it fails the history is reloaded and the error returned. The draft is
// cleared either way.
func (s *Synchronizer) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if errs := validator.ValidateMessage(text); errs.HasErrors() {
		return errs
	}
	return s.dispatch(ctx, text)
}

// SendProductShare sends a product-share message for the conversation's
// product.
func (s *Synchronizer) SendProductShare(ctx context.Context) error {
	s.mu.Lock()
	productID, product := s.productID, s.product
	s.mu.Unlock()

	if productID.IsZero() {
		return ErrNoProduct
	}
	return s.dispatch(ctx, domain.ProductShareContent(format.ProductShareSummary(product)))
}

func (s *Synchronizer) dispatch(ctx context.Context, content string) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StateIdle:
		s.mu.Unlock()
		return ErrNotOpen
	}
	epoch := s.epoch
	conn := s.conn
	input := repository.SendMessageInput{RecipientID: s.partnerID, ProductID: s.productID, Content: content}
	s.draft = ""
	s.mu.Unlock()

	if conn != nil && conn.Open() {
		err := conn.Write(ctx, ws.ContentFrame{Content: content})
		if err == nil {
			return nil
		}
		s.log.Warn().Err(err).Msg("socket send failed, falling back to rest")
		s.dropConn(conn)
	}

	msg, err := s.messages.Create(ctx, input)
	if err != nil {
		s.log.Warn().Err(err).Msg("rest send failed, reloading history")
		if rerr := s.Refresh(ctx); rerr != nil {
			s.log.Debug().Err(rerr).Msg("reload after failed send")
		}
		return fmt.Errorf("sending message: %w", err)
	}

	s.mu.Lock()
	if s.currentLocked(epoch) != nil {
		s.mu.Unlock()
		return nil
	}
	added := s.store.MergeInsert(msg)
	s.mu.Unlock()

	if added {
		s.notify()
	}
	return nil
}

// UpdateDraft records the compose text and tells the partner we are typing.
// After the debounce period without another update {typing:false} follows.
func (s *Synchronizer) UpdateDraft(text string) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.draft = text
	conn := s.conn
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceGen++
	gen := s.debounceGen
	s.debounceTimer = time.AfterFunc(s.opts.TypingDebounce, func() { s.stopTyping(gen) })
	s.mu.Unlock()

	s.sendTyping(conn, text != "")
}

func (s *Synchronizer) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Synchronizer) stopTyping(gen uint64) {
	s.mu.Lock()
	if s.state == StateClosed || gen != s.debounceGen {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.mu.Unlock()

	s.sendTyping(conn, false)
}

func (s *Synchronizer) sendTyping(conn ws.Conn, typing bool) {
	if conn == nil || !conn.Open() {
		return
	}
	if err := conn.Write(context.Background(), ws.TypingFrame{Typing: typing}); err != nil {
		s.log.Debug().Err(err).Msg("typing frame not sent")
	}
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		PartnerID:     s.partnerID,
		ProductID:     s.productID,
		Messages:      s.store.Messages(),
		PartnerTyping: s.partnerTyping,
		PartnerOnline: s.partnerOnline,
	}
	if s.product != nil {
		p := *s.product
		snap.Product = &p
	}
	return snap
}

// Changes signals that the snapshot may have changed. Signals coalesce; read
// Snapshot after each one.
func (s *Synchronizer) Changes() <-chan struct{} {
	return s.changes
}

// Close closes the socket and makes the synchronizer inert. Pending timers
// and in-flight fetches are discarded.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.epoch++
	conn := s.detachLocked()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if conn != nil {
		conn.Close()
	}
	s.log.Info().Msg("conversation closed")
	s.notify()
	return nil
}

func (s *Synchronizer) loadProduct(ctx context.Context, epoch uint64, id domain.ID) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("product_id", id.String()).Msg("failed to load product")
		return
	}

	s.mu.Lock()
	if s.currentLocked(epoch) != nil {
		s.mu.Unlock()
		return
	}
	s.product = p
	s.mu.Unlock()
	s.notify()
}

// connect dials the conversation socket. Failures are logged only: without
// a socket, sends go over REST.
func (s *Synchronizer) connect(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	partnerID, productID := s.partnerID, s.productID
	s.mu.Unlock()

	url, err := ws.BuildURL(s.opts.APIBase, ws.ChatPath(partnerID, productID), s.session.Token())
	if err != nil {
		s.log.Warn().Err(err).Msg("cannot build socket url")
		return
	}
	conn, err := s.dialer.Dial(ctx, url)
	if err != nil {
		s.log.Warn().Err(err).Msg("socket connect failed")
		return
	}

	s.mu.Lock()
	if s.currentLocked(epoch) != nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	old := s.detachLocked()
	readCtx, cancel := context.WithCancel(context.Background())
	s.conn = conn
	s.cancelRead = cancel
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.log.Info().Msg("socket connected")
	go s.readLoop(readCtx, conn)
}

func (s *Synchronizer) readLoop(ctx context.Context, conn ws.Conn) {
	ws.Pump(ctx, conn, s.log, func(f ws.Frame) { s.handleFrame(conn, f) })
	s.dropConn(conn)
}

func (s *Synchronizer) handleFrame(conn ws.Conn, f ws.Frame) {
	s.mu.Lock()
	if s.state == StateClosed || s.conn != conn {
		s.mu.Unlock()
		return
	}

	changed := false
	switch f.Kind {
	case ws.KindTyping:
		if f.UserID != s.partnerID {
			break
		}
		s.partnerTyping = f.Typing
		s.typingGen++
		if s.typingTimer != nil {
			s.typingTimer.Stop()
		}
		if f.Typing {
			gen := s.typingGen
			s.typingTimer = time.AfterFunc(s.opts.TypingClear, func() { s.clearTyping(gen) })
		}
		changed = true
	case ws.KindPresence:
		if f.UserID != s.partnerID {
			break
		}
		s.partnerOnline = f.Online
		changed = true
	case ws.KindMessage:
		changed = s.store.MergeInsert(f.Message)
		if !changed {
			s.log.Debug().Msg("duplicate message ignored")
		}
	default:
		s.log.Debug().Str("kind", string(f.Kind)).Msg("ignoring frame")
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Synchronizer) clearTyping(gen uint64) {
	s.mu.Lock()
	if s.state == StateClosed || gen != s.typingGen {
		s.mu.Unlock()
		return
	}
	s.partnerTyping = false
	s.mu.Unlock()
	s.notify()
}

// tokenChanged re-subscribes the socket with the new token once the
// conversation has gone live, including while a refresh is in flight.
func (s *Synchronizer) tokenChanged(token string) {
	s.mu.Lock()
	if !s.subscribedLocked() {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	old := s.detachLocked()
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.notify()
	if token == "" {
		s.log.Info().Msg("signed out, socket closed")
		return
	}
	go s.connect(context.Background(), epoch)
}

// subscribedLocked reports whether the current conversation has reached
// the live state, so it owns (or should own) a socket.
func (s *Synchronizer) subscribedLocked() bool {
	switch s.state {
	case StateLive:
		return true
	case StateLoading:
		return s.liveEpoch == s.epoch
	default:
		return false
	}
}

// dropConn forgets conn if it is still the current socket.
func (s *Synchronizer) dropConn(conn ws.Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.detachLocked()
	s.mu.Unlock()

	conn.Close()
	s.log.Info().Msg("socket disconnected")
	s.notify()
}

// detachLocked forgets the current socket and its ephemeral state and
// returns it for the caller to close outside the lock.
func (s *Synchronizer) detachLocked() ws.Conn {
	conn := s.conn
	s.conn = nil
	if s.cancelRead != nil {
		s.cancelRead()
		s.cancelRead = nil
	}
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingGen++
	s.partnerTyping = false
	s.partnerOnline = false
	return conn
}

// currentLocked reports whether work started in epoch may still apply.
func (s *Synchronizer) currentLocked(epoch uint64) error {
	if s.state == StateClosed {
		return ErrClosed
	}
	if s.epoch != epoch {
		return ErrSuperseded
	}
	return nil
}

func (s *Synchronizer) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
