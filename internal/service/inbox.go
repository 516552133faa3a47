package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/marketchat/internal/chat"
	"github.com/vedran77/marketchat/internal/domain"
	"github.com/vedran77/marketchat/internal/repository"
)

const prefetchConcurrency = 4

type InboxOptions struct {
	PrefetchProducts bool
}

// Inbox is the conversation list: one summary per (partner, product) pair
// built from the user's unscoped message history.
type Inbox struct {
	messages repository.MessageRepository
	products repository.ProductRepository
	session  Session
	opts     InboxOptions
	log      zerolog.Logger

	mu        sync.RWMutex
	seq       uint64
	applied   uint64
	summaries []domain.ConversationSummary
	catalog   map[domain.ID]*domain.Product

	changes chan struct{}
}

func NewInbox(
	messages repository.MessageRepository,
	products repository.ProductRepository,
	session Session,
	opts InboxOptions,
	log zerolog.Logger,
) *Inbox {
	return &Inbox{
		messages: messages,
		products: products,
		session:  session,
		opts:     opts,
		log:      log.With().Str("component", "inbox").Logger(),
		catalog:  make(map[domain.ID]*domain.Product),
		changes:  make(chan struct{}, 1),
	}
}

// Refresh re-fetches the history and rebuilds the summaries. Calls may
// overlap; a response older than the one already applied is dropped.
func (in *Inbox) Refresh(ctx context.Context) error {
	in.mu.Lock()
	in.seq++
	seq := in.seq
	in.mu.Unlock()

	history, err := in.messages.List(ctx, repository.MessageFilter{})
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}
	summaries := chat.Aggregate(history, in.session.User())

	in.mu.Lock()
	if seq < in.applied {
		in.mu.Unlock()
		in.log.Debug().Uint64("seq", seq).Msg("dropping stale inbox refresh")
		return nil
	}
	in.applied = seq
	in.summaries = summaries
	in.mu.Unlock()

	in.log.Debug().Int("conversations", len(summaries)).Msg("inbox refreshed")
	in.notify()

	if in.opts.PrefetchProducts {
		in.prefetch(ctx, summaries)
	}
	return nil
}

// prefetch loads the products referenced by summaries that are not cached
// yet. Failures are ignored; the row simply renders without product details.
func (in *Inbox) prefetch(ctx context.Context, summaries []domain.ConversationSummary) {
	var missing []domain.ID
	in.mu.RLock()
	for _, s := range summaries {
		id := s.Latest.Product.ID
		if id.IsZero() || slices.Contains(missing, id) {
			continue
		}
		if _, ok := in.catalog[id]; !ok {
			missing = append(missing, id)
		}
	}
	in.mu.RUnlock()

	if len(missing) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, id := range missing {
		id := id
		g.Go(func() error {
			p, err := in.products.GetByID(gctx, id)
			if err != nil {
				in.log.Debug().Err(err).Str("product_id", id.String()).Msg("product prefetch failed")
				return nil
			}
			in.mu.Lock()
			in.catalog[id] = p
			in.mu.Unlock()
			return nil
		})
	}
	g.Wait()
	in.notify()
}

// Conversations returns the summaries, most recently active first.
func (in *Inbox) Conversations() []domain.ConversationSummary {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return slices.Clone(in.summaries)
}

func (in *Inbox) Product(id domain.ID) (*domain.Product, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	p, ok := in.catalog[id]
	return p, ok
}

func (in *Inbox) Changes() <-chan struct{} {
	return in.changes
}

func (in *Inbox) notify() {
	select {
	case in.changes <- struct{}{}:
	default:
	}
}
