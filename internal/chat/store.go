package chat

import (
	"slices"
	"sort"

	"github.com/vedran77/marketchat/internal/domain"
)

// Store is the ordered, deduplicated message list of one conversation.
// Messages are kept ascending by creation time; equal times keep insertion
// order. The first representation of a message wins.
//
// Store is not safe for concurrent use; its owner serializes access.
type Store struct {
	product  domain.ID
	messages []domain.Message
	keys     map[string]struct{}
}

func NewStore() *Store {
	return &Store{keys: make(map[string]struct{})}
}

// NewConversationStore returns a store for a conversation about product.
// Id-less messages without a product are keyed as if they carried it.
func NewConversationStore(product domain.ID) *Store {
	return &Store{product: product, keys: make(map[string]struct{})}
}

// MergeInsert adds m unless a message with the same identity key is already
// present. It reports whether the store changed.
func (s *Store) MergeInsert(m *domain.Message) bool {
	key, ok := ConversationIdentityKey(m, s.product)
	if !ok {
		return false
	}
	if _, seen := s.keys[key]; seen {
		return false
	}
	s.keys[key] = struct{}{}

	at := m.CreatedAt.Instant()
	idx := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].CreatedAt.Instant().After(at)
	})
	s.messages = slices.Insert(s.messages, idx, *m)
	return true
}

// MergeInsertBatch merges many messages with a single ordering pass. Nil
// entries and repeated keys inside the batch are skipped. It returns the
// number of messages added.
func (s *Store) MergeInsertBatch(ms []*domain.Message) int {
	added := 0
	for _, m := range ms {
		key, ok := ConversationIdentityKey(m, s.product)
		if !ok {
			continue
		}
		if _, seen := s.keys[key]; seen {
			continue
		}
		s.keys[key] = struct{}{}
		s.messages = append(s.messages, *m)
		added++
	}
	if added > 0 {
		slices.SortStableFunc(s.messages, compareCreated)
	}
	return added
}

// Messages returns the ordered list. The slice is a copy.
func (s *Store) Messages() []domain.Message {
	return slices.Clone(s.messages)
}

func (s *Store) Len() int {
	return len(s.messages)
}

func (s *Store) Contains(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func compareCreated(a, b domain.Message) int {
	return a.CreatedAt.Instant().Compare(b.CreatedAt.Instant())
}
