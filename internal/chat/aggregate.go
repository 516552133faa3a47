package chat

import (
	"slices"

	"github.com/vedran77/marketchat/internal/domain"
)

// Aggregate groups a flat message log into one summary per (partner, product)
// conversation, most recently active first. Within a group the latest message
// wins; on equal timestamps the one encountered last wins.
func Aggregate(messages []*domain.Message, me domain.User) []domain.ConversationSummary {
	index := make(map[domain.ConversationKey]int)
	var out []domain.ConversationSummary

	for _, m := range messages {
		if m == nil {
			continue
		}
		key := m.ConversationKey(me)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, summarize(*m, key, me))
			continue
		}
		if !m.CreatedAt.Instant().Before(out[i].Latest.CreatedAt.Instant()) {
			out[i] = summarize(*m, key, me)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.ConversationSummary) int {
		return b.Latest.CreatedAt.Instant().Compare(a.Latest.CreatedAt.Instant())
	})
	if out == nil {
		out = []domain.ConversationSummary{}
	}
	return out
}

func summarize(m domain.Message, key domain.ConversationKey, me domain.User) domain.ConversationSummary {
	return domain.ConversationSummary{
		Key:       key,
		Partner:   m.Partner(me),
		Latest:    m,
		HasUnread: !m.Sender.IsZero() && !m.IsFrom(me),
	}
}
