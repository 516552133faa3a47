// Package chat holds the message synchronization core: identity resolution,
// the ordered deduplicating message store and conversation aggregation.
package chat

import (
	"strings"

	"github.com/vedran77/marketchat/internal/domain"
)

const (
	idKeyPrefix          = "id:"
	fingerprintKeyPrefix = "f:"
	fingerprintSep       = "|"
	fingerprintContent   = 240
)

// IdentityKey computes the deduplication key of a message. Server ids win;
// messages seen before they have one are fingerprinted from their contents.
// The second return value is false only for a nil message.
func IdentityKey(m *domain.Message) (string, bool) {
	return ConversationIdentityKey(m, "")
}

// ConversationIdentityKey is IdentityKey for a message observed inside a
// conversation about product: a fingerprinted message without a product of
// its own is attributed to the conversation's.
func ConversationIdentityKey(m *domain.Message, product domain.ID) (string, bool) {
	if m == nil {
		return "", false
	}
	if !m.ID.IsZero() {
		return idKeyPrefix + m.ID.String(), true
	}

	if !m.Product.ID.IsZero() {
		product = m.Product.ID
	}
	parts := []string{
		m.Sender.Key(),
		m.Recipient.ID.String(),
		product.String(),
		truncateRunes(m.Content, fingerprintContent),
		m.CreatedAt.Raw,
	}
	return fingerprintKeyPrefix + strings.Join(parts, fingerprintSep), true
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
