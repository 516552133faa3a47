package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vedran77/marketchat/internal/domain"
)

func TestIdentityKey(t *testing.T) {
	t.Parallel()

	t.Run("server id wins over every other field", func(t *testing.T) {
		key, ok := IdentityKey(&domain.Message{
			ID:      "42",
			Sender:  domain.UserRef{ID: "5"},
			Content: "anything",
		})
		assert.True(t, ok)
		assert.Equal(t, "id:42", key)
	})

	t.Run("fingerprint without id", func(t *testing.T) {
		key, ok := IdentityKey(&domain.Message{
			Sender:    domain.UserRef{ID: "5"},
			Recipient: domain.UserRef{ID: "9"},
			Product:   domain.ProductRef{ID: "7"},
			Content:   "hi",
			CreatedAt: domain.Timestamp{Raw: "T"},
		})
		assert.True(t, ok)
		assert.Equal(t, "f:5|9|7|hi|T", key)
	})

	t.Run("missing components default to empty", func(t *testing.T) {
		key, ok := IdentityKey(&domain.Message{
			Sender:  domain.UserRef{Username: "ana"},
			Content: "hi",
		})
		assert.True(t, ok)
		assert.Equal(t, "f:ana|||hi|", key)
	})

	t.Run("content is capped at 240 runes", func(t *testing.T) {
		long := strings.Repeat("ж", 300)
		key, _ := IdentityKey(&domain.Message{Content: long})
		assert.Equal(t, "f:|||"+strings.Repeat("ж", 240)+"|", key)
	})

	t.Run("recipient is identified by id only", func(t *testing.T) {
		key, _ := IdentityKey(&domain.Message{
			Sender:    domain.UserRef{ID: "5"},
			Recipient: domain.UserRef{Username: "ben"},
			Content:   "hi",
		})
		assert.Equal(t, "f:5|||hi|", key)
	})

	t.Run("nil message has no key", func(t *testing.T) {
		key, ok := IdentityKey(nil)
		assert.False(t, ok)
		assert.Empty(t, key)
	})
}

func TestConversationIdentityKey(t *testing.T) {
	t.Parallel()

	m := &domain.Message{
		Sender:    domain.UserRef{ID: "5"},
		Recipient: domain.UserRef{ID: "9"},
		Content:   "hi",
		CreatedAt: domain.Timestamp{Raw: "T"},
	}

	key, ok := ConversationIdentityKey(m, "7")
	assert.True(t, ok)
	assert.Equal(t, "f:5|9|7|hi|T", key)

	m.Product = domain.ProductRef{ID: "8"}
	key, _ = ConversationIdentityKey(m, "7")
	assert.Equal(t, "f:5|9|8|hi|T", key)

	m.ID = "3"
	key, _ = ConversationIdentityKey(m, "7")
	assert.Equal(t, "id:3", key)
}
