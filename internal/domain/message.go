package domain

import "strings"

// ProductSharePrefix marks a message whose content is a shared listing summary.
const ProductSharePrefix = "::product-share::"

type Message struct {
	ID        ID         `json:"id,omitempty"`
	Sender    UserRef    `json:"sender"`
	Recipient UserRef    `json:"recipient"`
	Product   ProductRef `json:"product"`
	Content   string     `json:"content"`
	CreatedAt Timestamp  `json:"created_at"`
}

// ProductShareContent builds the content of a product-share message.
func ProductShareContent(summary string) string {
	return ProductSharePrefix + " " + summary
}

func (m Message) IsProductShare() bool {
	return strings.HasPrefix(m.Content, ProductSharePrefix)
}

// Text is the content as shown to a reader, without the product-share marker.
func (m Message) Text() string {
	if !m.IsProductShare() {
		return m.Content
	}
	return strings.TrimSpace(strings.TrimPrefix(m.Content, ProductSharePrefix))
}

// IsFrom reports whether user sent the message.
func (m Message) IsFrom(user User) bool {
	return m.Sender.Matches(user)
}

// Partner is the other side of the message as seen by me.
func (m Message) Partner(me User) UserRef {
	if m.IsFrom(me) {
		return m.Recipient
	}
	return m.Sender
}

// ConversationKey groups the message into its (partner, product) thread.
// A partner without any identity falls under AnonymousPartner.
func (m Message) ConversationKey(me User) ConversationKey {
	partner := m.Partner(me).Key()
	if partner == "" {
		partner = AnonymousPartner
	}
	return ConversationKey{PartnerID: partner, ProductID: string(m.Product.ID)}
}
