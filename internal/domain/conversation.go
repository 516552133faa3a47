package domain

// AnonymousPartner groups messages whose partner cannot be determined.
const AnonymousPartner = "anon"

// ConversationKey identifies one thread: a partner plus an optional product.
type ConversationKey struct {
	PartnerID string `json:"partner_id"`
	ProductID string `json:"product_id,omitempty"`
}

func (k ConversationKey) String() string {
	return k.PartnerID + "|" + k.ProductID
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	Key     ConversationKey `json:"key"`
	Partner UserRef         `json:"partner"`
	Latest  Message         `json:"latest"`
	// HasUnread is true when the latest message came from the partner. There
	// are no read receipts; this is only a hint.
	HasUnread bool `json:"has_unread"`
}
