package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vedran77/marketchat/internal/chat"
	"github.com/vedran77/marketchat/internal/domain"
	"github.com/vedran77/marketchat/internal/format"
	"github.com/vedran77/marketchat/internal/service"
)

const timeLayout = "Jan 2 15:04"

// chatView prints each message once plus typing and presence transitions.
type chatView struct {
	w  io.Writer
	me domain.User

	mu      sync.Mutex
	printed map[string]struct{}
	typing  bool
	online  bool
	product bool
}

func newChatView(w io.Writer, me domain.User) *chatView {
	return &chatView{w: w, me: me, printed: make(map[string]struct{})}
}

func (v *chatView) render(snap service.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if snap.Product != nil && !v.product {
		v.product = true
		fmt.Fprintf(v.w, "-- about: %s\n", format.ProductShareSummary(snap.Product))
	}

	for i := range snap.Messages {
		m := &snap.Messages[i]
		key, ok := chat.IdentityKey(m)
		if !ok {
			continue
		}
		if _, seen := v.printed[key]; seen {
			continue
		}
		v.printed[key] = struct{}{}
		fmt.Fprintln(v.w, formatMessage(*m, v.me))
	}

	if snap.PartnerOnline != v.online {
		v.online = snap.PartnerOnline
		status := "offline"
		if v.online {
			status = "online"
		}
		fmt.Fprintf(v.w, "-- partner is %s\n", status)
	}
	if snap.PartnerTyping != v.typing {
		v.typing = snap.PartnerTyping
		if v.typing {
			fmt.Fprintln(v.w, "-- partner is typing...")
		}
	}
}

func formatMessage(m domain.Message, me domain.User) string {
	who := m.Sender.Username
	if m.IsFrom(me) {
		who = "you"
	} else if who == "" {
		who = m.Sender.Key()
	}

	text := m.Text()
	if m.IsProductShare() {
		text = "[shared] " + text
	}

	when := "--"
	if !m.CreatedAt.Time.IsZero() {
		when = m.CreatedAt.Time.Local().Format(timeLayout)
	}
	return fmt.Sprintf("[%s] %s: %s", when, who, text)
}

type conversationSource interface {
	Conversations() []domain.ConversationSummary
	Product(id domain.ID) (*domain.Product, bool)
}

func printInbox(w io.Writer, src conversationSource) {
	rows := src.Conversations()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No conversations yet")
		return
	}

	fmt.Fprintf(w, "%d conversation(s)\n", len(rows))
	for _, row := range rows {
		marker := " "
		if row.HasUnread {
			marker = "*"
		}

		partner := row.Partner.Username
		if partner == "" {
			partner = row.Key.PartnerID
		}

		about := ""
		if id := row.Key.ProductID; id != "" {
			p, ok := src.Product(domain.ID(id))
			if !ok {
				p = &domain.Product{ID: domain.ID(id), Title: "product " + id}
			}
			about = " (" + format.ProductShareSummary(p) + ")"
		}

		fmt.Fprintf(w, "%s %-16s%s  %s\n", marker, partner, about, truncate(row.Latest.Text(), 60))
	}
}

// inboxDigest changes whenever a row's latest message, unread flag or
// product details change.
func inboxDigest(src conversationSource) string {
	var b strings.Builder
	for _, row := range src.Conversations() {
		_, known := src.Product(domain.ID(row.Key.ProductID))
		key, _ := chat.IdentityKey(&row.Latest)
		fmt.Fprintf(&b, "%s=%s/%t/%t;", row.Key, key, row.HasUnread, known)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
