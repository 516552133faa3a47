package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vedran77/marketchat/internal/domain"
	"github.com/vedran77/marketchat/internal/repository"
)

type MessageRepo struct {
	client *Client
}

func NewMessageRepo(client *Client) *MessageRepo {
	return &MessageRepo{client: client}
}

func (r *MessageRepo) List(ctx context.Context, filter repository.MessageFilter) ([]*domain.Message, error) {
	query := url.Values{}
	if filter.PartnerID != "" {
		query.Set("partner_id", filter.PartnerID)
	}
	if filter.ProductID != "" {
		query.Set("product_id", filter.ProductID)
	}

	var raw json.RawMessage
	if err := r.client.do(ctx, http.MethodGet, "/messages/", query, nil, &raw); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	messages, skipped, err := decodeMessageList(raw)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	if skipped > 0 {
		r.client.log.Warn().Int("skipped", skipped).Msg("dropped undecodable messages from list")
	}
	return messages, nil
}

func (r *MessageRepo) Create(ctx context.Context, input repository.SendMessageInput) (*domain.Message, error) {
	var msg domain.Message
	if err := r.client.do(ctx, http.MethodPost, "/messages/", nil, input, &msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return &msg, nil
}

// decodeMessageList accepts a bare array or a paginated object carrying the
// array under "results" or "messages". Elements are decoded one at a time:
// null stays a nil entry, malformed ones are dropped and counted in skipped.
func decodeMessageList(raw json.RawMessage) (messages []*domain.Message, skipped int, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []*domain.Message{}, 0, nil
	}

	var elems []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, 0, fmt.Errorf("decoding message list: %w", err)
		}
	} else {
		var page struct {
			Results  []json.RawMessage `json:"results"`
			Messages []json.RawMessage `json:"messages"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, 0, fmt.Errorf("decoding message page: %w", err)
		}
		elems = page.Results
		if elems == nil {
			elems = page.Messages
		}
	}

	messages = make([]*domain.Message, 0, len(elems))
	for _, elem := range elems {
		if bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
			messages = append(messages, nil)
			continue
		}
		var m domain.Message
		if err := json.Unmarshal(elem, &m); err != nil {
			skipped++
			continue
		}
		messages = append(messages, &m)
	}
	return messages, skipped, nil
}
