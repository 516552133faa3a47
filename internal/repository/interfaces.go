//go:generate mockgen -destination=../service/mock_repository_test.go -package=service -source=interfaces.go
package repository

import (
	"context"

	"github.com/vedran77/marketchat/internal/domain"
)

// MessageFilter scopes a history fetch. Empty fields are not sent.
type MessageFilter struct {
	PartnerID string
	ProductID string
}

type SendMessageInput struct {
	RecipientID domain.ID `json:"recipient_id"`
	ProductID   domain.ID `json:"product,omitempty"`
	Content     string    `json:"content"`
}

type MessageRepository interface {
	// List returns the message history. Entries the server sent as null are
	// returned as nil pointers; the message store skips them.
	List(ctx context.Context, filter MessageFilter) ([]*domain.Message, error)
	Create(ctx context.Context, input SendMessageInput) (*domain.Message, error)
}

type ProductRepository interface {
	GetByID(ctx context.Context, id domain.ID) (*domain.Product, error)
}
