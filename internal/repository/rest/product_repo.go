package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vedran77/marketchat/internal/domain"
)

type ProductRepo struct {
	client *Client
}

func NewProductRepo(client *Client) *ProductRepo {
	return &ProductRepo{client: client}
}

func (r *ProductRepo) GetByID(ctx context.Context, id domain.ID) (*domain.Product, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("getting product: %w", ErrNotFound)
	}

	var p domain.Product
	path := "/products/" + url.PathEscape(id.String()) + "/"
	if err := r.client.do(ctx, http.MethodGet, path, nil, nil, &p); err != nil {
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}
	return &p, nil
}
