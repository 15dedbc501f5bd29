package cart

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Create inserts a cart and its lines. A second cart for the same user
	// fails with domain.ErrAlreadyExists.
	Create(ctx context.Context, c domain.Cart) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	// Save replaces the stored lines and totals of an existing cart.
	Save(ctx context.Context, c domain.Cart) (*domain.Cart, error)
}
