package order

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrCartEmpty is returned by PlaceFromCart when the locked cart has no lines.
var ErrCartEmpty = errors.New("cart is empty")

type Repository interface {
	// PlaceFromCart locks the cart, snapshots it into a new order and resets
	// the cart, all in one transaction.
	PlaceFromCart(ctx context.Context, cartID, userID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}
