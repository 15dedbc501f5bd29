package product

import (
	"context"

	"storefront/internal/domain"
)

// Repository is the catalog store.
type Repository interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	// GetByID returns a product whether or not it is soft-deleted.
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// FindActive returns ErrNotFound for soft-deleted products.
	FindActive(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	SoftDelete(ctx context.Context, id string) error
	// Upsert inserts or replaces the product with the same title.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
