package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

// Messages returned to clients.
const (
	msgInvalidProductID = "Invalid productId"
	msgInvalidCartID    = "Invalid cartId"
	msgInvalidQuantity  = "Quantity must be a positive integer"
	msgProductNotFound  = "Product not found"
	msgCartNotFound     = "Cart not found"
)

const summaryLookupLimit = 8

// Service is the cart engine: it owns per-user cart state and keeps totals
// consistent with every line mutation.
type Service struct {
	repo     cartRepo
	products productRepo
	totals   domain.TotalsMode
	logger   *zap.Logger
}

type cartRepo interface {
	Create(ctx context.Context, c domain.Cart) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, c domain.Cart) (*domain.Cart, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	FindActive(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartRepo, products productRepo, totals domain.TotalsMode, l *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		totals:   totals,
		logger:   logger.OrNop(l).Named("cart_service"),
	}
}

type AddInput struct {
	ProductID string
	Quantity  int
	CartID    string
}

type AdjustInput struct {
	CartID    string
	ProductID string
	Mode      domain.AdjustMode
}

// AddLineItem adds quantity units of a product to the user's cart, creating
// the cart on first use.
func (s *Service) AddLineItem(ctx context.Context, userID string, in AddInput) (*domain.Cart, error) {
	if !domain.ValidID(in.ProductID) {
		return nil, domain.InvalidInput(msgInvalidProductID)
	}
	if in.CartID != "" && !domain.ValidID(in.CartID) {
		return nil, domain.InvalidInput(msgInvalidCartID)
	}
	if in.Quantity < 1 {
		return nil, domain.InvalidInput(msgInvalidQuantity)
	}
	if in.Quantity > domain.MaxCartQuantity {
		return nil, domain.ErrQuantityLimit
	}

	product, err := s.activeProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	var cart *domain.Cart
	if in.CartID != "" {
		cart, err = s.ownedCart(ctx, userID, in.CartID)
		if err != nil {
			return nil, err
		}
	} else {
		cart, err = s.repo.GetByUser(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return s.createWith(ctx, userID, in, *product)
		}
		if err != nil {
			return nil, err
		}
	}

	if !cart.CanAdd(in.Quantity) {
		return nil, domain.ErrQuantityLimit
	}
	cart.AddItem(product.ID, in.Quantity, product.Price)
	saved, err := s.repo.Save(ctx, *cart)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("line added",
		zap.String("cart_id", saved.ID),
		zap.String("product_id", product.ID),
		zap.Int("quantity", in.Quantity),
	)
	return saved, nil
}

func (s *Service) createWith(ctx context.Context, userID string, in AddInput, product domain.Product) (*domain.Cart, error) {
	created, err := s.repo.Create(ctx, domain.NewCart(userID, product.ID, in.Quantity, product.Price))
	if err == nil {
		s.logger.Info("cart created", zap.String("cart_id", created.ID), zap.String("user_id", userID))
		return created, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, err
	}

	// Lost the race to create the user's cart; add to the winner's cart.
	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.CanAdd(in.Quantity) {
		return nil, domain.ErrQuantityLimit
	}
	cart.AddItem(product.ID, in.Quantity, product.Price)
	return s.repo.Save(ctx, *cart)
}

// AdjustOrRemoveLineItem decrements a line by one or removes it entirely.
func (s *Service) AdjustOrRemoveLineItem(ctx context.Context, userID string, in AdjustInput) (*domain.Cart, error) {
	if !domain.ValidID(in.CartID) {
		return nil, domain.InvalidInput(msgInvalidCartID)
	}
	if !domain.ValidID(in.ProductID) {
		return nil, domain.InvalidInput(msgInvalidProductID)
	}
	if in.Mode != domain.RemoveEntirely && in.Mode != domain.DecrementByOne {
		return nil, domain.InvalidInput("removeProduct must be 0 or 1")
	}

	cart, err := s.ownedCart(ctx, userID, in.CartID)
	if err != nil {
		return nil, err
	}
	product, err := s.activeProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if err := cart.Adjust(product.ID, in.Mode, product.Price, s.totals); err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, *cart)
}

// GetSummary returns the user's cart with every line's product expanded.
// Products deleted after being added are still shown.
func (s *Service) GetSummary(ctx context.Context, userID string) (*domain.CartSummary, error) {
	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(msgCartNotFound)
		}
		return nil, err
	}

	items := make([]domain.CartSummaryItem, len(cart.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryLookupLimit)
	for i, it := range cart.Items {
		g.Go(func() error {
			p, err := s.products.GetByID(gctx, it.ProductID)
			if err != nil {
				return fmt.Errorf("load product %s: %w", it.ProductID, err)
			}
			items[i] = domain.CartSummaryItem{Product: *p, Quantity: it.Quantity}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.CartSummary{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		TotalPrice: cart.TotalPrice,
		TotalItems: cart.TotalItems,
	}, nil
}

// Clear empties the user's cart but keeps it.
func (s *Service) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(msgCartNotFound)
		}
		return nil, err
	}
	if cart.IsEmpty() && cart.TotalItems == 0 && cart.TotalPrice.IsZero() {
		return cart, nil
	}
	cart.Clear()
	return s.repo.Save(ctx, *cart)
}

func (s *Service) activeProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.FindActive(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(msgProductNotFound)
		}
		return nil, err
	}
	return p, nil
}

// ownedCart loads cartID and hides carts of other users behind NotFound.
func (s *Service) ownedCart(ctx context.Context, userID, cartID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(msgCartNotFound)
		}
		return nil, err
	}
	if cart.UserID != userID {
		return nil, domain.NotFound(msgCartNotFound)
	}
	return cart, nil
}
