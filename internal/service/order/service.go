package order

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/logger"
	orderrepo "storefront/internal/repository/order"
)

const (
	msgInvalidCartID  = "Invalid cartId"
	msgCartNotFound   = "Cart not found"
	msgForeignCart    = "Unauthorized! You are not allowed to create Order. Please check your cart"
	msgInvalidOrderID = "Invalid orderId"
	msgInvalidStatus  = "Invalid status"
	msgOrderNotFound  = "Order not found"
	msgForeignOrder   = "Unauthorized! You are not allowed to update Order"

	msgCheckoutInProgress = "An order for this Idempotency-Key is still being placed"
)

type orderRepo interface {
	PlaceFromCart(ctx context.Context, cartID, userID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type cartReader interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
}

// KeyStore remembers which order an idempotency key produced, per user.
type KeyStore interface {
	// Reserve claims key for a new checkout. When the key is already held it
	// reports the order bound to it, or "" while that checkout is running.
	Reserve(ctx context.Context, scope, key string) (orderID string, reserved bool, err error)
	// Remember binds a reserved key to the order it produced.
	Remember(ctx context.Context, scope, key, orderID string) error
	// Release drops a reservation that produced no order.
	Release(ctx context.Context, scope, key string) error
}

type Publisher interface {
	Publish(ctx context.Context, evt events.OrderEvent) error
}

// Service is the checkout engine.
type Service struct {
	orders    orderRepo
	carts     cartReader
	keys      KeyStore
	publisher Publisher
	logger    *zap.Logger
}

type Option func(*Service)

// WithKeyStore enables Idempotency-Key replay for checkout.
func WithKeyStore(ks KeyStore) Option {
	return func(s *Service) { s.keys = ks }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(orders orderRepo, carts cartReader, l *zap.Logger, opts ...Option) *Service {
	s := &Service{
		orders:    orders,
		carts:     carts,
		publisher: events.Nop{},
		logger:    logger.OrNop(l).Named("order_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Placement is the outcome of a checkout attempt. CartEmpty is set, with a
// nil Order, when there was nothing to check out.
type Placement struct {
	Order     *domain.Order
	CartEmpty bool
	Replayed  bool
}

// PlaceOrder converts the user's cart into a pending order and empties the
// cart. A repeated idempotencyKey returns the order it first produced.
func (s *Service) PlaceOrder(ctx context.Context, userID, cartID, idempotencyKey string) (Placement, error) {
	if !domain.ValidID(cartID) {
		return Placement{}, domain.InvalidInput(msgInvalidCartID)
	}
	if s.keys == nil || idempotencyKey == "" {
		return s.place(ctx, userID, cartID)
	}

	orderID, reserved, err := s.keys.Reserve(ctx, userID, idempotencyKey)
	switch {
	case err != nil:
		s.logger.Warn("idempotency reserve failed", zap.Error(err))
		return s.place(ctx, userID, cartID)
	case !reserved && orderID == "":
		return Placement{}, domain.Conflict(msgCheckoutInProgress)
	case !reserved:
		return s.replay(ctx, userID, cartID, orderID)
	}

	p, err := s.place(ctx, userID, cartID)
	if err != nil || p.Order == nil {
		if rerr := s.keys.Release(ctx, userID, idempotencyKey); rerr != nil {
			s.logger.Warn("release idempotency key", zap.Error(rerr))
		}
		return p, err
	}
	if err := s.keys.Remember(ctx, userID, idempotencyKey, p.Order.ID); err != nil {
		s.logger.Warn("remember idempotency key", zap.String("order_id", p.Order.ID), zap.Error(err))
	}
	return p, nil
}

func (s *Service) place(ctx context.Context, userID, cartID string) (Placement, error) {
	cart, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Placement{}, domain.NotFound(msgCartNotFound)
		}
		return Placement{}, err
	}
	if cart.UserID != userID {
		return Placement{}, domain.Forbidden(msgForeignCart)
	}
	if cart.IsEmpty() {
		return Placement{CartEmpty: true}, nil
	}

	o, err := s.orders.PlaceFromCart(ctx, cartID, userID)
	switch {
	case errors.Is(err, orderrepo.ErrCartEmpty):
		return Placement{CartEmpty: true}, nil
	case errors.Is(err, domain.ErrNotFound):
		return Placement{}, domain.NotFound(msgCartNotFound)
	case err != nil:
		return Placement{}, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.String("total_price", o.TotalPrice.String()),
	)
	s.publish(ctx, events.OrderCreated, *o)
	return Placement{Order: o}, nil
}

// replay returns the order bound to an idempotency key. A bound order that
// can no longer be read falls back to a fresh checkout.
func (s *Service) replay(ctx context.Context, userID, cartID, orderID string) (Placement, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("replayed order unavailable", zap.String("order_id", orderID), zap.Error(err))
		return s.place(ctx, userID, cartID)
	}
	return Placement{Order: o, Replayed: true}, nil
}

// UpdateStatus moves the user's order to status. Setting the current status
// again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, userID, orderID, status string) (*domain.Order, error) {
	if !domain.ValidID(orderID) {
		return nil, domain.InvalidInput(msgInvalidOrderID)
	}
	next, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, domain.InvalidInput(msgInvalidStatus)
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(msgOrderNotFound)
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.Forbidden(msgForeignOrder)
	}
	if o.Status == next {
		return o, nil
	}
	if err := o.TransitionTo(next); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, o.ID, next)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(msgOrderNotFound)
		}
		return nil, err
	}
	s.publish(ctx, events.OrderStatusUpdated, *updated)
	return updated, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) publish(ctx context.Context, typ string, o domain.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(typ, o)); err != nil {
		s.logger.Warn("publish order event", zap.String("type", typ), zap.String("order_id", o.ID), zap.Error(err))
	}
}
