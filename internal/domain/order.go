package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus accepts exactly one of the three known statuses.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderCompleted, OrderCancelled:
		return st, true
	}
	return "", false
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Order is an immutable snapshot of a cart at checkout. Only Status changes
// after creation.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Items         []OrderItem     `json:"items"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalItems    int             `json:"totalItems"`
	TotalQuantity int             `json:"totalQuantity"`
	Cancellable   bool            `json:"cancellable"`
	Status        OrderStatus     `json:"status"`
	IsDeleted     bool            `json:"isDeleted"`
	DeletedAt     *time.Time      `json:"deletedAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ErrNotCancellable is returned when cancelling an order that forbids it.
var ErrNotCancellable = Conflict("Order is not cancellable")

// NewOrderFromCart copies the cart's lines and totals into a pending order.
func NewOrderFromCart(c Cart) Order {
	items := make([]OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return Order{
		UserID:        c.UserID,
		Items:         items,
		TotalPrice:    c.TotalPrice,
		TotalItems:    c.TotalItems,
		TotalQuantity: c.QuantitySum(),
		Cancellable:   true,
		Status:        OrderPending,
	}
}

// TransitionTo sets the order status. Any transition between known statuses
// is allowed except cancelling a non-cancellable order.
func (o *Order) TransitionTo(s OrderStatus) error {
	if s == OrderCancelled && !o.Cancellable {
		return ErrNotCancellable
	}
	o.Status = s
	return nil
}
