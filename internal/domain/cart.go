package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// TotalsMode selects how cart totals are recomputed when a line is removed.
type TotalsMode int

const (
	// TotalsLineCount recomputes totals after a removal as
	// totalItems = number of remaining lines and
	// totalPrice = totalItems * price of the removed product.
	// Existing clients depend on these numbers, so it is the default.
	TotalsLineCount TotalsMode = iota
	// TotalsSubtract subtracts the removed line's own contribution.
	TotalsSubtract
)

// AdjustMode is the requested change to an existing cart line.
type AdjustMode int

const (
	RemoveEntirely AdjustMode = iota
	DecrementByOne
)

// ErrLineNotFound is returned when a product is not present in the cart.
var ErrLineNotFound = NotFound("Product not found in cart")

// MaxCartQuantity bounds the units a cart may hold across all lines. Stored
// quantities and totals are 32-bit integers.
const MaxCartQuantity = math.MaxInt32

// ErrQuantityLimit is returned when an add would exceed MaxCartQuantity.
var ErrQuantityLimit = InvalidInput(fmt.Sprintf("Cart cannot hold more than %d items", MaxCartQuantity))

type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	TotalItems int             `json:"totalItems"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewCart returns an unsaved cart holding a single line.
func NewCart(userID, productID string, quantity int, price decimal.Decimal) Cart {
	c := Cart{UserID: userID, Items: []CartItem{}}
	c.AddItem(productID, quantity, price)
	return c
}

// AddItem merges quantity into the line for productID, appending a new line
// when none exists, and increments totals by quantity * price.
func (c *Cart) AddItem(productID string, quantity int, price decimal.Decimal) {
	if i := c.indexOf(productID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
	}
	c.TotalItems += quantity
	c.TotalPrice = c.TotalPrice.Add(price.Mul(decimal.NewFromInt(int64(quantity))))
}

// Adjust decrements or removes the line for productID. price is the current
// catalog price of that product.
func (c *Cart) Adjust(productID string, mode AdjustMode, price decimal.Decimal, totals TotalsMode) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrLineNotFound
	}

	if mode == DecrementByOne && c.Items[i].Quantity > 1 {
		c.Items[i].Quantity--
		c.TotalItems--
		c.TotalPrice = c.TotalPrice.Sub(price)
		return nil
	}

	removed := c.Items[i]
	c.Items = append(c.Items[:i:i], c.Items[i+1:]...)

	switch totals {
	case TotalsSubtract:
		c.TotalItems -= removed.Quantity
		c.TotalPrice = c.TotalPrice.Sub(price.Mul(decimal.NewFromInt(int64(removed.Quantity))))
		if len(c.Items) == 0 || c.TotalItems < 0 || c.TotalPrice.IsNegative() {
			c.recompute(price)
		}
	default:
		c.recompute(price)
	}
	return nil
}

func (c *Cart) recompute(price decimal.Decimal) {
	if len(c.Items) == 0 {
		c.TotalItems = 0
		c.TotalPrice = decimal.Zero
		return
	}
	c.TotalItems = len(c.Items)
	c.TotalPrice = price.Mul(decimal.NewFromInt(int64(c.TotalItems)))
}

// Clear empties the cart and zeroes its totals.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.TotalItems = 0
	c.TotalPrice = decimal.Zero
}

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// CanAdd reports whether quantity more units fit in the cart.
func (c Cart) CanAdd(quantity int) bool {
	return quantity >= 1 && quantity <= MaxCartQuantity-c.QuantitySum()
}

// QuantitySum is the sum of all line quantities.
func (c Cart) QuantitySum() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Item returns the line for productID.
func (c Cart) Item(productID string) (CartItem, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

func (c Cart) indexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// CartSummaryItem is a cart line with its product expanded.
type CartSummaryItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// CartSummary is a cart whose lines carry full product details.
type CartSummary struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	Items      []CartSummaryItem `json:"items"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
	TotalItems int               `json:"totalItems"`
}
