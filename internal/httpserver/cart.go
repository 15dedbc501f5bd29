package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

// CartService is the cart engine as seen by the HTTP layer.
type CartService interface {
	AddLineItem(ctx context.Context, userID string, in cartsvc.AddInput) (*domain.Cart, error)
	AdjustOrRemoveLineItem(ctx context.Context, userID string, in cartsvc.AdjustInput) (*domain.Cart, error)
	GetSummary(ctx context.Context, userID string) (*domain.CartSummary, error)
	Clear(ctx context.Context, userID string) (*domain.Cart, error)
}

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"omitempty,min=1,max=2147483647"`
	CartID    string `json:"cartId"`
}

// removeProduct 0 drops the line, 1 decrements it.
type updateCartRequest struct {
	CartID        string `json:"cartId" binding:"required"`
	ProductID     string `json:"productId" binding:"required"`
	RemoveProduct *int   `json:"removeProduct" binding:"required,oneof=0 1"`
}

func (a *api) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	cart, err := a.deps.Carts.AddLineItem(c.Request.Context(), callerID(c), cartsvc.AddInput{
		ProductID: req.ProductID,
		Quantity:  qty,
		CartID:    req.CartID,
	})
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Product added to cart", cart)
}

func (a *api) updateCart(c *gin.Context) {
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mode := domain.RemoveEntirely
	if *req.RemoveProduct == 1 {
		mode = domain.DecrementByOne
	}
	cart, err := a.deps.Carts.AdjustOrRemoveLineItem(c.Request.Context(), callerID(c), cartsvc.AdjustInput{
		CartID:    req.CartID,
		ProductID: req.ProductID,
		Mode:      mode,
	})
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Cart updated successfully", cart)
}

func (a *api) getCart(c *gin.Context) {
	summary, err := a.deps.Carts.GetSummary(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Cart summary retrieved successfully", summary)
}

func (a *api) clearCart(c *gin.Context) {
	cart, err := a.deps.Carts.Clear(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Cart deleted successfully", cart)
}
