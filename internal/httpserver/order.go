package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"
)

const idempotencyHeader = "Idempotency-Key"

type OrderService interface {
	PlaceOrder(ctx context.Context, userID, cartID, idempotencyKey string) (ordersvc.Placement, error)
	UpdateStatus(ctx context.Context, userID, orderID, status string) (*domain.Order, error)
	List(ctx context.Context, userID string) ([]domain.Order, error)
}

type createOrderRequest struct {
	CartID string `json:"cartId" binding:"required"`
}

type updateOrderRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

func (a *api) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))

	p, err := a.deps.Orders.PlaceOrder(c.Request.Context(), callerID(c), req.CartID, key)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	switch {
	case p.CartEmpty:
		respond(c, http.StatusOK, "Your cart is empty. Please add items to your cart for checkout!", nil)
	case p.Replayed:
		c.Header("Idempotent-Replayed", "true")
		respond(c, http.StatusOK, "Order created successfully", p.Order)
	default:
		respond(c, http.StatusCreated, "Order created successfully", p.Order)
	}
}

func (a *api) updateOrder(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	o, err := a.deps.Orders.UpdateStatus(c.Request.Context(), callerID(c), req.OrderID, req.Status)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Order updated successfully", o)
}

func (a *api) listOrders(c *gin.Context) {
	orders, err := a.deps.Orders.List(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respond(c, http.StatusOK, "Orders fetched successfully", orders)
}
