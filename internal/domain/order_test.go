package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderFromCart(t *testing.T) {
	c := NewCart("u1", "P1", 2, dec("10.00"))
	c.AddItem("P2", 1, dec("5.00"))
	c.ID = "cart-1"

	o := NewOrderFromCart(c)

	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, []OrderItem{{ProductID: "P1", Quantity: 2}, {ProductID: "P2", Quantity: 1}}, o.Items)
	assert.Equal(t, 3, o.TotalItems)
	assert.Equal(t, 3, o.TotalQuantity)
	assert.True(t, dec("25").Equal(o.TotalPrice))
	assert.True(t, o.Cancellable)
	assert.Equal(t, OrderPending, o.Status)
	assert.False(t, o.IsDeleted)
	assert.Nil(t, o.DeletedAt)

	// snapshot is independent of the cart
	c.Clear()
	assert.Len(t, o.Items, 2)
}

func TestOrderTransitionTo(t *testing.T) {
	o := Order{Status: OrderPending, Cancellable: true}

	require.NoError(t, o.TransitionTo(OrderCompleted))
	assert.Equal(t, OrderCompleted, o.Status)
	require.NoError(t, o.TransitionTo(OrderPending))
	require.NoError(t, o.TransitionTo(OrderCancelled))
	assert.Equal(t, OrderCancelled, o.Status)

	locked := Order{Status: OrderPending, Cancellable: false}
	err := locked.TransitionTo(OrderCancelled)
	require.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "Order is not cancellable", err.Error())
	assert.Equal(t, OrderPending, locked.Status)

	require.NoError(t, locked.TransitionTo(OrderCompleted))
}

func TestParseOrderStatus(t *testing.T) {
	for in, want := range map[string]OrderStatus{
		"pending":   OrderPending,
		"completed": OrderCompleted,
		"cancelled": OrderCancelled,
	} {
		got, ok := ParseOrderStatus(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "shipped", "canceled", "Cancelled ", "PENDING", " completed"} {
		_, ok := ParseOrderStatus(in)
		assert.False(t, ok, in)
	}
}
