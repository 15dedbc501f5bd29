package order_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"storefront/internal/domain"
	"storefront/internal/repository/cart"
	"storefront/internal/repository/order"
	"storefront/internal/repository/repotest"
)

type orderRepositorySuite struct {
	suite.Suite

	pool  *pgxpool.Pool
	carts cart.Repository
	repo  order.Repository
}

func TestOrderRepositorySuite(t *testing.T) {
	suite.Run(t, new(orderRepositorySuite))
}

func (s *orderRepositorySuite) SetupSuite() {
	s.pool = repotest.Start(s.T())
	s.carts = cart.NewPostgres(s.pool, nil)
	s.repo = order.NewPostgres(s.pool, nil)
}

func (s *orderRepositorySuite) SetupTest() {
	repotest.Reset(s.T(), s.pool)
}

func (s *orderRepositorySuite) filledCart(userID string) *domain.Cart {
	t := s.T()
	p1 := repotest.InsertProduct(t, s.pool, "10.00")
	p2 := repotest.InsertProduct(t, s.pool, "5.00")
	c := domain.NewCart(userID, p1.ID, 2, p1.Price)
	c.AddItem(p2.ID, 1, p2.Price)
	created, err := s.carts.Create(context.Background(), c)
	require.NoError(t, err)
	return created
}

func (s *orderRepositorySuite) TestPlaceFromCart() {
	t := s.T()
	ctx := context.Background()
	userID := repotest.InsertUser(t, s.pool)
	c := s.filledCart(userID)

	o, err := s.repo.PlaceFromCart(ctx, c.ID, userID)
	require.NoError(t, err)

	assert.Equal(t, userID, o.UserID)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.True(t, o.Cancellable)
	assert.Equal(t, 3, o.TotalItems)
	assert.Equal(t, 3, o.TotalQuantity)
	assert.True(t, decimal.RequireFromString("25").Equal(o.TotalPrice))
	require.Len(t, o.Items, 2)
	assert.Equal(t, c.Items[0].ProductID, o.Items[0].ProductID)

	after, err := s.carts.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Items)
	assert.Zero(t, after.TotalItems)
	assert.True(t, after.TotalPrice.IsZero())

	// the order is a snapshot: refilling the cart leaves it untouched
	refill := *after
	refill.AddItem(c.Items[0].ProductID, 7, decimal.NewFromInt(1))
	_, err = s.carts.Save(ctx, refill)
	require.NoError(t, err)

	stored, err := s.repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Items, stored.Items)
}

func (s *orderRepositorySuite) TestPlaceFromEmptyCart() {
	t := s.T()
	ctx := context.Background()
	userID := repotest.InsertUser(t, s.pool)
	c := s.filledCart(userID)
	c.Clear()
	_, err := s.carts.Save(ctx, *c)
	require.NoError(t, err)

	_, err = s.repo.PlaceFromCart(ctx, c.ID, userID)
	require.ErrorIs(t, err, order.ErrCartEmpty)

	orders, err := s.repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func (s *orderRepositorySuite) TestPlaceFromForeignCart() {
	t := s.T()
	owner := repotest.InsertUser(t, s.pool)
	other := repotest.InsertUser(t, s.pool)
	c := s.filledCart(owner)

	_, err := s.repo.PlaceFromCart(context.Background(), c.ID, other)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func (s *orderRepositorySuite) TestConcurrentCheckoutCreatesOneOrder() {
	t := s.T()
	ctx := context.Background()
	userID := repotest.InsertUser(t, s.pool)
	c := s.filledCart(userID)

	const workers = 5
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		empties int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.repo.PlaceFromCart(ctx, c.ID, userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case assert.ErrorIs(t, err, order.ErrCartEmpty):
				empties++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, workers-1, empties)
}

func (s *orderRepositorySuite) TestUpdateStatusAndList() {
	t := s.T()
	ctx := context.Background()
	userID := repotest.InsertUser(t, s.pool)

	first, err := s.repo.PlaceFromCart(ctx, s.filledCart(userID).ID, userID)
	require.NoError(t, err)

	updated, err := s.repo.UpdateStatus(ctx, first.ID, domain.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, updated.Status)
	assert.Equal(t, first.Items, updated.Items)

	_, err = s.repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000009", domain.OrderCancelled)
	require.ErrorIs(t, err, domain.ErrNotFound)

	orders, err := s.repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)
}
