package cart

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storefront/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memCarts struct {
	mu        sync.Mutex
	byID      map[string]domain.Cart
	createErr error
	saves     int
}

func newMemCarts() *memCarts {
	return &memCarts{byID: map[string]domain.Cart{}}
}

func (m *memCarts) Create(_ context.Context, c domain.Cart) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.byID {
		if existing.UserID == c.UserID {
			return nil, domain.ErrAlreadyExists
		}
	}
	c.ID = uuid.NewString()
	m.byID[c.ID] = c
	return &c, nil
}

func (m *memCarts) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return &c, nil
}

func (m *memCarts) GetByUser(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.UserID == userID {
			c.Items = append([]domain.CartItem(nil), c.Items...)
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCarts) Save(_ context.Context, c domain.Cart) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	m.saves++
	m.byID[c.ID] = c
	return &c, nil
}

type memProducts struct {
	byID    map[string]domain.Product
	deleted map[string]bool
	err     error
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memProducts) FindActive(ctx context.Context, id string) (*domain.Product, error) {
	if m.deleted[id] {
		return nil, domain.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

type fixture struct {
	svc      *Service
	carts    *memCarts
	products *memProducts
	p1, p2   string
	user     string
}

func newFixture(t *testing.T, totals domain.TotalsMode) fixture {
	t.Helper()
	p1, p2 := uuid.NewString(), uuid.NewString()
	products := &memProducts{
		byID: map[string]domain.Product{
			p1: {ID: p1, Title: "Tee", Price: decimal.RequireFromString("10.00")},
			p2: {ID: p2, Title: "Cap", Price: decimal.RequireFromString("5.00")},
		},
		deleted: map[string]bool{},
	}
	carts := newMemCarts()
	return fixture{
		svc:      New(carts, products, totals, nil),
		carts:    carts,
		products: products,
		p1:       p1,
		p2:       p2,
		user:     uuid.NewString(),
	}
}

func assertTotals(t *testing.T, c *domain.Cart, items int, price string) {
	t.Helper()
	assert.Equal(t, items, c.TotalItems)
	assert.True(t, decimal.RequireFromString(price).Equal(c.TotalPrice), "totalPrice = %s, want %s", c.TotalPrice, price)
}

func TestAddLineItemCreatesCart(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	ctx := context.Background()

	c, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 2})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	assert.Equal(t, f.user, c.UserID)
	assert.Equal(t, []domain.CartItem{{ProductID: f.p1, Quantity: 2}}, c.Items)
	assertTotals(t, c, 2, "20.00")
}

func TestAddLineItemAccumulates(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	ctx := context.Background()

	_, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p2, Quantity: 1})
	require.NoError(t, err)
	c, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.Equal(t, domain.CartItem{ProductID: f.p1, Quantity: 3}, c.Items[0])
	assertTotals(t, c, 4, "35.00")
	assert.Len(t, f.carts.byID, 1)
}

func TestAddLineItemWithCartID(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	ctx := context.Background()

	c, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 1})
	require.NoError(t, err)

	c, err = f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p2, Quantity: 1, CartID: c.ID})
	require.NoError(t, err)
	assertTotals(t, c, 2, "15.00")

	_, err = f.svc.AddLineItem(ctx, uuid.NewString(), AddInput{ProductID: f.p2, Quantity: 1, CartID: c.ID})
	require.ErrorIs(t, err, domain.ErrNotFound)
	msg, _ := domain.Message(err)
	assert.Equal(t, "Cart not found", msg)
}

func TestAddLineItemValidation(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	ctx := context.Background()

	cases := []struct {
		name string
		in   AddInput
		kind error
		msg  string
	}{
		{"bad product id", AddInput{ProductID: "nope", Quantity: 1}, domain.ErrInvalidInput, "Invalid productId"},
		{"bad cart id", AddInput{ProductID: f.p1, Quantity: 1, CartID: "123"}, domain.ErrInvalidInput, "Invalid cartId"},
		{"zero quantity", AddInput{ProductID: f.p1, Quantity: 0}, domain.ErrInvalidInput, "Quantity must be a positive integer"},
		{"unknown product", AddInput{ProductID: uuid.NewString(), Quantity: 1}, domain.ErrNotFound, "Product not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddLineItem(ctx, f.user, tc.in)
			require.ErrorIs(t, err, tc.kind)
			msg, ok := domain.Message(err)
			require.True(t, ok)
			assert.Equal(t, tc.msg, msg)
		})
	}
	assert.Empty(t, f.carts.byID)
}

func TestAddLineItemDeletedProduct(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	f.products.deleted[f.p1] = true

	_, err := f.svc.AddLineItem(context.Background(), f.user, AddInput{ProductID: f.p1, Quantity: 1})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddLineItemCreateRace(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	ctx := context.Background()

	existing := domain.NewCart(f.user, f.p2, 1, decimal.RequireFromString("5.00"))
	existing.ID = uuid.NewString()
	racer := &racingCarts{memCarts: f.carts, winner: existing}
	svc := New(racer, f.products, domain.TotalsLineCount, nil)

	c, err := svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, c.ID)
	assertTotals(t, c, 2, "15.00")
}

// racingCarts hides the winner's cart from the first lookup and inserts it
// just before Create runs.
type racingCarts struct {
	*memCarts
	winner  domain.Cart
	planted bool
}

func (r *racingCarts) Create(ctx context.Context, c domain.Cart) (*domain.Cart, error) {
	if !r.planted {
		r.planted = true
		r.byID[r.winner.ID] = r.winner
	}
	return r.memCarts.Create(ctx, c)
}

func TestAddLineItemRepoError(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	f.carts.createErr = errors.New("boom")

	_, err := f.svc.AddLineItem(context.Background(), f.user, AddInput{ProductID: f.p1, Quantity: 1})
	require.EqualError(t, err, "boom")
}

func seedCart(t *testing.T, f fixture) *domain.Cart {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 1})
	require.NoError(t, err)
	c, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p2, Quantity: 2})
	require.NoError(t, err)
	assertTotals(t, c, 3, "20.00")
	return c
}

func TestAdjustDecrement(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	c := seedCart(t, f)

	got, err := f.svc.AdjustOrRemoveLineItem(context.Background(), f.user, AdjustInput{
		CartID: c.ID, ProductID: f.p2, Mode: domain.DecrementByOne,
	})
	require.NoError(t, err)
	item, ok := got.Item(f.p2)
	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)
	assertTotals(t, got, 2, "15.00")
}

func TestAdjustRemoveLineCountTotals(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	c := seedCart(t, f)

	got, err := f.svc.AdjustOrRemoveLineItem(context.Background(), f.user, AdjustInput{
		CartID: c.ID, ProductID: f.p1, Mode: domain.RemoveEntirely,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.CartItem{{ProductID: f.p2, Quantity: 2}}, got.Items)
	// One line left, priced at the removed product.
	assertTotals(t, got, 1, "10.00")
}

func TestAdjustRemoveSubtractTotals(t *testing.T) {
	f := newFixture(t, domain.TotalsSubtract)
	c := seedCart(t, f)

	got, err := f.svc.AdjustOrRemoveLineItem(context.Background(), f.user, AdjustInput{
		CartID: c.ID, ProductID: f.p1, Mode: domain.RemoveEntirely,
	})
	require.NoError(t, err)
	assertTotals(t, got, 2, "10.00")
}

func TestAdjustDecrementLastUnitRemovesLine(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	c := seedCart(t, f)

	got, err := f.svc.AdjustOrRemoveLineItem(context.Background(), f.user, AdjustInput{
		CartID: c.ID, ProductID: f.p1, Mode: domain.DecrementByOne,
	})
	require.NoError(t, err)
	_, ok := got.Item(f.p1)
	assert.False(t, ok)
}

func TestAdjustErrors(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	c := seedCart(t, f)
	ctx := context.Background()
	other := uuid.NewString()
	f.products.byID[other] = domain.Product{ID: other, Price: decimal.NewFromInt(1)}

	cases := []struct {
		name string
		user string
		in   AdjustInput
		kind error
		msg  string
	}{
		{"bad cart id", f.user, AdjustInput{CartID: "x", ProductID: f.p1}, domain.ErrInvalidInput, "Invalid cartId"},
		{"bad product id", f.user, AdjustInput{CartID: c.ID, ProductID: "x"}, domain.ErrInvalidInput, "Invalid productId"},
		{"bad mode", f.user, AdjustInput{CartID: c.ID, ProductID: f.p1, Mode: 7}, domain.ErrInvalidInput, "removeProduct must be 0 or 1"},
		{"unknown cart", f.user, AdjustInput{CartID: uuid.NewString(), ProductID: f.p1}, domain.ErrNotFound, "Cart not found"},
		{"foreign cart", uuid.NewString(), AdjustInput{CartID: c.ID, ProductID: f.p1}, domain.ErrNotFound, "Cart not found"},
		{"unknown product", f.user, AdjustInput{CartID: c.ID, ProductID: uuid.NewString()}, domain.ErrNotFound, "Product not found"},
		{"not in cart", f.user, AdjustInput{CartID: c.ID, ProductID: other}, domain.ErrNotFound, "Product not found in cart"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AdjustOrRemoveLineItem(ctx, tc.user, tc.in)
			require.ErrorIs(t, err, tc.kind)
			msg, _ := domain.Message(err)
			assert.Equal(t, tc.msg, msg)
		})
	}

	stored, err := f.carts.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assertTotals(t, stored, 3, "20.00")
}

func TestGetSummary(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	seedCart(t, f)
	f.products.deleted[f.p1] = true

	s, err := f.svc.GetSummary(context.Background(), f.user)
	require.NoError(t, err)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "Tee", s.Items[0].Product.Title)
	assert.Equal(t, 1, s.Items[0].Quantity)
	assert.Equal(t, "Cap", s.Items[1].Product.Title)
	assert.Equal(t, 3, s.TotalItems)
}

func TestGetSummaryErrors(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	_, err := f.svc.GetSummary(context.Background(), f.user)
	require.ErrorIs(t, err, domain.ErrNotFound)

	seedCart(t, f)
	f.products.err = errors.New("db down")
	_, err = f.svc.GetSummary(context.Background(), f.user)
	require.ErrorContains(t, err, "db down")
}

func TestClear(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	ctx := context.Background()

	_, err := f.svc.Clear(ctx, f.user)
	require.ErrorIs(t, err, domain.ErrNotFound)

	c := seedCart(t, f)
	got, err := f.svc.Clear(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Empty(t, got.Items)
	assertTotals(t, got, 0, "0")

	saves := f.carts.saves
	_, err = f.svc.Clear(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, saves, f.carts.saves, "clearing an empty cart does not write")
}

// staleCarts hands out a snapshot taken earlier, as a concurrent request would see it.
type staleCarts struct {
	*memCarts
	snapshot *domain.Cart
}

func (s *staleCarts) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	if s.snapshot != nil {
		c := *s.snapshot
		s.snapshot = nil
		return &c, nil
	}
	return s.memCarts.GetByUser(ctx, userID)
}

// Adds are read-modify-write without a lock: a save based on a stale read
// overwrites a concurrent one.
func TestAddLineItemLostUpdate(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	carts := &staleCarts{memCarts: f.carts}
	svc := New(carts, f.products, domain.TotalsLineCount, nil)
	ctx := context.Background()

	_, err := svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 1})
	require.NoError(t, err)
	snapshot, err := f.carts.GetByUser(ctx, f.user)
	require.NoError(t, err)

	_, err = svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 2})
	require.NoError(t, err)

	carts.snapshot = snapshot
	c, err := svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p2, Quantity: 1})
	require.NoError(t, err)

	item, ok := c.Item(f.p1)
	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)
	assertTotals(t, c, 2, "15.00")
}

func TestAddLineItemQuantityLimit(t *testing.T) {
	f := newFixture(t, domain.TotalsLineCount)
	ctx := context.Background()

	_, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: math.MaxInt})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.carts.byID, "rejected before the store is touched")

	c, err := f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: domain.MaxCartQuantity - 1})
	require.NoError(t, err)

	_, err = f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p1, Quantity: 2})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	msg, _ := domain.Message(err)
	assert.Equal(t, "Cart cannot hold more than 2147483647 items", msg)

	_, err = f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p2, Quantity: 2, CartID: c.ID})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	stored, err := f.carts.GetByUser(ctx, f.user)
	require.NoError(t, err)
	item, ok := stored.Item(f.p1)
	require.True(t, ok)
	assert.Equal(t, domain.MaxCartQuantity-1, item.Quantity)
	assert.Equal(t, domain.MaxCartQuantity-1, stored.TotalItems)

	c, err = f.svc.AddLineItem(ctx, f.user, AddInput{ProductID: f.p2, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxCartQuantity, c.QuantitySum())
}
