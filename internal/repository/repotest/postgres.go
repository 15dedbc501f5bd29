// Package repotest starts a disposable Postgres for repository integration tests.
package repotest

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

const image = "postgres:17.6-alpine3.22"

// Start runs a Postgres container, applies migrations and returns a pool.
// Integration tests are skipped under -short.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("postgres.Run: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

// Reset truncates every table.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE order_items, orders, cart_items, carts, products, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// InsertUser stores a random user and returns its id.
func InsertUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO users (fname, lname, email, phone, password_hash)
VALUES ($1, $2, $3, $4, 'x')
RETURNING id::text
`, gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(), gofakeit.Numerify("9#########")).Scan(&id)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

// InsertProduct stores an active product with the given price.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, price string) domain.Product {
	t.Helper()
	p := domain.Product{
		Title:          fmt.Sprintf("%s %s", gofakeit.ProductName(), gofakeit.UUID()),
		Description:    gofakeit.ProductDescription(),
		Price:          decimal.RequireFromString(price),
		CurrencyID:     "INR",
		CurrencyFormat: "₹",
		AvailableSizes: []string{"M"},
	}
	err := pool.QueryRow(context.Background(), `
INSERT INTO products (title, description, price, currency_id, currency_format, available_sizes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text
`, p.Title, p.Description, p.Price, p.CurrencyID, p.CurrencyFormat, p.AvailableSizes).Scan(&p.ID)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return p
}
