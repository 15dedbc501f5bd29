package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

const orderColumns = `id::text, user_id::text, total_price, total_items, total_quantity, cancellable,
       status, is_deleted, deleted_at, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, l *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(l).Named("order_repo")}
}

func (r *postgresRepo) PlaceFromCart(ctx context.Context, cartID, userID string) (*domain.Order, error) {
	placed, err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) (*domain.Order, error) {
		c := domain.Cart{ID: cartID}
		err := tx.QueryRow(ctx, `
SELECT user_id::text, total_price, total_items
FROM carts
WHERE id = $1 AND user_id = $2
FOR UPDATE
`, cartID, userID).Scan(&c.UserID, &c.TotalPrice, &c.TotalItems)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}

		rows, err := tx.Query(ctx, `
SELECT product_id::text, quantity
FROM cart_items
WHERE cart_id = $1
ORDER BY position ASC
`, cartID)
		if err != nil {
			return nil, err
		}
		c.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartItem, error) {
			var it domain.CartItem
			err := row.Scan(&it.ProductID, &it.Quantity)
			return it, err
		})
		if err != nil {
			return nil, err
		}
		if c.IsEmpty() {
			return nil, ErrCartEmpty
		}

		o := domain.NewOrderFromCart(c)
		var id string
		err = tx.QueryRow(ctx, `
INSERT INTO orders (user_id, total_price, total_items, total_quantity, cancellable, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text
`, o.UserID, o.TotalPrice, o.TotalItems, o.TotalQuantity, o.Cancellable, string(o.Status)).Scan(&id)
		if err != nil {
			return nil, err
		}

		batch := &pgx.Batch{}
		for i, it := range o.Items {
			batch.Queue(`
INSERT INTO order_items (order_id, product_id, quantity, position)
VALUES ($1, $2, $3, $4)
`, id, it.ProductID, it.Quantity, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `
UPDATE carts SET total_price = 0, total_items = 0, updated_at = now()
WHERE id = $1
`, cartID); err != nil {
			return nil, err
		}

		return fetchOrder(ctx, tx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrCartEmpty) && !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("place order failed", zap.String("cart_id", cartID), zap.Error(err))
		}
		return nil, err
	}
	r.logger.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("cart_id", cartID),
		zap.Int("total_quantity", placed.TotalQuantity),
	)
	return placed, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return fetchOrder(ctx, r.pool, id)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text
FROM orders
WHERE user_id = $1 AND NOT is_deleted
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := fetchOrder(ctx, r.pool, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND NOT is_deleted
`, id, string(status))
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	r.logger.Info("status updated", zap.String("order_id", id), zap.String("status", string(status)))
	return fetchOrder(ctx, r.pool, id)
}

func fetchOrder(ctx context.Context, q querier, id string) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND NOT is_deleted`, id).Scan(
		&o.ID,
		&o.UserID,
		&o.TotalPrice,
		&o.TotalItems,
		&o.TotalQuantity,
		&o.Cancellable,
		&status,
		&o.IsDeleted,
		&o.DeletedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)

	rows, err := q.Query(ctx, `
SELECT product_id::text, quantity
FROM order_items
WHERE order_id = $1
ORDER BY position ASC
`, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderItem, error) {
		var it domain.OrderItem
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}
