package cart

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

// querier is implemented by both *pgxpool.Pool and pgx.Tx.
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
	return &postgresRepo{pool: pool, logger: logger.OrNop(l).Named("cart_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Cart) (*domain.Cart, error) {
	created, err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) (*domain.Cart, error) {
		var id string
		err := tx.QueryRow(ctx, `
INSERT INTO carts (user_id, total_price, total_items)
VALUES ($1, $2, $3)
RETURNING id::text
`, c.UserID, c.TotalPrice, c.TotalItems).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, domain.ErrAlreadyExists
			}
			return nil, err
		}
		if err := insertItems(ctx, tx, id, c.Items); err != nil {
			return nil, err
		}
		return fetchCart(ctx, tx, `WHERE id = $1`, id)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			r.logger.Warn("create failed", zap.String("user_id", c.UserID), zap.Error(err))
		}
		return nil, err
	}
	r.logger.Debug("created", zap.String("id", created.ID), zap.String("user_id", created.UserID))
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return fetchCart(ctx, r.pool, `WHERE id = $1`, id)
}

func (r *postgresRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return fetchCart(ctx, r.pool, `WHERE user_id = $1`, userID)
}

func (r *postgresRepo) Save(ctx context.Context, c domain.Cart) (*domain.Cart, error) {
	saved, err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) (*domain.Cart, error) {
		cmd, err := tx.Exec(ctx, `
UPDATE carts
SET total_price = $2, total_items = $3, updated_at = now()
WHERE id = $1
`, c.ID, c.TotalPrice, c.TotalItems)
		if err != nil {
			return nil, err
		}
		if cmd.RowsAffected() == 0 {
			return nil, domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
			return nil, err
		}
		if err := insertItems(ctx, tx, c.ID, c.Items); err != nil {
			return nil, err
		}
		return fetchCart(ctx, tx, `WHERE id = $1`, c.ID)
	})
	if err != nil {
		r.logger.Warn("save failed", zap.String("id", c.ID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("saved", zap.String("id", saved.ID), zap.Int("lines", len(saved.Items)))
	return saved, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, cartID string, items []domain.CartItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
INSERT INTO cart_items (cart_id, product_id, quantity, position)
VALUES ($1, $2, $3, $4)
`, cartID, it.ProductID, it.Quantity, i)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func fetchCart(ctx context.Context, q querier, where string, args ...any) (*domain.Cart, error) {
	var c domain.Cart
	err := q.QueryRow(ctx, `
SELECT id::text, user_id::text, total_price, total_items, created_at, updated_at
FROM carts `+where, args...).Scan(
		&c.ID,
		&c.UserID,
		&c.TotalPrice,
		&c.TotalItems,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `
SELECT product_id::text, quantity
FROM cart_items
WHERE cart_id = $1
ORDER BY position ASC
`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Items = []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}
