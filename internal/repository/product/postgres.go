package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

const productColumns = `id::text, title, description, price, currency_id, currency_format, is_free_shipping,
       product_image, style, available_sizes, installments, is_deleted, deleted_at, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, l *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(l).Named("product_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (title, description, price, currency_id, currency_format, is_free_shipping,
                      product_image, style, available_sizes, installments)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + productColumns
	created, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Title, p.Description, p.Price, p.CurrencyID, p.CurrencyFormat, p.IsFreeShipping,
		p.ProductImage, p.Style, sizesOrEmpty(p.AvailableSizes), p.Installments,
	))
	if err != nil {
		r.logger.Warn("create failed", zap.String("title", p.Title), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("created", zap.String("id", created.ID))
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) FindActive(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND NOT is_deleted`
	return scanProduct(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var (
		where = []string{"NOT is_deleted"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Size != "" {
		where = append(where, arg(f.Size)+" = ANY(available_sizes)")
	}
	if f.Name != "" {
		where = append(where, "title ILIKE "+arg("%"+escapeLike(f.Name)+"%"))
	}
	if f.PriceGreaterThan != nil {
		where = append(where, "price > "+arg(*f.PriceGreaterThan))
	}
	if f.PriceLessThan != nil {
		where = append(where, "price < "+arg(*f.PriceLessThan))
	}
	order := "price DESC"
	if f.SortAscending {
		order = "price ASC"
	}

	q := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + order + `, created_at ASC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Warn("list failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("listed", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
UPDATE products
SET title = $2, description = $3, price = $4, currency_id = $5, currency_format = $6,
    is_free_shipping = $7, product_image = $8, style = $9, available_sizes = $10,
    installments = $11, updated_at = now()
WHERE id = $1 AND NOT is_deleted
RETURNING ` + productColumns
	return scanProduct(r.pool.QueryRow(ctx, q,
		p.ID, p.Title, p.Description, p.Price, p.CurrencyID, p.CurrencyFormat,
		p.IsFreeShipping, p.ProductImage, p.Style, sizesOrEmpty(p.AvailableSizes), p.Installments,
	))
}

func (r *postgresRepo) SoftDelete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE products
SET is_deleted = true, deleted_at = now(), updated_at = now()
WHERE id = $1 AND NOT is_deleted
`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("soft deleted", zap.String("id", id))
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (title, description, price, currency_id, currency_format, is_free_shipping,
                      product_image, style, available_sizes, installments)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (title) DO UPDATE SET
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    currency_id = EXCLUDED.currency_id,
    currency_format = EXCLUDED.currency_format,
    is_free_shipping = EXCLUDED.is_free_shipping,
    product_image = EXCLUDED.product_image,
    style = EXCLUDED.style,
    available_sizes = EXCLUDED.available_sizes,
    installments = EXCLUDED.installments,
    is_deleted = false,
    deleted_at = NULL,
    updated_at = now()
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Title, p.Description, p.Price, p.CurrencyID, p.CurrencyFormat, p.IsFreeShipping,
		p.ProductImage, p.Style, sizesOrEmpty(p.AvailableSizes), p.Installments,
	))
	if err != nil {
		r.logger.Warn("upsert failed", zap.String("title", p.Title), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("upserted", zap.String("title", res.Title), zap.String("id", res.ID))
	return res, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.CurrencyID,
		&p.CurrencyFormat,
		&p.IsFreeShipping,
		&p.ProductImage,
		&p.Style,
		&p.AvailableSizes,
		&p.Installments,
		&p.IsDeleted,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &p, nil
}

func sizesOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
