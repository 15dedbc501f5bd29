package user

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

const userColumns = `id::text, fname, lname, email, profile_image, phone, password_hash, address, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, l *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(l).Named("user_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	q := `
INSERT INTO users (fname, lname, email, profile_image, phone, password_hash, address)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q,
		u.FName, u.LName, strings.ToLower(u.Email), u.ProfileImage, u.Phone, u.PasswordHash, u.Address,
	))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) Update(ctx context.Context, u domain.User) (*domain.User, error) {
	q := `
UPDATE users
SET fname = $2, lname = $3, email = $4, profile_image = $5, phone = $6,
    password_hash = $7, address = $8, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q,
		u.ID, u.FName, u.LName, strings.ToLower(u.Email), u.ProfileImage, u.Phone, u.PasswordHash, u.Address,
	))
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.FName,
		&u.LName,
		&u.Email,
		&u.ProfileImage,
		&u.Phone,
		&u.PasswordHash,
		&u.Address,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Debug("unique violation", zap.String("constraint", pgErr.ConstraintName))
			switch pgErr.ConstraintName {
			case "users_email_key":
				return nil, domain.AlreadyExists("Email already exists")
			case "users_phone_key":
				return nil, domain.AlreadyExists("Phone number already exists")
			}
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Warn("scan error", zap.Error(err))
		return nil, err
	}
	return &u, nil
}
