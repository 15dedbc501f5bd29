package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

type ProductWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type UserStore interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// DemoEmail and DemoPassword are the credentials of the seeded account.
const (
	DemoEmail    = "demo@storefront.local"
	DemoPassword = "Demo@1234"
)

var demoProducts = []domain.Product{
	{
		Title:          "Demo T-Shirt",
		Description:    "Soft cotton tee for demo purposes",
		Price:          decimal.RequireFromString("499.00"),
		Style:          "Casual",
		AvailableSizes: []string{"S", "M", "L"},
		IsFreeShipping: true,
	},
	{
		Title:          "Demo Hoodie",
		Description:    "Fleece hoodie with demo logo",
		Price:          decimal.RequireFromString("1299.00"),
		Style:          "Winter",
		AvailableSizes: []string{"M", "XL", "XXL"},
		Installments:   3,
	},
}

// Apply inserts demo data for manual testing. Running it twice is harmless.
func Apply(ctx context.Context, products ProductWriter, users UserStore, l *zap.Logger) error {
	l = logger.OrNop(l).Named("seed")

	for _, p := range demoProducts {
		p.CurrencyID = "INR"
		p.CurrencyFormat = "₹"
		saved, err := products.Upsert(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Title, err)
		}
		l.Info("product seeded", zap.String("title", saved.Title), zap.String("id", saved.ID))
	}

	if err := ensureUser(ctx, users, l); err != nil {
		return fmt.Errorf("ensure demo user: %w", err)
	}
	return nil
}

func ensureUser(ctx context.Context, users UserStore, l *zap.Logger) error {
	existing, err := users.GetByEmail(ctx, DemoEmail)
	switch {
	case err == nil:
		l.Info("demo user present", zap.String("id", existing.ID))
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	addr := domain.Address{Street: "1 Demo Street", City: "Bengaluru", Pincode: 560001}
	u, err := users.Create(ctx, domain.User{
		FName:        "Demo",
		LName:        "User",
		Email:        DemoEmail,
		Phone:        "9876543210",
		PasswordHash: string(hash),
		Address:      domain.UserAddress{Shipping: addr, Billing: addr},
	})
	if err != nil {
		return err
	}
	l.Info("demo user created", zap.String("id", u.ID))
	return nil
}
