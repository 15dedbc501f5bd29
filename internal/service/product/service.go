package product

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"storefront/internal/domain"
	"storefront/internal/logger"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/storage"
)

const (
	rupeeSymbol = "₹"
	imagePrefix = "products"
)

var (
	errInvalidProductID = domain.InvalidInput("Invalid productId")
	errProductNotFound  = domain.NotFound("Product not found")
	errNoProducts       = domain.NotFound("No products found")
	errTitleTaken       = domain.AlreadyExists("Title already exists")
	errInvalidPrice     = domain.InvalidInput("Price must be a valid number or decimal.")
	errCurrencyID       = domain.InvalidInput("Currency Id must be INR")
	errCurrencyFormat   = domain.InvalidInput("Currency Format must be Rupee symbol (₹).")
	errSizes            = domain.InvalidInput("Available Sizes must be S, XS, M, X, L, XXL, XL.")
	errNoSizes          = domain.InvalidInput("Please select at least one size.")
	errNoFile           = domain.InvalidInput("No File Found")
)

// ImageStore persists uploaded product images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, prefix string, up storage.Upload) (string, error)
}

// Service is the catalog store's write and query surface.
type Service struct {
	repo   productrepo.Repository
	images ImageStore
	logger *zap.Logger
}

// New builds the service. A nil images store makes product images optional.
func New(repo productrepo.Repository, images ImageStore, l *zap.Logger) *Service {
	return &Service{repo: repo, images: images, logger: logger.OrNop(l).Named("product_service")}
}

type CreateInput struct {
	Title          string
	Description    string
	Price          string
	CurrencyID     string
	CurrencyFormat string
	IsFreeShipping bool
	Style          string
	AvailableSizes []string
	Installments   int
}

// Create validates in, uploads the image and inserts the product.
func (s *Service) Create(ctx context.Context, in CreateInput, image *storage.Upload) (*domain.Product, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.InvalidInput("Title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, domain.InvalidInput("Description is required")
	}
	if strings.TrimSpace(in.Price) == "" {
		return nil, domain.InvalidInput("Price is required")
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CurrencyID) == "" {
		return nil, domain.InvalidInput("Currency Id is required")
	}
	if err := checkCurrencyID(in.CurrencyID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CurrencyFormat) == "" {
		return nil, domain.InvalidInput("Currency Format is required")
	}
	if strings.TrimSpace(in.CurrencyFormat) != rupeeSymbol {
		return nil, errCurrencyFormat
	}
	if in.AvailableSizes == nil {
		return nil, domain.InvalidInput("Available Sizes is required")
	}
	sizes, err := checkSizes(in.AvailableSizes)
	if err != nil {
		return nil, err
	}
	if image == nil && s.images != nil {
		return nil, errNoFile
	}

	p := domain.Product{
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Price:          price,
		CurrencyID:     currency.INR.String(),
		CurrencyFormat: rupeeSymbol,
		IsFreeShipping: in.IsFreeShipping,
		Style:          strings.TrimSpace(in.Style),
		AvailableSizes: sizes,
		Installments:   in.Installments,
	}
	if image != nil {
		if p.ProductImage, err = s.upload(ctx, *image); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, errTitleTaken
		}
		return nil, err
	}
	s.logger.Info("product created", zap.String("product_id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// ListQuery carries raw catalog query parameters.
type ListQuery struct {
	Size             string
	Name             string
	PriceGreaterThan string
	PriceLessThan    string
	PriceSort        string
}

// List returns active products matching q, sorted by price ascending when
// PriceSort is "1" and descending otherwise.
func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Product, error) {
	f := domain.ProductFilter{
		Size:          strings.TrimSpace(q.Size),
		Name:          strings.TrimSpace(q.Name),
		SortAscending: strings.TrimSpace(q.PriceSort) == "1",
	}
	var err error
	if f.PriceGreaterThan, err = optionalDecimal(q.PriceGreaterThan, "priceGreaterThan"); err != nil {
		return nil, err
	}
	if f.PriceLessThan, err = optionalDecimal(q.PriceLessThan, "priceLessThan"); err != nil {
		return nil, err
	}

	products, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, errNoProducts
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	if !domain.ValidID(id) {
		return nil, errInvalidProductID
	}
	p, err := s.repo.FindActive(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// UpdateInput holds optional replacements. Nil fields keep their value.
type UpdateInput struct {
	Title          *string
	Description    *string
	Price          *string
	CurrencyID     *string
	CurrencyFormat *string
	IsFreeShipping *bool
	Style          *string
	AvailableSizes []string
	Installments   *int
}

// Update applies the non-empty fields of in to an active product.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, image *storage.Upload) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := trimmed(in.Title); v != "" {
		p.Title = v
	}
	if v := trimmed(in.Description); v != "" {
		p.Description = v
	}
	if v := trimmed(in.Price); v != "" {
		if p.Price, err = parsePrice(v); err != nil {
			return nil, err
		}
	}
	if v := trimmed(in.CurrencyID); v != "" {
		if err := checkCurrencyID(v); err != nil {
			return nil, err
		}
	}
	if v := trimmed(in.CurrencyFormat); v != "" && v != rupeeSymbol {
		return nil, errCurrencyFormat
	}
	if in.IsFreeShipping != nil {
		p.IsFreeShipping = *in.IsFreeShipping
	}
	if v := trimmed(in.Style); v != "" {
		p.Style = v
	}
	if in.AvailableSizes != nil {
		if p.AvailableSizes, err = checkSizes(in.AvailableSizes); err != nil {
			return nil, err
		}
	}
	if in.Installments != nil {
		p.Installments = *in.Installments
	}
	if image != nil {
		if p.ProductImage, err = s.upload(ctx, *image); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, *p)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			return nil, errTitleTaken
		case errors.Is(err, domain.ErrNotFound):
			return nil, errProductNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes an active product. Carts and orders keep referencing it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errProductNotFound
		}
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *Service) upload(ctx context.Context, up storage.Upload) (string, error) {
	if s.images == nil {
		return "", storage.ErrNotConfigured
	}
	url, err := s.images.Put(ctx, imagePrefix, up)
	if err != nil {
		s.logger.Error("image upload failed", zap.String("filename", up.Filename), zap.Error(err))
		return "", err
	}
	return url, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero, errInvalidPrice
	}
	if d.IsZero() {
		return decimal.Zero, domain.InvalidInput("Price is required")
	}
	return d, nil
}

func checkCurrencyID(raw string) error {
	unit, err := currency.ParseISO(strings.TrimSpace(raw))
	if err != nil || unit != currency.INR {
		return errCurrencyID
	}
	return nil
}

// checkSizes trims and validates sizes, dropping duplicates.
func checkSizes(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		sz := strings.ToUpper(strings.TrimSpace(raw))
		if sz == "" {
			continue
		}
		if !domain.ValidSize(sz) {
			return nil, errSizes
		}
		if !seen[sz] {
			seen[sz] = true
			out = append(out, sz)
		}
	}
	if len(out) == 0 {
		return nil, errNoSizes
	}
	return out, nil
}

func optionalDecimal(raw, name string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.InvalidInput(name + " must be a number")
	}
	return &d, nil
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
