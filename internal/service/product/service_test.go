package product

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storefront/internal/domain"
	"storefront/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubRepo struct {
	byID       map[string]domain.Product
	lastFilter domain.ProductFilter
	listResult []domain.Product
	createErr  error
	updateErr  error
	deleted    []string
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: map[string]domain.Product{}}
}

func (s *stubRepo) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	p.ID = uuid.NewString()
	s.byID[p.ID] = p
	return &p, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *stubRepo) FindActive(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubRepo) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	s.lastFilter = f
	return s.listResult, nil
}

func (s *stubRepo) Update(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.byID[p.ID] = p
	return &p, nil
}

func (s *stubRepo) SoftDelete(_ context.Context, id string) error {
	p := s.byID[id]
	p.IsDeleted = true
	s.byID[id] = p
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	return s.Create(ctx, p)
}

type stubImages struct {
	calls []string
	err   error
}

func (s *stubImages) Put(_ context.Context, prefix string, up storage.Upload) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.calls = append(s.calls, prefix+"/"+up.Filename)
	return "https://cdn.example.com/" + prefix + "/" + up.Filename, nil
}

func validInput() CreateInput {
	return CreateInput{
		Title:          "Blue Tee",
		Description:    "Cotton tee",
		Price:          "499.50",
		CurrencyID:     "INR",
		CurrencyFormat: "₹",
		IsFreeShipping: true,
		AvailableSizes: []string{"M", "l", "M"},
		Installments:   3,
	}
}

func upload() *storage.Upload {
	return &storage.Upload{Filename: "tee.png", ContentType: "image/png", Size: 4, Body: strings.NewReader("png!")}
}

func TestCreate(t *testing.T) {
	repo, images := newStubRepo(), &stubImages{}
	svc := New(repo, images, nil)

	p, err := svc.Create(context.Background(), validInput(), upload())
	require.NoError(t, err)
	assert.Equal(t, "Blue Tee", p.Title)
	assert.True(t, decimal.RequireFromString("499.5").Equal(p.Price))
	assert.Equal(t, "INR", p.CurrencyID)
	assert.Equal(t, []string{"M", "L"}, p.AvailableSizes)
	assert.Equal(t, "https://cdn.example.com/products/tee.png", p.ProductImage)
	assert.Equal(t, []string{"products/tee.png"}, images.calls)
}

func TestCreateWithoutImageStore(t *testing.T) {
	svc := New(newStubRepo(), nil, nil)

	p, err := svc.Create(context.Background(), validInput(), nil)
	require.NoError(t, err)
	assert.Empty(t, p.ProductImage)
}

func TestCreateValidation(t *testing.T) {
	svc := New(newStubRepo(), &stubImages{}, nil)

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		msg    string
	}{
		{"title", func(in *CreateInput) { in.Title = " " }, "Title is required"},
		{"description", func(in *CreateInput) { in.Description = "" }, "Description is required"},
		{"price missing", func(in *CreateInput) { in.Price = "" }, "Price is required"},
		{"price zero", func(in *CreateInput) { in.Price = "0" }, "Price is required"},
		{"price text", func(in *CreateInput) { in.Price = "cheap" }, "Price must be a valid number or decimal."},
		{"price negative", func(in *CreateInput) { in.Price = "-1" }, "Price must be a valid number or decimal."},
		{"currency missing", func(in *CreateInput) { in.CurrencyID = "" }, "Currency Id is required"},
		{"currency usd", func(in *CreateInput) { in.CurrencyID = "USD" }, "Currency Id must be INR"},
		{"currency junk", func(in *CreateInput) { in.CurrencyID = "rupees" }, "Currency Id must be INR"},
		{"format missing", func(in *CreateInput) { in.CurrencyFormat = "" }, "Currency Format is required"},
		{"format dollar", func(in *CreateInput) { in.CurrencyFormat = "$" }, "Currency Format must be Rupee symbol (₹)."},
		{"sizes missing", func(in *CreateInput) { in.AvailableSizes = nil }, "Available Sizes is required"},
		{"sizes invalid", func(in *CreateInput) { in.AvailableSizes = []string{"M", "XXXL"} }, "Available Sizes must be S, XS, M, X, L, XXL, XL."},
		{"sizes empty", func(in *CreateInput) { in.AvailableSizes = []string{" "} }, "Please select at least one size."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), in, upload())
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			msg, _ := domain.Message(err)
			assert.Equal(t, tc.msg, msg)
		})
	}

	_, err := svc.Create(context.Background(), validInput(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	msg, _ := domain.Message(err)
	assert.Equal(t, "No File Found", msg)
}

func TestCreateTitleTaken(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = domain.ErrAlreadyExists
	svc := New(repo, nil, nil)

	_, err := svc.Create(context.Background(), validInput(), nil)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	msg, _ := domain.Message(err)
	assert.Equal(t, "Title already exists", msg)
}

func TestCreateUploadFailure(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, &stubImages{err: errors.New("s3 down")}, nil)

	_, err := svc.Create(context.Background(), validInput(), upload())
	require.EqualError(t, err, "s3 down")
	assert.Empty(t, repo.byID)
}

func TestList(t *testing.T) {
	repo := newStubRepo()
	repo.listResult = []domain.Product{{ID: "p1"}}
	svc := New(repo, nil, nil)

	got, err := svc.List(context.Background(), ListQuery{
		Size: "M", Name: " tee ", PriceGreaterThan: "100", PriceLessThan: "500.5", PriceSort: "1",
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	f := repo.lastFilter
	assert.Equal(t, "M", f.Size)
	assert.Equal(t, "tee", f.Name)
	require.NotNil(t, f.PriceGreaterThan)
	assert.True(t, decimal.NewFromInt(100).Equal(*f.PriceGreaterThan))
	require.NotNil(t, f.PriceLessThan)
	assert.True(t, decimal.RequireFromString("500.5").Equal(*f.PriceLessThan))
	assert.True(t, f.SortAscending)

	_, err = svc.List(context.Background(), ListQuery{PriceSort: "-1"})
	require.NoError(t, err)
	assert.False(t, repo.lastFilter.SortAscending)
	assert.Nil(t, repo.lastFilter.PriceGreaterThan)
}

func TestListErrors(t *testing.T) {
	svc := New(newStubRepo(), nil, nil)

	_, err := svc.List(context.Background(), ListQuery{})
	require.ErrorIs(t, err, domain.ErrNotFound)
	msg, _ := domain.Message(err)
	assert.Equal(t, "No products found", msg)

	_, err = svc.List(context.Background(), ListQuery{PriceLessThan: "abc"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func seeded(t *testing.T, repo *stubRepo) domain.Product {
	t.Helper()
	p, err := repo.Create(context.Background(), domain.Product{
		Title:          "Cap",
		Description:    "Wool cap",
		Price:          decimal.NewFromInt(200),
		CurrencyID:     "INR",
		CurrencyFormat: "₹",
		AvailableSizes: []string{"S"},
	})
	require.NoError(t, err)
	return *p
}

func TestGet(t *testing.T) {
	repo := newStubRepo()
	p := seeded(t, repo)
	svc := New(repo, nil, nil)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cap", got.Title)

	_, err = svc.Get(context.Background(), "123")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	repo := newStubRepo()
	p := seeded(t, repo)
	images := &stubImages{}
	svc := New(repo, images, nil)

	title, price, blank := "Winter Cap", "250.00", " "
	free := true
	got, err := svc.Update(context.Background(), p.ID, UpdateInput{
		Title:          &title,
		Description:    &blank,
		Price:          &price,
		IsFreeShipping: &free,
		AvailableSizes: []string{"S", "M"},
	}, upload())
	require.NoError(t, err)
	assert.Equal(t, "Winter Cap", got.Title)
	assert.Equal(t, "Wool cap", got.Description)
	assert.True(t, decimal.NewFromInt(250).Equal(got.Price))
	assert.True(t, got.IsFreeShipping)
	assert.Equal(t, []string{"S", "M"}, got.AvailableSizes)
	assert.NotEmpty(t, got.ProductImage)
}

func TestUpdateErrors(t *testing.T) {
	repo := newStubRepo()
	p := seeded(t, repo)
	svc := New(repo, nil, nil)
	ctx := context.Background()

	bad := "abc"
	_, err := svc.Update(ctx, p.ID, UpdateInput{Price: &bad}, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	usd := "USD"
	_, err = svc.Update(ctx, p.ID, UpdateInput{CurrencyID: &usd}, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	dollar := "$"
	_, err = svc.Update(ctx, p.ID, UpdateInput{CurrencyFormat: &dollar}, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Update(ctx, p.ID, UpdateInput{}, upload())
	require.ErrorIs(t, err, storage.ErrNotConfigured)

	repo.updateErr = domain.ErrAlreadyExists
	_, err = svc.Update(ctx, p.ID, UpdateInput{}, nil)
	msg, _ := domain.Message(err)
	assert.Equal(t, "Title already exists", msg)

	_, err = svc.Update(ctx, uuid.NewString(), UpdateInput{}, nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newStubRepo()
	p := seeded(t, repo)
	svc := New(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, []string{p.ID}, repo.deleted)

	_, err := svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, repo.deleted, 1)
}
