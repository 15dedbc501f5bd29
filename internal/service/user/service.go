package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/logger"
	userrepo "storefront/internal/repository/user"
	"storefront/internal/storage"
)

const (
	passwordMin = 8
	passwordMax = 15
	imagePrefix = "users"
)

var (
	emailRe = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	phoneRe = regexp.MustCompile(`^[\+]?[(]?[0-9]{3}[)]?[-\s\.]?[0-9]{3}[-\s\.]?[0-9]{4}$`)
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = domain.Unauthorized("Invalid email or password!!!")

	errInvalidUserID = domain.InvalidInput("Invalid userId")
	errUserNotFound  = domain.NotFound("User not found")
	errInvalidEmail  = domain.InvalidInput("Please enter a valid email address")
	errInvalidPhone  = domain.InvalidInput("Please enter a valid phone number")
	errPasswordLen   = domain.InvalidInput("Password must be between 8 and 15 characters long")
	errPasswordRules = domain.InvalidInput("Password must contain at least one number, one uppercase and lowercase letter, one special character and one non alphanumeric character")
	errNoFile        = domain.InvalidInput("No File Found")
)

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type ImageStore interface {
	Put(ctx context.Context, prefix string, up storage.Upload) (string, error)
}

// Service handles registration, login and profile management.
type Service struct {
	repo   userrepo.Repository
	tokens TokenIssuer
	images ImageStore
	cost   int
	logger *zap.Logger
}

// New creates a Service. A nil images store makes profile images optional.
func New(repo userrepo.Repository, tokens TokenIssuer, images ImageStore, l *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		images: images,
		cost:   bcrypt.DefaultCost,
		logger: logger.OrNop(l).Named("user_service"),
	}
}

type RegisterInput struct {
	FName    string
	LName    string
	Email    string
	Phone    string
	Password string
	Address  *domain.UserAddress
}

// Register validates in, uploads the profile image and stores the user with
// a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput, image *storage.Upload) (*domain.User, error) {
	if image == nil && s.images != nil {
		return nil, errNoFile
	}
	if strings.TrimSpace(in.FName) == "" {
		return nil, domain.InvalidInput("Please enter first name")
	}
	if strings.TrimSpace(in.LName) == "" {
		return nil, domain.InvalidInput("Please enter last name")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, domain.InvalidInput("Please enter email address")
	}
	if !emailRe.MatchString(email) {
		return nil, errInvalidEmail
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return nil, domain.InvalidInput("Please enter phone number")
	}
	if !phoneRe.MatchString(phone) {
		return nil, errInvalidPhone
	}
	if in.Password == "" {
		return nil, domain.InvalidInput("Please enter password")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateAddress(in.Address); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}

	u := domain.User{
		FName:        strings.TrimSpace(in.FName),
		LName:        strings.TrimSpace(in.LName),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashed),
		Address:      *in.Address,
	}
	if image != nil {
		if u.ProfileImage, err = s.upload(ctx, *image); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", created.ID))
	return created, nil
}

// Session is a successful login.
type Session struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.InvalidInput("Please enter email address")
	}
	if !emailRe.MatchString(email) {
		return nil, errInvalidEmail
	}
	if password == "" {
		return nil, domain.InvalidInput("Please enter password")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: u.ID, Token: token, ExpiresAt: exp}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	if !domain.ValidID(id) {
		return nil, errInvalidUserID
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateInput holds optional profile changes. Address fields left at their
// zero value keep the stored value.
type UpdateInput struct {
	FName    *string
	LName    *string
	Email    *string
	Phone    *string
	Password *string
	Address  *domain.UserAddress
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateInput, image *storage.Upload) (*domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := trimmed(in.FName); v != "" {
		u.FName = v
	}
	if v := trimmed(in.LName); v != "" {
		u.LName = v
	}
	if v := strings.ToLower(trimmed(in.Email)); v != "" {
		if !emailRe.MatchString(v) {
			return nil, errInvalidEmail
		}
		u.Email = v
	}
	if v := trimmed(in.Phone); v != "" {
		if !phoneRe.MatchString(v) {
			return nil, errInvalidPhone
		}
		u.Phone = v
	}
	if in.Password != nil && *in.Password != "" {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hashed)
	}
	if in.Address != nil {
		mergeAddress(&u.Address.Shipping, in.Address.Shipping)
		mergeAddress(&u.Address.Billing, in.Address.Billing)
	}
	if image != nil {
		if u.ProfileImage, err = s.upload(ctx, *image); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, *u)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	s.logger.Info("profile updated", zap.String("user_id", id))
	return updated, nil
}

func (s *Service) upload(ctx context.Context, up storage.Upload) (string, error) {
	if s.images == nil {
		return "", storage.ErrNotConfigured
	}
	return s.images.Put(ctx, imagePrefix, up)
}

func validatePassword(p string) error {
	if n := len([]rune(p)); n < passwordMin || n > passwordMax {
		return errPasswordLen
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range p {
		switch {
		case unicode.IsSpace(r):
			return errPasswordRules
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return errPasswordRules
	}
	return nil
}

func validateAddress(a *domain.UserAddress) error {
	if a == nil {
		return domain.InvalidInput("Please enter address")
	}
	checks := []struct {
		missing bool
		msg     string
	}{
		{strings.TrimSpace(a.Shipping.Street) == "", "Please enter shipping street address"},
		{strings.TrimSpace(a.Shipping.City) == "", "Please enter shipping city address"},
		{a.Shipping.Pincode == 0, "Please enter shipping pincode address"},
		{strings.TrimSpace(a.Billing.Street) == "", "Please enter billing street address"},
		{strings.TrimSpace(a.Billing.City) == "", "Please enter billing city address"},
		{a.Billing.Pincode == 0, "Please enter billing pincode address"},
	}
	for _, c := range checks {
		if c.missing {
			return domain.InvalidInput(c.msg)
		}
	}
	return nil
}

func mergeAddress(dst *domain.Address, patch domain.Address) {
	if v := strings.TrimSpace(patch.Street); v != "" {
		dst.Street = v
	}
	if v := strings.TrimSpace(patch.City); v != "" {
		dst.City = v
	}
	if patch.Pincode != 0 {
		dst.Pincode = patch.Pincode
	}
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
