package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrPasswordTooLong      = errors.New("password too long")
	ErrPasswordMismatch     = errors.New("passwords must match")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// RegisterInput represents the required information to create a new user.
// PasswordConfirm is checked only when non-nil; the web form always sends it.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm *string
}

type registration struct {
	Name  string `field:"name" validate:"required,min=2,max=80"`
	Email string `field:"email" validate:"required,email,max=120"`
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the input and creates a new user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	reg := registration{
		Name:  strings.TrimSpace(input.Name),
		Email: NormalizeEmail(input.Email),
	}
	if err := validate.Struct(reg); err != nil {
		return nil, toValidationError(err)
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if len(input.Password) > constants.MaxPasswordLength {
		return nil, ErrPasswordTooLong
	}
	if input.PasswordConfirm != nil && *input.PasswordConfirm != input.Password {
		return nil, ErrPasswordMismatch
	}

	if _, err := s.userRepo.FindByEmail(ctx, reg.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        reg.Email,
		Name:         reg.Name,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
