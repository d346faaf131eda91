package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"property-market-backend/internal/metrics"
	"property-market-backend/internal/models"
	"property-market-backend/internal/repository"

	"github.com/google/uuid"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
	maxNameLength     = 100
)

// UserService handles registration, login and profile logic
type UserService struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenManager
}

// NewUserService creates a new user service
func NewUserService(users UserStore, hasher *PasswordHasher, tokens *TokenManager) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// RegisterInput represents a registration request
type RegisterInput struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
}

// LoginResult is a verified user together with a freshly issued session token
type LoginResult struct {
	User  *models.User
	Token string
}

// Register creates a new user account
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return nil, invalid("Name, email and password are required")
	}
	if len(name) > maxNameLength {
		return nil, invalid(fmt.Sprintf("Name must be at most %d characters", maxNameLength))
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("Invalid email address")
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return nil, invalid(fmt.Sprintf("Password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Phone:        optionalString(in.Phone),
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.UsersRegistered.Inc()
	return user, nil
}

// Login verifies credentials and issues a session token
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, invalid("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return &LoginResult{User: user, Token: token}, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the user's display name and phone
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string, phone *string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("Name is required")
	}
	if len(name) > maxNameLength {
		return nil, invalid(fmt.Sprintf("Name must be at most %d characters", maxNameLength))
	}

	if err := s.users.UpdateProfile(ctx, userID, name, optionalString(phone)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

// UpdatePushToken stores or clears the APNs device token for a user
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	if pushToken != nil {
		trimmed := strings.TrimSpace(*pushToken)
		if trimmed == "" {
			pushToken = nil
		} else {
			pushToken = &trimmed
		}
	}

	if err := s.users.UpdatePushToken(ctx, userID, pushToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return err
	}
	return nil
}

func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
