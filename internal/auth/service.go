package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/models"
)

// UserStore is the slice of user persistence the login flow needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service verifies credentials, issues tokens and creates accounts.
type Service struct {
	users  UserStore
	hasher Hasher
	tokens *TokenCodec
	logger logging.Logger
	now    func() time.Time
}

func NewService(users UserStore, hasher Hasher, tokens *TokenCodec, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

// Login checks email/password and returns a signed token plus the role
// authority. Unknown email and wrong password both yield
// models.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(user.Password, password) {
		return nil, models.ErrInvalidCredentials
	}

	role := user.Role
	if !role.IsValid() {
		role = models.RoleUser
	}

	token, err := s.tokens.Encode(user.Email, role, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID, "role", role)
	return &models.AuthResponse{Token: token, Role: role.Authority()}, nil
}

// SignUp hashes the password and stores a new local account with role.
// req.Role is ignored; role always wins.
func (s *Service) SignUp(ctx context.Context, req models.CreateUserRequest, role models.Role) (*models.User, error) {
	req.Role = ""
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Password:  hashed,
		Role:      role,
		Provider:  models.ProviderLocal,
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user created", "user_id", created.ID, "role", role)
	return created, nil
}
