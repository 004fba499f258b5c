package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayush/event-registration/backend/internal/auth"
	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/models"
)

// Store is the user persistence the profile and admin endpoints need.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	DeleteUserByEmail(ctx context.Context, email string) error
}

// Signer creates accounts; auth.Service satisfies it.
type Signer interface {
	SignUp(ctx context.Context, req models.CreateUserRequest, role models.Role) (*models.User, error)
}

type Service struct {
	store  Store
	signer Signer
	hasher auth.Hasher
	logger logging.Logger
}

func NewService(store Store, signer Signer, hasher auth.Hasher, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{store: store, signer: signer, hasher: hasher, logger: logger}
}

// Profile returns the stored record for the caller's email.
func (s *Service) Profile(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

// UpdateProfile applies the non-empty fields of req to the caller's record.
func (s *Service) UpdateProfile(ctx context.Context, email string, req models.UpdateProfileRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if first := strings.TrimSpace(req.FirstName); first != "" {
		user.FirstName = first
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Password != "" {
		if user.Password, err = s.hasher.Hash(req.Password); err != nil {
			return err
		}
	}

	if _, err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info(ctx, "profile updated", "user_id", user.ID)
	return nil
}

// DeleteSelf removes the caller's account. Registrations that reference it
// are left in place.
func (s *Service) DeleteSelf(ctx context.Context, email string) error {
	if err := s.store.DeleteUserByEmail(ctx, email); err != nil {
		return err
	}
	s.logger.Info(ctx, "account deleted by owner")
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// Add creates an account with the role named in req, USER when absent.
func (s *Service) Add(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	role := models.RoleUser
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			return nil, fmt.Errorf("%w: role: must be USER or ADMIN", models.ErrValidation)
		}
		role = parsed
	}
	return s.signer.SignUp(ctx, req, role)
}

// Update overwrites the name, email and role of user id. The password is
// only replaced when req carries one; an empty role keeps the current one.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.Email = strings.TrimSpace(req.Email)
	if role, ok := models.ParseRole(req.Role); ok {
		user.Role = role
	}
	if req.Password != "" {
		if user.Password, err = s.hasher.Hash(req.Password); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user updated by admin", "user_id", updated.ID, "role", updated.Role)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted by admin", "user_id", id)
	return nil
}
