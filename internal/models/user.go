package models

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Role is the coarse authorization level carried by a user and its tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

const authorityPrefix = "ROLE_"

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Authority is the prefixed form ("ROLE_ADMIN") handed to clients at login.
func (r Role) Authority() string {
	return authorityPrefix + string(r)
}

// ParseRole accepts both the bare ("ADMIN") and the authority ("ROLE_ADMIN") form.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), authorityPrefix))
	return role, role.IsValid()
}

type AuthProvider string

const (
	ProviderLocal    AuthProvider = "LOCAL"
	ProviderExternal AuthProvider = "EXTERNAL"
)

// User represents a row in the PostgreSQL users table.
type User struct {
	ID         string       `json:"id"`
	FirstName  string       `json:"firstName"`
	LastName   string       `json:"lastName,omitempty"`
	Email      string       `json:"email"`
	Password   string       `json:"-"` // bcrypt hash, never serialized
	Role       Role         `json:"role"`
	Provider   AuthProvider `json:"provider"`
	ProviderID string       `json:"providerId,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// CreateUserRequest is the JSON body for signup and admin user creation.
type CreateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		validation.Field(&r.Role, validation.By(validRole)),
	)
}

// UpdateProfileRequest is the JSON body for PUT /api/user/update.
// Password is re-hashed only when non-empty.
type UpdateProfileRequest struct {
	FirstName string  `json:"firstName"`
	LastName  *string `json:"lastName"`
	Password  string  `json:"password"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.Password, validation.Length(0, 72)),
	)
}

// UpdateUserRequest is the JSON body for PUT /admin/updateuser/{id}.
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Length(0, 72)),
		validation.Field(&r.Role, validation.By(validRole)),
	)
}

// LoginRequest is the JSON body for POST /api/public/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func validRole(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := ParseRole(s); !ok {
		return errors.New("must be USER or ADMIN")
	}
	return nil
}
