package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	users := store.NewMemoryStore(false)
	svc := NewService(users, NewBcryptHasher(bcrypt.MinCost), testCodec(), nil)
	return svc, users
}

func TestService_SignUpAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	created, err := svc.SignUp(ctx, models.CreateUserRequest{
		FirstName: " Ada ",
		Email:     "ada@example.com",
		Password:  "pw",
		Role:      "ADMIN",
	}, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "Ada", created.FirstName)
	assert.Equal(t, models.RoleUser, created.Role, "role comes from the caller, not the body")
	assert.Equal(t, models.ProviderLocal, created.Provider)
	assert.NotEqual(t, "pw", created.Password)

	resp, err := svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ROLE_USER", resp.Role)

	claims, err := svc.tokens.Decode(resp.Token, fixed.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Subject)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.SignUp(ctx, models.CreateUserRequest{FirstName: "Ada", Email: "ada@example.com", Password: "pw"}, models.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name, email, password string
	}{
		{"unknown email", "bob@example.com", "pw"},
		{"wrong password", "ada@example.com", "nope"},
		{"email is case sensitive", "ADA@example.com", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, models.ErrInvalidCredentials)
			assert.Nil(t, resp)
		})
	}
}

func TestService_SignUpErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SignUp(ctx, models.CreateUserRequest{FirstName: "Ada", Email: "not-an-email", Password: "pw"}, models.RoleUser)
	assert.ErrorIs(t, err, models.ErrValidation)

	req := models.CreateUserRequest{FirstName: "Ada", Email: "ada@example.com", Password: "pw"}
	_, err = svc.SignUp(ctx, req, models.RoleUser)
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, req, models.RoleAdmin)
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestService_SignUpForcedRole(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.SignUp(context.Background(), models.CreateUserRequest{
		FirstName: "Ada", Email: "ada@example.com", Password: "pw", Role: "SUPERUSER",
	}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	args := m.Called(ctx, u)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestService_LoginStoreError(t *testing.T) {
	users := new(mockUserStore)
	boom := errors.New("connection reset")
	users.On("GetUserByEmail", mock.Anything, "ada@example.com").Return(nil, boom)

	svc := NewService(users, NewBcryptHasher(bcrypt.MinCost), testCodec(), nil)
	_, err := svc.Login(context.Background(), " ada@example.com ", "pw")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
	users.AssertExpectations(t)
}

func TestService_LoginUnknownStoredRole(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hashed, err := h.Hash("pw")
	require.NoError(t, err)

	users := new(mockUserStore)
	users.On("GetUserByEmail", mock.Anything, "ada@example.com").
		Return(&models.User{ID: "1", Email: "ada@example.com", Password: hashed, Role: ""}, nil)

	svc := NewService(users, h, testCodec(), nil)
	resp, err := svc.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ROLE_USER", resp.Role)
}
