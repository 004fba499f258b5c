package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/event-registration/backend/internal/auth"
	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/store"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	codec *auth.TokenCodec
	users *store.MemoryStore
	gate  *Gate
}

func newFixture(t *testing.T, recheck bool) *fixture {
	t.Helper()
	codec := auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), 10*time.Hour, "event-registration")
	users := store.NewMemoryStore(false)
	_, err := users.CreateUser(context.Background(), &models.User{FirstName: "Ada", Email: "ada@example.com", Role: models.RoleUser})
	require.NoError(t, err)

	var dir Directory
	if recheck {
		dir = users
	}
	gate := NewGate(codec, dir, nil)
	gate.now = func() time.Time { return now }
	return &fixture{codec: codec, users: users, gate: gate}
}

func (f *fixture) token(t *testing.T, subject string, role models.Role, issued time.Time) string {
	t.Helper()
	tok, err := f.codec.Encode(subject, role, issued)
	require.NoError(t, err)
	return tok
}

func TestGate_Resolve(t *testing.T) {
	f := newFixture(t, true)
	valid := f.token(t, "ada@example.com", models.RoleUser, now)
	expired := f.token(t, "ada@example.com", models.RoleUser, now.Add(-11*time.Hour))
	ghost := f.token(t, "ghost@example.com", models.RoleAdmin, now)

	tests := []struct {
		name   string
		header string
		state  GateState
	}{
		{"no header", "", NoToken},
		{"other scheme", "Basic YWRhOnB3", NoToken},
		{"lowercase scheme", "bearer " + valid, NoToken},
		{"valid", "Bearer " + valid, Authenticated},
		{"expired", "Bearer " + expired, Rejected},
		{"garbage", "Bearer not-a-token", Rejected},
		{"empty token", "Bearer ", Rejected},
		{"unknown subject", "Bearer " + ghost, Rejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			id, state := f.gate.Resolve(r)
			assert.Equal(t, tt.state, state, state.String())
			if state == Authenticated {
				assert.Equal(t, "ada@example.com", id.Subject)
				assert.Equal(t, models.RoleUser, id.Role)
			} else {
				assert.Empty(t, id.Subject)
			}
		})
	}
}

func TestGate_WithoutRecheck(t *testing.T) {
	f := newFixture(t, false)
	ghost := f.token(t, "ghost@example.com", models.RoleAdmin, now)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+ghost)
	id, state := f.gate.Resolve(r)
	assert.Equal(t, Authenticated, state)
	assert.Equal(t, models.RoleAdmin, id.Role)
}

func TestGate_RoleComesFromToken(t *testing.T) {
	f := newFixture(t, true)
	// The stored role is USER; a token minted as ADMIN keeps ADMIN until it expires.
	tok := f.token(t, "ada@example.com", models.RoleAdmin, now)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	id, state := f.gate.Resolve(r)
	require.Equal(t, Authenticated, state)
	assert.Equal(t, models.RoleAdmin, id.Role)
}

func TestGate_AuthenticateBindsOnce(t *testing.T) {
	f := newFixture(t, true)
	tok := f.token(t, "ada@example.com", models.RoleUser, now)

	var seen auth.Identity
	var bound bool
	h := f.gate.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, bound = auth.IdentityFrom(r.Context())
	}))

	t.Run("binds identity", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+tok)
		h.ServeHTTP(httptest.NewRecorder(), r)
		assert.True(t, bound)
		assert.Equal(t, "ada@example.com", seen.Subject)
	})

	t.Run("keeps an existing binding", func(t *testing.T) {
		pre := auth.Identity{Subject: "first@example.com", Role: models.RoleAdmin}
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(auth.WithIdentity(r.Context(), pre))
		r.Header.Set("Authorization", "Bearer "+tok)
		h.ServeHTTP(httptest.NewRecorder(), r)
		assert.True(t, bound)
		assert.Equal(t, pre, seen)
	})

	t.Run("invalid token proceeds anonymous", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.False(t, bound)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t, true)
	userTok := f.token(t, "ada@example.com", models.RoleUser, now)

	var buf bytes.Buffer
	logger := logging.NewJSON(&buf, "debug")
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := f.gate.Authenticate(Authorize(auth.NewPolicy("/api"), logger)(ok))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"public anonymous", http.MethodPost, "/api/public/login", "", http.StatusTeapot},
		{"admin anonymous", http.MethodGet, "/admin/users", "", http.StatusForbidden},
		{"admin as user", http.MethodGet, "/admin/users", userTok, http.StatusForbidden},
		{"user area as user", http.MethodGet, "/api/user", userTok, http.StatusTeapot},
		{"default anonymous", http.MethodGet, "/api/events", "", http.StatusForbidden},
		{"default bad token", http.MethodGet, "/api/events", "junk", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
			}
		})
	}
	assert.Contains(t, buf.String(), "access denied")
	assert.NotContains(t, buf.String(), userTok)
}

func TestCurrentIdentity(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := CurrentIdentity(r)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{Subject: "a@example.com", Role: models.RoleUser}))
	id, err := CurrentIdentity(r)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", id.Subject)
}
