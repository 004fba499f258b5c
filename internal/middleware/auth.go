package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayush/event-registration/backend/internal/auth"
	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/respond"
)

const bearerPrefix = "Bearer "

// TokenDecoder verifies a bearer token against the current time.
type TokenDecoder interface {
	Decode(token string, now time.Time) (*auth.Claims, error)
}

// Directory confirms that a token subject still names a stored user.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// GateState is where a request ended up in the authentication state machine.
type GateState int

const (
	NoToken GateState = iota
	TokenPresentUnverified
	Authenticated
	Rejected
)

func (s GateState) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case TokenPresentUnverified:
		return "unverified"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Gate recovers the caller's identity from the Authorization header. It
// never fails a request itself: missing, invalid and expired tokens all
// leave the request anonymous and Authorize makes the final call.
type Gate struct {
	tokens TokenDecoder
	users  Directory
	logger logging.Logger
	now    func() time.Time
}

// NewGate returns a Gate. A nil users skips the per-request existence check.
func NewGate(tokens TokenDecoder, users Directory, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{tokens: tokens, users: users, logger: logger, now: time.Now}
}

// Resolve runs the state machine for r. The identity is only meaningful
// when the state is Authenticated.
func (g *Gate) Resolve(r *http.Request) (auth.Identity, GateState) {
	ctx := r.Context()
	if id, ok := auth.IdentityFrom(ctx); ok {
		return id, Authenticated
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return auth.Identity{}, NoToken
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])

	claims, err := g.tokens.Decode(raw, g.now())
	if err != nil {
		g.logger.Debug(ctx, "bearer token rejected", "reason", err)
		return auth.Identity{}, Rejected
	}

	if g.users != nil {
		if _, err := g.users.GetUserByEmail(ctx, claims.Subject); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				g.logger.Debug(ctx, "token subject no longer exists")
			} else {
				g.logger.Warn(ctx, "user lookup failed during authentication", "err", err)
			}
			return auth.Identity{}, Rejected
		}
	}

	return auth.Identity{Subject: claims.Subject, Role: claims.Role}, Authenticated
}

// Authenticate binds the resolved identity to the request context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, bound := auth.IdentityFrom(r.Context()); bound {
			next.ServeHTTP(w, r)
			return
		}

		id, state := g.Resolve(r)
		if state != Authenticated {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// Authorize enforces policy against the identity bound by the Gate.
// Missing authentication and insufficient role get the same 403.
func Authorize(policy *auth.Policy, logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var caller *auth.Identity
			if id, ok := auth.IdentityFrom(r.Context()); ok {
				caller = &id
			}

			if !policy.Allows(r.Method, r.URL.Path, caller) {
				logger.Warn(r.Context(), "access denied",
					"method", r.Method,
					"path", r.URL.Path,
					"authenticated", caller != nil,
				)
				respond.Error(w, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentIdentity returns the identity bound to r, or an error handlers can
// surface as 403 when a route was reached without one.
func CurrentIdentity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return auth.Identity{}, models.ErrUnauthenticated
	}
	return id, nil
}
