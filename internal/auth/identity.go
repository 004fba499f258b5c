package auth

import (
	"context"

	"github.com/ayush/event-registration/backend/internal/models"
)

// Identity is the caller recovered from a verified token.
type Identity struct {
	Subject string // email
	Role    models.Role
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id for the rest of the request.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity bound to ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
