package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ayush/event-registration/backend/internal/models"
)

// Claims is the signed payload of a session token. The signature covers
// subject (email), role, issuer, iat and exp.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

func (c *Claims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// TokenCodec signs and verifies HS256 session tokens. It holds no mutable
// state, so one instance is shared by every request handler.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenCodec(secret []byte, ttl time.Duration, issuer string) *TokenCodec {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{secret: key, ttl: ttl, issuer: issuer}
}

func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Encode issues a token for subject valid over [now, now+ttl).
func (c *TokenCodec) Encode(subject string, role models.Role, now time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and then the validity window against now.
// Any failure returns models.ErrTokenExpired or models.ErrTokenInvalid and
// no claims.
func (c *TokenCodec) Decode(tokenString string, now time.Time) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" || !claims.Role.IsValid() {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// SubjectOf reads the subject without verifying anything. It returns ""
// for input that is not structurally a token.
func (c *TokenCodec) SubjectOf(tokenString string) string {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return ""
	}
	return claims.Subject
}
