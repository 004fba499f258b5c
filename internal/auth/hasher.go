package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the one-way hash-and-verify boundary for plaintext secrets.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a Hasher using cost, or bcrypt.DefaultCost when
// cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
