package users

import (
	"errors"
	"fmt"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords with bcrypt. Every hash embeds
// its own random salt and cost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher clamps cost to bcrypt's accepted range, using
// bcrypt.DefaultCost when cost is zero.
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash fails with errors.ErrValidation for passwords longer than
// MaxPasswordBytes.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password must be at most %d bytes: %w", MaxPasswordBytes, autherrors.ErrValidation)
	}
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether password matches hash, and whether the hash was made
// with a lower cost than the hasher is configured for.
func (h *PasswordHasher) Verify(password, hash string) (matched bool, rehash bool) {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, false
	}
	cost, err := bcrypt.Cost([]byte(hash))
	return true, err == nil && cost < h.cost
}
