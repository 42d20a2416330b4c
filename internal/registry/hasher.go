package registry

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies client secrets and user passwords.
type Hasher interface {
	// Generate a hashed value from a plaintext secret.
	Generate(secret []byte) ([]byte, error)

	// Compare a hashed value with a plaintext secret. A mismatch returns
	// bcrypt.ErrMismatchedHashAndPassword.
	Compare(hashed, secret []byte) error
}

// BcryptHasher hashes with bcrypt. A zero Cost means bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Generate(secret []byte) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword(secret, cost)
}

func (BcryptHasher) Compare(hashed, secret []byte) error {
	return bcrypt.CompareHashAndPassword(hashed, secret)
}

// PlainHasher stores secrets as given and compares them in constant time.
// It is meant for tests and the bundled sample configuration.
type PlainHasher struct{}

func (PlainHasher) Generate(secret []byte) ([]byte, error) {
	out := make([]byte, len(secret))
	copy(out, secret)
	return out, nil
}

func (PlainHasher) Compare(hashed, secret []byte) error {
	if subtle.ConstantTimeCompare(hashed, secret) != 1 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}

// NewHasher returns the hasher named by the configuration: "bcrypt" or
// "plain".
func NewHasher(name string) (Hasher, bool) {
	switch name {
	case "bcrypt":
		return BcryptHasher{}, true
	case "", "plain":
		return PlainHasher{}, true
	default:
		return nil, false
	}
}
