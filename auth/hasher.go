package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// --- Password Hashing ---

// BcryptHasher is the ledger's PasswordHasher. The core only ever stores the
// hash; verification stays on this side of the boundary.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.Cost)
	if err != nil {
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash.
func (h BcryptHasher) Verify(hash, plaintext string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
}
