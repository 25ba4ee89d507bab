// Password hashing.
//
// bcrypt is deliberately slow, salts automatically, and embeds salt and
// cost in its output string, so the stored hash is self-contained. The
// stored value is never comparable to the plaintext: registration MUST
// store the hash, and login MUST compare with bcrypt, not string equality.

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly 250ms on a
// modern server: negligible per login, brutal for offline cracking.
const defaultCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct rather than free functions so the cost can be injected:
// tests use the bcrypt minimum (4) to avoid paying 250ms per hash.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// Intended for tests; do not lower the cost in production wiring.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password.
//
// bcrypt silently truncates inputs beyond 72 bytes, so longer passwords
// are rejected explicitly rather than partially hashed.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a stored hash. Returns nil on
// match. bcrypt compares in constant time, so this is safe against timing
// attacks.
//
// An empty stored hash (an OAuth-only account) never matches anything,
// which is exactly the behavior login needs: wrong-password, not error.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		// An empty or malformed hash surfaces as ErrHashTooShort; treat it
		// the same as a mismatch so account type is not observable.
		return fmt.Errorf("auth: invalid password")
	}
	return nil
}
