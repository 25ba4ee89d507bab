// One-time password-reset codes.
//
// A reset code is a random 6-digit number mailed to the user. Only its
// SHA-256 hash is stored, alongside a 10-minute expiry. Verification hashes
// the submitted code and compares against the stored hash, so a database
// leak does not expose usable codes.

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// ResetCodeTTL is how long a reset code stays valid after issuance.
const ResetCodeTTL = 10 * time.Minute

// NewResetCode generates a fresh 6-digit code and its storage hash.
//
// The code is drawn from crypto/rand over [100000, 999999], so it always
// has exactly six digits and cannot be predicted from previous codes.
func NewResetCode() (code, hashed string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", "", fmt.Errorf("auth: generating reset code: %w", err)
	}
	code = fmt.Sprintf("%06d", n.Int64()+100000)
	return code, HashResetCode(code), nil
}

// HashResetCode returns the hex SHA-256 of a code, the form in which codes
// are stored and compared.
func HashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
