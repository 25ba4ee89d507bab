package auth

import (
	"strings"
	"testing"
)

// Cost 4 is the bcrypt minimum. The logic under test is identical at any
// cost; the only difference is ~250ms per hash at the production setting.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(4)
}

func TestHash_NeverEqualsPlaintext(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "secret1" {
		t.Fatal("Hash() returned the plaintext unchanged")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() = %q, doesn't look like a bcrypt hash", hash)
	}
}

func TestHash_SamePasswordDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	h1, _ := ps.Hash("secret1")
	h2, _ := ps.Hash("secret1")
	if h1 == h2 {
		t.Error("Hash() produced identical hashes; salting is broken")
	}
}

func TestHash_TooLong(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("Hash() should reject passwords longer than 72 bytes")
	}
}

func TestVerify_Match(t *testing.T) {
	ps := newTestPasswordService()

	hash, _ := ps.Hash("secret1")
	if err := ps.Verify(hash, "secret1"); err != nil {
		t.Errorf("Verify() error = %v for correct password", err)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	ps := newTestPasswordService()

	hash, _ := ps.Hash("secret1")
	if err := ps.Verify(hash, "wrong-password"); err == nil {
		t.Error("Verify() should fail for an incorrect password")
	}
}

// An OAuth-created account has no password hash at all. Logging in against
// it must look exactly like a wrong password.
func TestVerify_EmptyHash(t *testing.T) {
	ps := newTestPasswordService()

	if err := ps.Verify("", "anything"); err == nil {
		t.Error("Verify() should fail against an empty stored hash")
	}
}
