package auth

import (
	"testing"
)

func TestNewResetCode_Format(t *testing.T) {
	// Codes are random; generate a batch and check the invariants hold for
	// every one of them.
	for i := 0; i < 100; i++ {
		code, hashed, err := NewResetCode()
		if err != nil {
			t.Fatalf("NewResetCode() error = %v", err)
		}

		if len(code) != 6 {
			t.Fatalf("NewResetCode() code = %q, want 6 digits", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("NewResetCode() code %q contains non-digit %q", code, c)
			}
		}
		if code[0] == '0' {
			t.Fatalf("NewResetCode() code %q has a leading zero; range should be 100000-999999", code)
		}

		if hashed != HashResetCode(code) {
			t.Fatalf("NewResetCode() hash doesn't match HashResetCode(code)")
		}
		if hashed == code {
			t.Fatal("NewResetCode() stored form equals the plaintext code")
		}
		// hex-encoded SHA-256 is always 64 characters
		if len(hashed) != 64 {
			t.Fatalf("NewResetCode() hash length = %d, want 64", len(hashed))
		}
	}
}

func TestHashResetCode_Deterministic(t *testing.T) {
	if HashResetCode("123456") != HashResetCode("123456") {
		t.Error("HashResetCode() is not deterministic")
	}
	if HashResetCode("123456") == HashResetCode("123457") {
		t.Error("HashResetCode() collided for different codes")
	}
}
