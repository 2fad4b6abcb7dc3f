package security_test

import (
	"testing"

	"github.com/freshkit/freshkit-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	params := security.ArgonParams{Memory: 32768, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

	hash, err := security.HashPassword("laundry-day", params)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := security.VerifyPassword("laundry-day", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
	if _, err := security.VerifyPassword("irrelevant", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA"); err == nil {
		t.Fatal("expected error for malformed params")
	}
}

func TestEqualSecret(t *testing.T) {
	if !security.EqualSecret("ops-pass", "ops-pass") {
		t.Fatal("expected equal secrets to match")
	}
	if security.EqualSecret("ops-pas", "ops-pass") {
		t.Fatal("expected different secrets not to match")
	}
	if security.EqualSecret("", "") {
		t.Fatal("empty expected secret must never match")
	}
}

func TestNumericCode(t *testing.T) {
	code, err := security.NumericCode(6)
	if err != nil {
		t.Fatalf("NumericCode returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit in code %q", code)
		}
	}
	if _, err := security.NumericCode(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
