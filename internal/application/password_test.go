package application

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var fastArgon2idParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestPasswordHash_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("s3cret!", fastArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	if err := VerifyPassword(hash, "s3cret!"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPassword_AcceptsBcrypt(t *testing.T) {
	t.Parallel()

	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	if err := VerifyPassword(string(legacy), "legacy-pass"); err != nil {
		t.Fatalf("expected bcrypt hash to verify, got %v", err)
	}
	if err := VerifyPassword(string(legacy), "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPassword_RejectsMalformedHash(t *testing.T) {
	t.Parallel()

	if err := VerifyPassword("plain-text", "plain-text"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
	}
}
