package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"password with symbols", "p@$$w0rd!#%"},
		{"unicode password", "pässwörd123"},
		{"long password", strings.Repeat("a", 72)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}

			if hash == tt.password {
				t.Error("hash must not equal the plaintext password")
			}

			if !hasher.Verify(tt.password, hash) {
				t.Error("Verify() = false for correct password")
			}

			if hasher.Verify("wrong-password", hash) {
				t.Error("Verify() = true for wrong password")
			}
		})
	}
}

func TestPasswordHasher_TooLong(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	_, err := hasher.Hash(strings.Repeat("a", 73))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestPasswordHasher_DistinctHashes(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt salts every hash
	if first == second {
		t.Error("expected distinct hashes for the same password")
	}
}
