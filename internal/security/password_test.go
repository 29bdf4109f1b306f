package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasherHashAndVerify(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !h.Verify("correct horse battery", hash) {
		t.Fatal("expected matching password to verify")
	}
	if h.Verify("wrong horse battery", hash) {
		t.Fatal("expected mismatched password to fail")
	}
	if h.Verify("anything", "not-a-hash") {
		t.Fatal("expected malformed hash to fail without panicking")
	}
	if h.VerifyDummy("anything") {
		t.Fatal("dummy verification must always fail")
	}
}

func TestPasswordHasherCostBounds(t *testing.T) {
	if _, err := NewPasswordHasher(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected cost above max to be rejected")
	}
	if _, err := NewPasswordHasher(1); err == nil {
		t.Fatal("expected cost below min to be rejected")
	}
	if _, err := (&PasswordHasher{cost: bcrypt.MinCost}).Hash(""); err == nil {
		t.Fatal("expected empty password to be rejected")
	}
}

func TestPasswordHasherDefaultCost(t *testing.T) {
	h, err := NewPasswordHasher(0)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	if h.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost %d, got %d", DefaultBcryptCost, h.cost)
	}
}
