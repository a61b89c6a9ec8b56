package auth

import (
	"errors"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	first, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatalf("expected salted hashes to differ")
	}
	for _, h := range []string{first, second} {
		ok, err := VerifyPassword(h, "s3cret-pass")
		if err != nil || !ok {
			t.Fatalf("VerifyPassword(%q) = %v, %v", h, ok, err)
		}
	}
}

func TestVerifyPasswordMismatchIsNotAnError(t *testing.T) {
	h, err := HashPassword("right")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ok, err := VerifyPassword(h, "wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerifyPasswordCorruptHash(t *testing.T) {
	for _, h := range []string{"", "plaintext", "$2a$10$tooshort"} {
		_, err := VerifyPassword(h, "anything")
		if !errors.Is(err, ErrCorruptHash) {
			t.Fatalf("hash %q: expected ErrCorruptHash, got %v", h, err)
		}
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCheckHashAcceptsCost(t *testing.T) {
	h, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckHash(h); err != nil {
		t.Fatalf("CheckHash: %v", err)
	}
}
