package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-test-secret", time.Hour)

	token, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	userID, err := issuer.Verify(token)
	if err != nil || userID != "user-42" {
		t.Fatalf("Verify = %q, %v", userID, err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-test-secret", -time.Minute)
	token, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-one-secret-one", time.Hour).Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := NewTokenIssuer("secret-two-secret-two", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-test-secret", time.Hour)
	for _, bad := range []string{"", "garbage", "a.b.c"} {
		if _, err := issuer.Verify(bad); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) = %v", bad, err)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret1" {
		t.Fatalf("password stored in the clear")
	}
	if !CheckPassword(hash, "secret1") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}
