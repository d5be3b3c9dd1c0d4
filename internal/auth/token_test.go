package auth

import (
	"errors"
	"testing"
	"time"
)

func testUser() *User {
	return &User{
		ID:    "01JTESTUSER0000000000000000",
		Email: "alice@example.com",
		Role:  "admin",
	}
}

func TestTokenCodecRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	token, exp, err := codec.Sign(testUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "01JTESTUSER0000000000000000" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Email != "alice@example.com" || claims.Role != "admin" {
		t.Fatalf("claims not preserved: %+v", claims)
	}
}

func TestTokenCodecRejectsTampering(t *testing.T) {
	codec, _ := NewTokenCodec(testSecret, 15*time.Minute)
	token, _, err := codec.Sign(testUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	other, _ := NewTokenCodec("another-secret-value-123", 15*time.Minute)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: got %v, want ErrInvalidToken", err)
	}
	if _, err := codec.Verify(token + "A"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("mangled signature: got %v, want ErrInvalidToken", err)
	}
	if _, err := codec.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenCodecExpiry(t *testing.T) {
	current := time.Now().UTC()
	codec, _ := NewTokenCodec(testSecret, time.Minute)
	codec.now = func() time.Time { return current }

	token, _, err := codec.Sign(testUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := codec.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("got %v, want ErrExpiredToken", err)
	}
}
