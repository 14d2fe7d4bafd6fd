package utils

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "jane", "customer", 24)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("expected non-empty token string")
	}

	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Username != "jane" {
		t.Errorf("expected username jane, got %q", claims.Username)
	}
	if claims.Role != "customer" {
		t.Errorf("expected role customer, got %q", claims.Role)
	}

	remaining := time.Until(claims.ExpiresAt)
	if remaining < 23*time.Hour || remaining > 24*time.Hour {
		t.Errorf("expected ~24h horizon, got %s", remaining)
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "u", "admin", 24)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := ParseAccessToken("other-secret", tok.Token); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseAccessTokenGarbage(t *testing.T) {
	if _, err := ParseAccessToken("secret", "not.a.jwt"); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, "u", "admin", -1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := ParseAccessToken("secret", tok.Token); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestShouldRenew(t *testing.T) {
	cases := []struct {
		name      string
		expiresIn time.Duration
		want      bool
	}{
		{"far from expiry", 23 * time.Hour, false},
		{"inside renewal window", 30 * time.Minute, true},
		{"already expired", -time.Minute, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldRenew(time.Now().Add(tc.expiresIn), time.Hour)
			if got != tc.want {
				t.Errorf("ShouldRenew(%s) = %v, want %v", tc.expiresIn, got, tc.want)
			}
		})
	}
}
