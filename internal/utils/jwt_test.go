package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signToken issues an HS256 token expiring ttl from now.
func signToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Issuer:    "civic-api",
		Subject:   "citizen-123",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte("key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return signed
}

func TestCredentialExpiry_JWT(t *testing.T) {
	signed := signToken(t, time.Hour)

	exp, ok, err := CredentialExpiry(signed)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !ok {
		t.Fatal("expected exp claim to be found")
	}
	if d := time.Until(exp); d <= 59*time.Minute || d > time.Hour+time.Second {
		t.Errorf("unexpected expiry distance %s", d)
	}
}

func TestCredentialExpiry_BearerPrefix(t *testing.T) {
	signed := signToken(t, -time.Minute)

	exp, ok, err := CredentialExpiry("Bearer " + signed)

	if err != nil || !ok {
		t.Fatalf("expected exp claim, got ok=%v err=%v", ok, err)
	}
	if !exp.Before(time.Now()) {
		t.Error("expected an expiry in the past")
	}
}

func TestCredentialExpiry_OpaqueToken(t *testing.T) {
	_, ok, err := CredentialExpiry("opaque-session-token")

	if err != nil {
		t.Fatalf("expected no error for opaque token, got: %v", err)
	}
	if ok {
		t.Error("expected ok=false for opaque token")
	}
}

func TestCredentialExpiry_Malformed(t *testing.T) {
	_, ok, err := CredentialExpiry("not.a.token")

	if err == nil {
		t.Error("expected error for malformed JWT, got nil")
	}
	if ok {
		t.Error("expected ok=false for malformed JWT")
	}
}

func TestCredentialExpiry_NoExpClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "citizen"})
	signed, err := token.SignedString([]byte("key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, ok, err := CredentialExpiry(signed)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ok {
		t.Error("expected ok=false without exp claim")
	}
}

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc", want: "abc"},
		{name: "surrounding spaces", header: "  Bearer abc  ", want: "abc"},
		{name: "missing token", header: "Bearer", wantErr: true},
		{name: "too many parts", header: "Bearer a b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearerToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("want %q, got %q", tt.want, got)
			}
		})
	}
}
