package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, err := GenerateToken(secret, "admin", TokenExpiry)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("expected subject 'admin', got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Error("expected a JTI")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret1", "admin", TokenExpiry)

	if _, err := ValidateToken("secret2", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestExpiresAt(t *testing.T) {
	token, _ := GenerateToken("whatever", "test", time.Hour)

	exp, ok := ExpiresAt(token)
	if !ok {
		t.Fatal("expected exp claim to be readable without the secret")
	}
	diff := time.Until(exp) - time.Hour
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}

	if _, ok := ExpiresAt("opaque-token"); ok {
		t.Error("expected opaque token to have no readable expiry")
	}
}

func TestExpired(t *testing.T) {
	token, _ := GenerateToken("s", "test", time.Minute)
	now := time.Now()

	if Expired(token, now) {
		t.Error("fresh token reported as expired")
	}
	if !Expired(token, now.Add(2*time.Minute)) {
		t.Error("expected token to be expired two minutes later")
	}
	if Expired("opaque-token", now) {
		t.Error("opaque tokens must be left to the backend")
	}
}
