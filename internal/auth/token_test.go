package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", "user@example.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "user@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "user@example.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Fatal("token signed with a different secret must not validate")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken("user-1", "user@example.com", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := ValidateToken(token, "secret"); err == nil {
		t.Fatal("expired token must not validate")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := ValidateToken("not-a-token", "secret"); err == nil {
		t.Fatal("garbage token must not validate")
	}
}
