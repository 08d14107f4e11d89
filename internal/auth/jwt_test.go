package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseServiceJWT(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateServiceJWT(secret, "bridge", time.Hour)
	if err != nil {
		t.Fatalf("GenerateServiceJWT: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.Service != "bridge" {
		t.Errorf("service = %q", claims.Service)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateServiceJWT("secret-a", "bridge", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret-b", token); err == nil {
		t.Error("token accepted with wrong secret")
	}
}

func TestParseJWTExpired(t *testing.T) {
	token, err := GenerateServiceJWT("secret", "bridge", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseJWT("secret", token); err == nil {
		t.Error("expired token accepted")
	}
}
