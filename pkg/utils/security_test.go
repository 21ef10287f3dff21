package utils

import (
	"errors"
	"testing"

	"vida-vod/internal/config"
)

func TestTokenRoundTrip(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "s3cret", ExpireHours: 1}

	token, err := GenerateToken(cfg, "vida-vod", "u1", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ParseToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "admin" || claims.Issuer != "vida-vod" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestParseTokenErrors(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "s3cret", ExpireHours: 1}
	expired := &config.JWTConfig{Secret: "s3cret", ExpireHours: -1}
	other := &config.JWTConfig{Secret: "other", ExpireHours: 1}

	expiredToken, _ := GenerateToken(expired, "vida-vod", "u1", "user")
	foreignToken, _ := GenerateToken(other, "vida-vod", "u1", "user")

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expiredToken, ErrExpiredToken},
		{"wrong secret", foreignToken, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(cfg, tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword("hunter2", hash) {
		t.Error("Expected password to verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("Expected wrong password to fail")
	}
}
