package service

import (
	"testing"
)

func TestGenerateSessionToken(t *testing.T) {
	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	// 32 random bytes base64-encode to 44 characters
	if len(token) != 44 {
		t.Errorf("GenerateSessionToken() length = %d, want 44", len(token))
	}

	// Test that tokens are unique
	token2, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken() second call error = %v", err)
	}

	if token == token2 {
		t.Error("GenerateSessionToken() produced duplicate tokens")
	}
}

func TestGenerateSessionToken_CookieSafe(t *testing.T) {
	for i := 0; i < 10; i++ {
		token, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken() error = %v", err)
		}
		for _, c := range token {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
				c == '-', c == '_', c == '=':
			default:
				t.Fatalf("token contains character %q unsafe for a cookie value", c)
			}
		}
	}
}
