package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, "afyalink", time.Hour)
	tok, err := issuer.Issue("5f0c4b0e-2f6e-4d1b-9a57-8f7f5a0e0c11", "nurse@afyalink.test")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if tok.TokenType != "Bearer" || tok.AccessToken == "" {
		t.Fatalf("unexpected token %+v", tok)
	}
	if time.Until(tok.ExpiresAt) < 59*time.Minute {
		t.Errorf("unexpected expiry %s", tok.ExpiresAt)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	uid, _, err := runMiddleware(t, JWTMiddleware(issuer.Config()), req)
	if err != nil {
		t.Fatalf("middleware rejected issued token: %v", err)
	}
	if uid != "5f0c4b0e-2f6e-4d1b-9a57-8f7f5a0e0c11" {
		t.Errorf("unexpected subject %q", uid)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, "afyalink", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := issuer.Issue("u-1", "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	_, _, err = runMiddleware(t, JWTMiddleware(issuer.Config()), req)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}

func TestTokenIssuer_NoSecret(t *testing.T) {
	if _, err := NewTokenIssuer(nil, "afyalink", time.Hour).Issue("u-1", ""); err == nil {
		t.Error("expected error without secret")
	}
}
