package api

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/mediamix/auth"
)

func TestAPI_AuthRequired(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	verifier := auth.NewVerifier(auth.VerifierConfig{Issuer: "https://issuer.example.com"},
		auth.NewStaticKeyProvider(&key.PublicKey))
	s := newTestServer(t, verifier)

	// Health and metrics stay open.
	rec, _ := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", rec.Code)
	}

	// API routes reject anonymous requests.
	rec, _ = get(t, s, "/api/marketing-mix/summary")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   "https://issuer.example.com",
		"sub":   "user-42",
		"email": "analyst@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec2 := httptest.NewRecorder()
	s.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200; body %s", rec2.Code, rec2.Body)
	}
	if got := rec2.Body.String(); !strings.Contains(got, `"sub":"user-42"`) {
		t.Errorf("/api/me body = %s, want subject echoed", got)
	}
}

func TestAPI_MeWithoutAuth(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := get(t, s, "/api/me")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["authenticated"] != false {
		t.Errorf("authenticated = %v, want false", body["authenticated"])
	}
}
