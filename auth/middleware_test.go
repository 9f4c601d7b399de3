package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware_Disabled(t *testing.T) {
	var sawClaims *Claims
	handler := Middleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sawClaims != nil {
		t.Error("claims attached with authentication disabled")
	}
}

func TestMiddleware_RejectsBadTokens(t *testing.T) {
	key := generateKey(t)
	verifier := NewVerifier(VerifierConfig{Issuer: testIssuer}, NewStaticKeyProvider(&key.PublicKey))
	handler := Middleware(verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with invalid credentials")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc123"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestMiddleware_AttachesClaims(t *testing.T) {
	key := generateKey(t)
	verifier := NewVerifier(VerifierConfig{Issuer: testIssuer}, NewStaticKeyProvider(&key.PublicKey))

	var gotSubject string
	handler := Middleware(verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, "", baseClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotSubject != "user-42" {
		t.Errorf("subject = %q, want user-42", gotSubject)
	}
}

func TestMiddleware_CaseInsensitiveScheme(t *testing.T) {
	key := generateKey(t)
	verifier := NewVerifier(VerifierConfig{Issuer: testIssuer}, NewStaticKeyProvider(&key.PublicKey))
	handler := Middleware(verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+signToken(t, key, "", baseClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
