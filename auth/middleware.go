package auth

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/mediamix/observe"
)

// Middleware returns an HTTP middleware that verifies bearer tokens and
// attaches the resulting claims to the request context.
//
// A nil verifier disables authentication entirely: requests pass through
// with no claims attached. This is the local-development mode used when
// no issuer is configured.
func Middleware(verifier *Verifier, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := bearerToken(r)
			if err != nil {
				unauthorized(w, "bearer token required")
				return
			}

			claims, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				logger.Debug(r.Context(), "token rejected",
					observe.F("path", r.URL.Path),
					observe.F("error", err.Error()))
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
