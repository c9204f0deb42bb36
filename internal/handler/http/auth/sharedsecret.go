// Package auth gates the API behind a single trusted-caller shared secret.
// There is no per-user identity or role here: the conversational frontend
// and any operator tooling are all one trusted client, so the only question
// Authz answers is "did the caller present the configured secret."
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"rssnews/internal/handler/http/respond"
)

const bearerPrefix = "Bearer "

// Authz requires a matching bearer token on every request to a protected
// endpoint. Public endpoints (see IsPublicEndpoint) pass through untouched.
func Authz(next http.Handler) http.Handler {
	secret := os.Getenv("API_SHARED_SECRET")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicEndpoint(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if err := validateSharedSecret(r.Header.Get("Authorization"), secret); err != nil {
			respond.SafeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized: %w", err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func validateSharedSecret(authz, secret string) error {
	if secret == "" {
		return errors.New("server has no shared secret configured")
	}
	if !strings.HasPrefix(authz, bearerPrefix) {
		return errors.New("missing bearer token")
	}
	presented := strings.TrimPrefix(authz, bearerPrefix)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
		return errors.New("invalid token")
	}
	return nil
}

// ValidateSharedSecretConfig validates the API_SHARED_SECRET environment
// variable at startup, the way the teacher validated JWT_SECRET: fail fast
// rather than let the server run with no effective authentication.
func ValidateSharedSecretConfig() error {
	secret := os.Getenv("API_SHARED_SECRET")
	if secret == "" {
		return errors.New("API_SHARED_SECRET must be set")
	}
	if len(secret) < 32 {
		return errors.New("API_SHARED_SECRET must be at least 32 characters")
	}
	return nil
}
