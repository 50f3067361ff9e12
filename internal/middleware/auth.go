// Package middleware provides HTTP middlewares for authentication, request
// logging and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenParser validates a bearer token and returns the login it was issued for.
type TokenParser interface {
	Parse(token string) (string, error)
}

// Authenticate resolves the calling principal and stores its login in the
// request context.
//
// A verified TLS client certificate wins: its Common Name is the login.
// Otherwise, when tokens is non-nil, an "Authorization: Bearer <jwt>" header
// is accepted. Requests with neither are rejected with 401.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			login := certLogin(r)
			if login == "" && tokens != nil {
				if raw, ok := bearerToken(r); ok {
					parsed, err := tokens.Parse(raw)
					if err != nil {
						http.Error(w, "invalid token", http.StatusUnauthorized)
						return
					}
					login = parsed
				}
			}
			if login == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithLogin(r.Context(), login)))
		})
	}
}

func certLogin(r *http.Request) string {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return ""
	}
	return r.TLS.PeerCertificates[0].Subject.CommonName
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithLogin returns a copy of ctx carrying login as the authenticated principal.
func WithLogin(ctx context.Context, login string) context.Context {
	return context.WithValue(ctx, userKey, login)
}

// GetLoginFromContext extracts the authenticated login from the request
// context. Returns an empty string if not found.
func GetLoginFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
