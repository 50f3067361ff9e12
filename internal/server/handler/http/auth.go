// Package http provides the HTTP handlers and router of the GophNotes API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/GophNotes/internal/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// UserExists checks whether a user with the given login exists.
	UserExists(context.Context, string) (bool, error)
	// RegisterUser registers a new user with the given login.
	RegisterUser(context.Context, string) error
	// IssueToken returns a bearer token for login, or service.ErrTokensDisabled.
	IssueToken(login string) (string, error)
}

// CertificateIssuer signs client certificates for new users.
type CertificateIssuer interface {
	IssueClientCertificate(login string) (certPEM, keyPEM []byte, err error)
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Certificates signs the certificate returned on registration.
	Certificates CertificateIssuer
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	// Login is the username to register. It becomes the certificate Common Name.
	Login string `json:"login" validate:"required,max=64,printascii"`
}

// Register handles user registration requests.
// If the user does not already exist, it generates a client certificate
// signed by the CA, stores the user and returns the PEM-encoded
// certificate and private key.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || validate.Struct(req) != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	exists, err := h.AuthService.UserExists(r.Context(), req.Login)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "user already exists", http.StatusConflict)
		return
	}

	if h.Certificates == nil {
		http.Error(w, "failed to load CA", http.StatusInternalServerError)
		return
	}
	certPEM, keyPEM, err := h.Certificates.IssueClientCertificate(req.Login)
	if err != nil {
		http.Error(w, "failed to generate certificate", http.StatusInternalServerError)
		return
	}

	if err := h.AuthService.RegisterUser(r.Context(), req.Login); err != nil {
		http.Error(w, "failed to save user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"cert": string(certPEM),
		"key":  string(keyPEM),
	})
}

// Login handles certificate-based login requests.
// The CommonName from the client certificate is used as the login. If the
// user exists, it returns status "ok", the username and, when bearer tokens
// are enabled, an id_token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		http.Error(w, "client certificate required", http.StatusUnauthorized)
		return
	}

	login := r.TLS.PeerCertificates[0].Subject.CommonName

	exists, err := h.AuthService.UserExists(r.Context(), login)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "user not found", http.StatusForbidden)
		return
	}

	resp := map[string]string{
		"status": "ok",
		"user":   login,
	}
	token, err := h.AuthService.IssueToken(login)
	switch {
	case errors.Is(err, service.ErrTokensDisabled):
	case err != nil:
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	default:
		resp["id_token"] = token
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
