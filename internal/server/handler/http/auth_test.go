package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atinyakov/GophNotes/internal/service"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	existsReturn bool
	existsErr    error
	registerErr  error
	registered   string
	token        string
	tokenErr     error
}

func (f *fakeAuthService) UserExists(ctx context.Context, login string) (bool, error) {
	return f.existsReturn, f.existsErr
}

func (f *fakeAuthService) RegisterUser(ctx context.Context, login string) error {
	f.registered = login
	return f.registerErr
}

func (f *fakeAuthService) IssueToken(login string) (string, error) {
	return f.token, f.tokenErr
}

type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) IssueClientCertificate(login string) ([]byte, []byte, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return []byte("CERT " + login), []byte("KEY " + login), nil
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeAuthService
		issuer         CertificateIssuer
		expectedCode   int
		expectedSubstr string
		wantRegistered string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			service:        &fakeAuthService{},
			issuer:         &fakeIssuer{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "empty login",
			body:           `{"login":""}`,
			service:        &fakeAuthService{},
			issuer:         &fakeIssuer{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "login too long",
			body:           `{"login":"` + strings.Repeat("a", 65) + `"}`,
			service:        &fakeAuthService{},
			issuer:         &fakeIssuer{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "UserExists error",
			body:           `{"login":"alice"}`,
			service:        &fakeAuthService{existsErr: errors.New("db error")},
			issuer:         &fakeIssuer{},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
		{
			name:           "User already exists",
			body:           `{"login":"bob"}`,
			service:        &fakeAuthService{existsReturn: true},
			issuer:         &fakeIssuer{},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "user already exists",
		},
		{
			name:           "CA not configured",
			body:           `{"login":"charlie"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "failed to load CA",
		},
		{
			name:           "certificate failure",
			body:           `{"login":"charlie"}`,
			service:        &fakeAuthService{},
			issuer:         &fakeIssuer{err: errors.New("sign")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "failed to generate certificate",
		},
		{
			name:           "save failure",
			body:           `{"login":"dana"}`,
			service:        &fakeAuthService{registerErr: errors.New("db")},
			issuer:         &fakeIssuer{},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "failed to save user",
			wantRegistered: "dana",
		},
		{
			name:           "success",
			body:           `{"login":"erin"}`,
			service:        &fakeAuthService{},
			issuer:         &fakeIssuer{},
			expectedCode:   http.StatusOK,
			expectedSubstr: `"cert":"CERT erin"`,
			wantRegistered: "erin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/register", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: tt.service, Certificates: tt.issuer}
			h.Register(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}

			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(res.Body); err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, buf.String())
			}
			if tt.service.registered != tt.wantRegistered {
				t.Errorf("registered %q; want %q", tt.service.registered, tt.wantRegistered)
			}
		})
	}
}

func peer(cn string) *tls.ConnectionState {
	return &tls.ConnectionState{PeerCertificates: []*x509.Certificate{{Subject: pkix.Name{CommonName: cn}}}}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name         string
		tlsState     *tls.ConnectionState
		service      *fakeAuthService
		expectedCode int
		expectedJSON map[string]string
		noToken      bool
	}{
		{
			name:         "no TLS",
			tlsState:     nil,
			service:      &fakeAuthService{},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "empty peer certs",
			tlsState:     &tls.ConnectionState{},
			service:      &fakeAuthService{},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "UserExists error",
			tlsState:     peer("dave"),
			service:      &fakeAuthService{existsErr: errors.New("db fail")},
			expectedCode: http.StatusInternalServerError,
		},
		{
			name:         "User not found",
			tlsState:     peer("erin"),
			service:      &fakeAuthService{existsReturn: false},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "tokens disabled",
			tlsState:     peer("frank"),
			service:      &fakeAuthService{existsReturn: true, tokenErr: service.ErrTokensDisabled},
			expectedCode: http.StatusOK,
			expectedJSON: map[string]string{"status": "ok", "user": "frank"},
			noToken:      true,
		},
		{
			name:         "token failure",
			tlsState:     peer("frank"),
			service:      &fakeAuthService{existsReturn: true, tokenErr: errors.New("sign")},
			expectedCode: http.StatusInternalServerError,
		},
		{
			name:         "with token",
			tlsState:     peer("gina"),
			service:      &fakeAuthService{existsReturn: true, token: "jwt"},
			expectedCode: http.StatusOK,
			expectedJSON: map[string]string{"status": "ok", "user": "gina", "id_token": "jwt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/login", nil)
			req.TLS = tt.tlsState

			h := &AuthHandler{AuthService: tt.service}
			h.Login(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("%s: expected status %d, got %d", tt.name, tt.expectedCode, res.StatusCode)
			}

			if tt.expectedJSON != nil {
				var payload map[string]string
				if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
					t.Fatalf("failed to decode JSON: %v", err)
				}
				for k, v := range tt.expectedJSON {
					if payload[k] != v {
						t.Errorf("expected %s=%q, got %q", k, v, payload[k])
					}
				}
				if _, ok := payload["id_token"]; tt.noToken && ok {
					t.Error("id_token present although tokens are disabled")
				}
			}
		})
	}
}
