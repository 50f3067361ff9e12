package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/atinyakov/GophNotes/internal/certgen"
	"github.com/atinyakov/GophNotes/internal/config"
	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOptions(t *testing.T) *config.Options {
	t.Helper()
	t.Chdir(t.TempDir())
	options, err := config.Load([]string{"-jwt-secret", "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	return options
}

func send(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_InMemoryFlow(t *testing.T) {
	options := testOptions(t)
	ctx := context.Background()

	st, err := openStores(ctx, options, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, st.db)

	ca, err := certgen.NewAuthority("Test CA", time.Hour)
	require.NoError(t, err)

	h, err := newHandler(options, st, ca, zap.NewNop())
	require.NoError(t, err)

	// register alice
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString(`{"login":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := send(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// login with a certificate and receive a bearer token
	req = httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.TLS = &tls.ConnectionState{PeerCertificates: []*x509.Certificate{{Subject: pkix.Name{CommonName: "alice"}}}}
	rec = send(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	token := login["id_token"]
	require.NotEmpty(t, token)

	// create a note with the token
	body := `{"content":"meet at noon","password":"secret123","expirationDate":"2099-01-01T00:00:00Z","user":{"login":"alice"}}`
	req = httptest.NewRequest(http.MethodPost, "/api/notes", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = send(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Note
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, options.PublicURLBase+created.ID, created.Link)

	// read it publicly through the path of its link
	link, err := url.Parse(created.Link)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, link.Path, nil)
	req.Header.Set("password", "secret123")
	rec = send(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret123")
	assert.Contains(t, rec.Body.String(), "meet at noon")

	// a forged token is rejected
	req = httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, send(t, h, req).Code)

	// another principal cannot delete it
	req = httptest.NewRequest(http.MethodDelete, "/api/notes/"+created.ID, nil)
	req.TLS = &tls.ConnectionState{PeerCertificates: []*x509.Certificate{{Subject: pkix.Name{CommonName: "mallory"}}}}
	assert.Equal(t, http.StatusForbidden, send(t, h, req).Code)
}

func TestNewHandler_RejectsShortSecret(t *testing.T) {
	options := testOptions(t)
	options.JWTSecret = "short"

	_, err := newHandler(options, &stores{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestTLSConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := tlsConfig(dir)
	require.Error(t, err)

	ca, err := certgen.NewAuthority("Test CA", time.Hour)
	require.NoError(t, err)
	require.NoError(t, ca.WriteCA(dir))
	certPEM, keyPEM, err := ca.IssueServerCertificate([]string{"localhost"}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, certgen.WritePair(dir, certgen.ServerCertFile, certgen.ServerKeyFile, certPEM, keyPEM))

	cfg, err := tlsConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, tls.VerifyClientCertIfGiven, cfg.ClientAuth)
	assert.Len(t, cfg.Certificates, 1)

	_, err = certgen.LoadAuthority(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
